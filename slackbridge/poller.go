package slackbridge

import (
	"context"
	"time"

	"github.com/alexandre-normand/chatrelay"
	"github.com/pkg/errors"
)

const (
	typeHello = "hello"

	defaultPollInterval         = 100 * time.Millisecond
	defaultPingInterval         = 30 * time.Second
	defaultMaxReconnectAttempts = 10

	shortRestartDelay = time.Second
	longRestartDelay  = 10 * time.Second
)

// InboundHandler is implemented by any value that handles raw events seen on an endpoint. *chatrelay.Relay implements it
type InboundHandler interface {
	OnInbound(origin chatrelay.Endpoint, raw interface{})
}

// Poller reads replies from a slack session and hands them to the relay. Lost sessions are restarted
// according to the cause of the failure
type Poller struct {
	connect Connector
	handler InboundHandler
	log     chatrelay.SLogger

	pollInterval         time.Duration
	pingInterval         time.Duration
	maxReconnectAttempts int

	onLogin []func(LoginInfo)
	sleep   func(ctx context.Context, d time.Duration) bool
}

// PollerOption defines an option for a Poller
type PollerOption func(p *Poller)

// OptionPollInterval sets the delay between two polls of the session
func OptionPollInterval(d time.Duration) func(p *Poller) {
	return func(p *Poller) {
		p.pollInterval = d
	}
}

// OptionPingInterval sets the delay between two keep alives
func OptionPingInterval(d time.Duration) func(p *Poller) {
	return func(p *Poller) {
		p.pingInterval = d
	}
}

// OptionMaxReconnectAttempts sets how many consecutive restarts are attempted before giving up
func OptionMaxReconnectAttempts(n int) func(p *Poller) {
	return func(p *Poller) {
		p.maxReconnectAttempts = n
	}
}

// OptionOnLogin adds a function called with the login info of every new session
func OptionOnLogin(f func(LoginInfo)) func(p *Poller) {
	return func(p *Poller) {
		p.onLogin = append(p.onLogin, f)
	}
}

// NewPoller returns a new Poller opening sessions with connect and handing replies to handler
func NewPoller(connect Connector, handler InboundHandler, log chatrelay.SLogger, options ...PollerOption) (p *Poller) {
	p = new(Poller)
	p.connect = connect
	p.handler = handler
	p.log = log
	p.pollInterval = defaultPollInterval
	p.pingInterval = defaultPingInterval
	p.maxReconnectAttempts = defaultMaxReconnectAttempts
	p.onLogin = make([]func(LoginInfo), 0)
	p.sleep = sleepContext

	for _, opt := range options {
		opt(p)
	}

	return p
}

// Run polls sessions until the context is done. An error is returned when the configuration is invalid, when
// a failure can't be recovered from or when too many consecutive restarts failed
func (p *Poller) Run(ctx context.Context) (err error) {
	attempts := 0

	for {
		established, err := p.runSession(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if established {
			attempts = 0
		}

		delay, retry := restartDelay(err)
		if !retry {
			return err
		}

		attempts++
		if attempts > p.maxReconnectAttempts {
			return errors.Wrapf(err, "giving up after %d reconnect attempts", p.maxReconnectAttempts)
		}

		p.log.Printf("Slack session lost (%v), restarting in %s (attempt %d of %d)", err, delay, attempts, p.maxReconnectAttempts)
		if !p.sleep(ctx, delay) {
			return nil
		}
	}
}

// restartDelay returns how long to wait before restarting after err and whether a restart should be attempted at all
func restartDelay(err error) (delay time.Duration, retry bool) {
	switch errors.Cause(err) {
	case ErrConnectionClosed, ErrConnectionReset, ErrIncompleteLogin:
		return shortRestartDelay, true
	case ErrConnectionFailed, ErrTimeout:
		return longRestartDelay, true
	}

	return 0, false
}

// runSession polls a single session until it fails or the context is done. established is true if the
// session was opened successfully
func (p *Poller) runSession(ctx context.Context) (established bool, err error) {
	conn, err := p.connect(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	info := conn.Info()
	p.log.Printf("Connected to slack as [%s] on team [%s]", info.SelfName, info.TeamName)
	for _, f := range p.onLogin {
		f(info)
	}

	lastPing := time.Now()
	for {
		if ctx.Err() != nil {
			return true, nil
		}

		replies, err := conn.Poll()
		p.handle(replies)
		if err != nil {
			return true, err
		}

		if time.Since(lastPing) > p.pingInterval {
			if err = conn.Ping(); err != nil {
				return true, err
			}
			lastPing = time.Now()
		}

		if !p.sleep(ctx, p.pollInterval) {
			return true, nil
		}
	}
}

// handle hands replies to the handler. A batch starting with the session greeting is dropped
func (p *Poller) handle(replies []Reply) {
	if len(replies) == 0 || replies[0].Type == typeHello {
		return
	}

	for _, r := range replies {
		p.handler.OnInbound(chatrelay.ExternalEndpoint(r.ChannelID()), r)
	}
}

// sleepContext sleeps for d and returns false if the context was done first
func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
