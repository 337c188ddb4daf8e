package slackbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/slack-go/slack"
)

// Connection errors. The poller picks its restart policy from the cause of an error
var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrIncompleteLogin  = errors.New("incomplete login")
	ErrConnectionClosed = errors.New("connection closed")
	ErrConnectionReset  = errors.New("connection reset")
	ErrTimeout          = errors.New("timeout")
	ErrConfig           = errors.New("invalid configuration")
)

const (
	replyBufferSize = 1024
	writeTimeout    = 10 * time.Second
)

var authErrors = []string{"invalid_auth", "not_authed", "account_inactive", "token_revoked", "missing_scope"}

// LoginInfo identifies the bot and the team of a real time messaging session
type LoginInfo struct {
	SelfID     string
	SelfName   string
	TeamID     string
	TeamName   string
	TeamDomain string
}

// DefaultName returns the name of the slack side when none is configured: self@domain
func (l LoginInfo) DefaultName() string {
	return fmt.Sprintf("%s@%s", l.SelfName, l.TeamDomain)
}

// Connection is a real time messaging session
type Connection interface {
	// Poll returns the replies read since the last call without blocking. An error is returned once the
	// session is over
	Poll() (replies []Reply, err error)

	// Ping sends a keep alive
	Ping() error

	// Info returns the login info of the session
	Info() LoginInfo

	io.Closer
}

// Connector opens a new Connection
type Connector func(ctx context.Context) (Connection, error)

// RTMConnector returns a Connector starting sessions with the api and reading them over a websocket
func RTMConnector(api API, dialer *websocket.Dialer) Connector {
	return func(ctx context.Context) (Connection, error) {
		return Dial(ctx, api, dialer)
	}
}

type rtmConnection struct {
	info    LoginInfo
	ws      *websocket.Conn
	replies chan Reply

	writeMu sync.Mutex
	pingID  int64

	errMu   sync.Mutex
	readErr error
}

// Dial starts a real time messaging session and connects to its websocket. Replies are read in the
// background until the connection is closed
func Dial(ctx context.Context, api API, dialer *websocket.Dialer) (c Connection, err error) {
	info, url, err := api.ConnectRTMContext(ctx)
	if err != nil {
		return nil, classifyConnectError(err)
	}

	if info == nil || info.User == nil || info.Team == nil {
		return nil, errors.Wrap(ErrIncompleteLogin, "login info is missing the user or the team")
	}

	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrConnectionFailed, "dialing websocket: %v", err)
	}

	rc := new(rtmConnection)
	rc.ws = ws
	rc.replies = make(chan Reply, replyBufferSize)
	rc.info = LoginInfo{SelfID: info.User.ID, SelfName: info.User.Name, TeamID: info.Team.ID, TeamName: info.Team.Name, TeamDomain: info.Team.Domain}

	go rc.read()

	return rc, nil
}

func (c *rtmConnection) read() {
	defer close(c.replies)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.errMu.Lock()
			c.readErr = classifyReadError(err)
			c.errMu.Unlock()
			return
		}

		var r Reply
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}

		c.replies <- r
	}
}

// Poll implements Connection
func (c *rtmConnection) Poll() (replies []Reply, err error) {
	replies = make([]Reply, 0)

	for {
		select {
		case r, ok := <-c.replies:
			if !ok {
				c.errMu.Lock()
				defer c.errMu.Unlock()
				return replies, c.readErr
			}
			replies = append(replies, r)
		default:
			return replies, nil
		}
	}
}

// Ping implements Connection
func (c *rtmConnection) Ping() (err error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	id := atomic.AddInt64(&c.pingID, 1)
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err = c.ws.WriteJSON(map[string]interface{}{"id": id, "type": "ping"}); err != nil {
		return classifyReadError(err)
	}

	return nil
}

// Info implements Connection
func (c *rtmConnection) Info() LoginInfo {
	return c.info
}

// Close implements Connection
func (c *rtmConnection) Close() error {
	return c.ws.Close()
}

func classifyConnectError(err error) error {
	var rle *slack.RateLimitedError
	if errors.As(err, &rle) {
		return errors.Wrapf(ErrConnectionFailed, "rate limited, retry after %s", rle.RetryAfter)
	}

	for _, e := range authErrors {
		if strings.Contains(err.Error(), e) {
			return errors.Wrapf(ErrConfig, "connecting: %v", err)
		}
	}

	// Anything else (slack http errors, fatal_error, ratelimited without a retry hint) is worth retrying
	classified := classifyReadError(err)
	if !isConnectionError(classified) {
		return errors.Wrapf(ErrConnectionFailed, "connecting: %v", err)
	}

	return classified
}

func isConnectionError(err error) bool {
	switch errors.Cause(err) {
	case ErrConnectionClosed, ErrConnectionReset, ErrConnectionFailed, ErrTimeout:
		return true
	}

	return false
}

// classifyReadError maps network and websocket errors to the connection error causes
func classifyReadError(err error) error {
	var netErr net.Error

	switch {
	case isCloseError(err):
		return errors.Wrapf(ErrConnectionClosed, "%v", err)
	case errors.Is(err, syscall.ECONNRESET):
		return errors.Wrapf(ErrConnectionReset, "%v", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return errors.Wrapf(ErrTimeout, "%v", err)
	case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed):
		return errors.Wrapf(ErrConnectionClosed, "%v", err)
	case errors.As(err, &netErr):
		return errors.Wrapf(ErrConnectionFailed, "%v", err)
	}

	return err
}

func isCloseError(err error) bool {
	var ce *websocket.CloseError
	return errors.As(err, &ce)
}
