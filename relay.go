package chatrelay

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/alexandre-normand/chatrelay/config"
	"github.com/alexandre-normand/chatrelay/schedule"
	"github.com/alexandre-normand/chatrelay/synclink"
	"github.com/google/uuid"
	"github.com/marcsantiago/gocron"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	// VERSION represents the current relay version
	VERSION = "1.0.0"

	defaultLogPrefix = "chatrelay: "
	defaultLogFlag   = log.Lshortfile | log.LstdFlags
)

// Relay relays messages between linked internal conversations and external channels. Platforms
// hand raw events to OnInbound and the relay takes care of normalizing, running plugins and
// delivering to every linked endpoint
type Relay struct {
	name     string
	bridgeID string
	config   *viper.Viper

	registry   *synclink.Registry
	router     *Router
	deliverers map[Side]Deliverer
	dispatcher *partitionDispatcher
	images     *ImageWaiter

	defaultAction Answerer
	plugins       []*Plugin
	closers       []io.Closer

	log    SLogger
	logger *log.Logger
	meter  metric.Meter

	startOnce sync.Once
	cancel    context.CancelFunc

	*instrumenter
}

// Option defines an option for a Relay
type Option func(*Relay)

// OptionLog sets a logger for the relay
func OptionLog(logger *log.Logger) func(*Relay) {
	return func(r *Relay) {
		r.logger = logger
	}
}

// OptionLogfile sets a logfile for the relay
func OptionLogfile(logfile *os.File) func(*Relay) {
	return func(r *Relay) {
		r.logger = log.New(logfile, defaultLogPrefix, defaultLogFlag)
	}
}

// OptionMeter sets the meter used for the relay metrics. Defaults to the global meter provider's
func OptionMeter(meter metric.Meter) func(*Relay) {
	return func(r *Relay) {
		r.meter = meter
	}
}

// New creates a new relay with the given name and configuration. Links are looked up in the registry
func New(name string, v *viper.Viper, registry *synclink.Registry, options ...Option) (r *Relay, err error) {
	r = new(Relay)
	r.name = name
	r.config = config.LayerConfigWithDefaults(v)
	r.registry = registry
	r.deliverers = make(map[Side]Deliverer)
	r.plugins = make([]*Plugin, 0)
	r.closers = make([]io.Closer, 0)
	r.logger = log.New(os.Stdout, defaultLogPrefix, defaultLogFlag)
	r.meter = otel.Meter("chatrelay")

	for _, opt := range options {
		opt(r)
	}

	r.log = NewSLogger(r.logger, r.config.GetBool(config.DebugKey))
	r.defaultAction = func(m *IncomingMessage) *Answer {
		return &Answer{Text: fmt.Sprintf("I don't understand, ask me for \"%s\" to get a list of things I do", helpPluginName)}
	}

	r.bridgeID = r.config.GetString(config.BridgeIDKey)
	if r.bridgeID == "" {
		r.bridgeID = name
	}

	if r.instrumenter, err = newInstrumenter(name, r.meter); err != nil {
		return nil, err
	}

	r.router = newRouter(r.bridgeID, registry, r.log, r.instrumenter)
	r.images = NewImageWaiter(config.GetDuration(r.config, config.ImageRetentionKey, 5*time.Minute))

	r.dispatcher, err = newPartitionDispatcher(r.config.GetInt(config.DeliveryPartitionCountKey), r.config.GetInt(config.DeliveryBufferedTaskCountKey), r.deliver, r.log, r.instrumenter)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Name returns the relay name
func (r *Relay) Name() string {
	return r.name
}

// BridgeID returns the identifier of this relay in already-relayed sets
func (r *Relay) BridgeID() string {
	return r.bridgeID
}

// Registry returns the link registry
func (r *Relay) Registry() *synclink.Registry {
	return r.registry
}

// Images returns the waiter on which deferred image urls are resolved
func (r *Relay) Images() *ImageWaiter {
	return r.images
}

// Logger returns the relay logger
func (r *Relay) Logger() SLogger {
	return r.log
}

// RegisterPlatform registers the normalizer and deliverer of a side. Must be called before Start
func (r *Relay) RegisterPlatform(side Side, n Normalizer, d Deliverer) {
	r.router.normalizers[side] = n
	r.deliverers[side] = d
}

// RegisterPlugin registers a plugin with the relay. This should be invoked prior to calling Start
func (r *Relay) RegisterPlugin(p *Plugin) {
	p.Logger = r.log
	r.plugins = append(r.plugins, p)
}

// RegisterCloser adds a closer to close when the relay is closed
func (r *Relay) RegisterCloser(c io.Closer) {
	r.closers = append(r.closers, c)
}

// ScheduleMaintenance schedules the sweep of resolved image urls kept past their retention
func (r *Relay) ScheduleMaintenance(s *gocron.Scheduler) error {
	sd := schedule.Every(config.GetDuration(r.config, config.ImageRetentionKey, 5*time.Minute))
	if sd.Validate() != nil {
		sd = schedule.ScheduleDefinition{Interval: 1, Unit: schedule.Minutes}
	}

	return schedule.Run(s, sd, r.images.Sweep)
}

// Start adds the help plugin and starts the delivery workers. Deliveries run until Close is called
func (r *Relay) Start() {
	r.startOnce.Do(func() {
		r.RegisterPlugin(&r.newHelpPlugin(VERSION).Plugin)

		var ctx context.Context
		ctx, r.cancel = context.WithCancel(context.Background())
		r.dispatcher.start(ctx)

		r.log.Printf("Relay [%s] started with [%d] plugin(s)", r.bridgeID, len(r.plugins))
	})
}

// OnInbound handles a raw event seen on the origin endpoint. Failures are logged and never
// returned to the caller
func (r *Relay) OnInbound(origin Endpoint, raw interface{}) {
	defer r.recoverAt("inbound", origin)

	msg, err := r.router.Normalize(origin, raw)
	if IsSkip(err) {
		return
	} else if IsParseError(err) {
		r.log.Debugf("Dropping malformed event from [%s]: %v", origin, err)
		return
	} else if err != nil {
		r.log.Printf("Error handling event from [%s]: %v", origin, err)
		return
	}

	r.handle(origin, msg)
}

// OnOutbound handles a message the host itself sent on the origin endpoint. It is relayed to
// linked endpoints but never handed to plugins. Failures are logged and never returned to the caller
func (r *Relay) OnOutbound(origin Endpoint, msg RelayMessage) {
	defer r.recoverAt("outbound", origin)

	r.seen(origin.Side)
	r.dispatchAll(r.router.Fanout(origin, msg))
}

func (r *Relay) handle(origin Endpoint, msg RelayMessage) {
	answers := r.runPlugins(origin, msg)

	r.dispatchAll(r.router.Fanout(origin, msg))
	r.dispatchAll(answers)
}

func (r *Relay) dispatchAll(tasks []DeliveryTask) {
	for _, t := range tasks {
		if err := r.dispatcher.dispatch(t); err != nil {
			r.log.Printf("Error dispatching %s: %v", t, err)
		}
	}
}

func (r *Relay) recoverAt(direction string, origin Endpoint) {
	if p := recover(); p != nil {
		r.log.Printf("Recovered from panic handling %s event from [%s]: %v", direction, origin, p)
	}
}

// runPlugins runs commands on messages addressed to the relay and hear actions on every other
// message that isn't an echo. Answers are turned into tasks delivered back to the origin
func (r *Relay) runPlugins(origin Endpoint, msg RelayMessage) (tasks []DeliveryTask) {
	if msg.Provenance != nil || len(msg.AlreadyRelayed) > 0 {
		return nil
	}

	var answers []*Answer
	if msg.Command != "" {
		in := IncomingMessage{Origin: origin, NormalizedText: msg.Command, RelayMessage: msg}
		answers = runActions(r.commands(), &in)

		if len(answers) == 0 {
			answers = append(answers, r.defaultAction(&in))
		}
	} else {
		in := IncomingMessage{Origin: origin, NormalizedText: msg.Text, RelayMessage: msg}
		answers = runActions(r.hearActions(), &in)
	}

	tasks = make([]DeliveryTask, 0, len(answers))
	for _, a := range answers {
		tasks = append(tasks, r.answerTask(origin, a))
	}

	return tasks
}

func (r *Relay) commands() (actions []ActionDefinition) {
	for _, p := range r.plugins {
		actions = append(actions, p.Commands...)
	}

	return actions
}

func (r *Relay) hearActions() (actions []ActionDefinition) {
	for _, p := range r.plugins {
		actions = append(actions, p.HearActions...)
	}

	return actions
}

// runActions invokes every action matching the message. More than one action can answer a single message
func runActions(actions []ActionDefinition, m *IncomingMessage) (answers []*Answer) {
	answers = make([]*Answer, 0)

	for _, action := range actions {
		if action.Match(m) {
			if a := action.Answer(m); a != nil {
				answers = append(answers, a)
			}
		}
	}

	return answers
}

// answerTask returns a task posting the answer as the relay itself on the origin endpoint
func (r *Relay) answerTask(origin Endpoint, a *Answer) (t DeliveryTask) {
	t.ID = uuid.NewString()
	t.Origin = origin
	t.Target = origin
	t.Text = a.Text
	t.Provenance = Provenance{Origin: origin}
	t.AlreadyRelayed = withBridge(nil, r.bridgeID)

	if a.ImageURL != "" {
		t.Image = &ImageRelay{URL: a.ImageURL}
	}

	return t
}

// deliver runs a task with the deliverer of its target side. It runs on a dispatcher worker
func (r *Relay) deliver(ctx context.Context, task DeliveryTask) {
	d, ok := r.deliverers[task.Target.Side]
	if !ok {
		r.log.Printf("No deliverer registered for side [%s], dropping %s", task.Target.Side, task)
		return
	}

	var err error
	elapsed := measure(func() {
		err = d.Deliver(ctx, task)
	})

	r.delivered(task.Target.Side, elapsed, err)
	if err != nil {
		r.log.Printf("Error delivering [%s] with text [%s]: %v", task.Target, task.Text, err)
		return
	}

	r.log.Debugf("Delivered %s in %s", task, elapsed)
}

// Close stops the delivery workers after queued tasks are delivered and closes all registered closers.
// The first error encountered is returned
func (r *Relay) Close() (err error) {
	r.dispatcher.stop()
	if r.cancel != nil {
		r.cancel()
	}

	for _, c := range r.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	return err
}
