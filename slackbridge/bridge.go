package slackbridge

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/alexandre-normand/chatrelay"
	"github.com/alexandre-normand/chatrelay/config"
	"github.com/alexandre-normand/chatrelay/schedule"
	"github.com/gorilla/websocket"
	"github.com/marcsantiago/gocron"
	"github.com/pkg/errors"
	"github.com/slack-go/slack"
	"github.com/spf13/viper"
)

// Bridge is the slack side of a relay
type Bridge struct {
	Directory  *Directory
	Normalizer *Normalizer
	Adapter    *Adapter
	Poller     *Poller

	api         API
	admins      []string
	refreshMins uint64
	log         chatrelay.SLogger

	mu   sync.RWMutex
	name string
}

// NewClient returns a slack client for the configured token. ErrConfig is returned when the token is missing
func NewClient(v *viper.Viper) (c *slack.Client, err error) {
	token := v.GetString(config.SlackTokenKey)
	if token == "" {
		return nil, errors.Wrapf(ErrConfig, "missing [%s]", config.SlackTokenKey)
	}

	debug := v.GetBool(config.DebugKey)
	return slack.New(token, slack.OptionDebug(debug), slack.OptionLog(log.New(os.Stdout, "slack-go: ", log.Lshortfile|log.LstdFlags))), nil
}

// New assembles the slack side of the relay and registers its normalizer, deliverer and sync plugin. The
// relay must not be started yet
func New(v *viper.Viper, relay *chatrelay.Relay, api API, fetcher chatrelay.ImageFetcher, options ...AdapterOption) (b *Bridge, err error) {
	v = config.LayerConfigWithDefaults(v)

	b = new(Bridge)
	b.log = relay.Logger()
	b.api = api
	b.name = v.GetString(config.SlackNameKey)
	b.admins = config.GetStringSlice(v, config.SlackAdminsKey)
	b.refreshMins = uint64(v.GetInt(config.SlackDirectoryRefreshKey))

	if b.Directory, err = NewDirectory(v.GetInt(config.SlackDirectoryCacheSizeKey), NewAPILoader(api), b.log); err != nil {
		return nil, errors.Wrap(err, "creating slack directory")
	}

	b.Normalizer = NewNormalizer(b.Directory)
	adapterOptions := []AdapterOption{
		OptionRateLimit(v.GetFloat64(config.SlackRateLimitKey), v.GetInt(config.SlackRateBurstKey)),
		OptionImageWaitTimeout(config.GetDuration(v, config.ImageWaitTimeoutKey, defaultImageWaitTimeout)),
	}
	b.Adapter = NewAdapter(api, relay.Images(), fetcher, b.log, append(adapterOptions, options...)...)

	b.Poller = NewPoller(RTMConnector(api, websocket.DefaultDialer), relay, b.log,
		OptionPollInterval(config.GetDuration(v, config.SlackPollIntervalKey, defaultPollInterval)),
		OptionPingInterval(config.GetDuration(v, config.SlackPingIntervalKey, defaultPingInterval)),
		OptionMaxReconnectAttempts(v.GetInt(config.SlackMaxReconnectAttemptsKey)),
		OptionOnLogin(b.onLogin))

	relay.RegisterPlatform(chatrelay.External, b.Normalizer, b.Adapter)
	relay.RegisterCloser(b.Adapter)
	relay.RegisterPlugin(NewSyncPlugin(relay.Registry(), b.admins))

	return b, nil
}

// Name returns the configured name of the slack side or, once logged in, self@domain when none is configured
func (b *Bridge) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.name
}

// Run polls slack until the context is done or the session can't be recovered
func (b *Bridge) Run(ctx context.Context) error {
	return b.Poller.Run(ctx)
}

// ScheduleRefresh schedules the periodic directory refresh on the scheduler. Nothing is scheduled when the
// refresh interval is zero
func (b *Bridge) ScheduleRefresh(s *gocron.Scheduler) error {
	if b.refreshMins == 0 {
		return nil
	}

	return b.Directory.ScheduleRefresh(s, schedule.Every(time.Duration(b.refreshMins)*time.Minute))
}

func (b *Bridge) onLogin(login LoginInfo) {
	if login.TeamDomain == "" {
		login = b.withTeamInfo(login)
	}
	b.Normalizer.SetLogin(login)

	b.mu.Lock()
	if b.name == "" {
		b.name = login.DefaultName()
	}
	b.mu.Unlock()

	for _, a := range b.admins {
		if _, found := b.Directory.Lookup(a); !found {
			b.log.Printf("Admin [%s] of [%s] isn't a known slack user", a, b.Name())
		}
	}
}

// withTeamInfo fills in the team of a login that came without one
func (b *Bridge) withTeamInfo(login LoginInfo) LoginInfo {
	ctx, cancel := context.WithTimeout(context.Background(), defaultLoadTimeout)
	defer cancel()

	team, err := b.api.GetTeamInfoContext(ctx)
	if err != nil {
		b.log.Printf("Error loading team info: %v", err)
		return login
	}

	login.TeamID = team.ID
	login.TeamName = team.Name
	login.TeamDomain = team.Domain

	return login
}
