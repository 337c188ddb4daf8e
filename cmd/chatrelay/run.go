package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexandre-normand/chatrelay"
	"github.com/alexandre-normand/chatrelay/config"
	"github.com/alexandre-normand/chatrelay/hangouts"
	"github.com/alexandre-normand/chatrelay/plugins"
	"github.com/alexandre-normand/chatrelay/slackbridge"
	"github.com/alexandre-normand/chatrelay/synclink"
	"github.com/marcsantiago/gocron"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

// run wires both sides of the relay and runs them until a signal is received or one of them fails for good
func run(ctx context.Context, configPath string) (err error) {
	v, err := config.NewViperFromFile(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	name := v.GetString(config.NameKey)
	meter := otel.Meter("chatrelay")

	storer, err := newStorer(v, name)
	if err != nil {
		return err
	}
	defer storer.Close()

	registry, err := synclink.NewRegistry(name, storer, synclink.OptionDefaultExternalTag(v.GetString(config.SlackTeamTagKey)))
	if err != nil {
		return err
	}

	replyStorer, err := newStorer(v, name+"-autoreplies")
	if err != nil {
		return err
	}

	autoReplier := plugins.NewAutoReplier(v, replyStorer)

	relay, err := chatrelay.NewRelay(name, v, registry, chatrelay.OptionMeter(meter)).
		WithPlugin(plugins.NewVersionner(name, chatrelay.VERSION, func() int { return len(registry.All()) })).
		WithPlugin(&autoReplier.Plugin).
		WithCloser(replyStorer).
		Build()
	if err != nil {
		replyStorer.Close()
		return err
	}
	defer relay.Close()

	slackSide, err := newSlackSide(v, relay, name)
	if err != nil {
		return err
	}

	hostSide, err := newHostSide(v, relay, name)
	if err != nil {
		return err
	}

	autoReplier.Watch()

	relay.Start()

	stopScheduler, err := startScheduler(v, relay, slackSide)
	if err != nil {
		return err
	}
	defer func() { stopScheduler <- true }()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return errors.Wrap(slackSide.Run(gctx), "slack")
	})
	g.Go(func() error {
		return errors.Wrap(hostSide.Run(gctx), "webhook")
	})

	return g.Wait()
}

func newSlackSide(v *viper.Viper, relay *chatrelay.Relay, name string) (b *slackbridge.Bridge, err error) {
	client, err := slackbridge.NewClient(v)
	if err != nil {
		return nil, err
	}

	api, err := slackbridge.NewAPIWithTelemetry(client, name, otel.Meter("chatrelay"))
	if err != nil {
		return nil, err
	}

	// Images relayed to slack come from the host. Answer images can be anywhere and never get a token
	fetcher := newImageFetcher(v, v.GetString(config.HangoutsImageTokenKey), config.GetHangoutsImageHosts(v))
	return slackbridge.New(v, relay, api, fetcher, slackbridge.OptionAnswerFetcher(fetcher.WithoutToken()))
}

func newHostSide(v *viper.Viper, relay *chatrelay.Relay, name string) (b *hangouts.Bridge, err error) {
	webhookHost, err := hangouts.NewHost(v)
	if err != nil {
		return nil, err
	}

	host, err := hangouts.NewHostWithTelemetry(webhookHost, name, otel.Meter("chatrelay"))
	if err != nil {
		return nil, err
	}

	// Images relayed to the host come from slack and need the slack token, but only on slack file hosts
	fetcher := newImageFetcher(v, v.GetString(config.SlackTokenKey), config.GetStringSlice(v, config.SlackFileHostsKey))
	return hangouts.New(v, relay, host, fetcher, hangouts.OptionAnswerFetcher(fetcher.WithoutToken())), nil
}

func newImageFetcher(v *viper.Viper, token string, tokenHosts []string) *chatrelay.HTTPImageFetcher {
	return chatrelay.NewHTTPImageFetcher(config.GetDuration(v, config.ImageFetchTimeoutKey, 30*time.Second), v.GetInt(config.ImageMaxSizeBytesKey),
		chatrelay.OptionBearerToken(token, tokenHosts...))
}

// startScheduler schedules the relay maintenance and the slack directory refresh then starts the scheduler. Sending on the returned
// channel stops it
func startScheduler(v *viper.Viper, relay *chatrelay.Relay, slackSide *slackbridge.Bridge) (stop chan bool, err error) {
	timeLoc, err := config.GetTimeLocation(v)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid [%s]", config.TimeLocationKey)
	}

	gocron.ChangeLoc(timeLoc)
	s := gocron.NewScheduler()
	if err = relay.ScheduleMaintenance(s); err != nil {
		return nil, err
	}

	if err = slackSide.ScheduleRefresh(s); err != nil {
		return nil, err
	}

	return s.Start(), nil
}
