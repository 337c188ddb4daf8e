package hangouts

import (
	"context"
	"fmt"

	"github.com/alexandre-normand/chatrelay"
	"github.com/alexandre-normand/chatrelay/config"
	"github.com/spf13/viper"
	"github.com/valyala/fasthttp"
)

// Bridge is the host side of a relay
type Bridge struct {
	Normalizer *Normalizer
	Adapter    *Adapter
	Sink       *Sink

	listenAddr string
}

// NewHost returns the webhook host for the configured callback url
func NewHost(v *viper.Viper) (h *WebhookHost, err error) {
	v = config.LayerConfigWithDefaults(v)

	callbackURL := v.GetString(config.HangoutsCallbackURLKey)
	if callbackURL == "" {
		return nil, fmt.Errorf("Missing host callback url at [%s]", config.HangoutsCallbackURLKey)
	}

	return NewWebhookHost(callbackURL, &fasthttp.Client{Name: "chatrelay"}, config.GetDuration(v, config.HangoutsSendTimeoutKey, defaultSendTimeout)), nil
}

// New assembles the host side of the relay and registers its normalizer and deliverer. The relay must not be
// started yet
func New(v *viper.Viper, relay *chatrelay.Relay, host Host, fetcher chatrelay.ImageFetcher, options ...AdapterOption) (b *Bridge) {
	v = config.LayerConfigWithDefaults(v)

	b = new(Bridge)
	b.listenAddr = v.GetString(config.HangoutsListenAddrKey)
	b.Normalizer = NewNormalizer(v.GetString(config.HangoutsCommandKey))
	b.Adapter = NewAdapter(host, fetcher, relay.Logger(), options...)
	b.Sink = NewSink(relay, b.Normalizer, relay.Images(), relay.Logger())

	relay.RegisterPlatform(chatrelay.Internal, b.Normalizer, b.Adapter)

	return b
}

// Run serves the webhook until the context is done
func (b *Bridge) Run(ctx context.Context) error {
	return b.Sink.ListenAndServe(ctx, b.listenAddr)
}
