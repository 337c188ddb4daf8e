package chatrelay

import (
	"io"

	"github.com/alexandre-normand/chatrelay/config"
	"github.com/alexandre-normand/chatrelay/synclink"
	"github.com/spf13/viper"
)

// Builder holds a relay instance to build
type Builder struct {
	relay *Relay
	err   error
}

// PluginInstantiator creates a plugin from its configuration
type PluginInstantiator func(pc *viper.Viper) (p *Plugin, err error)

// CloserPluginInstantiator creates a plugin that holds resources to close from its configuration
type CloserPluginInstantiator func(pc *viper.Viper) (c io.Closer, p *Plugin, err error)

// NewRelay returns a new Builder used to set up a new relay
func NewRelay(name string, v *viper.Viper, registry *synclink.Registry, options ...Option) (rb *Builder) {
	rb = new(Builder)
	rb.relay, rb.err = New(name, v, registry, options...)

	return rb
}

// WithPlatform registers the normalizer and deliverer of a side
func (rb *Builder) WithPlatform(side Side, n Normalizer, d Deliverer) *Builder {
	if rb.err != nil {
		return rb
	}

	rb.relay.RegisterPlatform(side, n, d)

	return rb
}

// WithPlugin adds a plugin to the relay instance
func (rb *Builder) WithPlugin(p *Plugin) *Builder {
	if rb.err != nil {
		return rb
	}

	rb.relay.RegisterPlugin(p)

	return rb
}

// WithPluginErr adds a plugin that has a creation function returning (Plugin, error) to the relay instance
func (rb *Builder) WithPluginErr(p *Plugin, err error) *Builder {
	if rb.err == nil && err != nil {
		rb.err = err
	}

	if rb.err != nil {
		return rb
	}

	rb.relay.RegisterPlugin(p)

	return rb
}

// WithPluginCloserErr adds a plugin that has a creation function returning (io.Closer, Plugin, error) to the relay instance
func (rb *Builder) WithPluginCloserErr(closer io.Closer, p *Plugin, err error) *Builder {
	if rb.err == nil && err != nil {
		rb.err = err
	}

	if rb.err != nil {
		return rb
	}

	rb.relay.RegisterPlugin(p)

	if closer != nil {
		rb.relay.RegisterCloser(closer)
	}

	return rb
}

// WithConfigurablePluginErr adds a plugin created from its configuration found under plugins.<name>. A missing
// configuration results in an error
func (rb *Builder) WithConfigurablePluginErr(name string, newInstance PluginInstantiator) *Builder {
	if rb.err != nil {
		return rb
	}

	pc, err := config.GetPluginConfig(rb.relay.config, name)
	if err != nil {
		rb.err = err
		return rb
	}

	return rb.WithPluginErr(newInstance(pc))
}

// WithConfigurablePluginCloserErr adds a plugin holding resources to close, created from its configuration found
// under plugins.<name>. A missing configuration results in an error
func (rb *Builder) WithConfigurablePluginCloserErr(name string, newInstance CloserPluginInstantiator) *Builder {
	if rb.err != nil {
		return rb
	}

	pc, err := config.GetPluginConfig(rb.relay.config, name)
	if err != nil {
		rb.err = err
		return rb
	}

	return rb.WithPluginCloserErr(newInstance(pc))
}

// WithCloser adds a closer to close along with the relay
func (rb *Builder) WithCloser(closer io.Closer) *Builder {
	if rb.err != nil {
		return rb
	}

	rb.relay.RegisterCloser(closer)

	return rb
}

// Build returns the built relay instance. If there was an error during
// setup, the error is returned along with a nil relay
func (rb *Builder) Build() (r *Relay, err error) {
	if rb.err != nil {
		return nil, rb.err
	}

	return rb.relay, nil
}
