package plugins

import (
	"fmt"
	"strings"

	"github.com/alexandre-normand/chatrelay"
	"github.com/alexandre-normand/chatrelay/actions"
	"github.com/alexandre-normand/chatrelay/plugin"
)

const (
	versionnerPluginName = "versionner"
)

// NewVersionner creates a new instance of the versionner plugin answering with the relay name, its
// version and the number of active links
func NewVersionner(name string, version string, links func() int) (p *chatrelay.Plugin) {
	p = plugin.New(versionnerPluginName).
		WithCommand(actions.NewCommand().
			WithMatcher(func(m *chatrelay.IncomingMessage) bool {
				return strings.HasPrefix(m.NormalizedText, "version")
			}).
			WithUsage("version").
			WithDescriptionf("Reply with `%s`'s `version` number", name).
			WithAnswerer(func(m *chatrelay.IncomingMessage) *chatrelay.Answer {
				return &chatrelay.Answer{Text: fmt.Sprintf("I'm `%s`, version `%s`, relaying [%d] link(s)", name, version, links())}
			}).
			Build()).
		Build()

	return p
}
