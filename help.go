package chatrelay

import (
	"fmt"
	"io"
	"strings"
)

const (
	helpPluginName = "help"
)

type helpPlugin struct {
	Plugin

	name         string
	relayVersion string
	commands     []ActionDefinition
	hearActions  []ActionDefinition
}

func (r *Relay) newHelpPlugin(version string) *helpPlugin {
	commands, hearActions := findAllActions(r.plugins)

	h := new(helpPlugin)
	h.name = r.name
	h.relayVersion = version
	h.commands = commands
	h.hearActions = hearActions

	h.Plugin = Plugin{Name: helpPluginName, Commands: []ActionDefinition{{
		Match: func(m *IncomingMessage) bool {
			return strings.HasPrefix(m.NormalizedText, "help")
		},
		Usage:       helpPluginName,
		Description: "Reply with usage instructions",
		Answer:      h.showHelp,
	}}}

	return h
}

// showHelp generates a message providing a list of all of the relay commands and hear actions.
// Note that ActionDefinitions with the flag Hidden set to true won't be included in the list
func (h *helpPlugin) showHelp(m *IncomingMessage) *Answer {
	var b strings.Builder

	if m.SenderDisplayName != "" {
		fmt.Fprintf(&b, "🤝 Hi, `%s`! ", m.SenderDisplayName)
	}

	fmt.Fprintf(&b, "I'm `%s` (engine `v%s`) and I relay messages between linked conversations.\n", h.name, h.relayVersion)

	if len(h.commands) > 0 {
		fmt.Fprintf(&b, "\nI currently support the following commands:\n")
		appendActions(&b, h.commands)
	}

	if len(h.hearActions) > 0 {
		fmt.Fprintf(&b, "\nAnd listen for the following:\n")
		appendActions(&b, h.hearActions)
	}

	return &Answer{Text: b.String()}
}

func appendActions(w io.Writer, actions []ActionDefinition) {
	for _, value := range actions {
		if value.Usage != "" {
			fmt.Fprintf(w, "\t• `%s` - %s\n", value.Usage, value.Description)
		}
	}
}

func findAllActions(plugins []*Plugin) (commands []ActionDefinition, hearActions []ActionDefinition) {
	commands = make([]ActionDefinition, 0)
	hearActions = make([]ActionDefinition, 0)

	for _, p := range plugins {
		commands = append(commands, filterNonHiddenActions(p.Commands)...)
		hearActions = append(hearActions, filterNonHiddenActions(p.HearActions)...)
	}

	return commands, hearActions
}

func filterNonHiddenActions(actions []ActionDefinition) (visibleActions []ActionDefinition) {
	visibleActions = make([]ActionDefinition, 0)
	for _, a := range actions {
		if !a.Hidden {
			visibleActions = append(visibleActions, a)
		}
	}

	return visibleActions
}
