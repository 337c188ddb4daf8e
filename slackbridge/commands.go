package slackbridge

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alexandre-normand/chatrelay"
	"github.com/alexandre-normand/chatrelay/actions"
	"github.com/alexandre-normand/chatrelay/plugin"
	"github.com/alexandre-normand/chatrelay/synclink"
	"github.com/spf13/cast"
)

const (
	// SyncPluginName is the name of the plugin managing links from slack
	SyncPluginName = "slacksync"

	noValue = "none"
)

var channelRefRegex = regexp.MustCompile(`^<#([A-Z0-9]+)(\|[^>]*)?>$`)

// LinkRegistry is implemented by any value that manages links. *synclink.Registry implements it
type LinkRegistry interface {
	Add(l synclink.SyncLink) error
	Remove(internalID string, externalID string) error
	Update(internalID string, externalID string, mutator func(l *synclink.SyncLink)) error
	All() []synclink.SyncLink
}

type syncCommander struct {
	registry LinkRegistry
	admins   map[string]bool
}

// linkSetter parses an option value and returns the mutation setting it on a link
type linkSetter func(value string) (mutate func(l *synclink.SyncLink), err error)

// NewSyncPlugin returns the plugin letting slack admins manage links. Only commands sent from slack by one
// of the admin user ids are carried out
func NewSyncPlugin(registry LinkRegistry, admins []string) (p *chatrelay.Plugin) {
	sc := new(syncCommander)
	sc.registry = registry
	sc.admins = make(map[string]bool)
	for _, a := range admins {
		sc.admins[a] = true
	}

	return plugin.New(SyncPluginName).
		WithCommand(sc.command("sync", "sync <channel> to <conversation>", "Relay messages between a channel and a conversation", sc.sync)).
		WithCommand(sc.command("unsync", "unsync <channel> from <conversation>", "Stop relaying messages between a channel and a conversation", sc.unsync)).
		WithCommand(sc.setter("setsyncjoinmsgs", "true|false", "Relay joins and leaves on a link", setRelayJoins)).
		WithCommand(sc.setter("sethotag", "<tag>|true|none", "Set the tag shown after sender names (true uses the conversation name)", setDisplayTag)).
		WithCommand(sc.setter("setimageupload", "true|false", "Upload images instead of posting their link", setRelayImages)).
		WithCommand(sc.setter("setslacktag", "<tag>|none", "Set the tag shown for messages coming from slack", setExternalTag)).
		WithCommand(sc.setter("showslackrealnames", "true|false", "Show real names instead of user names", setUseRealNames)).
		WithCommand(sc.command("listsyncs", "listsyncs", "List all links", sc.list)).
		Build()
}

func (sc *syncCommander) command(verb string, usage string, description string, run func(args []string) string) chatrelay.ActionDefinition {
	return actions.NewCommand().
		WithMatcher(func(m *chatrelay.IncomingMessage) bool {
			fields := strings.Fields(m.NormalizedText)
			return len(fields) > 0 && strings.EqualFold(fields[0], verb)
		}).
		WithUsage(usage).
		WithDescription(description).
		WithAnswerer(func(m *chatrelay.IncomingMessage) *chatrelay.Answer {
			if m.Origin.Side != chatrelay.External || !sc.admins[m.SenderPlatformID] {
				return &chatrelay.Answer{Text: fmt.Sprintf("Sorry, only admins can use `%s`", verb)}
			}

			return &chatrelay.Answer{Text: run(strings.Fields(m.NormalizedText)[1:])}
		}).
		Build()
}

func (sc *syncCommander) setter(verb string, values string, description string, set linkSetter) chatrelay.ActionDefinition {
	usage := fmt.Sprintf("%s <channel> <conversation> %s", verb, values)

	return sc.command(verb, usage, description, func(args []string) string {
		if len(args) < 3 {
			return fmt.Sprintf("Usage: `%s`", usage)
		}

		channel, internalID, value := channelID(args[0]), args[1], strings.Join(args[2:], " ")

		mutate, err := set(value)
		if err != nil {
			return fmt.Sprintf("Invalid value [%s]: %v", value, err)
		}

		if err = sc.registry.Update(internalID, channel, mutate); err != nil {
			return fmt.Sprintf("Error updating link: %v", err)
		}

		return fmt.Sprintf("OK, `%s` set to `%s` for [%s] <-> [%s]", verb, value, internalID, channel)
	})
}

func (sc *syncCommander) sync(args []string) string {
	if len(args) != 3 || !strings.EqualFold(args[1], "to") {
		return "Usage: `sync <channel> to <conversation>`"
	}

	channel, internalID := channelID(args[0]), args[2]
	if err := sc.registry.Add(synclink.New(internalID, channel)); err != nil {
		return fmt.Sprintf("Error linking: %v", err)
	}

	return fmt.Sprintf("OK, relaying messages between [%s] and [%s]", channel, internalID)
}

func (sc *syncCommander) unsync(args []string) string {
	if len(args) != 3 || !strings.EqualFold(args[1], "from") {
		return "Usage: `unsync <channel> from <conversation>`"
	}

	channel, internalID := channelID(args[0]), args[2]
	if err := sc.registry.Remove(internalID, channel); err != nil {
		return fmt.Sprintf("Error unlinking: %v", err)
	}

	return fmt.Sprintf("OK, no longer relaying messages between [%s] and [%s]", channel, internalID)
}

func (sc *syncCommander) list(args []string) string {
	links := sc.registry.All()
	if len(links) == 0 {
		return "No links configured"
	}

	var b strings.Builder
	for _, l := range links {
		fmt.Fprintf(&b, "• %s\n", l)
	}

	return b.String()
}

// channelID returns the id of a channel given as a slack reference or as a bare id
func channelID(arg string) string {
	if m := channelRefRegex.FindStringSubmatch(arg); m != nil {
		return m[1]
	}

	return arg
}

func setRelayJoins(value string) (func(l *synclink.SyncLink), error) {
	b, err := cast.ToBoolE(value)
	return func(l *synclink.SyncLink) { l.RelayJoins = b }, err
}

func setRelayImages(value string) (func(l *synclink.SyncLink), error) {
	b, err := cast.ToBoolE(value)
	return func(l *synclink.SyncLink) { l.RelayImages = b }, err
}

func setUseRealNames(value string) (func(l *synclink.SyncLink), error) {
	b, err := cast.ToBoolE(value)
	return func(l *synclink.SyncLink) { l.UseRealNames = b }, err
}

func setDisplayTag(value string) (func(l *synclink.SyncLink), error) {
	tag := synclink.ParseTag(value)
	return func(l *synclink.SyncLink) { l.DisplayTag = tag }, nil
}

func setExternalTag(value string) (func(l *synclink.SyncLink), error) {
	if strings.EqualFold(value, noValue) {
		value = ""
	}

	return func(l *synclink.SyncLink) { l.ExternalTag = value }, nil
}
