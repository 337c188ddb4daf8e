/*
Package actions provides a fluent API for creating relay plugin actions. Typical usages
will also involve using the plugin fluent API from github.com/alexandre-normand/chatrelay/plugin.

A quick example could look like:

	import (
		"github.com/alexandre-normand/chatrelay"
		"github.com/alexandre-normand/chatrelay/plugin"
		"github.com/alexandre-normand/chatrelay/actions"
	)

	func newPlugin() (p *chatrelay.Plugin) {
		p = plugin.New("pinger").
			WithCommand(actions.NewCommand().
				WithMatcher(func(m *chatrelay.IncomingMessage) bool {
					return strings.HasPrefix(m.NormalizedText, "ping")
				}).
				WithUsage("ping").
				WithDescription("Check that the relay is alive").
				WithAnswerer(func(m *chatrelay.IncomingMessage) *chatrelay.Answer {
					return &chatrelay.Answer{Text: "pong"}
				}).
				Build()).
			WithHearAction(actions.NewHearAction().
				Hidden().
				WithMatcher(func(m *chatrelay.IncomingMessage) bool {
					return strings.Contains(m.NormalizedText, "chirp")
				}).
				WithAnswerer(func(m *chatrelay.IncomingMessage) *chatrelay.Answer {
					return &chatrelay.Answer{Text: "Did I hear a bird?"}
				}).
				Build()).
			Build()
		return p
	}
*/
package actions

import (
	"fmt"

	"github.com/alexandre-normand/chatrelay"
)

// ActionBuilder holds the action to build
type ActionBuilder struct {
	action chatrelay.ActionDefinition
	sides  []chatrelay.Side
	kinds  []chatrelay.EventKind
}

var (
	// Default to always match. Answerers returning nil achieve the same as not matching
	defaultMatcher = func(m *chatrelay.IncomingMessage) bool {
		return true
	}

	// Default to always return nil. This is not a default you want to use in most cases
	defaultAnswerer = func(m *chatrelay.IncomingMessage) *chatrelay.Answer {
		return nil
	}
)

// newAction creates a new action and returns the ActionBuilder to set various attributes
// of the action. When done with the setup, the caller is expected to call Build() to get
// the action
func newAction() (ab *ActionBuilder) {
	ab = new(ActionBuilder)
	ab.action = chatrelay.ActionDefinition{Hidden: false}

	ab.action.Match = defaultMatcher
	ab.action.Answer = defaultAnswerer

	return ab
}

// NewCommand returns a new ActionBuilder to build a new command
func NewCommand() (ab *ActionBuilder) {
	return newAction()
}

// NewHearAction returns a new ActionBuilder to build a new hear action
func NewHearAction() (ab *ActionBuilder) {
	return newAction()
}

// WithMatcher sets the action's matcher function
func (ab *ActionBuilder) WithMatcher(matcher chatrelay.Matcher) *ActionBuilder {
	ab.action.Match = matcher
	return ab
}

// WithUsage sets the action usage
func (ab *ActionBuilder) WithUsage(usage string) *ActionBuilder {
	ab.action.Usage = usage
	return ab
}

// WithDescription sets the action description
func (ab *ActionBuilder) WithDescription(description string) *ActionBuilder {
	ab.action.Description = description
	return ab
}

// WithDescriptionf sets the action description delegating format and arguments to fmt.Sprintf
func (ab *ActionBuilder) WithDescriptionf(format string, a ...interface{}) *ActionBuilder {
	ab.action.Description = fmt.Sprintf(format, a...)
	return ab
}

// WithAnswerer sets the action's answerer function
func (ab *ActionBuilder) WithAnswerer(answerer chatrelay.Answerer) *ActionBuilder {
	ab.action.Answer = answerer
	return ab
}

// FromSides restricts the action to messages originating from one of the sides
func (ab *ActionBuilder) FromSides(sides ...chatrelay.Side) *ActionBuilder {
	ab.sides = append(ab.sides, sides...)
	return ab
}

// OnKinds restricts the action to messages of one of the event kinds
func (ab *ActionBuilder) OnKinds(kinds ...chatrelay.EventKind) *ActionBuilder {
	ab.kinds = append(ab.kinds, kinds...)
	return ab
}

// Hidden sets the action to hidden
func (ab *ActionBuilder) Hidden() *ActionBuilder {
	ab.action.Hidden = true
	return ab
}

// Build returns the ActionDefinition. Side and kind restrictions are checked before the matcher
func (ab *ActionBuilder) Build() chatrelay.ActionDefinition {
	if len(ab.sides) == 0 && len(ab.kinds) == 0 {
		return ab.action
	}

	action := ab.action
	sides, kinds, match := ab.sides, ab.kinds, ab.action.Match
	action.Match = func(m *chatrelay.IncomingMessage) bool {
		if len(sides) > 0 && !containsSide(sides, m.Origin.Side) {
			return false
		}

		if len(kinds) > 0 && !containsKind(kinds, m.Kind) {
			return false
		}

		return match(m)
	}

	return action
}

func containsSide(sides []chatrelay.Side, side chatrelay.Side) bool {
	for _, s := range sides {
		if s == side {
			return true
		}
	}

	return false
}

func containsKind(kinds []chatrelay.EventKind, kind chatrelay.EventKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}

	return false
}
