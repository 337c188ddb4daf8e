// Package assertplugin provides testing functions to validate a plugin's overall functionality.
// This package is designed to play well but not require the assertanswer package for validation
// of answers.
//
// The driver is a simplified version of how the relay runs plugins: commands are evaluated on
// messages carrying a Command and hear actions on every other message.
//
// Example:
//
//	func TestPlugin(t *testing.T) {
//	    asserter := assertplugin.New()
//	    yourPlugin := newPlugin()
//
//	    asserter.Answers(t, yourPlugin, chatrelay.InternalEndpoint("room1"), chatrelay.RelayMessage{Text: "are you up?"}, func(t *testing.T, answers []*chatrelay.Answer) bool {
//	        return assert.Len(t, answers, 1) && assertanswer.HasText(t, answers[0], "I'm 😴, you?")
//	    })
//	}
package assertplugin

import (
	"io"
	"log"
	"testing"

	"github.com/alexandre-normand/chatrelay"
)

// Asserter represents a plugin driver/asserter
type Asserter struct {
	logger *log.Logger
}

// New creates a new asserter
func New(options ...Option) (a *Asserter) {
	a = new(Asserter)

	for _, option := range options {
		option(a)
	}

	return a
}

// Option defines an option for the Asserter
type Option func(*Asserter)

// OptionLog sets a logger for the asserter such that this logger is attached to the plugin when driven by
// the asserter
func OptionLog(logger *log.Logger) func(*Asserter) {
	return func(a *Asserter) {
		a.logger = logger
	}
}

// ResultValidator is a function to do further validation of the answers resulting from a plugin processing of all
// of its commands and hear actions. The return value is meant to be true if validation is successful and false
// otherwise (following the testify convention)
type ResultValidator func(t *testing.T, answers []*chatrelay.Answer) bool

// Answers drives a plugin with a message seen on origin and collects its answers. Once collected, it passes handling to
// a validator to assert the expected answers. It follows the style of github.com/stretchr/testify/assert as far as
// returning true/false to indicate success for further nested testing
func (a *Asserter) Answers(t *testing.T, p *chatrelay.Plugin, origin chatrelay.Endpoint, msg chatrelay.RelayMessage, validate ResultValidator) (valid bool) {
	p.Logger = chatrelay.NewSLogger(getLogger(a), true)

	return validate(t, driveActions(p, origin, msg))
}

func getLogger(a *Asserter) (logger *log.Logger) {
	if a.logger != nil {
		return a.logger
	}

	return log.New(io.Discard, "", 0)
}

func driveActions(p *chatrelay.Plugin, origin chatrelay.Endpoint, msg chatrelay.RelayMessage) (answers []*chatrelay.Answer) {
	if msg.Command != "" {
		return runActions(p.Commands, &chatrelay.IncomingMessage{Origin: origin, NormalizedText: msg.Command, RelayMessage: msg})
	}

	return runActions(p.HearActions, &chatrelay.IncomingMessage{Origin: origin, NormalizedText: msg.Text, RelayMessage: msg})
}

func runActions(actions []chatrelay.ActionDefinition, m *chatrelay.IncomingMessage) (answers []*chatrelay.Answer) {
	answers = make([]*chatrelay.Answer, 0)

	for _, action := range actions {
		if action.Match(m) {
			a := action.Answer(m)

			if a != nil {
				answers = append(answers, a)
			}
		}
	}

	return answers
}
