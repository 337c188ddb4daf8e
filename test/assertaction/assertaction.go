// Package assertaction provides testing functions for validation a plugin action's behavior
package assertaction

import (
	"testing"

	"github.com/alexandre-normand/chatrelay"
	"github.com/stretchr/testify/assert"
)

// AnswerValidator is a function to do further validation of an action's answer. The return value is meant to be true if validation
// is successful and false otherwise (following the testify convention)
type AnswerValidator func(t *testing.T, a *chatrelay.Answer) bool

// MatchesAndAnswers asserts that the action.Match is true and gets the action's answer to be further validated by AnswerValidator
func MatchesAndAnswers(t *testing.T, action chatrelay.ActionDefinition, m *chatrelay.IncomingMessage, validateAnswer AnswerValidator) bool {
	if !assert.Truef(t, action.Match(m), "Message [%s] from [%s] expected to match but action.Match returned false", m.NormalizedText, m.Origin) {
		return false
	}

	return validateAnswer(t, action.Answer(m))
}

// MatchesWithoutAnswer asserts that action.Match is true but the action has nothing to say
func MatchesWithoutAnswer(t *testing.T, action chatrelay.ActionDefinition, m *chatrelay.IncomingMessage) bool {
	return MatchesAndAnswers(t, action, m, func(t *testing.T, a *chatrelay.Answer) bool {
		return assert.Nilf(t, a, "Message [%s] expected no answer but got one", m.NormalizedText)
	})
}

// NotMatch asserts that action.Match is false
func NotMatch(t *testing.T, action chatrelay.ActionDefinition, m *chatrelay.IncomingMessage) bool {
	return assert.Falsef(t, action.Match(m), "Message [%s] from [%s] should not be a match but action.Match returned true", m.NormalizedText, m.Origin)
}
