package assertaction_test

import (
	"strings"
	"testing"

	"github.com/alexandre-normand/chatrelay"
	"github.com/alexandre-normand/chatrelay/test/assertaction"
	"github.com/stretchr/testify/assert"
)

var echoAction = chatrelay.ActionDefinition{
	Hidden: false,
	Match: func(m *chatrelay.IncomingMessage) bool {
		return strings.Contains(m.NormalizedText, "ping")
	},
	Usage:       "ping",
	Description: "Sends `pong` on hearing `ping`",
	Answer: func(m *chatrelay.IncomingMessage) *chatrelay.Answer {
		if strings.Contains(m.NormalizedText, "quiet") {
			return nil
		}

		return &chatrelay.Answer{Text: "pong"}
	},
}

func incoming(text string) *chatrelay.IncomingMessage {
	return &chatrelay.IncomingMessage{Origin: chatrelay.InternalEndpoint("room1"), NormalizedText: text, RelayMessage: chatrelay.RelayMessage{Text: text}}
}

func TestAssertNoMatchWhenMatch(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, false, assertaction.NotMatch(mockT, echoAction, incoming("ping")))
}

func TestAssertNoMatchWhenNoMatch(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, true, assertaction.NotMatch(mockT, echoAction, incoming("pang")))
}

func TestAssertMatchAndAnswersWhenNoMatch(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, false, assertaction.MatchesAndAnswers(mockT, echoAction, incoming("pang"), func(t *testing.T, a *chatrelay.Answer) bool {
		return true
	}))
}

func TestAssertMatchAndAnswersWhenMatchesButAnswerNotValid(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, false, assertaction.MatchesAndAnswers(mockT, echoAction, incoming("ping"), func(t *testing.T, a *chatrelay.Answer) bool {
		return false
	}))
}

func TestAssertMatchAndAnswersWhenMatchesWithValidAnswer(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, true, assertaction.MatchesAndAnswers(mockT, echoAction, incoming("ping"), func(t *testing.T, a *chatrelay.Answer) bool {
		return true
	}))
}

func TestAssertMatchesWithoutAnswer(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, true, assertaction.MatchesWithoutAnswer(mockT, echoAction, incoming("ping, quiet")))
	assert.Equal(t, false, assertaction.MatchesWithoutAnswer(mockT, echoAction, incoming("ping")))
}
