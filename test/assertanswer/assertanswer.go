// Package assertanswer provides testing functions to validate a plugin's answer
package assertanswer

import (
	"testing"

	"github.com/alexandre-normand/chatrelay"
	"github.com/stretchr/testify/assert"
)

// HasText asserts that the answer's text is the expected text
func HasText(t *testing.T, answer *chatrelay.Answer, text string) bool {
	if assert.NotNil(t, answer) {
		return assert.Equalf(t, text, answer.Text, "Answer text expected to be [%s] but was [%s]", text, answer.Text)
	}
	return false
}

// HasTextContaining asserts that the answer's text contains the expected subString
func HasTextContaining(t *testing.T, answer *chatrelay.Answer, subString string) bool {
	if assert.NotNil(t, answer) {
		return assert.Containsf(t, answer.Text, subString, "Answer expected to have text containing [%s] but its text [%s] didn't", subString, answer.Text)
	}
	return false
}

// HasImage asserts that the answer uploads the image at url
func HasImage(t *testing.T, answer *chatrelay.Answer, url string) bool {
	if assert.NotNil(t, answer) {
		return assert.Equalf(t, url, answer.ImageURL, "Answer image expected to be [%s] but was [%s]", url, answer.ImageURL)
	}
	return false
}
