package slackbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeNames map[string]string

func (f fakeNames) UserName(userID string, def string) string {
	if n, ok := f[userID]; ok {
		return n
	}
	return def
}

func (f fakeNames) ChannelName(channelID string, def string) string {
	return f.UserName(channelID, def)
}

func TestTextToHTML(t *testing.T) {
	names := fakeNames{"U1": "alice", "C1": "general"}

	tests := map[string]struct {
		text     string
		expected string
	}{
		"Plain":              {text: "hello there", expected: "hello there"},
		"UserReference":      {text: "hi <@U1>", expected: "hi @alice"},
		"UserReferenceText":  {text: "hi <@U1|ally>", expected: "hi ally"},
		"UnknownUser":        {text: "hi <@U9>", expected: "hi @unknown:U9"},
		"ChannelReference":   {text: "see <#C1>", expected: "see #general"},
		"ChannelWithName":    {text: "see <#C2|random>", expected: "see #random"},
		"Link":               {text: "go <https://example.com>", expected: `go <a href="https://example.com">https://example.com</a>`},
		"LinkWithText":       {text: "go <https://example.com|there>", expected: `go <a href="https://example.com">there</a>`},
		"LinkMarkupEscaped":  {text: "<https://example.com/a_b*c>", expected: `<a href="https://example.com/a%5Fb%2Ac">https://example.com/a%5Fb%2Ac</a>`},
		"Bold":               {text: "this is *big*", expected: "this is <b>big</b>"},
		"Italic":             {text: "this is _slanted_", expected: "this is <i>slanted</i>"},
		"Pre":                {text: "run ```make all```", expected: `run "make all"`},
		"Code":               {text: "run `make`", expected: "run 'make'"},
		"Newlines":           {text: "one\r\ntwo\nthree", expected: "one <br/>two <br/>three"},
		"EntitiesUnescaped":  {text: "a &amp; b &gt; c", expected: "a & b > c"},
		"AsteriskInsideWord": {text: "2*3*4", expected: "2*3*4"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, textToHTML(tc.text, names))
		})
	}
}

func TestTextToHTMLEmoji(t *testing.T) {
	assert.Contains(t, textToHTML("cheers :beer:", fakeNames{}), "🍺")
}

func TestHTMLToMarkdown(t *testing.T) {
	tests := map[string]struct {
		text     string
		expected string
	}{
		"Bold":   {text: "<b>big</b>", expected: "*big*"},
		"Italic": {text: "<i>slanted</i>", expected: "_slanted_"},
		"Pre":    {text: "<pre>code</pre>", expected: "`code`"},
		"Break":  {text: "one<br/>two<br>three", expected: "one\ntwo\nthree"},
		"Plain":  {text: "nothing to see", expected: "nothing to see"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, htmlToMarkdown(tc.text))
		})
	}
}
