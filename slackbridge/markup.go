package slackbridge

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/kyokomi/emoji/v2"
)

var (
	// referenceRegex matches slack references such as <@U1>, <#C1|general> or <https://example.com|example>
	referenceRegex = regexp.MustCompile(`<((.)([^|>]*))((\|)([^>]*)|([^>]*))>`)

	boldRegex       = regexp.MustCompile("([\\s*_`])\\*([^*]*)\\*([\\s*_`])")
	italicRegex     = regexp.MustCompile("([\\s*_`])_([^_]*)_([\\s*_`])")
	preRegex        = regexp.MustCompile("([\\s*_`])```([^`]*)```([\\s*_`])")
	codeRegex       = regexp.MustCompile("([\\s*_`])`([^`]*)`([\\s*_`])")
	htmlBoldRegex   = regexp.MustCompile(`</?b>`)
	htmlItalicRegex = regexp.MustCompile(`</?i>`)
	htmlPreRegex    = regexp.MustCompile(`</?pre>`)
	htmlBreakRegex  = regexp.MustCompile(`<br\s*/?>`)

	// markdown characters are escaped in references so they aren't picked up as formatting
	referenceEscaper = strings.NewReplacer("_", "%5F", "*", "%2A", "`", "%60")
)

// nameResolver resolves user and channel names, falling back to def
type nameResolver interface {
	UserName(userID string, def string) string
	ChannelName(channelID string, def string) string
}

// textToHTML converts slack formatted text to the html understood by the host. References are resolved,
// entities outside of references are unescaped and emoji aliases are rendered
func textToHTML(text string, names nameResolver) string {
	var b strings.Builder

	last := 0
	for _, loc := range referenceRegex.FindAllStringSubmatchIndex(text, -1) {
		b.WriteString(html.UnescapeString(text[last:loc[0]]))
		b.WriteString(renderReference(text, loc, names))
		last = loc[1]
	}
	b.WriteString(html.UnescapeString(text[last:]))

	out := emoji.Sprint(b.String())

	// Markup boundaries are matched on surrounding whitespace so the text is padded during the conversion
	out = " " + strings.ReplaceAll(out, "\r\n", "\n") + " "
	out = boldRegex.ReplaceAllString(out, "$1<b>$2</b>$3")
	out = italicRegex.ReplaceAllString(out, "$1<i>$2</i>$3")
	out = preRegex.ReplaceAllString(out, `$1"$2"$3`)
	out = codeRegex.ReplaceAllString(out, "$1'$2'$3")
	out = strings.ReplaceAll(out, "\n", " <br/>")

	return out[1 : len(out)-1]
}

func renderReference(text string, loc []int, names nameResolver) string {
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return text[loc[2*i]:loc[2*i+1]]
	}

	target, kind, id := group(1), group(2), group(3)

	linkText := ""
	if group(5) == "|" {
		linkText = group(6)
	}

	var out string
	switch kind {
	case "@":
		out = linkText
		if out == "" {
			out = "@" + names.UserName(id, unknownPrefix+id)
		}
	case "#":
		name := linkText
		if name == "" {
			name = names.ChannelName(id, unknownPrefix+id)
		}
		out = "#" + name
	default:
		if linkText == "" {
			linkText = target
		}
		out = fmt.Sprintf(`<a href="%s">%s</a>`, target, linkText)
	}

	return referenceEscaper.Replace(out)
}

// htmlToMarkdown converts the html formatting of host messages to slack markdown
func htmlToMarkdown(text string) string {
	text = htmlBreakRegex.ReplaceAllString(text, "\n")
	text = htmlBoldRegex.ReplaceAllString(text, "*")
	text = htmlItalicRegex.ReplaceAllString(text, "_")
	text = htmlPreRegex.ReplaceAllString(text, "`")

	return text
}
