package chatrelay

import (
	"fmt"
	"net/url"
	"regexp"
)

const (
	// tagSchemePrefix is reserved for provenance tags. It is followed by the origin side
	tagSchemePrefix = "relay+"
)

// provenanceTagRegex matches text ending with a provenance tag. The tag is an empty link
// so platforms rendering links show nothing for it
var provenanceTagRegex = regexp.MustCompile(`(?s)^(.*) <relay\+(internal|external)://([^/|>\s]*)/([^/|>\s]*)\| >$`)

// Embed appends the provenance tag to the text
func Embed(text string, p Provenance) string {
	return fmt.Sprintf("%s <%s%s://%s/%s| >", text, tagSchemePrefix, p.Origin.Side, url.PathEscape(p.Origin.ID), url.PathEscape(p.SenderID))
}

// StripAndParse removes a trailing provenance tag from the text and returns the clean text along with
// the parsed provenance. Text without a tag is returned unchanged with a nil provenance
func StripAndParse(text string) (clean string, p *Provenance) {
	m := provenanceTagRegex.FindStringSubmatch(text)
	if m == nil {
		return text, nil
	}

	side, err := ParseSide(m[2])
	if err != nil {
		return text, nil
	}

	originID, err := url.PathUnescape(m[3])
	if err != nil {
		return text, nil
	}

	senderID, err := url.PathUnescape(m[4])
	if err != nil {
		return text, nil
	}

	return m[1], &Provenance{Origin: Endpoint{Side: side, ID: originID}, SenderID: senderID}
}
