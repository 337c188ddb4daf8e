// Package synclink holds the bridge links between internal conversations and external
// channels along with the Registry that owns and persists them
package synclink

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// ExternalTagNotInConfig is the external tag stored for links created before external tags existed.
	// The registry replaces it with its default external tag when one is configured
	ExternalTagNotInConfig = "NOT_IN_CONFIG"

	derivedTagValue = "true"
	noTagValue      = "none"
)

// Tag is a link's display tag. It is either unset, a fixed name or derived from
// the title of the conversation a message comes from
type Tag struct {
	Derive bool
	Name   string
}

// NamedTag returns a Tag with a fixed name
func NamedTag(name string) Tag {
	return Tag{Name: name}
}

// DerivedTag returns a Tag that takes the name of the source conversation
func DerivedTag() Tag {
	return Tag{Derive: true}
}

// ParseTag parses the operator representation of a tag: "true" for a derived
// tag, "none" or empty to clear it and anything else as a fixed name
func ParseTag(s string) Tag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case derivedTagValue:
		return DerivedTag()
	case noTagValue, "":
		return Tag{}
	}

	return NamedTag(strings.TrimSpace(s))
}

// IsSet returns true if the tag should be shown
func (t Tag) IsSet() bool {
	return t.Derive || t.Name != ""
}

// Resolve returns the tag text to show for a message coming from a conversation with
// the given title. An empty string is returned when nothing should be shown
func (t Tag) Resolve(sourceTitle string) string {
	if t.Derive {
		return sourceTitle
	}

	return t.Name
}

// String returns the operator representation of the tag
func (t Tag) String() string {
	if t.Derive {
		return derivedTagValue
	}

	if t.Name == "" {
		return noTagValue
	}

	return t.Name
}

// MarshalJSON renders a derived tag as true, an unset tag as null and a named tag as its name
func (t Tag) MarshalJSON() ([]byte, error) {
	if t.Derive {
		return []byte("true"), nil
	}

	if t.Name == "" {
		return []byte("null"), nil
	}

	return json.Marshal(t.Name)
}

// UnmarshalJSON accepts a boolean, null or a string
func (t *Tag) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*t = Tag{}
	case bool:
		*t = Tag{Derive: v}
	case string:
		*t = NamedTag(v)
	default:
		return fmt.Errorf("invalid display tag value [%s]", string(data))
	}

	return nil
}

// SyncLink is one bridge between an internal conversation and an external channel
type SyncLink struct {
	InternalID   string
	ExternalID   string
	DisplayTag   Tag
	RelayJoins   bool
	RelayImages  bool
	UseRealNames bool
	ExternalTag  string
}

// New returns a SyncLink between the two ids with join and image relaying enabled
func New(internalID string, externalID string) SyncLink {
	return SyncLink{InternalID: internalID, ExternalID: externalID, RelayJoins: true, RelayImages: true}
}

// Matches returns true if the link bridges exactly these two ids
func (l SyncLink) Matches(internalID string, externalID string) bool {
	return l.InternalID == internalID && l.ExternalID == externalID
}

// String returns the printable options of the link
func (l SyncLink) String() string {
	externalTag := l.ExternalTag
	if externalTag == "" {
		externalTag = noTagValue
	}

	return fmt.Sprintf("[%s] <-> [%s]: displaytag=%s, relayjoins=%t, relayimages=%t, externaltag=%s, realnames=%t",
		l.InternalID, l.ExternalID, l.DisplayTag, l.RelayJoins, l.RelayImages, externalTag, l.UseRealNames)
}

// record is the persisted form of a link
type record struct {
	ExternalID   string  `json:"channelid"`
	InternalID   string  `json:"hangoutid"`
	DisplayTag   Tag     `json:"hotag"`
	RelayJoins   *bool   `json:"sync_joins,omitempty"`
	RelayImages  *bool   `json:"image_upload,omitempty"`
	ExternalTag  *string `json:"slacktag"`
	UseRealNames *bool   `json:"showslackrealnames,omitempty"`
}

// MarshalJSON writes the link as a persisted record
func (l SyncLink) MarshalJSON() ([]byte, error) {
	r := record{
		ExternalID:   l.ExternalID,
		InternalID:   l.InternalID,
		DisplayTag:   l.DisplayTag,
		RelayJoins:   &l.RelayJoins,
		RelayImages:  &l.RelayImages,
		ExternalTag:  &l.ExternalTag,
		UseRealNames: &l.UseRealNames,
	}

	return json.Marshal(r)
}

// UnmarshalJSON reads a persisted record. Missing flags default to true and a missing
// external tag key is set to ExternalTagNotInConfig
func (l *SyncLink) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}

	if r.InternalID == "" || r.ExternalID == "" {
		return fmt.Errorf("link record is missing an endpoint: %s", string(data))
	}

	*l = SyncLink{
		InternalID:   r.InternalID,
		ExternalID:   r.ExternalID,
		DisplayTag:   r.DisplayTag,
		RelayJoins:   boolOrTrue(r.RelayJoins),
		RelayImages:  boolOrTrue(r.RelayImages),
		UseRealNames: boolOrTrue(r.UseRealNames),
		ExternalTag:  ExternalTagNotInConfig,
	}

	if r.ExternalTag != nil {
		l.ExternalTag = *r.ExternalTag
	}

	return nil
}

func boolOrTrue(b *bool) bool {
	if b == nil {
		return true
	}

	return *b
}
