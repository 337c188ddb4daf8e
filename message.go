package chatrelay

import (
	"fmt"

	"github.com/alexandre-normand/chatrelay/synclink"
)

// Side identifies which half of a bridge an endpoint lives on
type Side int

// Side values
const (
	// Internal is the host-side conversation (the chat host pushing events to us)
	Internal Side = iota
	// External is the external platform channel (i.e. slack)
	External
)

// String returns the lowercase name of the side, which is also what ends up in provenance tags
func (s Side) String() string {
	switch s {
	case Internal:
		return "internal"
	case External:
		return "external"
	}

	return fmt.Sprintf("side(%d)", int(s))
}

// ParseSide returns the Side for its string representation
func ParseSide(name string) (s Side, err error) {
	switch name {
	case "internal":
		return Internal, nil
	case "external":
		return External, nil
	}

	return Internal, fmt.Errorf("unknown side [%s]", name)
}

// Endpoint is one side of a link: an internal conversation id or an external channel id
type Endpoint struct {
	Side Side
	ID   string
}

// InternalEndpoint returns the internal Endpoint for a conversation id
func InternalEndpoint(id string) Endpoint {
	return Endpoint{Side: Internal, ID: id}
}

// ExternalEndpoint returns the external Endpoint for a channel id
func ExternalEndpoint(id string) Endpoint {
	return Endpoint{Side: External, ID: id}
}

// String returns a human-friendly representation of the endpoint
func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%s", e.Side, e.ID)
}

// endpointsOf returns the internal and external endpoints of a link
func endpointsOf(l synclink.SyncLink) (internal Endpoint, external Endpoint) {
	return InternalEndpoint(l.InternalID), ExternalEndpoint(l.ExternalID)
}

// opposite returns the endpoint of the link that isn't origin
func opposite(l synclink.SyncLink, origin Endpoint) Endpoint {
	internal, external := endpointsOf(l)
	if origin == internal {
		return external
	}

	return internal
}

// Provenance identifies where a relayed message originally came from
type Provenance struct {
	// Origin is the conversation the message was first posted to
	Origin Endpoint

	// SenderID is the platform id of the original sender
	SenderID string
}

// EventKind is the kind of conversation event a message stands for
type EventKind int

// EventKind values
const (
	KindMessage EventKind = iota
	KindJoin
	KindLeave
	KindRename
)

// String returns the uppercase name of the kind
func (k EventKind) String() string {
	switch k {
	case KindJoin:
		return "JOIN"
	case KindLeave:
		return "LEAVE"
	case KindRename:
		return "RENAME"
	}

	return "MESSAGE"
}

// RelayMessage is a platform-neutral message. It is built once by a Normalizer and
// passed by value from there on
type RelayMessage struct {
	Text              string
	SenderDisplayName string
	SenderRealName    string
	SenderPlatformID  string
	SenderAvatarURL   string

	// SourceTitle is the human name of the conversation the message was seen in
	SourceTitle string

	Kind        EventKind
	IsEdited    bool
	IsJoinLeave bool

	// Command is the text of a message addressed to the relay itself, without the addressing
	Command string

	// Participants holds the display names of the conversation members when the platform knows them
	Participants []string

	// AttachmentURL is a publicly fetchable url of an attached image, if any
	AttachmentURL string

	// ImageID is a host image id for images that don't have a public url yet
	ImageID string

	// Provenance is only set when the message is an echo of something relayed by a bridge
	Provenance *Provenance

	// AlreadyRelayed holds the ids of bridges that have already handled this message
	AlreadyRelayed map[string]bool
}

// WasRelayedBy returns true if the bridge with the given id already relayed the message
func (m RelayMessage) WasRelayedBy(bridgeID string) bool {
	return m.AlreadyRelayed[bridgeID]
}

// ImageRelay is the instruction to relay an image alongside a delivery
type ImageRelay struct {
	// URL of the image to fetch
	URL string

	// PendingID is set when the image url isn't known yet and will be resolved later
	PendingID string
}

// DeliveryTask is one outbound delivery to the opposite endpoint of a link
type DeliveryTask struct {
	ID          string
	Link        synclink.SyncLink
	Origin      Endpoint
	Target      Endpoint
	Text        string
	DisplayName string
	IconURL     string
	IsJoinLeave bool
	Image       *ImageRelay
	Provenance  Provenance

	// AlreadyRelayed is carried to the target platform so echoes can be recognized
	AlreadyRelayed map[string]bool
}

// String returns a loggable summary of the task
func (t DeliveryTask) String() string {
	return fmt.Sprintf("task [%s] %s -> %s", t.ID, t.Origin, t.Target)
}
