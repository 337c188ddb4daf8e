// Package hangouts is the internal side of the relay: it accepts conversation events pushed by the chat
// host over a webhook and sends relayed messages back to the host
package hangouts

import (
	"github.com/alexandre-normand/chatrelay"
)

// Event types
const (
	TypeMessage    = "message"
	TypeMembership = "membership"
	TypeRename     = "rename"
)

// Membership change kinds
const (
	MembershipJoin  = "join"
	MembershipLeave = "leave"
)

// User is a conversation participant
type User struct {
	ChatID   string `json:"chat_id"`
	FullName string `json:"full_name"`
	Nickname string `json:"nickname,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// Name returns the nickname of the user when set and the full name otherwise
func (u User) Name() string {
	if u.Nickname != "" {
		return u.Nickname
	}

	return u.FullName
}

// Membership describes users joining or leaving a conversation
type Membership struct {
	Kind  string `json:"kind"`
	Users []User `json:"users"`
}

// Event is a conversation event pushed by the host
type Event struct {
	Type              string `json:"type"`
	ConversationID    string `json:"conversation_id"`
	ConversationTitle string `json:"conversation_title,omitempty"`

	// User is the author of a message, the actor of a membership change or rename
	User User   `json:"user"`
	Text string `json:"text,omitempty"`

	// ImageID identifies an image uploaded to the host whose public url isn't known yet
	ImageID string `json:"image_id,omitempty"`

	// Attachments are public urls of attached images
	Attachments []string `json:"attachments,omitempty"`

	Membership *Membership `json:"membership,omitempty"`
	NewTitle   string      `json:"new_title,omitempty"`

	// Participants are the current members of the conversation
	Participants []User `json:"participants,omitempty"`

	// Outbound is set for messages sent by the host itself
	Outbound bool `json:"outbound,omitempty"`

	// Passthru is set on messages the relay sent into the host
	Passthru *Passthru `json:"passthru,omitempty"`
}

// Passthru is attached to messages sent to the host and handed back on the events they generate
type Passthru struct {
	OriginSide string   `json:"origin_side,omitempty"`
	OriginID   string   `json:"origin_id,omitempty"`
	SenderID   string   `json:"sender_id,omitempty"`
	NoRelay    []string `json:"norelay,omitempty"`
}

// NewPassthru returns the passthru carrying the provenance and already-relayed set of a task
func NewPassthru(task chatrelay.DeliveryTask) (p Passthru) {
	p.OriginSide = task.Provenance.Origin.Side.String()
	p.OriginID = task.Provenance.Origin.ID
	p.SenderID = task.Provenance.SenderID

	p.NoRelay = make([]string, 0, len(task.AlreadyRelayed))
	for id, relayed := range task.AlreadyRelayed {
		if relayed {
			p.NoRelay = append(p.NoRelay, id)
		}
	}

	return p
}

// Provenance returns the provenance carried by the passthru or nil if it carries none
func (p *Passthru) Provenance() *chatrelay.Provenance {
	if p == nil || p.OriginID == "" {
		return nil
	}

	side, err := chatrelay.ParseSide(p.OriginSide)
	if err != nil {
		return nil
	}

	return &chatrelay.Provenance{Origin: chatrelay.Endpoint{Side: side, ID: p.OriginID}, SenderID: p.SenderID}
}

// AlreadyRelayed returns the ids of bridges that relayed the message
func (p *Passthru) AlreadyRelayed() (relayed map[string]bool) {
	if p == nil || len(p.NoRelay) == 0 {
		return nil
	}

	relayed = make(map[string]bool, len(p.NoRelay))
	for _, id := range p.NoRelay {
		relayed[id] = true
	}

	return relayed
}
