package hangouts

import (
	"fmt"
	"strings"

	"github.com/alexandre-normand/chatrelay"
)

// Normalizer converts host events into relay messages
type Normalizer struct {
	commandPrefix string
}

// NewNormalizer returns a new Normalizer. Messages starting with the command prefix are addressed
// to the relay
func NewNormalizer(commandPrefix string) (n *Normalizer) {
	n = new(Normalizer)
	n.commandPrefix = strings.TrimSpace(commandPrefix)

	return n
}

// Normalize implements chatrelay.Normalizer. raw must be an Event or *Event
func (n *Normalizer) Normalize(raw interface{}) (msg chatrelay.RelayMessage, err error) {
	var e *Event
	switch v := raw.(type) {
	case Event:
		e = &v
	case *Event:
		e = v
	default:
		return msg, chatrelay.NewParseError(raw, "unsupported event type %T", raw)
	}

	if e == nil {
		return msg, chatrelay.NewParseError(raw, "nil event")
	}

	if e.ConversationID == "" {
		return msg, chatrelay.NewParseError(raw, "missing conversation id")
	}

	if e.User.ChatID == "" {
		return msg, chatrelay.NewParseError(raw, "missing user on %s event", e.Type)
	}

	msg.SenderPlatformID = e.User.ChatID
	msg.SenderDisplayName = e.User.Name()
	msg.SenderRealName = e.User.FullName
	msg.SenderAvatarURL = avatarURL(e.User.PhotoURL)
	msg.SourceTitle = e.ConversationTitle
	msg.Participants = names(e.Participants)
	msg.Provenance = e.Passthru.Provenance()
	msg.AlreadyRelayed = e.Passthru.AlreadyRelayed()

	switch e.Type {
	case TypeMessage:
		err = n.message(e, &msg)
	case TypeMembership:
		err = membership(e, &msg)
	case TypeRename:
		msg.Kind = chatrelay.KindRename
		msg.Text = fmt.Sprintf("%s has renamed the conversation to %s", e.User.Name(), e.NewTitle)
		msg.SourceTitle = e.NewTitle
	default:
		return msg, chatrelay.Skip("event of type [%s]", e.Type)
	}

	return msg, err
}

func (n *Normalizer) message(e *Event, msg *chatrelay.RelayMessage) error {
	if e.Text == "" && e.ImageID == "" && len(e.Attachments) == 0 {
		return chatrelay.Skip("empty message")
	}

	msg.Text = e.Text
	msg.ImageID = e.ImageID
	if len(e.Attachments) > 0 {
		msg.AttachmentURL = e.Attachments[0]
	}

	if !e.Outbound && n.commandPrefix != "" {
		if fields := strings.Fields(e.Text); len(fields) > 0 && fields[0] == n.commandPrefix {
			msg.Command = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(e.Text), n.commandPrefix))
		}
	}

	return nil
}

func membership(e *Event, msg *chatrelay.RelayMessage) error {
	if e.Membership == nil || len(e.Membership.Users) == 0 {
		return chatrelay.NewParseError(e, "membership event without users")
	}

	msg.IsJoinLeave = true
	title := e.ConversationTitle
	joined := strings.Join(names(e.Membership.Users), ", ")

	switch e.Membership.Kind {
	case MembershipJoin:
		msg.Kind = chatrelay.KindJoin
		if len(e.Membership.Users) == 1 && e.Membership.Users[0].ChatID == e.User.ChatID {
			msg.Text = fmt.Sprintf("%s has joined %s", e.User.Name(), title)
		} else {
			msg.Text = fmt.Sprintf("%s has added %s to %s", e.User.Name(), joined, title)
		}
	case MembershipLeave:
		msg.Kind = chatrelay.KindLeave
		msg.Text = fmt.Sprintf("%s has left %s", joined, title)
	default:
		return chatrelay.NewParseError(e, "unknown membership kind [%s]", e.Membership.Kind)
	}

	return nil
}

func names(users []User) (n []string) {
	if len(users) == 0 {
		return nil
	}

	n = make([]string, 0, len(users))
	for _, u := range users {
		n = append(n, u.Name())
	}

	return n
}

// avatarURL makes protocol-relative photo urls absolute
func avatarURL(url string) string {
	if strings.HasPrefix(url, "//") {
		return "https:" + url
	}

	return url
}
