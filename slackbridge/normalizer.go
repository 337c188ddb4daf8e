package slackbridge

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/alexandre-normand/chatrelay"
)

const (
	typeMessage          = "message"
	typeFileCommentAdded = "file_comment_added"

	subtypeMessageChanged = "message_changed"
	subtypeFileComment    = "file_comment"
	subtypeBotMessage     = "bot_message"

	directChannelPrefix = "D"
)

var (
	joinLeaveSubtypes = map[string]chatrelay.EventKind{
		"channel_join":  chatrelay.KindJoin,
		"group_join":    chatrelay.KindJoin,
		"channel_leave": chatrelay.KindLeave,
		"group_leave":   chatrelay.KindLeave,
	}

	// previewRegex matches the link preview slack adds to relayed image links
	previewRegex = regexp.MustCompile(`(?s)^(.*)<(https?://[^\s/]*googleusercontent\.com/[^\s]*)>$`)
)

// Normalizer converts slack replies to relay messages. Replies that aren't messages are skipped
type Normalizer struct {
	dir *Directory

	mu    sync.RWMutex
	login LoginInfo
}

// NewNormalizer returns a new Normalizer resolving names with the directory
func NewNormalizer(dir *Directory) (n *Normalizer) {
	n = new(Normalizer)
	n.dir = dir

	return n
}

// SetLogin sets the identity of the bot for the current session. Messages sent by the bot itself are skipped
// and messages mentioning it are treated as commands
func (n *Normalizer) SetLogin(login LoginInfo) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.login = login
}

func (n *Normalizer) selfID() string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.login.SelfID
}

// Normalize implements chatrelay.Normalizer
func (n *Normalizer) Normalize(raw interface{}) (msg chatrelay.RelayMessage, err error) {
	var r Reply
	switch v := raw.(type) {
	case Reply:
		r = v
	case *Reply:
		if v == nil {
			return msg, chatrelay.NewParseError(raw, "nil reply")
		}
		r = *v
	default:
		return msg, chatrelay.NewParseError(raw, "unsupported event type %T", raw)
	}

	if r.Type == "" {
		return msg, chatrelay.NewParseError(r, "reply without a type")
	}

	if r.Type != typeMessage && r.Type != typeFileCommentAdded {
		return msg, chatrelay.Skip("reply of type [%s]", r.Type)
	}

	if r.ReplyTo > 0 {
		return msg, chatrelay.Skip("acknowledgement of message [%d]", r.ReplyTo)
	}

	if r.Subtype == "message_deleted" {
		return msg, chatrelay.Skip("message deletion")
	}

	userID, text, isBot, err := n.senderAndText(r, &msg)
	if err != nil {
		return msg, err
	}

	if userID != "" && userID == n.selfID() {
		return msg, chatrelay.Skip("message sent by the relay itself")
	}

	channel := r.ChannelID()
	if channel == "" {
		return msg, chatrelay.NewParseError(r, "message without a channel")
	}

	if r.File != nil && r.File.URLPrivateDownload != "" {
		msg.AttachmentURL = r.File.URLPrivateDownload
	}

	text, msg.Provenance = chatrelay.StripAndParse(text)
	if msg.Provenance != nil {
		if m := previewRegex.FindStringSubmatch(text); m != nil {
			text = strings.TrimSpace(m[1])
			msg.AttachmentURL = m[2]
		}
	}

	if kind, ok := joinLeaveSubtypes[r.Subtype]; ok {
		msg.Kind = kind
		msg.IsJoinLeave = true
	}

	if isBot {
		msg.SenderDisplayName = r.Username
		msg.SenderPlatformID = r.BotID
		if msg.Provenance != nil {
			msg.SenderPlatformID = msg.Provenance.SenderID
		}
	} else {
		id := n.dir.Resolve(userID)
		msg.SenderPlatformID = userID
		msg.SenderDisplayName = id.Name
		msg.SenderRealName = id.RealName
		msg.SenderAvatarURL = id.AvatarURL
		msg.Command = n.command(channel, text)
	}

	msg.Text = textToHTML(text, n.dir)
	msg.SourceTitle = "#" + n.dir.ChannelName(channel, channel)
	if msg.IsJoinLeave {
		// Only greetings need the member list
		msg.Participants = n.dir.Participants(channel)
	}

	return msg, nil
}

// senderAndText picks the sender and text of the reply according to its type and subtype
func (n *Normalizer) senderAndText(r Reply, msg *chatrelay.RelayMessage) (userID string, text string, isBot bool, err error) {
	switch {
	case r.Subtype == subtypeMessageChanged:
		if r.Message != nil && r.Message.Edited != nil {
			msg.IsEdited = true
			return r.Message.Edited.User, r.Message.TextOrEmpty(), false, nil
		}

		if r.Message != nil && r.Message.Username != "" {
			return "", "", false, chatrelay.Skip("link preview added to a bot message")
		}

		return "", "", false, chatrelay.NewParseError(r, "changed message without an edit")
	case r.Subtype == subtypeFileComment:
		if r.Comment == nil || r.Text == nil {
			return "", "", false, chatrelay.NewParseError(r, "file comment without a comment")
		}
		return r.Comment.User, *r.Text, false, nil
	case r.Type == typeFileCommentAdded:
		if r.Comment == nil {
			return "", "", false, chatrelay.NewParseError(r, "file comment without a comment")
		}
		return r.Comment.User, r.Comment.Comment, false, nil
	case r.Subtype == subtypeBotMessage && r.User == "":
		if r.Username == "" {
			return "", "", false, chatrelay.NewParseError(r, "bot message without a username")
		}
		text, err = messageText(r)
		return "", text, true, err
	}

	if r.User == "" {
		return "", "", false, chatrelay.NewParseError(r, "message without a user")
	}

	text, err = messageText(r)
	return r.User, text, false, err
}

// messageText returns the text of the reply. Integrations posting empty messages have their first
// attachment rendered instead
func messageText(r Reply) (text string, err error) {
	if r.Text == nil {
		return "", chatrelay.NewParseError(r, "message without text")
	}

	if *r.Text != "" {
		return *r.Text, nil
	}

	if r.File != nil {
		return "", nil
	}

	if len(r.Attachments) == 0 || r.Attachments[0].Text == nil {
		return "", chatrelay.NewParseError(r, "empty message without attachment text")
	}

	var b strings.Builder
	b.WriteString(*r.Attachments[0].Text)
	for _, f := range r.Attachments[0].Fields {
		fmt.Fprintf(&b, "\n*%s*\n%s", f.Title, f.Value)
	}

	return b.String(), nil
}

// command returns the text addressed to the relay: everything in a direct message and the text following
// a leading mention of the relay elsewhere
func (n *Normalizer) command(channel string, text string) string {
	self := n.selfID()

	if self != "" {
		mention := fmt.Sprintf("<@%s>", self)
		if strings.HasPrefix(text, mention) {
			return strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(text, mention), ":"))
		}
	}

	if strings.HasPrefix(channel, directChannelPrefix) {
		return strings.TrimSpace(text)
	}

	return ""
}
