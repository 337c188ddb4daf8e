package slackbridge

import (
	"encoding/json"
	"testing"

	"github.com/alexandre-normand/chatrelay"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer() *Normalizer {
	n := NewNormalizer(newTestDirectory(newFakeLoader()))
	n.SetLogin(LoginInfo{SelfID: "UBOT", SelfName: "relay", TeamDomain: "acme"})

	return n
}

func parseReply(t *testing.T, raw string) Reply {
	var r Reply
	require.NoError(t, json.Unmarshal([]byte(raw), &r))

	return r
}

func TestNormalizeSkipped(t *testing.T) {
	tests := map[string]string{
		"Pong":           `{"type": "pong", "reply_to": 1}`,
		"Presence":       `{"type": "presence_change", "user": "U1", "presence": "away"}`,
		"Typing":         `{"type": "user_typing", "channel": "C1", "user": "U1"}`,
		"FileShared":     `{"type": "file_shared"}`,
		"FilePublic":     `{"type": "file_public"}`,
		"CommentDeleted": `{"type": "file_comment_deleted"}`,
		"Hello":          `{"type": "hello"}`,
		"Deleted":        `{"type": "message", "subtype": "message_deleted", "channel": "C1"}`,
		"Ack":            `{"type": "message", "reply_to": 3, "channel": "C1", "user": "U1", "text": "hi"}`,
		"Preview":        `{"type": "message", "subtype": "message_changed", "channel": "C1", "message": {"type": "message", "username": "alice (room1)", "text": "https://example.com"}}`,
		"OwnMessage":     `{"type": "message", "channel": "C1", "user": "UBOT", "text": "bob has joined room1"}`,
	}

	n := newTestNormalizer()
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := n.Normalize(parseReply(t, raw))
			assert.True(t, chatrelay.IsSkip(err), "expected skip but got %v", err)
		})
	}
}

func TestNormalizeMalformed(t *testing.T) {
	tests := map[string]interface{}{
		"NoType":               Reply{},
		"NotAReply":            "hello",
		"NoUser":               parseReply(t, `{"type": "message", "channel": "C1", "text": "hi"}`),
		"NoText":               parseReply(t, `{"type": "message", "channel": "C1", "user": "U1"}`),
		"NoChannel":            parseReply(t, `{"type": "message", "user": "U1", "text": "hi"}`),
		"ChangedWithoutEdit":   parseReply(t, `{"type": "message", "subtype": "message_changed", "channel": "C1", "message": {"type": "message", "text": "hi"}}`),
		"EmptyNoAttachment":    parseReply(t, `{"type": "message", "channel": "C1", "user": "U1", "text": ""}`),
		"BotWithoutUsername":   parseReply(t, `{"type": "message", "subtype": "bot_message", "channel": "C1", "text": "hi"}`),
		"CommentWithoutDetail": parseReply(t, `{"type": "file_comment_added", "channel": "C1"}`),
	}

	n := newTestNormalizer()
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := n.Normalize(raw)
			assert.True(t, chatrelay.IsParseError(err), "expected parse error but got %v", err)
		})
	}
}

func TestNormalizeMessage(t *testing.T) {
	n := newTestNormalizer()

	msg, err := n.Normalize(parseReply(t, `{"type": "message", "channel": "C1", "user": "U1", "text": "hello *world* &amp; <@U2>"}`))

	require.NoError(t, err)
	assert.Equal(t, "hello <b>world</b> & @bob", msg.Text)
	assert.Equal(t, "alice", msg.SenderDisplayName)
	assert.Equal(t, "Alice Liddell", msg.SenderRealName)
	assert.Equal(t, "U1", msg.SenderPlatformID)
	assert.Equal(t, "https://example.com/alice.png", msg.SenderAvatarURL)
	assert.Equal(t, "#general", msg.SourceTitle)
	assert.Nil(t, msg.Participants)
	assert.Equal(t, chatrelay.KindMessage, msg.Kind)
	assert.False(t, msg.IsEdited)
	assert.False(t, msg.IsJoinLeave)
	assert.Empty(t, msg.Command)
	assert.Nil(t, msg.Provenance)
}

func TestNormalizeVariants(t *testing.T) {
	tests := map[string]struct {
		raw      string
		validate func(t *testing.T, msg chatrelay.RelayMessage)
	}{
		"Edited": {
			raw: `{"type": "message", "subtype": "message_changed", "channel": "C1", "message": {"type": "message", "text": "fixed", "edited": {"user": "U2", "ts": "1"}}}`,
			validate: func(t *testing.T, msg chatrelay.RelayMessage) {
				assert.True(t, msg.IsEdited)
				assert.Equal(t, "fixed", msg.Text)
				assert.Equal(t, "bob", msg.SenderDisplayName)
			},
		},
		"FileComment": {
			raw: `{"type": "message", "subtype": "file_comment", "channel": "C1", "text": "nice pic", "comment": {"user": "U2", "comment": "nice pic"}}`,
			validate: func(t *testing.T, msg chatrelay.RelayMessage) {
				assert.Equal(t, "nice pic", msg.Text)
				assert.Equal(t, "bob", msg.SenderDisplayName)
			},
		},
		"FileCommentAdded": {
			raw: `{"type": "file_comment_added", "channel": "C1", "comment": {"user": "U1", "comment": "love it"}}`,
			validate: func(t *testing.T, msg chatrelay.RelayMessage) {
				assert.Equal(t, "love it", msg.Text)
				assert.Equal(t, "alice", msg.SenderDisplayName)
			},
		},
		"BotMessage": {
			raw: `{"type": "message", "subtype": "bot_message", "channel": "C1", "username": "ifttt", "bot_id": "B1", "text": "rain today"}`,
			validate: func(t *testing.T, msg chatrelay.RelayMessage) {
				assert.Equal(t, "ifttt", msg.SenderDisplayName)
				assert.Equal(t, "B1", msg.SenderPlatformID)
				assert.Equal(t, "rain today", msg.Text)
			},
		},
		"Attachment": {
			raw: `{"type": "message", "subtype": "bot_message", "channel": "C1", "username": "ifttt", "text": "", "attachments": [{"text": "Weather", "fields": [{"title": "High", "value": "20C"}]}]}`,
			validate: func(t *testing.T, msg chatrelay.RelayMessage) {
				assert.Equal(t, "Weather <br/><b>High</b> <br/>20C", msg.Text)
			},
		},
		"SharedFile": {
			raw: `{"type": "message", "subtype": "file_share", "channel": "C1", "user": "U1", "text": "", "file": {"id": "F1", "url_private_download": "https://files.slack.com/F1/cat.png"}}`,
			validate: func(t *testing.T, msg chatrelay.RelayMessage) {
				assert.Equal(t, "https://files.slack.com/F1/cat.png", msg.AttachmentURL)
				assert.Empty(t, msg.Text)
			},
		},
		"Join": {
			raw: `{"type": "message", "subtype": "channel_join", "channel": "C1", "user": "U2", "text": "<@U2> has joined the channel"}`,
			validate: func(t *testing.T, msg chatrelay.RelayMessage) {
				assert.True(t, msg.IsJoinLeave)
				assert.Equal(t, chatrelay.KindJoin, msg.Kind)
				assert.Equal(t, []string{"alice", "bob"}, msg.Participants)
				assert.Equal(t, "@bob has joined the channel", msg.Text)
			},
		},
		"GroupLeave": {
			raw: `{"type": "message", "subtype": "group_leave", "group": "G1", "user": "U2", "text": "<@U2> has left the group"}`,
			validate: func(t *testing.T, msg chatrelay.RelayMessage) {
				assert.True(t, msg.IsJoinLeave)
				assert.Equal(t, chatrelay.KindLeave, msg.Kind)
				assert.Equal(t, "#secret", msg.SourceTitle)
			},
		},
		"Mention": {
			raw: `{"type": "message", "channel": "C1", "user": "U1", "text": "<@UBOT>: listsyncs"}`,
			validate: func(t *testing.T, msg chatrelay.RelayMessage) {
				assert.Equal(t, "listsyncs", msg.Command)
			},
		},
		"DirectMessage": {
			raw: `{"type": "message", "channel": "D1", "user": "U1", "text": "sync <#C1|general> to room1"}`,
			validate: func(t *testing.T, msg chatrelay.RelayMessage) {
				assert.Equal(t, "sync <#C1|general> to room1", msg.Command)
				assert.Equal(t, "sync #general to room1", msg.Text)
			},
		},
	}

	n := newTestNormalizer()
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			msg, err := n.Normalize(parseReply(t, tc.raw))

			require.NoError(t, err)
			tc.validate(t, msg)
		})
	}
}

func TestNormalizeEcho(t *testing.T) {
	n := newTestNormalizer()
	text := chatrelay.Embed("hi there", chatrelay.Provenance{Origin: chatrelay.InternalEndpoint("room1"), SenderID: "108"})
	r := Reply{Type: "message", Subtype: "bot_message", Channel: "C1", Username: "alice (room1)", BotID: "B9", Text: &text}

	msg, err := n.Normalize(&r)

	require.NoError(t, err)
	require.NotNil(t, msg.Provenance)
	assert.Equal(t, chatrelay.Provenance{Origin: chatrelay.InternalEndpoint("room1"), SenderID: "108"}, *msg.Provenance)
	assert.Equal(t, "hi there", msg.Text)
	assert.Equal(t, "108", msg.SenderPlatformID)
	assert.Equal(t, "alice (room1)", msg.SenderDisplayName)
}

func TestNormalizeEchoWithPreview(t *testing.T) {
	n := newTestNormalizer()
	text := chatrelay.Embed("look <https://lh3.googleusercontent.com/abc/cat.jpg>", chatrelay.Provenance{Origin: chatrelay.InternalEndpoint("room1"), SenderID: "108"})
	r := Reply{Type: "message", Subtype: "bot_message", Channel: "C1", Username: "alice", Text: &text}

	msg, err := n.Normalize(r)

	require.NoError(t, err)
	assert.Equal(t, "https://lh3.googleusercontent.com/abc/cat.jpg", msg.AttachmentURL)
	assert.Equal(t, "look", msg.Text)
}

func TestNormalizeUnknownChannelLoadsOnce(t *testing.T) {
	loader := newFakeLoader()
	n := NewNormalizer(newTestDirectory(loader))
	n.SetLogin(LoginInfo{SelfID: "UBOT", SelfName: "relay", TeamDomain: "acme"})
	loader.err = errors.New("slack is down")

	for i := 0; i < 5; i++ {
		msg, err := n.Normalize(parseReply(t, `{"type": "message", "channel": "C9", "user": "U1", "text": "hello"}`))
		require.NoError(t, err)
		assert.Equal(t, "#C9", msg.SourceTitle)
	}

	_, channels, members := loader.loads()
	assert.Equal(t, 1, channels)
	assert.Equal(t, 0, members)
}
