package slackbridge

// Reply is one event read from the real time messaging stream. Optional members are pointers so
// that a missing member can be told apart from an empty one
type Reply struct {
	Type        string       `json:"type"`
	Subtype     string       `json:"subtype,omitempty"`
	Channel     string       `json:"channel,omitempty"`
	Group       string       `json:"group,omitempty"`
	User        string       `json:"user,omitempty"`
	Username    string       `json:"username,omitempty"`
	BotID       string       `json:"bot_id,omitempty"`
	Text        *string      `json:"text,omitempty"`
	Timestamp   string       `json:"ts,omitempty"`
	ReplyTo     int          `json:"reply_to,omitempty"`
	Edited      *Edited      `json:"edited,omitempty"`
	Message     *Reply       `json:"message,omitempty"`
	Comment     *Comment     `json:"comment,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	File        *File        `json:"file,omitempty"`
}

// Edited holds who edited a message
type Edited struct {
	User      string `json:"user"`
	Timestamp string `json:"ts"`
}

// Comment is a file comment
type Comment struct {
	User    string `json:"user"`
	Comment string `json:"comment"`
}

// Attachment is a message attachment as posted by integrations
type Attachment struct {
	Text   *string `json:"text,omitempty"`
	Fields []Field `json:"fields,omitempty"`
}

// Field is one titled value of an attachment
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// File is a shared file
type File struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	URLPrivateDownload string `json:"url_private_download,omitempty"`
}

// TextOrEmpty returns the reply text or an empty string when the reply has none
func (r Reply) TextOrEmpty() string {
	if r.Text == nil {
		return ""
	}

	return *r.Text
}

// ChannelID returns the channel or private group the reply was seen on
func (r Reply) ChannelID() string {
	if r.Channel != "" {
		return r.Channel
	}

	return r.Group
}

// NewTextReply returns a message Reply with the given text, mostly useful to build test events
func NewTextReply(channel string, user string, text string) Reply {
	return Reply{Type: "message", Channel: channel, User: user, Text: &text}
}
