// Package slackbridge is the external side of the relay: it reads the slack real time messaging stream,
// normalizes replies into relay messages and delivers relay tasks to slack channels
package slackbridge

import (
	"context"

	"github.com/slack-go/slack"
)

// API is implemented by any value that has the slack web api methods the bridge uses. *slack.Client implements it
type API interface {
	// ConnectRTMContext starts a real time messaging session. See https://pkg.go.dev/github.com/slack-go/slack#Client.ConnectRTMContext
	ConnectRTMContext(ctx context.Context) (info *slack.Info, websocketURL string, err error)

	// GetUsersContext lists all users of the team
	GetUsersContext(ctx context.Context, options ...slack.GetUsersOption) (users []slack.User, err error)

	// GetConversationsContext lists a page of channels
	GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) (channels []slack.Channel, nextCursor string, err error)

	// GetUsersInConversationContext lists a page of member ids of a channel
	GetUsersInConversationContext(ctx context.Context, params *slack.GetUsersInConversationParameters) (members []string, nextCursor string, err error)

	// GetTeamInfoContext returns the team the bot is logged in to
	GetTeamInfoContext(ctx context.Context) (team *slack.TeamInfo, err error)

	// PostMessageContext posts a message. See https://pkg.go.dev/github.com/slack-go/slack#Client.PostMessageContext
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (rChannelID string, rTimestamp string, err error)

	// GetUploadURLExternalContext reserves a file upload url
	GetUploadURLExternalContext(ctx context.Context, params slack.GetUploadURLExternalParameters) (resp *slack.GetUploadURLExternalResponse, err error)

	// CompleteUploadExternalContext shares previously uploaded files to a channel
	CompleteUploadExternalContext(ctx context.Context, params slack.CompleteUploadExternalParameters) (resp *slack.CompleteUploadExternalResponse, err error)
}
