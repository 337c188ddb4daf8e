package slackbridge

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/alexandre-normand/chatrelay"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() chatrelay.SLogger {
	return chatrelay.NewSLogger(log.New(io.Discard, "", 0), true)
}

type fakeLoader struct {
	mu           sync.Mutex
	users        []Identity
	channels     map[string]string
	members      map[string][]string
	err          error
	userLoads    int
	channelLoads int
	memberLoads  int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		users: []Identity{
			{ID: "U1", Name: "alice", RealName: "Alice Liddell", AvatarURL: "https://example.com/alice.png"},
			{ID: "U2", Name: "bob", RealName: "Bob Smith"},
		},
		channels: map[string]string{"C1": "general", "G1": "secret"},
		members:  map[string][]string{"C1": {"U1", "U2"}},
	}
}

func (f *fakeLoader) LoadUsers(ctx context.Context) ([]Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.userLoads++
	return f.users, f.err
}

func (f *fakeLoader) LoadChannels(ctx context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.channelLoads++
	return f.channels, f.err
}

func (f *fakeLoader) LoadMembers(ctx context.Context, channelID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.memberLoads++
	return f.members[channelID], f.err
}

func (f *fakeLoader) loads() (users int, channels int, members int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.userLoads, f.channelLoads, f.memberLoads
}

func newTestDirectory(loader DirectoryLoader) *Directory {
	d, err := NewDirectory(100, loader, newTestLogger())
	if err != nil {
		panic(err)
	}

	return d
}

// mockAPI is a testify mock of API
type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) ConnectRTMContext(ctx context.Context) (*slack.Info, string, error) {
	args := m.Called(ctx)

	info, _ := args.Get(0).(*slack.Info)
	return info, args.String(1), args.Error(2)
}

func (m *mockAPI) GetUsersContext(ctx context.Context, options ...slack.GetUsersOption) ([]slack.User, error) {
	args := m.Called(ctx)

	users, _ := args.Get(0).([]slack.User)
	return users, args.Error(1)
}

func (m *mockAPI) GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error) {
	args := m.Called(ctx, params.Cursor)

	channels, _ := args.Get(0).([]slack.Channel)
	return channels, args.String(1), args.Error(2)
}

func (m *mockAPI) GetUsersInConversationContext(ctx context.Context, params *slack.GetUsersInConversationParameters) ([]string, string, error) {
	args := m.Called(ctx, params.ChannelID, params.Cursor)

	members, _ := args.Get(0).([]string)
	return members, args.String(1), args.Error(2)
}

func (m *mockAPI) GetTeamInfoContext(ctx context.Context) (*slack.TeamInfo, error) {
	args := m.Called(ctx)

	team, _ := args.Get(0).(*slack.TeamInfo)
	return team, args.Error(1)
}

func (m *mockAPI) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	_, values, err := slack.UnsafeApplyMsgOptions("token", channelID, "https://slack.com/api/", options...)
	if err != nil {
		return "", "", err
	}

	args := m.Called(ctx, channelID, values.Get("text"), values.Get("username"), values.Get("as_user") == "true")
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockAPI) GetUploadURLExternalContext(ctx context.Context, params slack.GetUploadURLExternalParameters) (*slack.GetUploadURLExternalResponse, error) {
	args := m.Called(ctx, params.FileName, params.FileSize)

	resp, _ := args.Get(0).(*slack.GetUploadURLExternalResponse)
	return resp, args.Error(1)
}

func (m *mockAPI) CompleteUploadExternalContext(ctx context.Context, params slack.CompleteUploadExternalParameters) (*slack.CompleteUploadExternalResponse, error) {
	args := m.Called(ctx, params.Channel, params.Files)

	resp, _ := args.Get(0).(*slack.CompleteUploadExternalResponse)
	return resp, args.Error(1)
}
