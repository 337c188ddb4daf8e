package hangouts

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/alexandre-normand/chatrelay"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() chatrelay.SLogger {
	return chatrelay.NewSLogger(log.New(io.Discard, "", 0), true)
}

type mockHost struct {
	mock.Mock
}

func (m *mockHost) SendMessage(ctx context.Context, conversationID string, text string, imageID string, passthru Passthru) error {
	args := m.Called(ctx, conversationID, text, imageID, passthru)
	return args.Error(0)
}

func (m *mockHost) UploadImage(ctx context.Context, data []byte, filename string) (string, error) {
	args := m.Called(ctx, data, filename)
	return args.String(0), args.Error(1)
}

type fakeFetcher struct {
	img chatrelay.Image
	err error
}

func (f fakeFetcher) Fetch(ctx context.Context, url string) (chatrelay.Image, error) {
	return f.img, f.err
}

type inboundCaptor struct {
	mu       sync.Mutex
	inbound  []interface{}
	outbound []chatrelay.RelayMessage
	origins  []chatrelay.Endpoint
}

func (c *inboundCaptor) OnInbound(origin chatrelay.Endpoint, raw interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.origins = append(c.origins, origin)
	c.inbound = append(c.inbound, raw)
}

func (c *inboundCaptor) OnOutbound(origin chatrelay.Endpoint, msg chatrelay.RelayMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.origins = append(c.origins, origin)
	c.outbound = append(c.outbound, msg)
}

type imageCaptor map[string]string

func (c imageCaptor) Resolve(id string, url string) {
	c[id] = url
}
