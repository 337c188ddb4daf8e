package hangouts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

const (
	sendPath   = "/send"
	uploadPath = "/upload"

	defaultSendTimeout = 10 * time.Second
)

// Host is implemented by any value that sends messages and uploads images into host conversations
type Host interface {
	// SendMessage sends text and an optional uploaded image to a conversation. The passthru is handed
	// back on the events the message generates
	SendMessage(ctx context.Context, conversationID string, text string, imageID string, passthru Passthru) error

	// UploadImage uploads an image and returns the id to send it with
	UploadImage(ctx context.Context, data []byte, filename string) (imageID string, err error)
}

type sendRequest struct {
	ConversationID string   `json:"conversation_id"`
	Text           string   `json:"text"`
	ImageID        string   `json:"image_id,omitempty"`
	Passthru       Passthru `json:"passthru"`
}

type uploadRequest struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

type uploadResponse struct {
	ImageID string `json:"image_id"`
}

// WebhookHost is a Host posting json to the host's callback url
type WebhookHost struct {
	baseURL string
	client  *fasthttp.Client
	timeout time.Duration
}

// NewWebhookHost returns a new WebhookHost for the callback url. Calls time out after timeout unless
// their context expires first
func NewWebhookHost(callbackURL string, client *fasthttp.Client, timeout time.Duration) (h *WebhookHost) {
	h = new(WebhookHost)
	h.baseURL = strings.TrimSuffix(callbackURL, "/")
	h.client = client
	h.timeout = timeout

	if h.client == nil {
		h.client = &fasthttp.Client{Name: "chatrelay"}
	}

	return h
}

// SendMessage implements Host
func (h *WebhookHost) SendMessage(ctx context.Context, conversationID string, text string, imageID string, passthru Passthru) error {
	return h.post(ctx, sendPath, sendRequest{ConversationID: conversationID, Text: text, ImageID: imageID, Passthru: passthru}, nil)
}

// UploadImage implements Host
func (h *WebhookHost) UploadImage(ctx context.Context, data []byte, filename string) (imageID string, err error) {
	var resp uploadResponse
	if err = h.post(ctx, uploadPath, uploadRequest{Filename: filename, Data: data}, &resp); err != nil {
		return "", err
	}

	if resp.ImageID == "" {
		return "", fmt.Errorf("host returned no image id for [%s]", filename)
	}

	return resp.ImageID, nil
}

func (h *WebhookHost) post(ctx context.Context, path string, body interface{}, out interface{}) (err error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrapf(err, "error encoding request to [%s]", path)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(h.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err = h.client.DoTimeout(req, resp, h.timeoutFor(ctx)); err != nil {
		return errors.Wrapf(err, "error calling host at [%s]", path)
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("host returned status [%d] on [%s]: %s", code, path, resp.Body())
	}

	if out != nil {
		if err = json.Unmarshal(resp.Body(), out); err != nil {
			return errors.Wrapf(err, "error decoding response from [%s]", path)
		}
	}

	return nil
}

// timeoutFor returns the configured timeout capped by the context deadline
func (h *WebhookHost) timeoutFor(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < h.timeout {
			return left
		}
	}

	return h.timeout
}
