package hangouts

import (
	"context"
	"encoding/json"
	"net"

	"github.com/alexandre-normand/chatrelay"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

const (
	eventsPath = "/events"
	imagesPath = "/images"
	healthPath = "/healthz"
)

// Inbound is implemented by any value handling events seen on internal conversations. *chatrelay.Relay implements it
type Inbound interface {
	OnInbound(origin chatrelay.Endpoint, raw interface{})
	OnOutbound(origin chatrelay.Endpoint, msg chatrelay.RelayMessage)
}

// ImageResolver is implemented by any value accepting the public url of an uploaded image. *chatrelay.ImageWaiter implements it
type ImageResolver interface {
	Resolve(id string, url string)
}

type imageResolution struct {
	ImageID string `json:"image_id"`
	URL     string `json:"url"`
}

// Sink is the webhook the host pushes its events to
type Sink struct {
	inbound    Inbound
	normalizer *Normalizer
	images     ImageResolver
	log        chatrelay.SLogger
	server     *fasthttp.Server
}

// NewSink returns a new Sink. Outbound events are normalized with the normalizer before they're handed to inbound
func NewSink(inbound Inbound, normalizer *Normalizer, images ImageResolver, log chatrelay.SLogger) (s *Sink) {
	s = new(Sink)
	s.inbound = inbound
	s.normalizer = normalizer
	s.images = images
	s.log = log
	s.server = &fasthttp.Server{Name: "chatrelay", Handler: s.handle}

	return s
}

// ListenAndServe serves the webhook on addr until the context is done
func (s *Sink) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return errors.Wrapf(err, "error listening on [%s]", addr)
	}

	return s.Serve(ctx, ln)
}

// Serve serves the webhook on the listener until the context is done
func (s *Sink) Serve(ctx context.Context, ln net.Listener) error {
	done := make(chan error, 1)
	go func() {
		done <- s.server.Serve(ln)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.log.Printf("Shutting down webhook on [%s]", ln.Addr())
		if err := s.server.Shutdown(); err != nil {
			return err
		}

		return <-done
	}
}

func (s *Sink) handle(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())

	switch {
	case path == healthPath && ctx.IsGet():
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	case path == eventsPath && ctx.IsPost():
		s.handleEvent(ctx)
	case path == imagesPath && ctx.IsPost():
		s.handleImage(ctx)
	case path == eventsPath || path == imagesPath || path == healthPath:
		ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
	default:
		ctx.Error("not found", fasthttp.StatusNotFound)
	}
}

func (s *Sink) handleEvent(ctx *fasthttp.RequestCtx) {
	var e Event
	if err := json.Unmarshal(ctx.PostBody(), &e); err != nil {
		s.log.Debugf("Rejecting malformed event: %v", err)
		ctx.Error("malformed event", fasthttp.StatusBadRequest)
		return
	}

	origin := chatrelay.InternalEndpoint(e.ConversationID)
	if !e.Outbound {
		s.inbound.OnInbound(origin, e)
		ctx.SetStatusCode(fasthttp.StatusAccepted)
		return
	}

	msg, err := s.normalizer.Normalize(e)
	if err != nil {
		if !chatrelay.IsSkip(err) {
			s.log.Debugf("Dropping outbound event from [%s]: %v", origin, err)
		}

		ctx.SetStatusCode(fasthttp.StatusAccepted)
		return
	}

	s.inbound.OnOutbound(origin, msg)
	ctx.SetStatusCode(fasthttp.StatusAccepted)
}

func (s *Sink) handleImage(ctx *fasthttp.RequestCtx) {
	var r imageResolution
	if err := json.Unmarshal(ctx.PostBody(), &r); err != nil || r.ImageID == "" || r.URL == "" {
		ctx.Error("image_id and url are required", fasthttp.StatusBadRequest)
		return
	}

	s.images.Resolve(r.ImageID, r.URL)
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}
