package chatrelay

import (
	"fmt"
	"strings"

	"github.com/alexandre-normand/chatrelay/synclink"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const editedMarker = "(Edited)"

// Normalizer is implemented by any value that converts a platform event into a RelayMessage. Events that
// shouldn't be relayed result in an error caused by ErrSkip and malformed events in a *ParseError
type Normalizer interface {
	Normalize(raw interface{}) (msg RelayMessage, err error)
}

// LinkFinder is implemented by any value that finds links by either endpoint. *synclink.Registry implements it
type LinkFinder interface {
	FindByInternal(internalID string) []synclink.SyncLink
	FindByExternal(externalID string) []synclink.SyncLink
}

// Router turns messages seen on an endpoint into delivery tasks for every other endpoint linked to it
type Router struct {
	bridgeID    string
	links       LinkFinder
	normalizers map[Side]Normalizer
	log         SLogger

	*instrumenter
}

func newRouter(bridgeID string, links LinkFinder, log SLogger, ins *instrumenter) (r *Router) {
	r = new(Router)
	r.bridgeID = bridgeID
	r.links = links
	r.normalizers = make(map[Side]Normalizer)
	r.log = log
	r.instrumenter = ins

	return r
}

// Route normalizes the raw event seen on origin and returns the delivery tasks it fans out to. Skipped
// and malformed events return no tasks along with the error from the Normalizer
func (r *Router) Route(origin Endpoint, raw interface{}) (tasks []DeliveryTask, err error) {
	msg, err := r.Normalize(origin, raw)
	if err != nil {
		return nil, err
	}

	return r.Fanout(origin, msg), nil
}

// Normalize converts the raw event seen on origin with the Normalizer registered for its side
func (r *Router) Normalize(origin Endpoint, raw interface{}) (msg RelayMessage, err error) {
	r.seen(origin.Side)

	n, ok := r.normalizers[origin.Side]
	if !ok {
		return msg, fmt.Errorf("no normalizer registered for side [%s]", origin.Side)
	}

	msg, err = n.Normalize(raw)
	if IsSkip(err) {
		r.dropped(dropSkip)
		return msg, err
	} else if IsParseError(err) {
		r.dropped(dropParse)
		return msg, err
	} else if err != nil {
		return msg, errors.Wrapf(err, "failed to normalize event from [%s]", origin)
	}

	return msg, nil
}

// Fanout returns one delivery task per link rooted at origin that lets the message through
func (r *Router) Fanout(origin Endpoint, msg RelayMessage) (tasks []DeliveryTask) {
	if msg.WasRelayedBy(r.bridgeID) {
		r.log.Debugf("Dropping message from [%s] already relayed by [%s]", origin, r.bridgeID)
		r.dropped(dropAlreadyRelayed)
		return nil
	}

	links := r.linksOf(origin)
	if len(links) == 0 {
		r.dropped(dropUnbridged)
		return nil
	}

	tasks = make([]DeliveryTask, 0, len(links))
	for _, l := range links {
		if msg.IsJoinLeave && !l.RelayJoins {
			r.dropped(dropJoinLeave)
			continue
		}

		target := opposite(l, origin)
		if isEcho(msg.Provenance, origin, target) {
			r.log.Debugf("Dropping echo of [%s] seen on [%s] for link %s", msg.Provenance.Origin, origin, l)
			r.dropped(dropLoop)
			continue
		}

		tasks = append(tasks, r.newTask(l, origin, target, msg))
	}

	if len(tasks) > 0 {
		r.created(opposite(links[0], origin).Side, len(tasks))
	}

	return tasks
}

func (r *Router) linksOf(e Endpoint) []synclink.SyncLink {
	if e.Side == Internal {
		return r.links.FindByInternal(e.ID)
	}

	return r.links.FindByExternal(e.ID)
}

// isEcho returns true if the message was relayed from the target onto origin or if it's coming
// back to the endpoint it was first posted to
func isEcho(p *Provenance, origin Endpoint, target Endpoint) bool {
	return p != nil && (p.Origin == target || p.Origin == origin)
}

func (r *Router) newTask(l synclink.SyncLink, origin Endpoint, target Endpoint, msg RelayMessage) (t DeliveryTask) {
	t.ID = uuid.NewString()
	t.Link = l
	t.Origin = origin
	t.Target = target
	t.DisplayName = displayName(l, msg)
	t.IconURL = msg.SenderAvatarURL
	t.IsJoinLeave = msg.IsJoinLeave
	t.Provenance = Provenance{Origin: origin, SenderID: msg.SenderPlatformID}
	t.AlreadyRelayed = withBridge(msg.AlreadyRelayed, r.bridgeID)

	t.Text = msg.Text
	if msg.IsEdited {
		t.Text = prefixText(editedMarker, t.Text)
	}

	switch {
	case msg.AttachmentURL != "" && l.RelayImages:
		t.Image = &ImageRelay{URL: msg.AttachmentURL}
	case msg.AttachmentURL != "":
		t.Text = joinText(t.Text, msg.AttachmentURL)
	case msg.ImageID != "" && l.RelayImages:
		t.Image = &ImageRelay{PendingID: msg.ImageID}
	}

	return t
}

// displayName picks the sender name according to the link options and appends the link's display tag
func displayName(l synclink.SyncLink, msg RelayMessage) (name string) {
	name = msg.SenderDisplayName
	if l.UseRealNames && msg.SenderRealName != "" {
		name = msg.SenderRealName
	}

	if tag := l.DisplayTag.Resolve(msg.SourceTitle); tag != "" {
		name = fmt.Sprintf("%s (%s)", name, tag)
	}

	return strings.TrimSpace(name)
}

func prefixText(prefix string, text string) string {
	if text == "" {
		return prefix
	}

	return prefix + " " + text
}

func joinText(text string, suffix string) string {
	if text == "" {
		return suffix
	}

	return text + " " + suffix
}

func withBridge(relayed map[string]bool, bridgeID string) (m map[string]bool) {
	m = make(map[string]bool, len(relayed)+1)
	for id, v := range relayed {
		m[id] = v
	}

	m[bridgeID] = true
	return m
}
