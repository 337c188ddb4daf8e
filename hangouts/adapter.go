package hangouts

import (
	"context"
	"fmt"

	"github.com/alexandre-normand/chatrelay"
	"github.com/alexandre-normand/chatrelay/synclink"
)

// Adapter delivers relay tasks to host conversations
type Adapter struct {
	host          Host
	fetcher       chatrelay.ImageFetcher
	answerFetcher chatrelay.ImageFetcher
	log           chatrelay.SLogger
}

// AdapterOption defines an option for an Adapter
type AdapterOption func(a *Adapter)

// OptionAnswerFetcher sets the fetcher downloading the images of plugin answers. Answer images can be
// anywhere so this fetcher shouldn't hold platform credentials. Defaults to the relayed images fetcher
func OptionAnswerFetcher(f chatrelay.ImageFetcher) func(a *Adapter) {
	return func(a *Adapter) {
		a.answerFetcher = f
	}
}

// NewAdapter returns a new Adapter sending with host and downloading relayed images with fetcher
func NewAdapter(host Host, fetcher chatrelay.ImageFetcher, log chatrelay.SLogger, options ...AdapterOption) (a *Adapter) {
	a = &Adapter{host: host, fetcher: fetcher, answerFetcher: fetcher, log: log}
	for _, opt := range options {
		opt(a)
	}

	return a
}

// Deliver implements chatrelay.Deliverer. The image is uploaded first so that it's sent along with the text
func (a *Adapter) Deliver(ctx context.Context, task chatrelay.DeliveryTask) error {
	var imageID string
	if task.Image != nil && task.Image.URL != "" {
		img, err := a.fetcherFor(task).Fetch(ctx, task.Image.URL)
		if err != nil {
			return chatrelay.NewDeliveryError(task, "image fetch", err)
		}

		if imageID, err = a.host.UploadImage(ctx, img.Data, img.Filename); err != nil {
			return chatrelay.NewDeliveryError(task, "image upload", err)
		}
	} else if task.Image != nil {
		a.log.Debugf("Ignoring pending image [%s] of %s, only host images are deferred", task.Image.PendingID, task)
	}

	if err := a.host.SendMessage(ctx, task.Target.ID, formatText(task), imageID, NewPassthru(task)); err != nil {
		return chatrelay.NewDeliveryError(task, "send", err)
	}

	return nil
}

// formatText prefixes the text with the sender name and the link's external tag. Join/leave
// notices and messages without a sender are sent as is
func formatText(task chatrelay.DeliveryTask) string {
	if task.IsJoinLeave || task.DisplayName == "" {
		return task.Text
	}

	name := task.DisplayName
	if tag := task.Link.ExternalTag; tag != "" && tag != synclink.ExternalTagNotInConfig {
		name = fmt.Sprintf("%s (%s)", name, tag)
	}

	if task.Text == "" {
		return fmt.Sprintf("+%s+", name)
	}

	return fmt.Sprintf("+%s+: %s", name, task.Text)
}

// fetcherFor returns the answer fetcher for plugin answers, which are delivered back to their origin
func (a *Adapter) fetcherFor(task chatrelay.DeliveryTask) chatrelay.ImageFetcher {
	if task.Origin == task.Target {
		return a.answerFetcher
	}

	return a.fetcher
}
