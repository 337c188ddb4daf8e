package slackbridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alexandre-normand/chatrelay"
	"github.com/pkg/errors"
	"github.com/slack-go/slack"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

const (
	defaultImageWaitTimeout = 30 * time.Second
	defaultUploadTimeout    = 60 * time.Second
)

// Adapter delivers relay tasks to slack channels
type Adapter struct {
	api     API
	limiter *rate.Limiter
	images  *chatrelay.ImageWaiter
	fetcher chatrelay.ImageFetcher
	answers chatrelay.ImageFetcher
	upload  *fasthttp.Client
	log     chatrelay.SLogger

	imageWaitTimeout time.Duration
	uploadTimeout    time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
}

// AdapterOption defines an option for an Adapter
type AdapterOption func(a *Adapter)

// OptionRateLimit limits outbound api calls to limit per second with the given burst
func OptionRateLimit(limit float64, burst int) func(a *Adapter) {
	return func(a *Adapter) {
		a.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

// OptionImageWaitTimeout sets how long a deferred image waits for its url
func OptionImageWaitTimeout(d time.Duration) func(a *Adapter) {
	return func(a *Adapter) {
		a.imageWaitTimeout = d
	}
}

// OptionAnswerFetcher sets the fetcher downloading the images of plugin answers. Answer images can be
// anywhere so this fetcher shouldn't hold platform credentials. Defaults to the relayed images fetcher
func OptionAnswerFetcher(f chatrelay.ImageFetcher) func(a *Adapter) {
	return func(a *Adapter) {
		a.answers = f
	}
}

// OptionUploadClient sets the http client used to upload file contents
func OptionUploadClient(c *fasthttp.Client) func(a *Adapter) {
	return func(a *Adapter) {
		a.upload = c
	}
}

// NewAdapter returns a new Adapter posting with the api. Deferred images are waited on with images and
// images are downloaded with fetcher
func NewAdapter(api API, images *chatrelay.ImageWaiter, fetcher chatrelay.ImageFetcher, log chatrelay.SLogger, options ...AdapterOption) (a *Adapter) {
	a = new(Adapter)
	a.api = api
	a.images = images
	a.fetcher = fetcher
	a.answers = fetcher
	a.log = log
	a.limiter = rate.NewLimiter(rate.Inf, 1)
	a.upload = &fasthttp.Client{Name: "chatrelay"}
	a.imageWaitTimeout = defaultImageWaitTimeout
	a.uploadTimeout = defaultUploadTimeout
	a.ctx, a.cancel = context.WithCancel(context.Background())

	for _, opt := range options {
		opt(a)
	}

	return a
}

// Deliver implements chatrelay.Deliverer. The image of a task is fetched before anything is posted so a
// failed download doesn't leave a partial delivery behind
func (a *Adapter) Deliver(ctx context.Context, task chatrelay.DeliveryTask) (err error) {
	var img *chatrelay.Image
	if task.Image != nil && task.Image.URL != "" {
		fetched, err := a.fetcherFor(task).Fetch(ctx, task.Image.URL)
		if err != nil {
			return chatrelay.NewDeliveryError(task, "image fetch", err)
		}
		img = &fetched
	}

	text := htmlToMarkdown(task.Text)
	if text != "" || task.Image == nil {
		if err = a.post(ctx, task, text); err != nil {
			return chatrelay.NewDeliveryError(task, "post", err)
		}
	}

	if img != nil {
		if err = a.uploadImage(ctx, task, *img); err != nil {
			return chatrelay.NewDeliveryError(task, "image upload", err)
		}
	}

	if task.Image != nil && task.Image.PendingID != "" {
		a.pending.Add(1)
		go a.deliverDeferred(task)
	}

	return nil
}

// Close stops waiting on deferred images and waits for pending deliveries to return
func (a *Adapter) Close() error {
	a.cancel()
	a.pending.Wait()

	return nil
}

// fetcherFor returns the answer fetcher for plugin answers, which are delivered back to their origin
func (a *Adapter) fetcherFor(task chatrelay.DeliveryTask) chatrelay.ImageFetcher {
	if task.Origin == task.Target {
		return a.answers
	}

	return a.fetcher
}

func (a *Adapter) post(ctx context.Context, task chatrelay.DeliveryTask, text string) (err error) {
	options := []slack.MsgOption{
		slack.MsgOptionText(chatrelay.Embed(text, task.Provenance), false),
		slack.MsgOptionLinkNames(true),
	}

	if task.IsJoinLeave || task.DisplayName == "" {
		options = append(options, slack.MsgOptionAsUser(true))
	} else {
		options = append(options, slack.MsgOptionUsername(task.DisplayName))
		if task.IconURL != "" {
			options = append(options, slack.MsgOptionIconURL(task.IconURL))
		}
	}

	if err = a.limiter.Wait(ctx); err != nil {
		return err
	}

	_, _, err = a.api.PostMessageContext(ctx, task.Target.ID, options...)
	return err
}

func (a *Adapter) uploadImage(ctx context.Context, task chatrelay.DeliveryTask, img chatrelay.Image) (err error) {
	if err = a.limiter.Wait(ctx); err != nil {
		return err
	}

	reserved, err := a.api.GetUploadURLExternalContext(ctx, slack.GetUploadURLExternalParameters{FileName: img.Filename, FileSize: len(img.Data)})
	if err != nil {
		return errors.Wrap(err, "reserving upload url")
	}

	if err = a.putContents(reserved.UploadURL, img); err != nil {
		return err
	}

	title := img.Filename
	if task.DisplayName != "" {
		title = fmt.Sprintf("%s: %s", task.DisplayName, img.Filename)
	}

	if err = a.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err = a.api.CompleteUploadExternalContext(ctx, slack.CompleteUploadExternalParameters{
		Files:   []slack.FileSummary{{ID: reserved.FileID, Title: title}},
		Channel: task.Target.ID,
	})

	return errors.Wrap(err, "completing upload")
}

func (a *Adapter) putContents(url string, img chatrelay.Image) (err error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(img.ContentType)
	req.SetBody(img.Data)

	if err = a.upload.DoTimeout(req, resp, a.uploadTimeout); err != nil {
		return errors.Wrap(err, "uploading file contents")
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("uploading file contents: unexpected status [%d]", resp.StatusCode())
	}

	return nil
}

// deliverDeferred waits for the public url of a host image and posts it once known
func (a *Adapter) deliverDeferred(task chatrelay.DeliveryTask) {
	defer a.pending.Done()

	url, err := a.images.Await(a.ctx, task.Image.PendingID, a.imageWaitTimeout)
	if err != nil {
		a.log.Printf("Giving up on image [%s] of %s: %v", task.Image.PendingID, task, err)
		return
	}

	if err = a.post(a.ctx, task, url); err != nil {
		a.log.Printf("Error delivering image [%s] of %s: %v", url, task, err)
	}
}
