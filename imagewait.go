package chatrelay

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrImageWaitTimeout is the cause of errors returned when an image url isn't resolved in time
var ErrImageWaitTimeout = errors.New("timed out waiting for image url")

type resolvedImage struct {
	url string
	at  time.Time
}

// ImageWaiter pairs deferred image deliveries with the public url of the image once it becomes known.
// Waits are bounded: a waiter gives up after its timeout
type ImageWaiter struct {
	retention time.Duration

	mu       sync.Mutex
	resolved map[string]resolvedImage
	waiters  map[string][]chan string
}

// NewImageWaiter returns a new ImageWaiter. Urls resolved before anyone waits on them are kept
// for the retention duration
func NewImageWaiter(retention time.Duration) (w *ImageWaiter) {
	w = new(ImageWaiter)
	w.retention = retention
	w.resolved = make(map[string]resolvedImage)
	w.waiters = make(map[string][]chan string)

	return w
}

// Await blocks until the url for the image id is resolved, the timeout expires or the context is done
func (w *ImageWaiter) Await(ctx context.Context, id string, timeout time.Duration) (url string, err error) {
	w.mu.Lock()
	if r, ok := w.resolved[id]; ok {
		w.mu.Unlock()
		return r.url, nil
	}

	ch := make(chan string, 1)
	w.waiters[id] = append(w.waiters[id], ch)
	w.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case url = <-ch:
		return url, nil
	case <-timer.C:
		err = errors.Wrapf(ErrImageWaitTimeout, "image [%s] after %s", id, timeout)
	case <-ctx.Done():
		err = ctx.Err()
	}

	w.forget(id, ch)
	return "", err
}

// Resolve sets the url of the image id and wakes up everyone waiting on it
func (w *ImageWaiter) Resolve(id string, url string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.prune(now)
	w.resolved[id] = resolvedImage{url: url, at: now}

	for _, ch := range w.waiters[id] {
		ch <- url
	}
	delete(w.waiters, id)
}

// Pending returns the number of image ids being waited on
func (w *ImageWaiter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.waiters)
}

func (w *ImageWaiter) forget(id string, ch chan string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	chans := w.waiters[id]
	for i, c := range chans {
		if c == ch {
			chans = append(chans[:i], chans[i+1:]...)
			break
		}
	}

	if len(chans) == 0 {
		delete(w.waiters, id)
	} else {
		w.waiters[id] = chans
	}
}

// Sweep drops resolved urls kept past the retention
func (w *ImageWaiter) Sweep() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(time.Now())
}

// prune drops resolved urls older than the retention. Must be called with the lock held
func (w *ImageWaiter) prune(now time.Time) {
	for id, r := range w.resolved {
		if now.Sub(r.at) > w.retention {
			delete(w.resolved, id)
		}
	}
}
