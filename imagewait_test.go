package chatrelay

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitResolvedLater(t *testing.T) {
	w := NewImageWaiter(time.Minute)

	go func() {
		for w.Pending() == 0 {
			time.Sleep(time.Millisecond)
		}
		w.Resolve("img1", "https://lh3.googleusercontent.com/img1")
	}()

	url, err := w.Await(context.Background(), "img1", 2*time.Second)

	require.NoError(t, err)
	assert.Equal(t, "https://lh3.googleusercontent.com/img1", url)
	assert.Equal(t, 0, w.Pending())
}

func TestAwaitAlreadyResolved(t *testing.T) {
	w := NewImageWaiter(time.Minute)
	w.Resolve("img1", "https://example.com/1.png")

	url, err := w.Await(context.Background(), "img1", time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/1.png", url)
}

func TestAwaitTimesOut(t *testing.T) {
	w := NewImageWaiter(time.Minute)

	_, err := w.Await(context.Background(), "img1", 10*time.Millisecond)

	if assert.Error(t, err) {
		assert.Equal(t, ErrImageWaitTimeout, errors.Cause(err))
		assert.Contains(t, err.Error(), "image [img1]")
	}
	assert.Equal(t, 0, w.Pending())
}

func TestAwaitCancelled(t *testing.T) {
	w := NewImageWaiter(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Await(ctx, "img1", time.Minute)

	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, 0, w.Pending())
}

func TestResolveWakesAllWaiters(t *testing.T) {
	w := NewImageWaiter(time.Minute)
	results := make(chan string, 2)

	for i := 0; i < 2; i++ {
		go func() {
			url, _ := w.Await(context.Background(), "img1", 2*time.Second)
			results <- url
		}()
	}

	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return len(w.waiters["img1"]) == 2
	}, time.Second, time.Millisecond)

	w.Resolve("img1", "https://example.com/1.png")

	assert.Equal(t, "https://example.com/1.png", <-results)
	assert.Equal(t, "https://example.com/1.png", <-results)
}

func TestResolvedUrlsExpire(t *testing.T) {
	w := NewImageWaiter(time.Millisecond)
	w.Resolve("img1", "https://example.com/1.png")

	time.Sleep(5 * time.Millisecond)
	w.Resolve("img2", "https://example.com/2.png")

	_, err := w.Await(context.Background(), "img1", time.Millisecond)
	assert.Error(t, err)
}

func TestSweepDropsExpiredUrls(t *testing.T) {
	w := NewImageWaiter(time.Millisecond)
	w.Resolve("img1", "https://example.com/1.png")

	time.Sleep(5 * time.Millisecond)
	w.Sweep()

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Empty(t, w.resolved)
}

func TestSweepKeepsFreshUrls(t *testing.T) {
	w := NewImageWaiter(time.Hour)
	w.Resolve("img1", "https://example.com/1.png")
	w.Sweep()

	url, err := w.Await(context.Background(), "img1", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/1.png", url)
}
