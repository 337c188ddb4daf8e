package chatrelay

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/alexandre-normand/chatrelay/config"
	"github.com/alexandre-normand/chatrelay/store"
	"github.com/alexandre-normand/chatrelay/synclink"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

type normalizerFunc func(raw interface{}) (RelayMessage, error)

func (f normalizerFunc) Normalize(raw interface{}) (RelayMessage, error) {
	return f(raw)
}

// passthroughNormalizer expects raw events to already be RelayMessages
var passthroughNormalizer = normalizerFunc(func(raw interface{}) (RelayMessage, error) {
	if m, ok := raw.(RelayMessage); ok {
		return m, nil
	}

	return RelayMessage{}, NewParseError(raw, "not a message: %v", raw)
})

type deliveryCaptor struct {
	mu    sync.Mutex
	tasks []DeliveryTask
	err   error
	done  chan DeliveryTask
}

func newDeliveryCaptor() *deliveryCaptor {
	return &deliveryCaptor{done: make(chan DeliveryTask, 100)}
}

func (dc *deliveryCaptor) Deliver(ctx context.Context, task DeliveryTask) error {
	dc.mu.Lock()
	dc.tasks = append(dc.tasks, task)
	err := dc.err
	dc.mu.Unlock()

	dc.done <- task
	return err
}

func (dc *deliveryCaptor) await(t *testing.T, count int) (tasks []DeliveryTask) {
	for i := 0; i < count; i++ {
		select {
		case task := <-dc.done:
			tasks = append(tasks, task)
		case <-time.After(2 * time.Second):
			require.FailNowf(t, "timed out", "got %d deliveries out of %d", i, count)
		}
	}

	return tasks
}

func (dc *deliveryCaptor) assertNoMore(t *testing.T) {
	select {
	case task := <-dc.done:
		require.FailNowf(t, "unexpected delivery", "%s with text [%s]", task, task.Text)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestLogger() SLogger {
	return NewSLogger(log.New(io.Discard, "", 0), true)
}

func newTestInstrumenter(t *testing.T) *instrumenter {
	ins, err := newInstrumenter("test", noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	return ins
}

func newTestRegistry(t *testing.T, links ...synclink.SyncLink) *synclink.Registry {
	reg, err := synclink.NewRegistry("slackrelay", store.NewMemStore())
	require.NoError(t, err)

	for _, l := range links {
		require.NoError(t, reg.Add(l))
	}

	return reg
}

func newTestRelay(t *testing.T, links ...synclink.SyncLink) *Relay {
	v := config.NewViperWithDefaults()
	v.Set(config.BridgeIDKey, "bridge1")

	r, err := New("robert", v, newTestRegistry(t, links...), OptionLog(log.New(io.Discard, "", 0)), OptionMeter(noop.NewMeterProvider().Meter("test")))
	require.NoError(t, err)

	return r
}
