// Package capture provides captors recording what a relay delivers so that tests can validate it
package capture

import (
	"context"
	"sync"
	"time"

	"github.com/alexandre-normand/chatrelay"
)

// DeliveryCaptor is a chatrelay.Deliverer recording every task it's handed
type DeliveryCaptor struct {
	mu    sync.Mutex
	tasks []chatrelay.DeliveryTask
	err   error

	delivered chan chatrelay.DeliveryTask
}

// NewDeliveryCaptor returns a new DeliveryCaptor that fails every delivery with err when err isn't nil
func NewDeliveryCaptor(err error) (dc *DeliveryCaptor) {
	dc = new(DeliveryCaptor)
	dc.err = err
	dc.delivered = make(chan chatrelay.DeliveryTask, 100)

	return dc
}

// Deliver records the task
func (dc *DeliveryCaptor) Deliver(ctx context.Context, task chatrelay.DeliveryTask) error {
	dc.mu.Lock()
	dc.tasks = append(dc.tasks, task)
	dc.mu.Unlock()

	dc.delivered <- task
	return dc.err
}

// Tasks returns the tasks delivered so far
func (dc *DeliveryCaptor) Tasks() (tasks []chatrelay.DeliveryTask) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	return append(tasks, dc.tasks...)
}

// Await waits for count deliveries and returns them. Fewer tasks are returned if the timeout expires first
func (dc *DeliveryCaptor) Await(count int, timeout time.Duration) (tasks []chatrelay.DeliveryTask) {
	deadline := time.After(timeout)
	for len(tasks) < count {
		select {
		case task := <-dc.delivered:
			tasks = append(tasks, task)
		case <-deadline:
			return tasks
		}
	}

	return tasks
}
