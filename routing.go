package chatrelay

import (
	"context"
	"fmt"
	"hash/crc32"
	"math"
	"sync"
)

// Deliverer is implemented by any value that delivers a task to its target platform. Deliverers
// aren't expected to retry and report failures with a *DeliveryError
type Deliverer interface {
	Deliver(ctx context.Context, task DeliveryTask) (err error)
}

// deliverFunc executes one delivery task
type deliverFunc func(ctx context.Context, task DeliveryTask)

// partitionDispatcher runs delivery tasks on a fixed set of workers. Tasks are assigned to a partition
// by hashing their link so that all deliveries for a link are executed in the order they were
// dispatched, while deliveries for different links run concurrently
type partitionDispatcher struct {
	log SLogger

	// taskQueues hold the pending tasks of each partition
	taskQueues []chan DeliveryTask

	hashMask int
	deliver  deliverFunc

	mu      sync.RWMutex
	stopped bool
	workers sync.WaitGroup

	*instrumenter
}

func newPartitionDispatcher(partitionCount int, queueBufferSize int, deliver deliverFunc, log SLogger, instrumenter *instrumenter) (pd *partitionDispatcher, err error) {
	if !isPowerOfTwo(partitionCount) {
		return nil, fmt.Errorf("A partition dispatcher can only work with a partitionCount that is a power of two but was [%d]", partitionCount)
	}

	pd = new(partitionDispatcher)
	pd.taskQueues = make([]chan DeliveryTask, partitionCount)
	for i := range pd.taskQueues {
		pd.taskQueues[i] = make(chan DeliveryTask, queueBufferSize)
	}
	pd.hashMask = hashMask(partitionCount)
	pd.deliver = deliver
	pd.log = log
	pd.instrumenter = instrumenter

	return pd, nil
}

// start starts one worker per partition. Workers run until stop is called
func (pd *partitionDispatcher) start(ctx context.Context) {
	for i, q := range pd.taskQueues {
		pd.workers.Add(1)

		go func(partition int, queue chan DeliveryTask) {
			defer pd.workers.Done()

			for task := range queue {
				pd.log.Debugf("Worker [%d] delivering %s", partition, task)
				pd.deliver(ctx, task)
			}

			pd.log.Debugf("Worker [%d] terminated", partition)
		}(i, q)
	}
}

// dispatch queues the task on its partition. It only blocks if the partition queue is full
func (pd *partitionDispatcher) dispatch(task DeliveryTask) (err error) {
	pd.mu.RLock()
	defer pd.mu.RUnlock()

	if pd.stopped {
		return fmt.Errorf("dispatcher stopped, dropping %s", task)
	}

	partition := pd.partitionForKey(linkKey(task))

	pd.log.Debugf("Dispatching %s to partition [%d]", task, partition)
	d := measure(func() {
		pd.taskQueues[partition] <- task
	})

	pd.dispatched(d)

	return nil
}

// stop closes all queues and waits for the workers to finish the tasks already queued
func (pd *partitionDispatcher) stop() {
	pd.mu.Lock()
	if pd.stopped {
		pd.mu.Unlock()
		return
	}

	pd.stopped = true
	for _, q := range pd.taskQueues {
		close(q)
	}
	pd.mu.Unlock()

	pd.workers.Wait()
}

// linkKey returns the ordering key of a task. Tasks without a link (answers) are ordered by target
func linkKey(task DeliveryTask) string {
	if task.Link.InternalID == "" && task.Link.ExternalID == "" {
		return task.Target.String()
	}

	return task.Link.InternalID + "\x00" + task.Link.ExternalID
}

// partitionForKey returns the partition index for a given key
func (pd *partitionDispatcher) partitionForKey(key string) (partition int) {
	// Keep only the rightmost bits so we have a max equal to the partition count
	return int(crc32.ChecksumIEEE([]byte(key))) & pd.hashMask
}

// isPowerOfTwo returns true if val is a power of two or false if not
func isPowerOfTwo(val int) bool {
	return (val != 0) && (val&(val-1)) == 0
}

// hashMask builds a mask for a partitionCount (which should be a power of two) to get a hash value
// that is in the range of the number of partitions we have
func hashMask(partitionCount int) int {
	maskSize := int(math.Log2(float64(partitionCount)))
	mask := 0
	for i := 0; i < maskSize; i++ {
		mask = mask<<1 | 1
	}

	return mask
}
