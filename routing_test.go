package chatrelay

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/alexandre-normand/chatrelay/synclink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPartitionDispatcher(t *testing.T) {
	tests := map[string]struct {
		partitionCount int
		expectedError  string
	}{
		"InvalidZeroPartitions": {
			partitionCount: 0,
			expectedError:  "A partition dispatcher can only work with a partitionCount that is a power of two but was [0]",
		},
		"ValidOnePartition": {
			partitionCount: 1,
		},
		"ValidTwoPartitions": {
			partitionCount: 2,
		},
		"Invalid3Partitions": {
			partitionCount: 3,
			expectedError:  "A partition dispatcher can only work with a partitionCount that is a power of two but was [3]",
		},
		"Valid16Partitions": {
			partitionCount: 16,
		},
		"Invalid17Partitions": {
			partitionCount: 17,
			expectedError:  "A partition dispatcher can only work with a partitionCount that is a power of two but was [17]",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := newPartitionDispatcher(tc.partitionCount, 1, func(ctx context.Context, task DeliveryTask) {}, newTestLogger(), newTestInstrumenter(t))

			if tc.expectedError != "" {
				assert.EqualError(t, err, tc.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHashMask(t *testing.T) {
	tests := map[int]int{1: 0, 2: 1, 4: 3, 8: 7, 16: 15, 1024: 1023}

	for partitionCount, expected := range tests {
		t.Run(strconv.Itoa(partitionCount), func(t *testing.T) {
			assert.Equal(t, expected, hashMask(partitionCount))
		})
	}
}

func TestPartitionForKeyStaysInRange(t *testing.T) {
	pd, err := newPartitionDispatcher(8, 1, func(ctx context.Context, task DeliveryTask) {}, newTestLogger(), newTestInstrumenter(t))
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		key := linkKey(DeliveryTask{Link: synclink.New(fmt.Sprintf("room%d", i), "chanA")})
		p := pd.partitionForKey(key)

		assert.True(t, p >= 0 && p < 8, "partition %d out of range", p)
		assert.Equal(t, p, pd.partitionForKey(key))
	}
}

func TestLinkKeyOfAnswers(t *testing.T) {
	assert.Equal(t, "external:chanA", linkKey(DeliveryTask{Target: ExternalEndpoint("chanA")}))
	assert.Equal(t, "room1\x00chanA", linkKey(DeliveryTask{Link: synclink.New("room1", "chanA"), Target: ExternalEndpoint("chanA")}))
}

func TestDeliveriesAreOrderedPerLink(t *testing.T) {
	var mu sync.Mutex
	delivered := make(map[string][]int)

	pd, err := newPartitionDispatcher(4, 2, func(ctx context.Context, task DeliveryTask) {
		seq, _ := strconv.Atoi(task.Text)

		mu.Lock()
		defer mu.Unlock()
		delivered[task.Link.InternalID] = append(delivered[task.Link.InternalID], seq)
	}, newTestLogger(), newTestInstrumenter(t))
	require.NoError(t, err)

	pd.start(context.Background())

	links := []synclink.SyncLink{synclink.New("room1", "chanA"), synclink.New("room2", "chanA"), synclink.New("room3", "chanB")}
	for i := 0; i < 300; i++ {
		l := links[i%len(links)]
		require.NoError(t, pd.dispatch(DeliveryTask{ID: strconv.Itoa(i), Link: l, Target: ExternalEndpoint(l.ExternalID), Text: strconv.Itoa(i)}))
	}

	pd.stop()

	for _, l := range links {
		seqs := delivered[l.InternalID]
		require.Len(t, seqs, 100)
		for i := 1; i < len(seqs); i++ {
			assert.Less(t, seqs[i-1], seqs[i], "deliveries for %s out of order", l)
		}
	}
}

func TestDispatchAfterStop(t *testing.T) {
	pd, err := newPartitionDispatcher(1, 1, func(ctx context.Context, task DeliveryTask) {}, newTestLogger(), newTestInstrumenter(t))
	require.NoError(t, err)

	pd.start(context.Background())
	pd.stop()
	pd.stop()

	err = pd.dispatch(DeliveryTask{ID: "1"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "dispatcher stopped")
	}
}
