package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/peter-kozarec/ecgmon/pkg/common"
	"github.com/peter-kozarec/ecgmon/pkg/utility/circular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestQueue_NewQueue(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		policy   Policy
		timeout  time.Duration
		wantErr  error
	}{
		{"drop", 8, PolicyDrop, 0, nil},
		{"block with timeout", 8, PolicyBlock, time.Millisecond, nil},
		{"zero capacity", 0, PolicyDrop, 0, circular.ErrCapacity},
		{"too large", circular.MaxCapacity + 1, PolicyDrop, 0, circular.ErrCapacity},
		{"block forever", 8, PolicyBlock, 0, ErrPolicy},
		{"unknown policy", 8, Policy(9), time.Millisecond, ErrPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQueue[int](tt.name, tt.capacity, tt.policy, tt.timeout)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, q)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.capacity, q.Cap())
			assert.Equal(t, tt.policy, q.Policy())
			assert.Equal(t, tt.name, q.Name())
		})
	}
}

func TestQueue_DropPolicy(t *testing.T) {
	q, err := NewQueue[int]("daq", 2, PolicyDrop, 0)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, q.Post(ctx, 1))
	require.NoError(t, q.Post(ctx, 2))
	assert.ErrorIs(t, q.Post(ctx, 3), ErrQueueFull)
	assert.ErrorIs(t, q.TryPost(4), ErrQueueFull)
	assert.Equal(t, 2, q.Len())

	for _, want := range []int{1, 2} {
		v, err := q.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}

	stats := q.Statistics()
	assert.Equal(t, uint64(2), stats.PostCount)
	assert.Equal(t, uint64(2), stats.PostFails)
	assert.Equal(t, uint64(0), stats.PostTimeouts)
	assert.Equal(t, uint64(2), stats.ReceiveCount)
}

func TestQueue_Flush(t *testing.T) {
	q, err := NewQueue[int]("waveform", 4, PolicyDrop, 0)
	require.NoError(t, err)

	assert.Zero(t, q.Flush())
	for i := 0; i < 3; i++ {
		require.NoError(t, q.TryPost(i))
	}
	assert.Equal(t, 3, q.Flush())
	assert.Zero(t, q.Len())

	_, ok := q.TryReceive()
	assert.False(t, ok)
	require.NoError(t, q.TryPost(9))
	v, ok := q.TryReceive()
	require.True(t, ok)
	assert.Equal(t, 9, v)
}

func TestQueue_BlockPolicyTimesOut(t *testing.T) {
	q, err := NewQueue[int]("qrs", 1, PolicyBlock, 5*time.Millisecond)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, q.Post(ctx, 1))

	start := time.Now()
	assert.ErrorIs(t, q.Post(ctx, 2), ErrQueueTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)

	stats := q.Statistics()
	assert.Equal(t, uint64(1), stats.PostFails)
	assert.Equal(t, uint64(1), stats.PostTimeouts)
}

func TestQueue_BlockPolicyWaitsForConsumer(t *testing.T) {
	q, err := NewQueue[int]("wave", 1, PolicyBlock, time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, q.Post(ctx, 1))
	go func() {
		time.Sleep(5 * time.Millisecond)
		_, _ = q.Receive(ctx)
	}()

	assert.NoError(t, q.Post(ctx, 2))
	v, ok := q.TryReceive()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestQueue_BlockPolicyHonoursContext(t *testing.T) {
	q, err := NewQueue[int]("hr", 1, PolicyBlock, time.Hour)
	require.NoError(t, err)
	require.NoError(t, q.TryPost(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Post(ctx, 2), context.Canceled)
}

func TestQueue_ReceiveHonoursContext(t *testing.T) {
	q, _ := NewQueue[int]("empty", 1, PolicyDrop, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := q.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, ok := q.TryReceive()
	assert.False(t, ok)
}

func TestQueue_FifoAcrossGoroutines(t *testing.T) {
	const total = 10_000
	q, _ := NewQueue[int]("fifo", 16, PolicyBlock, time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			if err := q.Post(ctx, i); err != nil {
				t.Errorf("post %d: %v", i, err)
				return
			}
		}
	}()

	for i := 0; i < total; i++ {
		v, err := q.Receive(ctx)
		require.NoError(t, err)
		require.Equal(t, i, v)
	}
	wg.Wait()
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("Block")
	require.NoError(t, err)
	assert.Equal(t, PolicyBlock, p)
	assert.Equal(t, "block", p.String())

	p, err = ParsePolicy("drop")
	require.NoError(t, err)
	assert.Equal(t, PolicyDrop, p)

	_, err = ParsePolicy("overwrite")
	assert.ErrorIs(t, err, ErrPolicy)
}

func TestStatistics_Print(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	Statistics{Name: "daq", PostCount: 3, PostFails: 1}.Print(zap.New(core))

	entries := logs.FilterMessage("queue statistics").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "daq", fields["queue"])
	assert.Equal(t, uint64(1), fields["post_fails"])
}

func TestMergeHandlers(t *testing.T) {
	var order []string
	first := func(_ context.Context, s common.WaveformSample) { order = append(order, "first") }
	second := func(_ context.Context, s common.WaveformSample) { order = append(order, "second") }

	MergeHandlers(first, second)(context.Background(), common.WaveformSample{})
	assert.Equal(t, []string{"first", "second"}, order)
}
