package circular

import (
	"math/rand"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBuffer_NewRingBuffer(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		wantErr  bool
	}{
		{"positive capacity", 10, false},
		{"capacity of 1", 1, false},
		{"max capacity", MaxCapacity, false},
		{"zero capacity", 0, true},
		{"negative capacity", -5, true},
		{"above max capacity", MaxCapacity + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb, err := NewRingBuffer[int](tt.capacity)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrCapacity)
				assert.Nil(t, rb)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.capacity, rb.Capacity())
			assert.Equal(t, 0, rb.Size())
			assert.True(t, rb.IsEmpty())
			assert.False(t, rb.IsFull())
		})
	}
}

func TestRingBuffer_CapacityFourScenario(t *testing.T) {
	rb, err := NewRingBuffer[int](4)
	require.NoError(t, err)

	for i := 1; i <= 4; i++ {
		require.NoError(t, rb.Put(i))
	}
	assert.True(t, rb.IsFull())
	assert.ErrorIs(t, rb.Put(5), ErrFull)

	v, err := rb.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 3, rb.Size())

	require.NoError(t, rb.Put(5))
	assert.Equal(t, []int{2, 3, 4, 5}, rb.PeekAll())
}

func TestRingBuffer_FullPutLeavesStateUnchanged(t *testing.T) {
	rb, _ := NewRingBuffer[int](3)
	for i := 0; i < 3; i++ {
		require.NoError(t, rb.Put(i))
	}
	front, back, size := rb.Front(), rb.Back(), rb.Size()
	before := rb.PeekAll()

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, rb.Put(100+i), ErrFull)
	}

	assert.Equal(t, front, rb.Front())
	assert.Equal(t, back, rb.Back())
	assert.Equal(t, size, rb.Size())
	assert.Equal(t, before, rb.PeekAll())
}

func TestRingBuffer_EmptyGetLeavesStateUnchanged(t *testing.T) {
	rb, _ := NewRingBuffer[float64](3)
	require.NoError(t, rb.Put(1.5))
	_, err := rb.Get()
	require.NoError(t, err)

	front, back := rb.Front(), rb.Back()

	_, err = rb.Get()
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = rb.PeekOne()
	assert.ErrorIs(t, err, ErrEmpty)

	assert.Equal(t, front, rb.Front())
	assert.Equal(t, back, rb.Back())
	assert.True(t, rb.IsEmpty())
	assert.Nil(t, rb.PeekAll())
}

func TestRingBuffer_PeekOne(t *testing.T) {
	rb, _ := NewRingBuffer[uint16](2)
	require.NoError(t, rb.Put(7))
	require.NoError(t, rb.Put(8))

	v, err := rb.PeekOne()
	require.NoError(t, err)
	assert.Equal(t, uint16(7), v)
	assert.Equal(t, 2, rb.Size())
}

func TestRingBuffer_IndicesWrap(t *testing.T) {
	rb, _ := NewRingBuffer[int](3)
	for i := 0; i < 10; i++ {
		require.NoError(t, rb.Put(i))
		assert.GreaterOrEqual(t, rb.Back(), 0)
		assert.Less(t, rb.Back(), 3)
		v, err := rb.Get()
		require.NoError(t, err)
		assert.Equal(t, i, v)
		assert.Less(t, rb.Front(), 3)
	}
	assert.Equal(t, 10%3, rb.Front())
}

func TestRingBuffer_PeekAllMatchesGets(t *testing.T) {
	rb, _ := NewRingBuffer[int](8)
	for i := 0; i < 6; i++ {
		require.NoError(t, rb.Put(i))
	}
	for i := 0; i < 3; i++ {
		_, _ = rb.Get()
	}
	for i := 6; i < 10; i++ {
		require.NoError(t, rb.Put(i))
	}

	snapshot := rb.PeekAll()
	n := rb.Size()
	require.Len(t, snapshot, n)

	got := make([]int, 0, n)
	for i := 0; i < n; i++ {
		v, err := rb.Get()
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, snapshot, got)
	assert.Equal(t, []int{3, 4, 5, 6, 7, 8, 9}, got)
}

func TestRingBuffer_DrainAndFlush(t *testing.T) {
	rb, _ := NewRingBuffer[int](4)
	for i := 0; i < 4; i++ {
		require.NoError(t, rb.Put(i))
	}
	assert.Equal(t, []int{0, 1, 2, 3}, rb.Drain())
	assert.True(t, rb.IsEmpty())
	assert.Nil(t, rb.Drain())

	for i := 0; i < 3; i++ {
		require.NoError(t, rb.Put(i))
	}
	assert.Equal(t, 3, rb.Flush())
	assert.True(t, rb.IsEmpty())
	_, err := rb.Get()
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Equal(t, 0, rb.Flush())
}

func TestRingBuffer_Reset(t *testing.T) {
	rb, _ := NewRingBuffer[int](4)
	for i := 0; i < 3; i++ {
		require.NoError(t, rb.Put(i))
	}
	_, _ = rb.Get()

	rb.Reset()
	assert.True(t, rb.IsEmpty())
	assert.Equal(t, 0, rb.Front())
	assert.Equal(t, 0, rb.Back())
	assert.Equal(t, 4, rb.Capacity())

	require.NoError(t, rb.Put(42))
	v, _ := rb.Get()
	assert.Equal(t, 42, v)
}

func TestRingBuffer_RandomOperationsKeepFifoOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rb, _ := NewRingBuffer[int](16)

	var model []int
	accepted, completed := 0, 0
	next := 0

	for i := 0; i < 10_000; i++ {
		if rng.Intn(2) == 0 {
			err := rb.Put(next)
			if len(model) == rb.Capacity() {
				require.ErrorIs(t, err, ErrFull)
			} else {
				require.NoError(t, err)
				model = append(model, next)
				accepted++
			}
			next++
		} else {
			v, err := rb.Get()
			if len(model) == 0 {
				require.ErrorIs(t, err, ErrEmpty)
			} else {
				require.NoError(t, err)
				require.Equal(t, model[0], v)
				model = model[1:]
				completed++
			}
		}
		require.Equal(t, accepted-completed, rb.Size())
		require.Equal(t, len(model) == 0, rb.IsEmpty())
		require.Equal(t, len(model) == rb.Capacity(), rb.IsFull())
	}
}

func TestRingBuffer_ConcurrentProducerConsumer(t *testing.T) {
	const total = 50_000
	rb, _ := NewRingBuffer[int](32)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			if err := rb.Put(i); err != nil {
				runtime.Gosched()
				continue
			}
			i++
		}
	}()

	expected := 0
	for expected < total {
		if snapshot := rb.PeekAll(); len(snapshot) > 0 {
			for i := 1; i < len(snapshot); i++ {
				require.Equal(t, snapshot[i-1]+1, snapshot[i])
			}
			require.Equal(t, expected, snapshot[0])
		}
		v, err := rb.Get()
		if err != nil {
			runtime.Gosched()
			continue
		}
		require.Equal(t, expected, v)
		expected++
	}
	wg.Wait()
	assert.True(t, rb.IsEmpty())
}

func BenchmarkRingBuffer_PutGet(b *testing.B) {
	rb, _ := NewRingBuffer[float64](64)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = rb.Put(float64(i))
		_, _ = rb.Get()
	}
}
