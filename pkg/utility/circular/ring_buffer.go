package circular

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// MaxCapacity bounds every ring buffer so worst-case latency through a link stays bounded.
const MaxCapacity = 1 << 16

var (
	ErrFull     = errors.New("ring buffer is full")
	ErrEmpty    = errors.New("ring buffer is empty")
	ErrCapacity = errors.New("invalid ring buffer capacity")
)

// RingBuffer is a fixed-capacity FIFO linking exactly one producer and one consumer.
//
// The producer owns the back index and calls Put. The consumer owns the front index
// and calls Get, PeekOne, PeekAll, Drain and Flush. Each side publishes its index with
// a single atomic store after touching the slot, so the two sides never race on a slot.
// Reset is the only method that writes both indices and must only be called while
// neither side is running.
type RingBuffer[T any] struct {
	capacity uint64
	data     []T

	// Monotonic counters; the indices are these modulo capacity. Their difference
	// is the item count, which keeps "full" and "empty" distinguishable.
	head atomic.Uint64
	tail atomic.Uint64
}

func NewRingBuffer[T any](capacity int) (*RingBuffer[T], error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrCapacity, capacity, MaxCapacity)
	}
	return &RingBuffer[T]{
		capacity: uint64(capacity),
		data:     make([]T, capacity),
	}, nil
}

func (r *RingBuffer[T]) Capacity() int {
	return int(r.capacity)
}

func (r *RingBuffer[T]) Size() int {
	return int(r.tail.Load() - r.head.Load())
}

func (r *RingBuffer[T]) IsEmpty() bool {
	return r.tail.Load() == r.head.Load()
}

func (r *RingBuffer[T]) IsFull() bool {
	return r.tail.Load()-r.head.Load() == r.capacity
}

// Front is the slot the next Get reads.
func (r *RingBuffer[T]) Front() int {
	return int(r.head.Load() % r.capacity)
}

// Back is the slot the next Put writes.
func (r *RingBuffer[T]) Back() int {
	return int(r.tail.Load() % r.capacity)
}

// Put appends item at the back. A full buffer is never overwritten.
func (r *RingBuffer[T]) Put(item T) error {
	tail := r.tail.Load()
	if tail-r.head.Load() == r.capacity {
		return ErrFull
	}
	r.data[tail%r.capacity] = item
	r.tail.Store(tail + 1)
	return nil
}

func (r *RingBuffer[T]) Get() (T, error) {
	var zero T
	head := r.head.Load()
	if r.tail.Load() == head {
		return zero, ErrEmpty
	}
	item := r.data[head%r.capacity]
	r.head.Store(head + 1)
	return item, nil
}

func (r *RingBuffer[T]) PeekOne() (T, error) {
	var zero T
	head := r.head.Load()
	if r.tail.Load() == head {
		return zero, ErrEmpty
	}
	return r.data[head%r.capacity], nil
}

// PeekAll copies the buffered items front to back without consuming them. The count is
// read once, so items the producer appends during the copy are simply not included.
func (r *RingBuffer[T]) PeekAll() []T {
	head := r.head.Load()
	tail := r.tail.Load()
	if tail == head {
		return nil
	}

	result := make([]T, tail-head)
	for i := range result {
		result[i] = r.data[(head+uint64(i))%r.capacity]
	}
	return result
}

// Drain removes and returns every item currently buffered, front to back.
func (r *RingBuffer[T]) Drain() []T {
	head := r.head.Load()
	tail := r.tail.Load()
	if tail == head {
		return nil
	}

	result := make([]T, tail-head)
	for i := range result {
		result[i] = r.data[(head+uint64(i))%r.capacity]
	}
	r.head.Store(tail)
	return result
}

// Flush discards every item currently buffered and reports how many were discarded.
func (r *RingBuffer[T]) Flush() int {
	head := r.head.Load()
	tail := r.tail.Load()
	r.head.Store(tail)
	return int(tail - head)
}

func (r *RingBuffer[T]) Reset() {
	r.head.Store(0)
	r.tail.Store(0)
}
