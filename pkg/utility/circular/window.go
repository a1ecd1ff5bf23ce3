package circular

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Integer | constraints.Float
}

// Window keeps the most recent values, overwriting the oldest once full. It is not safe
// for concurrent use; each filter stage and detector owns its windows exclusively.
type Window[T any] struct {
	capacity int

	head int
	size int
	data []T
}

func NewWindow[T any](capacity int) *Window[T] {
	if capacity <= 0 {
		panic("capacity must be positive")
	}
	return &Window[T]{
		capacity: capacity,
		data:     make([]T, capacity),
	}
}

func (w *Window[T]) Capacity() int {
	return w.capacity
}

func (w *Window[T]) Size() int {
	return w.size
}

func (w *Window[T]) IsFull() bool {
	return w.size == w.capacity
}

func (w *Window[T]) Push(value T) {
	w.data[w.head] = value
	w.head = (w.head + 1) % w.capacity
	if w.size < w.capacity {
		w.size++
	}
}

// Get returns the value pushed idx pushes ago; Get(0) is the newest.
func (w *Window[T]) Get(idx int) T {
	if idx < 0 || idx >= w.size {
		panic(fmt.Sprintf("index %d out of range [0, %d)", idx, w.size))
	}
	return w.data[(w.head-1-idx+w.capacity)%w.capacity]
}

func (w *Window[T]) First() T {
	return w.Get(0)
}

func (w *Window[T]) Last() T {
	return w.Get(w.size - 1)
}

// Data returns the values oldest first.
func (w *Window[T]) Data() []T {
	result := make([]T, w.size)
	for i := 0; i < w.size; i++ {
		result[i] = w.Get(w.size - 1 - i)
	}
	return result
}

func (w *Window[T]) Reset() {
	clear(w.data)
	w.head = 0
	w.size = 0
}

func Sum[T Number](w *Window[T]) float64 {
	var sum float64
	for i := 0; i < w.size; i++ {
		sum += float64(w.Get(i))
	}
	return sum
}

func Mean[T Number](w *Window[T]) float64 {
	if w.size == 0 {
		return 0
	}
	return Sum(w) / float64(w.size)
}

func Max[T Number](w *Window[T]) T {
	if w.size == 0 {
		panic("window is empty")
	}
	maxVal := w.Get(0)
	for i := 1; i < w.size; i++ {
		if v := w.Get(i); v > maxVal {
			maxVal = v
		}
	}
	return maxVal
}

func Min[T Number](w *Window[T]) T {
	if w.size == 0 {
		panic("window is empty")
	}
	minVal := w.Get(0)
	for i := 1; i < w.size; i++ {
		if v := w.Get(i); v < minVal {
			minVal = v
		}
	}
	return minVal
}
