package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/peter-kozarec/ecgmon/pkg/utility/circular"
)

var (
	ErrQueueFull    = errors.New("queue capacity reached")
	ErrQueueTimeout = errors.New("queue post timed out")
	ErrPolicy       = errors.New("invalid queue policy")
)

// Policy decides what Post does when the queue is full.
type Policy uint8

const (
	// PolicyDrop fails the post immediately with ErrQueueFull.
	PolicyDrop Policy = iota
	// PolicyBlock waits up to the queue timeout, then fails with ErrQueueTimeout.
	PolicyBlock
)

func (p Policy) String() string {
	switch p {
	case PolicyDrop:
		return "drop"
	case PolicyBlock:
		return "block"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "drop":
		return PolicyDrop, nil
	case "block":
		return PolicyBlock, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrPolicy, s)
}

// Queue is a bounded FIFO between one producing task and one consuming task.
type Queue[T any] struct {
	name    string
	items   chan T
	policy  Policy
	timeout time.Duration

	postCount    atomic.Uint64
	postFails    atomic.Uint64
	postTimeouts atomic.Uint64
	receiveCount atomic.Uint64
}

// NewQueue validates the link up front. A blocking queue needs a positive timeout so
// that a real-time producer can never block forever.
func NewQueue[T any](name string, capacity int, policy Policy, timeout time.Duration) (*Queue[T], error) {
	if capacity <= 0 || capacity > circular.MaxCapacity {
		return nil, fmt.Errorf("%w: queue %q capacity %d", circular.ErrCapacity, name, capacity)
	}
	switch policy {
	case PolicyDrop:
	case PolicyBlock:
		if timeout <= 0 {
			return nil, fmt.Errorf("%w: queue %q blocks without a timeout", ErrPolicy, name)
		}
	default:
		return nil, fmt.Errorf("%w: queue %q: %v", ErrPolicy, name, policy)
	}

	return &Queue[T]{
		name:    name,
		items:   make(chan T, capacity),
		policy:  policy,
		timeout: timeout,
	}, nil
}

// TryPost never blocks regardless of policy. Interrupt-context producers use it.
func (q *Queue[T]) TryPost(item T) error {
	select {
	case q.items <- item:
		q.postCount.Add(1)
		return nil
	default:
		q.postFails.Add(1)
		return ErrQueueFull
	}
}

func (q *Queue[T]) Post(ctx context.Context, item T) error {
	if q.policy == PolicyDrop {
		return q.TryPost(item)
	}

	select {
	case q.items <- item:
		q.postCount.Add(1)
		return nil
	default:
	}

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case q.items <- item:
		q.postCount.Add(1)
		return nil
	case <-timer.C:
		q.postFails.Add(1)
		q.postTimeouts.Add(1)
		return ErrQueueTimeout
	case <-ctx.Done():
		q.postFails.Add(1)
		return ctx.Err()
	}
}

// Receive blocks until an item is available or ctx is done.
func (q *Queue[T]) Receive(ctx context.Context) (T, error) {
	select {
	case item := <-q.items:
		q.receiveCount.Add(1)
		return item, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (q *Queue[T]) TryReceive() (T, bool) {
	select {
	case item := <-q.items:
		q.receiveCount.Add(1)
		return item, true
	default:
		var zero T
		return zero, false
	}
}

// Flush discards every queued item and reports how many there were. It must only be
// called while neither side of the queue is running.
func (q *Queue[T]) Flush() int {
	n := 0
	for {
		select {
		case <-q.items:
			n++
		default:
			return n
		}
	}
}

func (q *Queue[T]) Name() string {
	return q.name
}

func (q *Queue[T]) Len() int {
	return len(q.items)
}

func (q *Queue[T]) Cap() int {
	return cap(q.items)
}

func (q *Queue[T]) Policy() Policy {
	return q.policy
}

func (q *Queue[T]) Statistics() Statistics {
	return Statistics{
		Name:         q.name,
		PostCount:    q.postCount.Load(),
		PostFails:    q.postFails.Load(),
		PostTimeouts: q.postTimeouts.Load(),
		ReceiveCount: q.receiveCount.Load(),
	}
}
