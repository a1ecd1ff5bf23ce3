package isr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// MaxVectors is the width of the pending bitmask.
const MaxVectors = 32

var (
	ErrVector     = errors.New("invalid vector")
	ErrRegistered = errors.New("vector already registered")
	ErrRunning    = errors.New("controller is running")
)

type Vector uint8

type Handler func(ctx context.Context)

type entry struct {
	vector   Vector
	priority int
	name     string
	handler  Handler
}

// Controller emulates a nested vectored interrupt controller with software-triggered
// vectors. Trigger only sets a pending bit, so it is safe from any goroutine and never
// blocks. Exec runs the highest-priority pending handler to completion, one at a time;
// triggering an already pending vector coalesces into a single run.
type Controller struct {
	logger *zap.Logger

	mu      sync.Mutex
	entries []entry // sorted by priority, lower value first
	running atomic.Bool

	pending atomic.Uint32
	wake    chan struct{}
	done    chan error

	triggerCount   atomic.Uint64
	coalescedCount atomic.Uint64
	dispatchCount  []atomic.Uint64
	runTime        atomic.Int64
}

func NewController(logger *zap.Logger) *Controller {
	return &Controller{
		logger:        logger,
		wake:          make(chan struct{}, 1),
		done:          make(chan error, 1),
		dispatchCount: make([]atomic.Uint64, MaxVectors),
	}
}

// Register installs handler on vector. Lower priority values preempt higher ones in the
// sense that they are always dispatched first. Registration is closed once Exec runs.
func (c *Controller) Register(vector Vector, priority int, name string, handler Handler) error {
	if vector >= MaxVectors {
		return fmt.Errorf("%w: %d", ErrVector, vector)
	}
	if handler == nil {
		return fmt.Errorf("%w: %d has no handler", ErrVector, vector)
	}
	if c.running.Load() {
		return ErrRunning
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if e.vector == vector {
			return fmt.Errorf("%w: %d", ErrRegistered, vector)
		}
	}
	c.entries = append(c.entries, entry{vector: vector, priority: priority, name: name, handler: handler})
	sort.SliceStable(c.entries, func(i, j int) bool {
		return c.entries[i].priority < c.entries[j].priority
	})
	return nil
}

// Trigger pends vector and wakes Exec.
func (c *Controller) Trigger(vector Vector) {
	bit := uint32(1) << vector
	c.triggerCount.Add(1)

	for {
		old := c.pending.Load()
		if old&bit != 0 {
			c.coalescedCount.Add(1)
			return
		}
		if c.pending.CompareAndSwap(old, old|bit) {
			break
		}
	}

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) IsPending(vector Vector) bool {
	return c.pending.Load()&(uint32(1)<<vector) != 0
}

// Exec dispatches pending vectors until ctx is done, then reports ctx.Err() on Done.
// Exec may be called again once Done has reported.
func (c *Controller) Exec(ctx context.Context) {
	c.running.Store(true)
	defer func() {
		c.running.Store(false)
		c.done <- ctx.Err()
	}()

	c.mu.Lock()
	entries := append([]entry(nil), c.entries...)
	c.mu.Unlock()

	start := time.Now()
	defer func() {
		c.runTime.Add(int64(time.Since(start)))
	}()

	for {
		for c.dispatchNext(ctx, entries) {
			if ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-c.wake:
		}
	}
}

func (c *Controller) dispatchNext(ctx context.Context, entries []entry) bool {
	pending := c.pending.Load()
	if pending == 0 {
		return false
	}

	for _, e := range entries {
		bit := uint32(1) << e.vector
		if pending&bit == 0 {
			continue
		}
		// Clear before running so a trigger raised by the handler itself is kept.
		c.pending.And(^bit)
		c.dispatchCount[e.vector].Add(1)
		e.handler(ctx)
		return true
	}

	c.logger.Warn("pending vectors without handler", zap.Uint32("pending", pending))
	c.pending.Store(0)
	return false
}

// Clear drops every pending vector. It fails with ErrRunning while Exec runs.
func (c *Controller) Clear() error {
	if c.running.Load() {
		return ErrRunning
	}
	c.pending.Store(0)
	select {
	case <-c.wake:
	default:
	}
	return nil
}

func (c *Controller) Done() <-chan error {
	return c.done
}

type Statistics struct {
	RunTime    time.Duration
	Triggers   uint64
	Coalesced  uint64
	Dispatches map[string]uint64
}

func (c *Controller) Statistics() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Statistics{
		RunTime:    time.Duration(c.runTime.Load()),
		Triggers:   c.triggerCount.Load(),
		Coalesced:  c.coalescedCount.Load(),
		Dispatches: make(map[string]uint64, len(c.entries)),
	}
	for _, e := range c.entries {
		s.Dispatches[e.name] = c.dispatchCount[e.vector].Load()
	}
	return s
}

func (c *Controller) PrintStatistics() {
	s := c.Statistics()
	fields := []zap.Field{
		zap.Duration("run_time", s.RunTime),
		zap.Uint64("triggers", s.Triggers),
		zap.Uint64("coalesced", s.Coalesced),
	}
	for name, n := range s.Dispatches {
		fields = append(fields, zap.Uint64(name+"_dispatches", n))
	}
	c.logger.Info("interrupt controller statistics", fields...)
}
