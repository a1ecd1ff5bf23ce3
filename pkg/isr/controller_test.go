package isr

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) handler(name string, also func()) Handler {
	return func(context.Context) {
		r.mu.Lock()
		r.calls = append(r.calls, name)
		r.mu.Unlock()
		if also != nil {
			also()
		}
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func start(t *testing.T, c *Controller) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	go c.Exec(ctx)
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-c.Done():
			assert.True(t, errors.Is(err, context.Canceled))
		case <-time.After(time.Second):
			t.Error("controller did not stop")
		}
	})
	return cancel
}

func TestController_Register(t *testing.T) {
	c := NewController(zaptest.NewLogger(t))
	noop := func(context.Context) {}

	require.NoError(t, c.Register(0, 1, "processing", noop))
	assert.ErrorIs(t, c.Register(0, 2, "again", noop), ErrRegistered)
	assert.ErrorIs(t, c.Register(MaxVectors, 1, "out of range", noop), ErrVector)
	assert.ErrorIs(t, c.Register(1, 1, "nil", nil), ErrVector)
}

func TestController_DispatchesByPriority(t *testing.T) {
	c := NewController(zaptest.NewLogger(t))
	r := &recorder{}

	require.NoError(t, c.Register(5, 3, "display", r.handler("display", nil)))
	require.NoError(t, c.Register(1, 1, "processing", r.handler("processing", nil)))
	require.NoError(t, c.Register(2, 2, "detection", r.handler("detection", nil)))

	c.Trigger(5)
	c.Trigger(2)
	c.Trigger(1)
	assert.True(t, c.IsPending(1))

	start(t, c)
	require.Eventually(t, func() bool { return len(r.snapshot()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"processing", "detection", "display"}, r.snapshot())
	assert.False(t, c.IsPending(1))
}

func TestController_CoalescesPendingTriggers(t *testing.T) {
	c := NewController(zaptest.NewLogger(t))
	r := &recorder{}
	require.NoError(t, c.Register(0, 0, "processing", r.handler("processing", nil)))

	c.Trigger(0)
	c.Trigger(0)
	c.Trigger(0)

	start(t, c)
	require.Eventually(t, func() bool { return len(r.snapshot()) == 1 }, time.Second, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	assert.Len(t, r.snapshot(), 1)

	s := c.Statistics()
	assert.Equal(t, uint64(3), s.Triggers)
	assert.Equal(t, uint64(2), s.Coalesced)
	assert.Equal(t, uint64(1), s.Dispatches["processing"])
}

func TestController_HandlerTriggersHigherPriority(t *testing.T) {
	c := NewController(zaptest.NewLogger(t))
	r := &recorder{}

	require.NoError(t, c.Register(0, 1, "a", r.handler("a", nil)))
	require.NoError(t, c.Register(1, 2, "b", r.handler("b", func() { c.Trigger(0) })))
	require.NoError(t, c.Register(2, 3, "c", r.handler("c", nil)))

	c.Trigger(1)
	c.Trigger(2)

	start(t, c)
	require.Eventually(t, func() bool { return len(r.snapshot()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"b", "a", "c"}, r.snapshot())
}

func TestController_SelfTriggerRunsAgain(t *testing.T) {
	c := NewController(zaptest.NewLogger(t))
	r := &recorder{}

	remaining := 4
	require.NoError(t, c.Register(3, 0, "drain", r.handler("drain", func() {
		if remaining > 0 {
			remaining--
			c.Trigger(3)
		}
	})))

	start(t, c)
	c.Trigger(3)
	require.Eventually(t, func() bool { return len(r.snapshot()) == 5 }, time.Second, time.Millisecond)
}

func TestController_TriggerFromManyGoroutines(t *testing.T) {
	c := NewController(zaptest.NewLogger(t))
	var mu sync.Mutex
	runs := 0
	require.NoError(t, c.Register(0, 0, "count", func(context.Context) {
		mu.Lock()
		runs++
		mu.Unlock()
	}))
	start(t, c)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				c.Trigger(0)
			}
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return !c.IsPending(0) && uint64(runs) == c.Statistics().Dispatches["count"]
	}, time.Second, time.Millisecond)

	s := c.Statistics()
	assert.Equal(t, uint64(8000), s.Triggers)
	assert.GreaterOrEqual(t, s.Dispatches["count"], uint64(1))
	assert.Equal(t, s.Triggers, s.Coalesced+s.Dispatches["count"])
}

func TestController_RegisterWhileRunning(t *testing.T) {
	c := NewController(zaptest.NewLogger(t))
	start(t, c)
	require.Eventually(t, func() bool { return c.running.Load() }, time.Second, time.Millisecond)
	assert.ErrorIs(t, c.Register(0, 0, "late", func(context.Context) {}), ErrRunning)
}

func TestController_ClearAndExecAgain(t *testing.T) {
	c := NewController(zaptest.NewLogger(t))
	r := &recorder{}
	require.NoError(t, c.Register(0, 1, "first", r.handler("first", nil)))
	require.NoError(t, c.Register(1, 2, "second", r.handler("second", nil)))

	c.Trigger(0)
	c.Trigger(1)
	require.NoError(t, c.Clear())
	assert.False(t, c.IsPending(0))
	assert.False(t, c.IsPending(1))

	ctx, cancel := context.WithCancel(context.Background())
	go c.Exec(ctx)
	require.Eventually(t, func() bool { return c.running.Load() }, time.Second, time.Millisecond)
	assert.ErrorIs(t, c.Clear(), ErrRunning)
	cancel()
	require.ErrorIs(t, <-c.Done(), context.Canceled)
	assert.False(t, c.running.Load())
	require.NoError(t, c.Clear())
	assert.Empty(t, r.snapshot())

	start(t, c)
	c.Trigger(1)
	require.Eventually(t, func() bool { return len(r.snapshot()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"second"}, r.snapshot())
}
