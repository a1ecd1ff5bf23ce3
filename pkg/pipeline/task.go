package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/peter-kozarec/ecgmon/pkg/bus"
	"github.com/peter-kozarec/ecgmon/pkg/common"
	"github.com/peter-kozarec/ecgmon/pkg/datasource"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TaskQueued runs one goroutine per stage, linked by bounded queues. Acquisition posts
// without blocking; every other producer follows the configured queue policy.
type TaskQueued struct {
	logger *zap.Logger
	cfg    Configuration
	core   *Core
	sinks  Sinks

	daq       *bus.Queue[datasource.Sample]
	qrs       *bus.Queue[float64]
	waveform  *bus.Queue[common.WaveformSample]
	heartRate *bus.Queue[common.HeartRate]

	admission admission
	running   atomic.Bool
	stats     counters
}

func NewTaskQueued(cfg Configuration, core *Core, sinks Sinks, logger *zap.Logger) (*TaskQueued, error) {
	p := &TaskQueued{
		logger: logger,
		cfg:    cfg,
		core:   core,
		sinks:  sinks.withDefaults(),
	}

	var err error
	if p.daq, err = bus.NewQueue[datasource.Sample]("daq", cfg.RawCapacity, cfg.QueuePolicy, cfg.QueueTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if p.qrs, err = bus.NewQueue[float64]("qrs", cfg.DetectionCapacity, cfg.QueuePolicy, cfg.QueueTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if p.waveform, err = bus.NewQueue[common.WaveformSample]("waveform", cfg.WaveformCapacity, cfg.QueuePolicy, cfg.QueueTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if p.heartRate, err = bus.NewQueue[common.HeartRate]("heart_rate", cfg.HeartRateCapacity, cfg.QueuePolicy, cfg.QueueTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return p, nil
}

func (p *TaskQueued) Acquire(sample datasource.Sample) error {
	if err := p.daq.TryPost(sample); err != nil {
		p.admission.reject(sample.Position, &p.stats)
		return err
	}
	p.admission.accept(sample.Position, &p.stats)
	return nil
}

func (p *TaskQueued) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer p.running.Store(false)

	logStages(p.logger, ModeTaskQueued, p.Stages())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.processingTask(ctx) })
	g.Go(func() error { return p.qrsTask(ctx) })
	g.Go(func() error { return p.waveformTask(ctx) })
	g.Go(func() error { return p.heartRateTask(ctx) })
	return g.Wait()
}

func (p *TaskQueued) Reset() error {
	if p.running.Load() {
		return ErrRunning
	}

	flushed := p.daq.Flush() + p.qrs.Flush() + p.waveform.Flush() + p.heartRate.Flush()
	if flushed > 0 {
		p.logger.Debug("queued items discarded", zap.Int("items", flushed))
	}

	p.core.Reset()
	p.admission = admission{}
	p.stats.reset()
	startSession(p.logger, ModeTaskQueued)
	return nil
}

// post reports whether the consumer got the item. Backpressure is counted in drops and
// does not stop the task; only cancellation does.
func post[T any](ctx context.Context, q *bus.Queue[T], item T, drops *atomic.Uint64) (bool, error) {
	err := q.Post(ctx, item)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bus.ErrQueueFull), errors.Is(err, bus.ErrQueueTimeout):
		drops.Add(1)
		return false, nil
	default:
		return false, err
	}
}

func (p *TaskQueued) processingTask(ctx context.Context) error {
	for {
		s, err := p.daq.Receive(ctx)
		if err != nil {
			return err
		}

		conditioned, integrated, ok := p.core.Process(s.Code)
		if !ok {
			p.stats.nonFinite.Add(1)
			continue
		}
		p.stats.processed.Add(1)

		if _, err := post(ctx, p.qrs, integrated, &p.stats.detectionDrops); err != nil {
			return err
		}
		if _, err := post(ctx, p.waveform, common.WaveformSample{Position: s.Position, Value: conditioned}, &p.stats.waveformDrops); err != nil {
			return err
		}
	}
}

func (p *TaskQueued) qrsTask(ctx context.Context) error {
	for {
		y, err := p.qrs.Receive(ctx)
		if err != nil {
			return err
		}

		dec := p.core.Detect(y)
		if !dec.Accepted() {
			continue
		}
		p.stats.beats.Add(1)

		ok, err := post(ctx, p.heartRate, p.core.HeartRate(dec.Beat), &p.stats.heartRateDrops)
		if err != nil {
			return err
		}
		if !ok {
			p.logger.Debug("heart rate dropped", zap.Uint64("beat", dec.Beat.Index))
		}
	}
}

func (p *TaskQueued) waveformTask(ctx context.Context) error {
	for {
		s, err := p.waveform.Receive(ctx)
		if err != nil {
			return err
		}
		p.sinks.Waveform(ctx, p.core.Display(s))
		p.stats.displayed.Add(1)
	}
}

func (p *TaskQueued) heartRateTask(ctx context.Context) error {
	for {
		hr, err := p.heartRate.Receive(ctx)
		if err != nil {
			return err
		}
		p.sinks.HeartRate(ctx, hr)
		p.stats.readoutUpdates.Add(1)
	}
}

func (p *TaskQueued) Stages() []Stage {
	return []Stage{
		{Name: "acquisition", Input: "source", Outputs: []string{p.daq.Name()}, Trigger: "timer"},
		{Name: "processing", Input: p.daq.Name(), Outputs: []string{p.qrs.Name(), p.waveform.Name()}, Trigger: "queue"},
		{Name: "qrs", Input: p.qrs.Name(), Outputs: []string{p.heartRate.Name()}, Trigger: "queue"},
		{Name: "waveform display", Input: p.waveform.Name(), Outputs: []string{"waveform sink"}, Trigger: "queue"},
		{Name: "heart rate display", Input: p.heartRate.Name(), Outputs: []string{"heart rate sink"}, Trigger: "queue"},
	}
}

func (p *TaskQueued) Statistics() Statistics {
	return p.stats.snapshot()
}

func (p *TaskQueued) PrintStatistics() {
	p.stats.snapshot().Print(p.logger)
	for _, s := range []bus.Statistics{
		p.daq.Statistics(),
		p.qrs.Statistics(),
		p.waveform.Statistics(),
		p.heartRate.Statistics(),
	} {
		s.Print(p.logger)
	}
}
