package datasource

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type Option func(*Sampler)

// WithPeriod sets the acquisition timer period.
func WithPeriod(period time.Duration) Option {
	return func(s *Sampler) {
		if period > 0 {
			s.period = period
		}
	}
}

// WithFreeRun replaces the timer with a loop that delivers samples as fast as the sink
// takes them. A rejected code is offered again after retry, so nothing is lost. Use it
// for replay and for sources that pace themselves, like a serial line.
func WithFreeRun(retry time.Duration) Option {
	return func(s *Sampler) {
		s.freeRun = true
		s.retry = retry
	}
}

// Sampler plays the role of the acquisition timer interrupt. It pulls one code from the
// source per period and hands it to the sink without ever blocking on it.
type Sampler struct {
	logger *zap.Logger
	source Source
	sink   Acquirer

	period  time.Duration
	freeRun bool
	retry   time.Duration

	sampleCount atomic.Uint64
	dropCount   atomic.Uint64
	retryCount  atomic.Uint64
}

func NewSampler(logger *zap.Logger, source Source, sink Acquirer, options ...Option) *Sampler {
	s := &Sampler{
		logger: logger,
		source: source,
		sink:   sink,
		period: SamplePeriod,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Run delivers samples until ctx is done or the source fails. The source error,
// ErrEof included, is returned as is.
func (s *Sampler) Run(ctx context.Context) error {
	if s.freeRun {
		return s.runFree(ctx)
	}
	return s.runPeriodic(ctx)
}

func (s *Sampler) runPeriodic(ctx context.Context) error {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sample, err := s.next()
			if err != nil {
				return err
			}
			if err := s.sink.Acquire(sample); err != nil {
				s.dropCount.Add(1)
				s.logger.Debug("sample dropped", zap.Uint64("position", sample.Position), zap.Error(err))
			}
		}
	}
}

func (s *Sampler) runFree(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sample, err := s.next()
		if err != nil {
			return err
		}

		for s.sink.Acquire(sample) != nil {
			s.retryCount.Add(1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retry):
			}
		}
	}
}

// next reads one code and numbers it with the count of samples read before it.
func (s *Sampler) next() (Sample, error) {
	code, err := s.source.GetNext()
	if err != nil {
		return Sample{}, err
	}
	return Sample{Position: s.sampleCount.Add(1) - 1, Code: code}, nil
}

func (s *Sampler) Samples() uint64 {
	return s.sampleCount.Load()
}

func (s *Sampler) Drops() uint64 {
	return s.dropCount.Load()
}

func (s *Sampler) PrintStatistics() {
	s.logger.Info("sampler statistics",
		zap.Uint64("samples", s.sampleCount.Load()),
		zap.Uint64("drops", s.dropCount.Load()),
		zap.Uint64("retries", s.retryCount.Load()),
		zap.Duration("period", s.period),
		zap.Bool("free_run", s.freeRun))
}
