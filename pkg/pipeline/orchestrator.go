package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/peter-kozarec/ecgmon/pkg/bus"
	"github.com/peter-kozarec/ecgmon/pkg/common"
	"github.com/peter-kozarec/ecgmon/pkg/datasource"
	"github.com/peter-kozarec/ecgmon/pkg/utility"
	"go.uber.org/zap"
)

var ErrRunning = errors.New("pipeline is running")

// Sinks are the display-side consumers. Nil handlers discard.
type Sinks struct {
	Waveform  bus.WaveformEventHandler
	HeartRate bus.HeartRateEventHandler
}

func (s Sinks) withDefaults() Sinks {
	if s.Waveform == nil {
		s.Waveform = func(context.Context, common.WaveformSample) {}
	}
	if s.HeartRate == nil {
		s.HeartRate = func(context.Context, common.HeartRate) {}
	}
	return s
}

// Stage describes one link of the wiring graph.
type Stage struct {
	Name     string
	Input    string
	Outputs  []string
	Trigger  string
	Priority int
}

// Orchestrator moves acquired samples through the core to the sinks.
type Orchestrator interface {
	// Acquire hands over one sample from acquisition context. It never blocks. A rejected
	// sample is counted as an acquisition drop until a retry under the same position is
	// taken, and the error is returned.
	Acquire(s datasource.Sample) error
	// Run executes the stages until ctx is done and returns ctx.Err(). It fails with
	// ErrRunning when already running.
	Run(ctx context.Context) error
	// Reset prepares a stopped pipeline for a new stream. Links are emptied, the core
	// starts over from warm-up, statistics are zeroed and a new session begins. The
	// sampler must be stopped too; positions are expected to start from zero again.
	Reset() error
	Stages() []Stage
	Statistics() Statistics
	PrintStatistics()
}

func New(cfg Configuration, sinks Sinks, logger *zap.Logger) (Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	core, err := NewCore(cfg.Detector, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if cfg.Mode == ModeTaskQueued {
		p, err := NewTaskQueued(cfg, core, sinks, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	p, err := NewInterruptChained(cfg, core, sinks, logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func logStages(logger *zap.Logger, mode Mode, stages []Stage) {
	for _, s := range stages {
		logger.Debug("pipeline stage",
			zap.Stringer("mode", mode),
			zap.String("stage", s.Name),
			zap.String("input", s.Input),
			zap.Strings("outputs", s.Outputs),
			zap.String("trigger", s.Trigger),
			zap.Int("priority", s.Priority))
	}
}

func startSession(logger *zap.Logger, mode Mode) {
	id := utility.ResetSessionID()
	logger.Info("pipeline reset", zap.Stringer("mode", mode), zap.Stringer("session", id))
}
