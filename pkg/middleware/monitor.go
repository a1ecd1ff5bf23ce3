package middleware

import (
	"context"

	"github.com/peter-kozarec/ecgmon/pkg/bus"
	"github.com/peter-kozarec/ecgmon/pkg/common"
	"go.uber.org/zap"
)

type MonitorFlags uint16

//goland:noinspection GoUnusedConst
const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorWaveform
	MonitorHeartRate
)

// Monitor logs every event that matches its flags before passing it on.
type Monitor struct {
	logger *zap.Logger
	flags  MonitorFlags
}

func NewMonitor(logger *zap.Logger, flags MonitorFlags) *Monitor {
	return &Monitor{
		logger: logger,
		flags:  flags,
	}
}

func (m *Monitor) enabled(flag MonitorFlags) bool {
	return m.flags&flag != 0 || m.flags&MonitorAll != 0
}

func (m *Monitor) WithWaveform(handler bus.WaveformEventHandler) bus.WaveformEventHandler {
	return func(ctx context.Context, sample common.WaveformSample) {
		if m.enabled(MonitorWaveform) {
			m.logger.Debug("event",
				zap.Uint64("pos", sample.Position),
				zap.Float64("value", sample.Value))
		}
		handler(ctx, sample)
	}
}

func (m *Monitor) WithHeartRate(handler bus.HeartRateEventHandler) bus.HeartRateEventHandler {
	return func(ctx context.Context, hr common.HeartRate) {
		if m.enabled(MonitorHeartRate) {
			m.logger.Info("event",
				zap.Uint64("beat", hr.Beat),
				zap.Bool("ready", hr.Ready),
				zap.Float64("bpm", hr.BPM),
				zap.Float64("avg", hr.Average),
				zap.Duration("beat_time", hr.BeatTime))
		}
		handler(ctx, hr)
	}
}
