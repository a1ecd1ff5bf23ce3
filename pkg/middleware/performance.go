package middleware

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/peter-kozarec/ecgmon/pkg/bus"
	"github.com/peter-kozarec/ecgmon/pkg/common"
	"go.uber.org/zap"
)

// Performance accumulates the time spent inside the wrapped sinks.
type Performance struct {
	logger *zap.Logger

	totalWaveformHandlerDur  atomic.Int64
	totalHeartRateHandlerDur atomic.Int64
	maxWaveformHandlerDur    atomic.Int64
}

func NewPerformance(logger *zap.Logger) *Performance {
	return &Performance{
		logger: logger,
	}
}

func (p *Performance) WithWaveform(handler bus.WaveformEventHandler) bus.WaveformEventHandler {
	return func(ctx context.Context, sample common.WaveformSample) {
		startTime := time.Now()
		handler(ctx, sample)
		d := int64(time.Since(startTime))
		p.totalWaveformHandlerDur.Add(d)
		for {
			cur := p.maxWaveformHandlerDur.Load()
			if d <= cur || p.maxWaveformHandlerDur.CompareAndSwap(cur, d) {
				break
			}
		}
	}
}

func (p *Performance) WithHeartRate(handler bus.HeartRateEventHandler) bus.HeartRateEventHandler {
	return func(ctx context.Context, hr common.HeartRate) {
		startTime := time.Now()
		handler(ctx, hr)
		p.totalHeartRateHandlerDur.Add(int64(time.Since(startTime)))
	}
}

// PrintStatistics uses the telemetry counters to average the durations.
func (p *Performance) PrintStatistics(t *Telemetry) {
	if t == nil {
		p.logger.Warn("telemetry is nil; cannot compute performance statistics")
		return
	}

	var fields []zap.Field

	if n := t.WaveformEvents(); n > 0 {
		total := time.Duration(p.totalWaveformHandlerDur.Load())
		fields = append(fields,
			zap.Duration("waveform_avg_duration", total/time.Duration(n)),
			zap.Duration("waveform_max_duration", time.Duration(p.maxWaveformHandlerDur.Load())),
			zap.Duration("waveform_total_duration", total))
	}

	if n := t.HeartRateEvents(); n > 0 {
		total := time.Duration(p.totalHeartRateHandlerDur.Load())
		fields = append(fields,
			zap.Duration("heart_rate_avg_duration", total/time.Duration(n)),
			zap.Duration("heart_rate_total_duration", total))
	}

	p.logger.Info("performance statistics", fields...)
}
