package middleware

import (
	"context"
	"sync/atomic"

	"github.com/peter-kozarec/ecgmon/pkg/bus"
	"github.com/peter-kozarec/ecgmon/pkg/common"
	"go.uber.org/zap"
)

// Telemetry counts events reaching the sinks. Each counter may be bumped from a
// different stage than the one printing it.
type Telemetry struct {
	logger *zap.Logger

	waveformEventCounter  atomic.Int64
	heartRateEventCounter atomic.Int64
	readyEventCounter     atomic.Int64
}

func NewTelemetry(logger *zap.Logger) *Telemetry {
	return &Telemetry{
		logger: logger,
	}
}

func (t *Telemetry) WithWaveform(handler bus.WaveformEventHandler) bus.WaveformEventHandler {
	return func(ctx context.Context, sample common.WaveformSample) {
		t.waveformEventCounter.Add(1)
		handler(ctx, sample)
	}
}

func (t *Telemetry) WithHeartRate(handler bus.HeartRateEventHandler) bus.HeartRateEventHandler {
	return func(ctx context.Context, hr common.HeartRate) {
		t.heartRateEventCounter.Add(1)
		if hr.Ready {
			t.readyEventCounter.Add(1)
		}
		handler(ctx, hr)
	}
}

func (t *Telemetry) WaveformEvents() int64 {
	return t.waveformEventCounter.Load()
}

func (t *Telemetry) HeartRateEvents() int64 {
	return t.heartRateEventCounter.Load()
}

func (t *Telemetry) PrintStatistics() {
	t.logger.Info("event statistics",
		zap.Int64("waveform_events", t.waveformEventCounter.Load()),
		zap.Int64("heart_rate_events", t.heartRateEventCounter.Load()),
		zap.Int64("heart_rate_ready_events", t.readyEventCounter.Load()))
}
