package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/peter-kozarec/ecgmon/pkg/bus"
	"github.com/peter-kozarec/ecgmon/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMiddleware_ChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(bus.WaveformEventHandler) bus.WaveformEventHandler {
		return func(h bus.WaveformEventHandler) bus.WaveformEventHandler {
			return func(ctx context.Context, s common.WaveformSample) {
				order = append(order, name)
				h(ctx, s)
			}
		}
	}
	base := func(context.Context, common.WaveformSample) { order = append(order, "sink") }

	chained := Chain(tag("a"), tag("b"), tag("c"))(base)
	chained(context.Background(), common.WaveformSample{})

	assert.Equal(t, []string{"a", "b", "c", "sink"}, order)
}

func TestMiddleware_ChainEmpty(t *testing.T) {
	var called bool
	base := bus.HeartRateEventHandler(func(context.Context, common.HeartRate) { called = true })

	Chain[bus.HeartRateEventHandler]()(base)(context.Background(), common.HeartRate{})
	assert.True(t, called)
}

func TestMonitor_Flags(t *testing.T) {
	tests := []struct {
		name         string
		flags        MonitorFlags
		wantWaveform int
		wantRate     int
	}{
		{"none", MonitorNone, 0, 0},
		{"all", MonitorAll, 1, 1},
		{"waveform", MonitorWaveform, 1, 0},
		{"heart rate", MonitorHeartRate, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			m := NewMonitor(zap.New(core), tt.flags)

			var calls int
			m.WithWaveform(func(context.Context, common.WaveformSample) { calls++ })(
				context.Background(), common.WaveformSample{Position: 7, Value: 0.5})
			m.WithHeartRate(func(context.Context, common.HeartRate) { calls++ })(
				context.Background(), common.HeartRate{BPM: 72, Ready: true, Beat: 3})

			assert.Equal(t, 2, calls)
			assert.Equal(t, tt.wantWaveform, logs.FilterField(zap.Uint64("pos", 7)).Len())
			assert.Equal(t, tt.wantRate, logs.FilterField(zap.Float64("bpm", 72)).Len())
		})
	}
}

func TestTelemetry_Counts(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tel := NewTelemetry(zap.New(core))

	wave := tel.WithWaveform(NoopWaveformHdl)
	rate := tel.WithHeartRate(NoopHeartRateHdl)
	for i := 0; i < 5; i++ {
		wave(context.Background(), common.WaveformSample{Position: uint64(i)})
	}
	rate(context.Background(), common.HeartRate{})
	rate(context.Background(), common.HeartRate{Ready: true, BPM: 60})

	assert.Equal(t, int64(5), tel.WaveformEvents())
	assert.Equal(t, int64(2), tel.HeartRateEvents())

	tel.PrintStatistics()
	entries := logs.FilterMessage("event statistics").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(5), fields["waveform_events"])
	assert.Equal(t, int64(2), fields["heart_rate_events"])
	assert.Equal(t, int64(1), fields["heart_rate_ready_events"])
}

func TestPerformance_Durations(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	tel := NewTelemetry(logger)
	perf := NewPerformance(logger)

	slow := func(context.Context, common.WaveformSample) { time.Sleep(2 * time.Millisecond) }
	wave := Chain(tel.WithWaveform, perf.WithWaveform)(slow)
	wave(context.Background(), common.WaveformSample{})
	wave(context.Background(), common.WaveformSample{})

	assert.GreaterOrEqual(t, time.Duration(perf.totalWaveformHandlerDur.Load()), 4*time.Millisecond)
	assert.GreaterOrEqual(t, time.Duration(perf.maxWaveformHandlerDur.Load()), 2*time.Millisecond)

	perf.PrintStatistics(tel)
	entries := logs.FilterMessage("performance statistics").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Contains(t, fields, "waveform_avg_duration")
	assert.NotContains(t, fields, "heart_rate_avg_duration")
}

func TestPerformance_NilTelemetry(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	NewPerformance(zap.New(core)).PrintStatistics(nil)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}
