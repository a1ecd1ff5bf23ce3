package pipeline

import (
	"sync/atomic"

	"go.uber.org/zap"
)

type Statistics struct {
	Acquired       uint64
	AcquireDrops   uint64
	Processed      uint64
	NonFinite      uint64
	DetectionDrops uint64
	WaveformDrops  uint64
	HeartRateDrops uint64
	Beats          uint64
	Displayed      uint64
	ReadoutUpdates uint64
}

func (s Statistics) Print(logger *zap.Logger) {
	logger.Info("pipeline statistics",
		zap.Uint64("acquired", s.Acquired),
		zap.Uint64("acquire_drops", s.AcquireDrops),
		zap.Uint64("processed", s.Processed),
		zap.Uint64("non_finite", s.NonFinite),
		zap.Uint64("detection_drops", s.DetectionDrops),
		zap.Uint64("waveform_drops", s.WaveformDrops),
		zap.Uint64("heart_rate_drops", s.HeartRateDrops),
		zap.Uint64("beats", s.Beats),
		zap.Uint64("displayed", s.Displayed),
		zap.Uint64("readout_updates", s.ReadoutUpdates))
}

// counters are written by whichever stage owns the event and read from anywhere.
type counters struct {
	acquired       atomic.Uint64
	acquireDrops   atomic.Uint64
	processed      atomic.Uint64
	nonFinite      atomic.Uint64
	detectionDrops atomic.Uint64
	waveformDrops  atomic.Uint64
	heartRateDrops atomic.Uint64
	beats          atomic.Uint64
	displayed      atomic.Uint64
	readoutUpdates atomic.Uint64
}

func (c *counters) snapshot() Statistics {
	return Statistics{
		Acquired:       c.acquired.Load(),
		AcquireDrops:   c.acquireDrops.Load(),
		Processed:      c.processed.Load(),
		NonFinite:      c.nonFinite.Load(),
		DetectionDrops: c.detectionDrops.Load(),
		WaveformDrops:  c.waveformDrops.Load(),
		HeartRateDrops: c.heartRateDrops.Load(),
		Beats:          c.beats.Load(),
		Displayed:      c.displayed.Load(),
		ReadoutUpdates: c.readoutUpdates.Load(),
	}
}

func (c *counters) reset() {
	for _, n := range []*atomic.Uint64{
		&c.acquired, &c.acquireDrops, &c.processed, &c.nonFinite, &c.detectionDrops,
		&c.waveformDrops, &c.heartRateDrops, &c.beats, &c.displayed, &c.readoutUpdates,
	} {
		n.Store(0)
	}
}

// admission counts acquisition per position rather than per attempt. Acquired is the
// number of distinct positions offered, AcquireDrops the number of those not taken.
// A retry of the last rejected position that gets through takes its drop back.
// Only Acquire touches it.
type admission struct {
	next     uint64 // first position not offered yet
	rejected bool   // next-1 was rejected on its last attempt
}

func (a *admission) accept(position uint64, c *counters) {
	switch {
	case position >= a.next:
		c.acquired.Add(1)
		a.next = position + 1
	case a.rejected && position == a.next-1:
		c.acquireDrops.Add(^uint64(0))
	}
	a.rejected = false
}

func (a *admission) reject(position uint64, c *counters) {
	if position < a.next {
		return
	}
	c.acquired.Add(1)
	c.acquireDrops.Add(1)
	a.next = position + 1
	a.rejected = true
}
