package qrs

import (
	"math"
	"time"

	"github.com/peter-kozarec/ecgmon/pkg/utility/circular"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Detector is the adaptive dual-threshold beat detector. It consumes the integrated
// cascade output one sample at a time. It is owned by exactly one stage and is not safe
// for concurrent use.
type Detector struct {
	logger *zap.Logger
	cfg    Configuration

	count   uint64 // finite samples seen, the index of the next sample
	dropped uint64
	warmup  []float64

	initialized bool
	signalLevel float64
	noiseLevel  float64
	threshold   float64

	utility    *circular.Window[Candidate]
	pending    Candidate
	hasPending bool

	beats     uint64
	lastBeat  uint64
	heartRate float64
	intervals *circular.Window[uint64]
}

func NewDetector(cfg Configuration, logger *zap.Logger) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{
		logger:    logger,
		cfg:       cfg,
		warmup:    make([]float64, 0, cfg.WarmupSamples),
		utility:   circular.NewWindow[Candidate](fiducialWindow),
		intervals: circular.NewWindow[uint64](rrHistory),
	}, nil
}

// Process feeds one integrated sample. Non-finite samples are counted and ignored; they
// neither advance the sample index nor touch the levels.
func (d *Detector) Process(sample float64) Decision {
	if math.IsNaN(sample) || math.IsInf(sample, 0) {
		d.dropped++
		return Decision{Outcome: NoBeat, Reason: ReasonInvalidSample}
	}

	idx := d.count
	d.count++

	if !d.initialized {
		if idx < d.cfg.SettleSamples {
			return Decision{Outcome: NoBeat, Reason: ReasonWarmingUp}
		}
		d.warmup = append(d.warmup, sample)
		if len(d.warmup) == d.cfg.WarmupSamples {
			d.finishWarmup()
		}
		return Decision{Outcome: NoBeat, Reason: ReasonWarmingUp}
	}

	c, ok := d.findFiducialMarks(idx, sample)
	if !ok {
		return Decision{Outcome: NoBeat, Reason: ReasonNoCandidate}
	}
	return d.ApplyDecisionRules(c)
}

// InitLevels seeds the signal and noise levels from a warm-up window and moves the
// detector out of warm-up. Non-finite values in samples are ignored.
func (d *Detector) InitLevels(samples []float64) error {
	finite := make([]float64, 0, len(samples))
	for _, s := range samples {
		if !math.IsNaN(s) && !math.IsInf(s, 0) {
			finite = append(finite, s)
		}
	}
	if len(finite) == 0 {
		return ErrNoSamples
	}

	d.signalLevel = signalSeedFraction * floats.Max(finite)
	d.noiseLevel = noiseSeedFraction * stat.Mean(finite, nil)
	d.updateThreshold()
	d.initialized = true

	d.logger.Debug("detector levels initialized",
		zap.Int("samples", len(finite)),
		zap.Float64("signal", d.signalLevel),
		zap.Float64("noise", d.noiseLevel),
		zap.Float64("threshold", d.threshold))
	return nil
}

// finishWarmup seeds the levels from the collected batch. On failure the detector keeps
// warming up and collects a fresh batch.
func (d *Detector) finishWarmup() {
	if err := d.InitLevels(d.warmup); err != nil {
		d.logger.Warn("detector levels not initialized",
			zap.Int("samples", len(d.warmup)),
			zap.Uint64("index", d.count),
			zap.Error(err))
	}
	d.warmup = d.warmup[:0]
}

// findFiducialMarks tracks local maxima over the utility window. A mark stays pending
// until MinPeakDistance samples have passed, and a larger peak in that time replaces it.
// The finalized mark, if any, is returned.
func (d *Detector) findFiducialMarks(idx uint64, sample float64) (Candidate, bool) {
	d.utility.Push(Candidate{Index: idx, Amplitude: sample})

	var final Candidate
	var ok bool
	if d.hasPending && idx-1-d.pending.Index >= d.cfg.MinPeakDistance {
		final, ok = d.pending, true
		d.hasPending = false
	}

	if d.utility.IsFull() {
		prev, mid, next := d.utility.Get(2), d.utility.Get(1), d.utility.Get(0)
		if mid.Amplitude > prev.Amplitude && mid.Amplitude > next.Amplitude {
			if !d.hasPending || mid.Amplitude > d.pending.Amplitude {
				d.pending = mid
				d.hasPending = true
			}
		}
	}
	return final, ok
}

// ApplyDecisionRules classifies a fiducial mark. A mark above threshold and outside the
// refractory window is a beat and pulls the signal level toward it. A mark below
// threshold pulls the noise level instead. A mark inside the refractory window is
// rejected without touching either level.
func (d *Detector) ApplyDecisionRules(c Candidate) Decision {
	if !d.initialized {
		return Decision{Outcome: NoBeat, Reason: ReasonWarmingUp, Candidate: c}
	}

	if c.Amplitude <= d.threshold {
		d.updateLevel(c.Amplitude, false)
		d.updateThreshold()
		return Decision{Outcome: NoBeat, Reason: ReasonBelowThreshold, Candidate: c}
	}

	if d.beats > 0 && c.Index < d.lastBeat+d.cfg.RefractorySamples {
		d.logger.Debug("candidate rejected in refractory period",
			zap.Uint64("index", c.Index),
			zap.Uint64("last_beat", d.lastBeat),
			zap.Float64("amplitude", c.Amplitude))
		return Decision{Outcome: NoBeat, Reason: ReasonRefractory, Candidate: c}
	}

	d.updateLevel(c.Amplitude, true)
	d.updateThreshold()

	beat := Beat{
		Index:     c.Index,
		Time:      time.Duration(c.Index) * time.Second / time.Duration(d.cfg.SampleRate),
		Amplitude: c.Amplitude,
	}
	if d.beats > 0 {
		beat.Interval = c.Index - d.lastBeat
		d.heartRate = 60 * float64(d.cfg.SampleRate) / float64(beat.Interval)
		d.intervals.Push(beat.Interval)
		beat.HeartRate = d.heartRate
		beat.Ready = true
	}
	d.lastBeat = c.Index
	d.beats++

	return Decision{Outcome: BeatAccepted, Reason: ReasonNone, Candidate: c, Beat: beat}
}

func (d *Detector) updateLevel(amplitude float64, isPeak bool) {
	if isPeak {
		d.signalLevel = levelWeight*amplitude + (1-levelWeight)*d.signalLevel
	} else {
		d.noiseLevel = levelWeight*amplitude + (1-levelWeight)*d.noiseLevel
	}
}

func (d *Detector) updateThreshold() {
	d.threshold = d.noiseLevel + thresholdFraction*(d.signalLevel-d.noiseLevel)
}

func (d *Detector) State() State {
	switch {
	case !d.initialized:
		return StateWarmingUp
	case d.beats > 0 && d.count > 0 && d.count-1 < d.lastBeat+d.cfg.RefractorySamples:
		return StateRefractory
	case d.hasPending:
		return StateCandidatePeak
	default:
		return StateSearching
	}
}

// HeartRate reports the instantaneous rate from the last RR interval. It is ready once
// two beats have been accepted.
func (d *Detector) HeartRate() (float64, bool) {
	if d.beats < 2 {
		return 0, false
	}
	return d.heartRate, true
}

// AverageHeartRate is the rate over the mean of the most recent RR intervals.
func (d *Detector) AverageHeartRate() (float64, bool) {
	if d.intervals.Size() == 0 {
		return 0, false
	}
	return 60 * float64(d.cfg.SampleRate) / circular.Mean(d.intervals), true
}

func (d *Detector) Levels() Levels {
	return Levels{
		Signal:    d.signalLevel,
		Noise:     d.noiseLevel,
		Threshold: d.threshold,
	}
}

func (d *Detector) Beats() uint64 {
	return d.beats
}

func (d *Detector) Dropped() uint64 {
	return d.dropped
}

func (d *Detector) Reset() {
	d.count = 0
	d.dropped = 0
	d.warmup = d.warmup[:0]
	d.initialized = false
	d.signalLevel = 0
	d.noiseLevel = 0
	d.threshold = 0
	d.utility.Reset()
	d.pending = Candidate{}
	d.hasPending = false
	d.beats = 0
	d.lastBeat = 0
	d.heartRate = 0
	d.intervals.Reset()
}
