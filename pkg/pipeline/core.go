package pipeline

import (
	"math"
	"time"

	"github.com/peter-kozarec/ecgmon/pkg/common"
	"github.com/peter-kozarec/ecgmon/pkg/dsp"
	"github.com/peter-kozarec/ecgmon/pkg/qrs"
	"go.uber.org/zap"
)

// Core is the signal path shared by both orchestrators. Each group of fields is owned by
// exactly one stage: the conditioner and cascade by processing, the detector by
// detection, the display filter by display.
type Core struct {
	conditioner *dsp.Conditioner
	cascade     *dsp.Cascade

	detector *qrs.Detector

	display *dsp.DisplayFilter
}

func NewCore(cfg qrs.Configuration, logger *zap.Logger) (*Core, error) {
	detector, err := qrs.NewDetector(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Core{
		conditioner: dsp.NewConditioner(),
		cascade:     dsp.NewCascade(),
		detector:    detector,
		display:     dsp.NewDisplayFilter(),
	}, nil
}

// Process converts and filters one code. It returns the conditioned sample for the
// waveform and the integrated sample for detection.
func (c *Core) Process(code uint16) (conditioned, integrated float64, ok bool) {
	return c.ProcessVolts(dsp.Volts(code))
}

// ProcessVolts rejects non-finite input before it reaches any delay line.
func (c *Core) ProcessVolts(v float64) (conditioned, integrated float64, ok bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, 0, false
	}
	conditioned = c.conditioner.Process(v)
	integrated = c.cascade.Process(conditioned)
	return conditioned, integrated, true
}

func (c *Core) Detect(integrated float64) qrs.Decision {
	return c.detector.Process(integrated)
}

// HeartRate turns an accepted beat into the readout value.
func (c *Core) HeartRate(beat qrs.Beat) common.HeartRate {
	avg, _ := c.detector.AverageHeartRate()
	return common.HeartRate{
		BPM:       beat.HeartRate,
		Average:   avg,
		Ready:     beat.Ready,
		Beat:      beat.Index,
		BeatTime:  beat.Time,
		TimeStamp: time.Now(),
	}
}

func (c *Core) Display(s common.WaveformSample) common.WaveformSample {
	s.Value = c.display.Process(s.Value)
	return s
}

func (c *Core) Detector() *qrs.Detector {
	return c.detector
}

// Reset restarts the stream. It must only be called while no stage runs.
func (c *Core) Reset() {
	c.conditioner.Reset()
	c.cascade.Reset()
	c.detector.Reset()
	c.display.Reset()
}
