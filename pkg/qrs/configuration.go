package qrs

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("invalid detector configuration")
	ErrNoSamples     = errors.New("no finite warm-up samples")
)

// Decay and threshold constants are fixed; levels move 1/8 of the way toward each
// classified peak and the threshold sits a quarter of the way from noise to signal.
const (
	levelWeight       = 0.125
	thresholdFraction = 0.25

	signalSeedFraction = 0.25
	noiseSeedFraction  = 0.5

	fiducialWindow = 3
	rrHistory      = 8
)

type Configuration struct {
	SampleRate        int    // Hz; must match the rate the cascade was designed for
	SettleSamples     uint64 // discarded while the cascade transient dies out
	WarmupSamples     int    // window used to seed signal and noise levels
	MinPeakDistance   uint64 // fiducial marks closer than this collapse into the larger one
	RefractorySamples uint64 // no beat is accepted this soon after the previous one
}

func DefaultConfiguration() Configuration {
	return Configuration{
		SampleRate:        200,
		SettleSamples:     40,
		WarmupSamples:     400,
		MinPeakDistance:   40,
		RefractorySamples: 40,
	}
}

func (c Configuration) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrConfiguration, c.SampleRate)
	case c.WarmupSamples <= 0:
		return fmt.Errorf("%w: warm-up length %d", ErrConfiguration, c.WarmupSamples)
	case c.MinPeakDistance == 0:
		return fmt.Errorf("%w: peak distance must be positive", ErrConfiguration)
	}
	return nil
}
