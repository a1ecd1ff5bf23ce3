package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/peter-kozarec/ecgmon/pkg/bus"
	"github.com/peter-kozarec/ecgmon/pkg/qrs"
	"github.com/peter-kozarec/ecgmon/pkg/utility/circular"
)

var ErrConfiguration = errors.New("invalid pipeline configuration")

type Mode uint8

const (
	ModeInterruptChained Mode = iota
	ModeTaskQueued
)

func (m Mode) String() string {
	switch m {
	case ModeInterruptChained:
		return "interrupt"
	case ModeTaskQueued:
		return "task"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "interrupt", "isr", "bare-metal":
		return ModeInterruptChained, nil
	case "task", "rtos", "queue":
		return ModeTaskQueued, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrConfiguration, s)
}

// Configuration holds the link depths and policies. In the interrupt variant the
// capacities size ring buffers, in the task variant they size queues.
type Configuration struct {
	Mode Mode

	RawCapacity       int
	DetectionCapacity int
	WaveformCapacity  int
	HeartRateCapacity int

	// DetectionBatch is how many integrated samples the interrupt variant collects
	// before it pends the detection vector.
	DetectionBatch int

	QueuePolicy  bus.Policy
	QueueTimeout time.Duration

	Detector qrs.Configuration
}

func DefaultConfiguration() Configuration {
	return Configuration{
		Mode:              ModeInterruptChained,
		RawCapacity:       8,
		DetectionCapacity: 64,
		WaveformCapacity:  8,
		HeartRateCapacity: 1,
		DetectionBatch:    32,
		QueuePolicy:       bus.PolicyDrop,
		QueueTimeout:      20 * time.Millisecond,
		Detector:          qrs.DefaultConfiguration(),
	}
}

func (c Configuration) Validate() error {
	links := []struct {
		name     string
		capacity int
	}{
		{"raw", c.RawCapacity},
		{"detection", c.DetectionCapacity},
		{"waveform", c.WaveformCapacity},
		{"heart rate", c.HeartRateCapacity},
	}
	for _, l := range links {
		if l.capacity <= 0 || l.capacity > circular.MaxCapacity {
			return fmt.Errorf("%w: %w: %s link capacity %d", ErrConfiguration, circular.ErrCapacity, l.name, l.capacity)
		}
	}

	if c.DetectionBatch <= 0 || c.DetectionBatch > c.DetectionCapacity {
		return fmt.Errorf("%w: detection batch %d not in [1, %d]", ErrConfiguration, c.DetectionBatch, c.DetectionCapacity)
	}
	if c.Mode != ModeInterruptChained && c.Mode != ModeTaskQueued {
		return fmt.Errorf("%w: %v", ErrConfiguration, c.Mode)
	}
	if c.Mode == ModeTaskQueued && c.QueuePolicy == bus.PolicyBlock && c.QueueTimeout <= 0 {
		return fmt.Errorf("%w: %w: blocking queues need a timeout", ErrConfiguration, bus.ErrPolicy)
	}
	if err := c.Detector.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}
