package display

import (
	"context"
	"fmt"
	"sync"

	"github.com/govalues/decimal"
	"github.com/peter-kozarec/ecgmon/pkg/common"
	"go.uber.org/zap"
)

const (
	readoutLabel  = "Heart Rate:"
	readoutUnit   = "bpm"
	readoutBlank  = "--"
	readoutDigits = 1
)

// FormatHeartRate renders the text line under the trace. The rate is shown with one
// decimal, or as a blank until the detector has two beats.
func FormatHeartRate(hr common.HeartRate) string {
	if !hr.Ready {
		return fmt.Sprintf("%s %s %s", readoutLabel, readoutBlank, readoutUnit)
	}
	bpm, err := decimal.NewFromFloat64(hr.BPM)
	if err != nil {
		return fmt.Sprintf("%s %s %s", readoutLabel, readoutBlank, readoutUnit)
	}
	return fmt.Sprintf("%s %s %s", readoutLabel, bpm.Rescale(readoutDigits).String(), readoutUnit)
}

// Readout is the heart-rate text line.
type Readout struct {
	logger *zap.Logger

	mu      sync.Mutex
	text    string
	value   decimal.Decimal
	ready   bool
	updates uint64
}

func NewReadout(logger *zap.Logger) *Readout {
	return &Readout{
		logger: logger,
		text:   FormatHeartRate(common.HeartRate{}),
	}
}

// OnHeartRate is a heart-rate sink.
func (r *Readout) OnHeartRate(_ context.Context, hr common.HeartRate) {
	text := FormatHeartRate(hr)

	var value decimal.Decimal
	ready := false
	if hr.Ready {
		v, err := decimal.NewFromFloat64(hr.BPM)
		if err != nil {
			r.logger.Warn("heart rate not representable", zap.Float64("bpm", hr.BPM), zap.Error(err))
		} else {
			value = v.Rescale(readoutDigits)
			ready = true
		}
	}

	r.mu.Lock()
	r.text = text
	r.value = value
	r.ready = ready
	r.updates++
	r.mu.Unlock()

	r.logger.Debug("readout updated", zap.String("text", text), zap.Uint64("beat", hr.Beat))
}

func (r *Readout) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

// Value returns the displayed rate; ok is false while the readout is blank.
func (r *Readout) Value() (decimal.Decimal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value, r.ready
}

func (r *Readout) Updates() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates
}
