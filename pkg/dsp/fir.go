package dsp

import (
	"errors"
	"fmt"

	"github.com/peter-kozarec/ecgmon/pkg/utility/circular"
)

var ErrFilterOrder = errors.New("invalid filter order")

// FIR is a direct-form finite impulse response filter. Its delay line holds exactly
// len(taps) inputs; unfilled history reads as zero.
type FIR struct {
	taps  []float64
	delay *circular.Window[float64]
}

func NewFIR(taps []float64) (*FIR, error) {
	if len(taps) == 0 {
		return nil, fmt.Errorf("%w: fir needs at least one tap", ErrFilterOrder)
	}
	return &FIR{
		taps:  append([]float64(nil), taps...),
		delay: circular.NewWindow[float64](len(taps)),
	}, nil
}

func (f *FIR) Order() int {
	return len(f.taps)
}

func (f *FIR) Process(x float64) float64 {
	f.delay.Push(x)

	var y float64
	for k := 0; k < f.delay.Size(); k++ {
		y += f.taps[k] * f.delay.Get(k)
	}
	return y
}

func (f *FIR) Reset() {
	f.delay.Reset()
}
