package datasource

import (
	"errors"
	"time"

	"github.com/peter-kozarec/ecgmon/pkg/dsp"
)

var ErrEof = errors.New("EOF")

// Source yields raw 12-bit converter codes in acquisition order.
type Source interface {
	GetNext() (uint16, error)
}

// Sample is one raw code tagged with its acquisition position. The sampler numbers
// samples as it reads them from the source, so a retried sample keeps its position and
// a dropped one leaves a gap downstream.
type Sample struct {
	Position uint64
	Code     uint16
}

// Acquirer accepts one sample per sample period. A non-nil error means the sample was
// not taken.
type Acquirer interface {
	Acquire(s Sample) error
}

// SamplePeriod is the acquisition timer period the filter coefficients are designed for.
const SamplePeriod = time.Second / dsp.SampleRate
