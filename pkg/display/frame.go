package display

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/peter-kozarec/ecgmon/pkg/common"
	"github.com/peter-kozarec/ecgmon/pkg/utility"
)

const (
	DefaultBatchSize = 10

	frameHeaderSize = 8
	frameValueSize  = 4
)

var ErrFrame = errors.New("malformed waveform frame")

// EncodeWaveform packs consecutive samples into a binary frame: the position of the first
// sample as a little-endian uint64 followed by one little-endian float32 per sample.
func EncodeWaveform(samples []common.WaveformSample) []byte {
	if len(samples) == 0 {
		return nil
	}
	out := make([]byte, frameHeaderSize+frameValueSize*len(samples))
	binary.LittleEndian.PutUint64(out, samples[0].Position)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[frameHeaderSize+i*frameValueSize:], math.Float32bits(float32(s.Value)))
	}
	return out
}

func DecodeWaveform(b []byte) ([]common.WaveformSample, error) {
	if len(b) < frameHeaderSize || (len(b)-frameHeaderSize)%frameValueSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrame, len(b))
	}
	first := binary.LittleEndian.Uint64(b)
	n := (len(b) - frameHeaderSize) / frameValueSize
	samples := make([]common.WaveformSample, n)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(b[frameHeaderSize+i*frameValueSize:])
		samples[i] = common.WaveformSample{
			Position: first + uint64(i),
			Value:    float64(math.Float32frombits(bits)),
		}
	}
	return samples, nil
}

// batch collects consecutive samples into frames. A position gap closes the frame early
// so that every frame is contiguous. Not safe for concurrent use.
type batch struct {
	size    int
	samples []common.WaveformSample
}

func newBatch(size int) *batch {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &batch{
		size:    size,
		samples: make([]common.WaveformSample, 0, size),
	}
}

// add returns the frames completed by s, if any.
func (b *batch) add(s common.WaveformSample) [][]byte {
	var frames [][]byte
	if n := len(b.samples); n > 0 && b.samples[n-1].Position+1 != s.Position {
		frames = append(frames, b.flush())
	}
	b.samples = append(b.samples, s)
	if len(b.samples) >= b.size {
		frames = append(frames, b.flush())
	}
	return frames
}

func (b *batch) flush() []byte {
	frame := EncodeWaveform(b.samples)
	b.samples = b.samples[:0]
	return frame
}

// ParamMessage is the JSON form of a heart-rate update.
type ParamMessage struct {
	Session string  `json:"session"`
	Subject string  `json:"subject"`
	Ts      int64   `json:"ts"`
	Ready   bool    `json:"ready"`
	HR      float64 `json:"hr"`
	Avg     float64 `json:"avg"`
	Beat    uint64  `json:"beat"`
	Text    string  `json:"text"`
}

func newParamMessage(session utility.SessionID, subject string, hr common.HeartRate) ParamMessage {
	ts := hr.TimeStamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return ParamMessage{
		Session: session.String(),
		Subject: subject,
		Ts:      ts.UnixMilli(),
		Ready:   hr.Ready,
		HR:      finiteOrZero(hr.BPM),
		Avg:     finiteOrZero(hr.Average),
		Beat:    hr.Beat,
		Text:    FormatHeartRate(hr),
	}
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
