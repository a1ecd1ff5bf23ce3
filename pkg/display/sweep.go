package display

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"sync"

	"github.com/peter-kozarec/ecgmon/pkg/common"
	"github.com/peter-kozarec/ecgmon/pkg/dsp"
	"github.com/peter-kozarec/ecgmon/pkg/utility/circular"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	DefaultWidth  = 320
	DefaultHeight = 216 // panel rows above the text line

	// FullScale is the estimated peak magnitude of the display-filtered waveform.
	FullScale = 2 * dsp.InputMax

	noRow = -1
)

var ErrNoSamples = errors.New("no samples to render")

type Option func(*Sweep)

func WithSize(width, height int) Option {
	return func(s *Sweep) {
		if width > 0 {
			s.width = width
		}
		if height > 0 {
			s.height = height
		}
	}
}

// WithHistory keeps n samples for Render instead of one screen width.
func WithHistory(n int) Option {
	return func(s *Sweep) {
		if n > 0 {
			s.historySize = n
		}
	}
}

// Row maps a sample onto one of height rows, 0 being the bottom of the trace.
func Row(value float64, height int) int {
	y := int((value + FullScale) / (2 * FullScale) * float64(height))
	switch {
	case y < 0:
		return 0
	case y >= height:
		return height - 1
	}
	return y
}

// Column is what one sweep column currently shows.
type Column struct {
	Row      int
	Position uint64
}

// Sweep is a scrolling-free oscilloscope trace: each sample overwrites the column at the
// cursor, erasing what was drawn there one screen earlier, and the cursor wraps.
type Sweep struct {
	mu sync.Mutex

	width       int
	height      int
	historySize int

	cursor  int
	columns []Column
	history *circular.Window[common.WaveformSample]

	drawn  uint64
	erased uint64
}

func NewSweep(opts ...Option) *Sweep {
	s := &Sweep{
		width:  DefaultWidth,
		height: DefaultHeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.historySize == 0 {
		s.historySize = s.width
	}

	s.columns = make([]Column, s.width)
	for i := range s.columns {
		s.columns[i].Row = noRow
	}
	s.history = circular.NewWindow[common.WaveformSample](s.historySize)
	return s
}

// OnSample is a waveform sink.
func (s *Sweep) OnSample(_ context.Context, sample common.WaveformSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := &s.columns[s.cursor]
	if col.Row != noRow {
		s.erased++
	}
	col.Row = Row(sample.Value, s.height)
	col.Position = sample.Position

	s.cursor = (s.cursor + 1) % s.width
	s.history.Push(sample)
	s.drawn++
}

// Column returns the content of column x; ok is false while it is blank.
func (s *Sweep) Column(x int) (Column, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if x < 0 || x >= s.width {
		return Column{}, false
	}
	c := s.columns[x]
	return c, c.Row != noRow
}

func (s *Sweep) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Sweep) Size() (int, int) {
	return s.width, s.height
}

// Samples returns the retained history, oldest first.
func (s *Sweep) Samples() []common.WaveformSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Data()
}

func (s *Sweep) Drawn() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawn
}

func (s *Sweep) Erased() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.erased
}

// Render saves the retained history as a line plot. The format follows the file
// extension.
func (s *Sweep) Render(path string) error {
	samples := s.Samples()
	if len(samples) == 0 {
		return ErrNoSamples
	}

	p := plot.New()
	p.Title.Text = "ECG"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Amplitude (V)"

	pts := make(plotter.XYs, 0, len(samples))
	for _, smp := range samples {
		pts = append(pts, plotter.XY{
			X: float64(smp.Position) / dsp.SampleRate,
			Y: smp.Value,
		})
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("unable to build waveform line: %w", err)
	}
	line.Color = color.RGBA{R: 220, A: 255}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Add(plotter.NewGrid())

	if err := p.Save(14*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("unable to save waveform plot %q: %w", path, err)
	}
	return nil
}
