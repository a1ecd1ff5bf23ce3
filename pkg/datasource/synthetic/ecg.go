package synthetic

import (
	"math"
	"math/rand"

	"github.com/peter-kozarec/ecgmon/pkg/datasource"
	"github.com/peter-kozarec/ecgmon/pkg/dsp"
)

// wave is one gaussian component of a heartbeat; center and width are in seconds from
// the start of the beat period.
type wave struct {
	amplitude float64
	center    float64
	width     float64
}

// P, Q, R, S and T waves, amplitudes in volts at the electrode.
var pqrst = []wave{
	{0.15, 0.18, 0.025},
	{-0.1, 0.30, 0.01},
	{1.0, 0.32, 0.012},
	{-0.25, 0.345, 0.01},
	{0.3, 0.60, 0.05},
}

const (
	defaultWander = 0.05 // V
	wanderFreq    = 0.3  // Hz, respiration
	mainsFreq     = 60   // Hz
)

// ECGGenerator produces converter codes for a lead with beats at a fixed rate, a slow
// baseline wander and optional mains pickup and gaussian noise.
type ECGGenerator struct {
	rng *rand.Rand

	sampleRate float64
	period     float64 // s
	steps      int64
	t          int64

	wander float64
	mains  float64
	noise  float64
}

// NewECGGenerator returns a generator at heartRate beats per minute producing steps
// samples. A non-positive steps never ends. rng is only used when noise is set.
func NewECGGenerator(rng *rand.Rand, sampleRate int, heartRate float64, steps int64) *ECGGenerator {
	return &ECGGenerator{
		rng:        rng,
		sampleRate: float64(sampleRate),
		period:     60 / heartRate,
		steps:      steps,
		wander:     defaultWander,
	}
}

func (g *ECGGenerator) SetWander(amplitude float64) {
	g.wander = amplitude
}

func (g *ECGGenerator) SetMains(amplitude float64) {
	g.mains = amplitude
}

func (g *ECGGenerator) SetNoise(sigma float64) {
	g.noise = sigma
}

// Voltage is the electrode voltage at sample n.
func (g *ECGGenerator) Voltage(n int64) float64 {
	t := float64(n) / g.sampleRate
	tt := math.Mod(t, g.period)

	var v float64
	for _, w := range pqrst {
		z := (tt - w.center) / w.width
		v += w.amplitude * math.Exp(-0.5*z*z)
	}
	v += g.wander * math.Sin(2*math.Pi*wanderFreq*t)
	v += g.mains * math.Sin(2*math.Pi*mainsFreq*t)
	if g.noise > 0 && g.rng != nil {
		v += g.noise * g.rng.NormFloat64()
	}
	return v
}

func (g *ECGGenerator) GetNext() (uint16, error) {
	if g.steps > 0 && g.t >= g.steps {
		return 0, datasource.ErrEof
	}
	code := dsp.Code(g.Voltage(g.t))
	g.t++
	return code, nil
}

// BeatIndex is the sample index of the R peak of beat k.
func (g *ECGGenerator) BeatIndex(k int) int64 {
	return int64(math.Round((float64(k)*g.period + pqrst[2].center) * g.sampleRate))
}
