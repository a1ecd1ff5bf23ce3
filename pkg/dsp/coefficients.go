package dsp

// SampleRate is the only rate the coefficient tables below are designed for. Running
// the cascade at any other rate shifts every corner frequency proportionally.
const SampleRate = 200

// Second-order Butterworth sections, 200 Hz.
var (
	HighPass12Hz = BiquadCoefficients{B0: 0.7656, B1: -1.531, B2: 0.7656, A1: -1.476, A2: 0.587}
	LowPass20Hz  = BiquadCoefficients{B0: 0.06744, B1: 0.1349, B2: 0.06744, A1: -1.143, A2: 0.4128}

	HighPass05Hz = BiquadCoefficients{B0: 0.98895425, B1: -1.97790850, B2: 0.98895425, A1: -1.97778648, A2: 0.97803051}
	LowPass40Hz  = BiquadCoefficients{B0: 0.20657208, B1: 0.41314417, B2: 0.20657208, A1: -0.36952738, A2: 0.19581571}

	// Pole radius 0.95, unity gain at DC.
	Notch60Hz = BiquadCoefficients{B0: 0.95095492, B1: 0.58772246, B2: 0.95095492, A1: 0.58713229, A2: 0.9025}
)

// Five-point derivative, (x[n] + 2x[n-1] - 2x[n-3] - x[n-4]) / 8. Taps are indexed by delay.
var DerivativeTaps = []float64{0.125, 0.25, 0, -0.25, -0.125}

// MovingAverageLength covers 75 ms, about one QRS width at 200 Hz.
const MovingAverageLength = 15

func MovingAverageTaps(n int) []float64 {
	taps := make([]float64, n)
	for i := range taps {
		taps[i] = 1 / float64(n)
	}
	return taps
}
