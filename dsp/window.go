// Package dsp provides the filter-design and common signal-processing
// primitives shared by every demodulator and generator in modemcore:
// window functions, FIR/RRC kernel generation, a fixed-capacity
// convolution ring buffer, and automatic gain control.
package dsp

import "math"

// Window selects the taper applied to a windowed-sinc FIR kernel before
// normalization. Types outside this enumeration are treated as Truncated.
type Window int

const (
	Truncated Window = iota
	Cosine
	Hamming
	Blackman
	Flattop
)

// MaxFilterTaps bounds every fixed-capacity kernel and ring buffer in the
// package. 480 taps holds the 2-symbol lowpass at 300 baud / 44100 Hz;
// longer requests (such as the 8-symbol AFSK prefilter at that rate) are
// clamped by TapsForWidth.
const MaxFilterTaps = 480

// weight returns the window multiplier for tap j of an N-tap kernel,
// using symmetric indexing around the center c = (N-1)/2.
func weight(win Window, j, n int) float64 {
	c := float64(n-1) / 2.0
	x := float64(j) - c
	switch win {
	case Cosine:
		return math.Cos(x / float64(n) * math.Pi)
	case Hamming:
		return 0.54 + 0.46*math.Cos(x/float64(n)*2*math.Pi)
	case Blackman:
		return 0.42 + 0.5*math.Cos(x/float64(n)*2*math.Pi) + 0.08*math.Cos(x/float64(n)*4*math.Pi)
	case Flattop:
		// Matched to the five-term flat-top window used for the widest
		// mainlobe / best amplitude accuracy of the supported windows.
		a0, a1, a2, a3, a4 := 0.21557895, 0.41663158, 0.277263158, 0.083578947, 0.006947368
		theta := x / float64(n) * 2 * math.Pi
		return a0 - a1*math.Cos(theta) + a2*math.Cos(2*theta) - a3*math.Cos(3*theta) + a4*math.Cos(4*theta)
	default: // Truncated
		return 1.0
	}
}
