package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestGenLowpassUnityDCGain(t *testing.T) {
	taps := make([]float64, 63)
	GenLowpass(0.1, taps, Hamming)
	var sum float64
	for _, v := range taps {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestGenBandpassUnityCenterGain(t *testing.T) {
	taps := make([]float64, 101)
	f1, f2 := 0.08, 0.16
	GenBandpass(f1, f2, taps, Blackman)

	center := (f1 + f2) / 2
	n := len(taps)
	c := float64(n-1) / 2.0
	omega := 2 * math.Pi * center
	var gain float64
	for j, v := range taps {
		gain += 2 * v * math.Cos((float64(j)-c)*omega)
	}
	assert.InDelta(t, 1.0, gain, 1e-6)
}

// TestCorrelatorUnitGain checks that a bandpass kernel fed a pure sine
// at its center frequency settles to magnitude 1 after the filter's
// transient has flushed through.
func TestCorrelatorUnitGain(t *testing.T) {
	const sampleRate = 44100.0
	const freq = 1600.0
	fc := freq / sampleRate

	n := 201
	taps := make([]float64, n)
	GenBandpass(fc-0.01, fc+0.01, taps, Hamming)

	line := NewFilterLine(taps)
	var out float64
	samples := n*3 + 200
	for i := 0; i < samples; i++ {
		s := math.Cos(2 * math.Pi * fc * float64(i))
		out = line.PushConvolve(s)
		_ = out
	}
	// After the transient, the in-phase response magnitude should be close
	// to the input amplitude (1.0) since the kernel is gain-normalized at
	// this exact frequency.
	var maxAbs float64
	for i := 0; i < n; i++ {
		s := math.Cos(2 * math.Pi * fc * float64(samples+i))
		v := line.PushConvolve(s)
		if math.Abs(v) > maxAbs {
			maxAbs = math.Abs(v)
		}
	}
	assert.InDelta(t, 1.0, maxAbs, 0.05)
}

func TestAGCBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		agc := NewAGC(0.3, 0.01)
		samples := rapid.SliceOfN(rapid.Float64Range(-1, 1), 50, 500).Draw(t, "samples")
		for i, s := range samples {
			agc.Update(s)
			if i > len(samples)/2 { // allow warmup
				require.LessOrEqual(t, agc.Valley(), s+1e-9)
				require.GreaterOrEqual(t, agc.Peak(), s-1e-9)
			}
		}
	})
}

func TestGenRRCUnitPeak(t *testing.T) {
	taps := make([]float64, 89)
	GenRRC(taps, 0.35, 8)
	var peak float64
	for _, v := range taps {
		if math.Abs(v) > peak {
			peak = math.Abs(v)
		}
	}
	assert.InDelta(t, 1.0, peak, 1e-9)
}

func TestTapsForWidthClampsToMax(t *testing.T) {
	n := TapsForWidth(100, 44100.0/300.0)
	assert.LessOrEqual(t, n, MaxFilterTaps)
	assert.Equal(t, 1, n%2)
}
