package pll

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func stepFor(sampleRate, baud float64) int32 {
	return int32(TicksPerCycle * baud / sampleRate)
}

func TestSignNeverFlipsOnNudge(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		step := rapid.Int32Range(1000, 1<<28).Draw(t, "step")
		inertiaLocked := rapid.Float64Range(0.5, 0.999).Draw(t, "locked")
		inertiaSearch := rapid.Float64Range(0.5, 0.999).Draw(t, "searching")

		s := New(Config{
			StepPerSample:    step,
			LockedInertia:    inertiaLocked,
			SearchingInertia: inertiaSearch,
			Mode:             NudgeMultiply,
			DCD:              GenericDCDConfig(),
		})

		bit := false
		for i := 0; i < 2000; i++ {
			before := int32(uint32(s.phase) + uint32(step))
			if i%7 == 0 {
				bit = !bit
			}
			s.Step(boolToF(bit), bit, 1.0)
			after := s.phase
			// A nudge only multiplies toward zero or leaves phase as-is;
			// it must never change sign relative to its value right
			// after the per-sample increment.
			if sign(before) != 0 && sign(after) != 0 {
				require.Equal(t, sign(before), sign(after))
			}
		}
	})
}

func sign(v int32) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func boolToF(b bool) float64 {
	if b {
		return 1
	}
	return -1
}

func TestSymbolRateConvergence(t *testing.T) {
	const sampleRate = 44100.0
	const baud = 1200.0
	step := stepFor(sampleRate, baud)

	s := New(Config{
		StepPerSample:    step,
		LockedInertia:    0.9,
		SearchingInertia: 0.7,
		Mode:             NudgeMultiply,
		DCD:              GenericDCDConfig(),
	})

	bit := false
	samples := 0
	symbols := 0
	const targetSymbols = 2000
	for symbols < targetSymbols {
		samples++
		// alternating mark/space: a transition every symbol
		if int(float64(samples)*baud/sampleRate) != int(float64(samples-1)*baud/sampleRate) {
			bit = !bit
		}
		ev := s.Step(boolToF(bit), bit, 1.0)
		if ev != nil {
			symbols++
		}
	}

	got := float64(samples) / float64(symbols)
	want := sampleRate / baud
	assert.InEpsilon(t, want, got, 0.005)
}

func TestDCDLocksOnRepeatedTransitions(t *testing.T) {
	const sampleRate = 44100.0
	const baud = 1200.0
	step := stepFor(sampleRate, baud)

	s := New(Config{
		StepPerSample:    step,
		LockedInertia:    0.74,
		SearchingInertia: 0.5,
		Mode:             NudgeMultiply,
		DCD:              GenericDCDConfig(),
	})

	bit := false
	lockedAtSymbol := -1
	symbols := 0
	for i := 0; i < int(sampleRate*2); i++ {
		// one transition per symbol period
		if i > 0 && int(float64(i)*baud/sampleRate) != int(float64(i-1)*baud/sampleRate) {
			bit = !bit
		}
		ev := s.Step(boolToF(bit), bit, 1.0)
		if ev != nil {
			symbols++
			if ev.DCDLocked && lockedAtSymbol < 0 {
				lockedAtSymbol = symbols
			}
		}
	}
	require.GreaterOrEqual(t, lockedAtSymbol, 0, "DCD never locked")
	assert.LessOrEqual(t, lockedAtSymbol, 256)
}

func TestFloorInt32MatchesMathFloor(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := rapid.Float64Range(-1e9, 1e9).Draw(t, "f")
		got := floorInt32(f)
		want := math.Floor(f)
		assert.InDelta(t, want, float64(got), 1.0)
	})
}
