package dsp

import "math"

// AGC tracks the peak and valley of a signal envelope with independent
// attack and decay rates: a fast-attack/slow-decay pair for slicing and
// a separate quick-attack/sluggish-decay pair for signal-level
// reporting are both the same shape, just parameterized differently, so
// one type serves both roles.
type AGC struct {
	attack float64 // toward a new peak/valley, 0..1, larger = faster
	decay  float64 // toward the midpoint when no new extreme is seen

	peak   float64
	valley float64
}

// NewAGC constructs an envelope tracker. attack and decay are the
// per-sample blend factors: attack should be close to 1 (snap quickly to
// a bigger extreme) and decay should be small (drift back slowly).
func NewAGC(attack, decay float64) *AGC {
	return &AGC{attack: attack, decay: decay}
}

// Process pushes one sample through the envelope tracker and returns the
// input normalized to roughly [-0.5, +0.5] using the current peak/valley
// (the "normalizing" branch used by the single-slicer AFSK/9600 path).
func (a *AGC) Process(in float64) float64 {
	a.update(in)
	span := a.peak - a.valley
	if span <= 0 {
		return 0
	}
	return (in-a.valley)/span - 0.5
}

// Update advances the envelope without normalizing, for callers (like
// signal-level reporting) that only need the raw peak/valley afterward.
func (a *AGC) Update(in float64) {
	a.update(in)
}

func (a *AGC) update(in float64) {
	if in >= a.peak {
		a.peak = in*a.attack + a.peak*(1-a.attack)
	} else {
		a.peak = in*a.decay + a.peak*(1-a.decay)
	}
	if in <= a.valley {
		a.valley = in*a.attack + a.valley*(1-a.attack)
	} else {
		a.valley = in*a.decay + a.valley*(1-a.decay)
	}
}

// Peak and Valley report the current envelope bounds. After warmup,
// Valley() <= in <= Peak() for every subsequent sample.
func (a *AGC) Peak() float64   { return a.peak }
func (a *AGC) Valley() float64 { return a.valley }

// Amplitude reports half the peak-to-valley span, a measure of signal
// strength independent of DC offset.
func (a *AGC) Amplitude() float64 {
	return (a.peak - a.valley) / 2
}

// Hypot is the exact magnitude function, kept in place of a fast
// approximation until profiling shows a need for one.
func Hypot(i, q float64) float64 {
	return math.Hypot(i, q)
}
