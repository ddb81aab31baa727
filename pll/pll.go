// Package pll implements the shared digital phase-locked loop, slicer,
// and data-carrier-detect scoring that every demodulator (AFSK, PSK,
// G3RUH baseband) feeds into. There is exactly one implementation of
// this logic; demodulators differ only in how they compute the
// continuous demod_out value and bit decision each sample.
package pll

import "math/bits"

// TicksPerCycle is the span of the 32-bit phase accumulator, matching
// a full 32-bit phase cycle, 256^4.
const TicksPerCycle = 256.0 * 256.0 * 256.0 * 256.0

// NudgeMode selects how a slicer reacts to a mid-symbol bit transition.
type NudgeMode int

const (
	// NudgeMultiply scales the phase toward zero by the active inertia
	// factor, used by AFSK and PSK.
	NudgeMultiply NudgeMode = iota
	// NudgeInterpolate computes a linear zero-crossing estimate of the
	// true transition instant and blends toward it, used by the G3RUH
	// baseband demodulator.
	NudgeInterpolate
)

// DCDConfig tunes the data-carrier-detect scoring window. GenericDCDConfig
// is the 1200 bps AFSK default; 9600 baud uses wider/stricter values (see
// the baseband package).
type DCDConfig struct {
	ThreshOn   int     // popcount(score) >= ThreshOn locks DCD
	ThreshOff  int     // popcount(score) <= ThreshOff drops DCD
	GoodWidth  int32   // transitions within +/- GoodWidth*1024*1024 of 0 are "good"
}

// GenericDCDConfig returns the values good for 1200 bps AFSK: hysteresis
// that can miss 2 out of 32 symbols for detecting lock.
func GenericDCDConfig() DCDConfig {
	return DCDConfig{ThreshOn: 30, ThreshOff: 6, GoodWidth: 512}
}

// Config parameterizes a Slicer at construction time.
type Config struct {
	StepPerSample    int32 // advance per audio sample; data sampled on overflow
	LockedInertia    float64
	SearchingInertia float64
	Mode             NudgeMode
	DCD              DCDConfig
}

// Event is emitted once per recovered symbol (on DPLL overflow).
type Event struct {
	Bit        bool
	Quality    int // 0..100, slicing margin, or -1 if unavailable
	DCDChanged bool
	DCDLocked  bool
}

// Slicer is the per-(channel,subchannel,slice) DPLL + DCD state.
type Slicer struct {
	cfg Config

	phase     int32
	prevPhase int32

	prevBit        bool
	havePrevBit    bool
	prevDemodOut   float64
	haveDemodOut   bool

	lfsr uint32 // descrambler shift register, used only by baseband callers

	goodFlag, badFlag   bool
	goodHist, badHist   uint8
	score               uint32
	dataDetect          bool

	symbolCount int
	nudgeTotal  int64
}

// New constructs a slicer at rest (phase zero, not locked).
func New(cfg Config) *Slicer {
	return &Slicer{cfg: cfg}
}

// SetStepPerSample updates the per-sample phase increment, e.g. after a
// decimation-ratio change.
func (s *Slicer) SetStepPerSample(step int32) { s.cfg.StepPerSample = step }

// LFSR exposes the descrambler shift register kept in the slicer record
// per the reference layout. No demodulator in this module reads or sets
// it: the baseband package keeps its own per-slicer descrambler registers.
func (s *Slicer) LFSR() uint32     { return s.lfsr }
func (s *Slicer) SetLFSR(v uint32) { s.lfsr = v }

// DataDetect reports the current DCD state.
func (s *Slicer) DataDetect() bool { return s.dataDetect }

// SymbolStats returns the number of symbols and the accumulated nudge
// total since the last call to ResetSymbolStats, letting a caller
// estimate measured-vs-nominal baud drift (reference's
// pll_symbol_count / pll_nudge_total, cleared once per frame there).
func (s *Slicer) SymbolStats() (count int, nudgeTotal int64) {
	return s.symbolCount, s.nudgeTotal
}

// ResetSymbolStats clears the running symbol-rate accumulators, typically
// called at the start of a new frame.
func (s *Slicer) ResetSymbolStats() {
	s.symbolCount = 0
	s.nudgeTotal = 0
}

// Step advances the DPLL by one audio sample. demodOut is the
// demodulator's continuous discriminant for this sample; bit is the
// slicer's hard decision for this sample (already hysteresis-applied by
// the caller); amplitude is the current envelope amplitude used to scale
// quality (0 disables quality reporting, which is then reported as -1).
//
// It returns a non-nil Event exactly when a symbol was sampled this
// audio sample (i.e. the phase accumulator overflowed).
func (s *Slicer) Step(demodOut float64, bit bool, amplitude float64) *Event {
	s.prevPhase = s.phase
	// Advance in unsigned 32-bit arithmetic to avoid relying on
	// implementation-defined signed overflow, then reinterpret the bit
	// pattern as signed for the overflow test.
	s.phase = int32(uint32(s.phase) + uint32(s.cfg.StepPerSample))

	var ev *Event
	if s.overflowed() {
		quality := -1
		if amplitude > 0 {
			q := int(100 * absf(demodOut) / amplitude)
			if q > 100 {
				q = 100
			}
			if q < 0 {
				q = 0
			}
			quality = q
		}
		dcdChanged, dcdLocked := s.symbolBoundary()
		ev = &Event{Bit: bit, Quality: quality, DCDChanged: dcdChanged, DCDLocked: dcdLocked}
		s.symbolCount++
	}

	if s.havePrevBit && bit != s.prevBit {
		s.onTransition()
		s.nudge(demodOut)
	}

	s.prevBit = bit
	s.havePrevBit = true
	s.prevDemodOut = demodOut
	s.haveDemodOut = true

	return ev
}

func (s *Slicer) overflowed() bool {
	switch s.cfg.Mode {
	case NudgeInterpolate:
		// 9600 baud path tolerates sub-sample wrap jitter: test against
		// a wide band around the wrap point rather than the exact sign
		// flip used by AFSK/PSK.
		return s.prevPhase > 1_000_000_000 && s.phase < -1_000_000_000
	default:
		return s.phase < 0 && s.prevPhase > 0
	}
}

// onTransition records whether this transition landed near the expected
// symbol boundary (a "good" transition) or not, for DCD scoring. It does
// not itself touch the history/score; that happens once per symbol in
// symbolBoundary, mirroring pll_dcd_signal_transition2 vs.
// pll_dcd_each_symbol2 in the reference.
func (s *Slicer) onTransition() {
	width := int64(s.cfg.DCD.GoodWidth) * 1024 * 1024
	if int64(s.phase) > -width && int64(s.phase) < width {
		s.goodFlag = true
	} else {
		s.badFlag = true
	}
}

func (s *Slicer) nudge(demodOut float64) {
	var inertia float64
	if s.dataDetect {
		inertia = s.cfg.LockedInertia
	} else {
		inertia = s.cfg.SearchingInertia
	}

	var before = s.phase
	switch s.cfg.Mode {
	case NudgeInterpolate:
		if s.haveDemodOut && demodOut != s.prevDemodOut {
			target := float64(s.cfg.StepPerSample) * demodOut / (demodOut - s.prevDemodOut)
			blended := float64(s.phase)*inertia + target*(1-inertia)
			s.phase = floorInt32(blended)
		}
	default:
		blended := float64(s.phase) * inertia
		s.phase = floorInt32(blended)
	}
	s.nudgeTotal += int64(s.phase) - int64(before)
}

// symbolBoundary runs the once-per-symbol DCD scoring step: shift the
// good/bad histories, update the rolling score, and flip data_detect if
// it crosses a threshold.
func (s *Slicer) symbolBoundary() (changed bool, locked bool) {
	s.goodHist <<= 1
	if s.goodFlag {
		s.goodHist |= 1
	}
	s.goodFlag = false

	s.badHist <<= 1
	if s.badFlag {
		s.badHist |= 1
	}
	s.badFlag = false

	s.score <<= 1
	good := bits.OnesCount8(s.goodHist)
	bad := bits.OnesCount8(s.badHist)
	if good-bad >= 2 {
		s.score |= 1
	}

	scoreBits := bits.OnesCount32(s.score)
	switch {
	case !s.dataDetect && scoreBits >= s.cfg.DCD.ThreshOn:
		s.dataDetect = true
		return true, true
	case s.dataDetect && scoreBits <= s.cfg.DCD.ThreshOff:
		s.dataDetect = false
		return true, false
	}
	return false, s.dataDetect
}

func floorInt32(f float64) int32 {
	i := int64(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return int32(i)
}

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
