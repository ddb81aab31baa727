// Package psk implements the QPSK (V.26-style) and 8-PSK (V.27-style)
// differential phase demodulators: self-correlation and local-oscillator
// front ends feeding a shared Gray-coded phase-shift classifier and the
// common DPLL. No bandpass prefilter is applied: the *Filtered front-end
// values process samples exactly like their unfiltered counterparts.
package psk

import (
	"math"

	"github.com/kf5zzy/modemcore/dsp"
	"github.com/kf5zzy/modemcore/pll"
)

// Frontend selects how the inter-symbol phase shift is recovered.
type Frontend int

const (
	SelfCorrelation         Frontend = iota // profiles P, T
	SelfCorrelationFiltered                 // profiles Q, U
	LocalOscillator                         // profiles R, V
	LocalOscillatorFiltered                 // profiles S, W
)

// Order is the constellation size.
type Order int

const (
	Four  Order = 4 // QPSK
	Eight Order = 8 // 8-PSK
)

// V26Variant selects the QPSK constellation bias.
type V26Variant int

const (
	V26A V26Variant = iota // classic: zero phase difference allowed
	V26B                   // MFJ-compatible variant: 45 degree bias, the common default
)

var phaseToGrayV26 = [4]int{0, 1, 3, 2}
var gray2PhaseV26 = [4]int{0, 1, 3, 2}

var phaseToGrayV27 = [8]int{1, 0, 2, 3, 7, 6, 4, 5}
var gray2PhaseV27 = [8]int{1, 0, 2, 3, 6, 7, 5, 4}

// GrayForPhase returns the Gray code for constellation index k (0..N-1).
func GrayForPhase(order Order, k int) int {
	if order == Eight {
		return phaseToGrayV27[k&7]
	}
	return phaseToGrayV26[k&3]
}

// PhaseForGray is the inverse mapping, used by the tone generator.
func PhaseForGray(order Order, g int) int {
	if order == Eight {
		return gray2PhaseV27[g&7]
	}
	return gray2PhaseV26[g&3]
}

const carrierFreq = 1800.0

// Config describes one PSK channel/subchannel.
type Config struct {
	SampleRate float64
	BitRate    float64 // total bits/second, e.g. 2400 for QPSK, 4800 for 8-PSK
	Order      Order
	Frontend   Frontend
	V26        V26Variant
	Window     dsp.Window
	LPFBaud    float64
	NumSlicers int

	LockedInertia    float64
	SearchingInertia float64
}

func bitsPerSymbol(o Order) int {
	if o == Eight {
		return 3
	}
	return 2
}

// DefaultConfig returns 2400 bps QPSK, the SelfCorrelationFiltered front
// end (no prefilter is applied, see the package doc), V26_B (the common
// default).
func DefaultConfig(sampleRate float64) Config {
	return Config{
		SampleRate:       sampleRate,
		BitRate:          2400,
		Order:            Four,
		Frontend:         SelfCorrelationFiltered,
		V26:              V26B,
		Window:           dsp.Hamming,
		LPFBaud:          0.7,
		NumSlicers:       1,
		LockedInertia:    0.74,
		SearchingInertia: 0.50,
	}
}

func (c Config) baud() float64 { return c.BitRate / float64(bitsPerSymbol(c.Order)) }

// phaseOffset returns the constant rotation applied to realign the
// constellation for the configured order/variant.
func (c Config) phaseOffset() float64 {
	if c.Order == Eight {
		return 3 * math.Pi / 2
	}
	if c.V26 == V26A {
		return -3 * math.Pi / 4
	}
	return math.Pi / 2
}

// Demod is one PSK demodulator instance.
type Demod struct {
	cfg Config
	sps float64

	// self-correlation front end
	delay       *dsp.DelayLine
	coffs       int
	soffs       int
	corrI, corrQ *dsp.FilterLine

	// local-oscillator front end
	loPhase   uint32
	loStep    uint32
	loI, loQ  *dsp.FilterLine
	aDelay    *dsp.DelayLine
	boffs     int

	slicers []*pll.Slicer
}

// New constructs a PSK demodulator.
func New(cfg Config) *Demod {
	sps := cfg.SampleRate / cfg.baud()
	d := &Demod{cfg: cfg, sps: sps}

	lpTaps := make([]float64, dsp.TapsForWidth(2.0, sps))
	dsp.GenLowpass(cfg.LPFBaud*cfg.baud()/cfg.SampleRate, lpTaps, cfg.Window)

	switch cfg.Frontend {
	case SelfCorrelation, SelfCorrelationFiltered:
		delayLen := int(1.25*sps + 0.5)
		if delayLen < 2 {
			delayLen = 2
		}
		d.delay = dsp.NewDelayLine(delayLen)
		d.coffs = int(11.0 / 12.0 * sps)
		d.soffs = int(13.0 / 12.0 * sps)
		if d.coffs >= delayLen {
			d.coffs = delayLen - 1
		}
		if d.soffs >= delayLen {
			d.soffs = delayLen - 1
		}
		d.corrI = dsp.NewFilterLine(lpTaps)
		d.corrQ = dsp.NewFilterLine(lpTaps)
	default:
		d.loStep = uint32(math.Round((1 << 32) * carrierFreq / cfg.SampleRate))
		d.loI = dsp.NewFilterLine(lpTaps)
		d.loQ = dsp.NewFilterLine(lpTaps)
		boffs := int(sps + 0.5)
		if boffs < 1 {
			boffs = 1
		}
		d.boffs = boffs
		d.aDelay = dsp.NewDelayLine(boffs + 1)
	}

	n := cfg.NumSlicers
	if n < 1 {
		n = 1
	}
	step := int32(pll.TicksPerCycle * cfg.baud() / cfg.SampleRate)
	dcd := pll.GenericDCDConfig()
	d.slicers = make([]*pll.Slicer, n)
	for i := range d.slicers {
		d.slicers[i] = pll.New(pll.Config{
			StepPerSample:    step,
			LockedInertia:    cfg.LockedInertia,
			SearchingInertia: cfg.SearchingInertia,
			Mode:             pll.NudgeMultiply,
			DCD:              dcd,
		})
	}
	return d
}

// SymbolEvent is emitted once per recovered symbol on a given slicer: the
// PLL event plus the full set of Gray-decoded bits and their qualities.
type SymbolEvent struct {
	SlicerIndex int
	PLL         *pll.Event
	Bits        []bool
	Qualities   []int
}

// ProcessSample runs one audio sample through the demodulator.
func (d *Demod) ProcessSample(sample float64) []SymbolEvent {
	phi := d.phaseShift(sample)
	phi += d.cfg.phaseOffset()
	phi = wrap2Pi(phi)

	bits, quals := classify(phi, d.cfg.Order)

	// Feed the DPLL a continuous scalar derived from the first (least
	// significant) soft bit: its sign change marks the symbol transitions the DPLL
	// locks onto, independent of how many bits the symbol carries.
	demodOut := float64(quals[0]) / 100.0
	if !bits[0] {
		demodOut = -demodOut
	}
	bit := bits[0]

	var out []SymbolEvent
	for i, s := range d.slicers {
		if ev := s.Step(demodOut, bit, 1.0); ev != nil {
			out = append(out, SymbolEvent{SlicerIndex: i, PLL: ev, Bits: bits, Qualities: quals})
		}
	}
	return out
}

func (d *Demod) phaseShift(sample float64) float64 {
	switch d.cfg.Frontend {
	case SelfCorrelation, SelfCorrelationFiltered:
		cProd := sample * d.delay.At(d.coffs)
		sProd := sample * d.delay.At(d.soffs)
		d.delay.Push(sample)
		i := d.corrI.PushConvolve(cProd)
		q := d.corrQ.PushConvolve(sProd)
		return math.Atan2(i, q)
	default:
		d.loPhase += d.loStep
		angle := 2 * math.Pi * float64(d.loPhase) / (1 << 32)
		i := d.loI.PushConvolve(sample * math.Cos(angle))
		q := d.loQ.PushConvolve(sample * math.Sin(angle))
		a := math.Atan2(i, q)
		prior := d.aDelay.At(d.boffs - 1)
		d.aDelay.Push(a)
		return unwrapDiff(a, prior)
	}
}

func unwrapDiff(a, prior float64) float64 {
	d := a - prior
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	for d < -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

func wrap2Pi(a float64) float64 {
	for a < 0 {
		a += 2 * math.Pi
	}
	for a >= 2*math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// classify maps a phase shift (radians, [0, 2pi)) to the bitsPerSymbol
// soft-decided bits and per-bit qualities, per the linear interpolation
// between adjacent Gray-coded constellation points described in the
// spec.
func classify(phi float64, order Order) ([]bool, []int) {
	n := int(order)
	s := phi * float64(n) / (2 * math.Pi)
	i := int(math.Floor(s))
	f := s - math.Floor(s)
	i0 := ((i % n) + n) % n
	i1 := (i0 + 1) % n

	g0 := GrayForPhase(order, i0)
	g1 := GrayForPhase(order, i1)

	nb := bitsPerSymbol(order)
	bits := make([]bool, nb)
	quals := make([]int, nb)
	for b := 0; b < nb; b++ {
		v0 := float64((g0 >> b) & 1)
		v1 := float64((g1 >> b) & 1)
		soft := v0*(1-f) + v1*f
		bits[b] = soft > 0.5
		q := int(math.Round(100 * 2 * math.Abs(soft-0.5)))
		if q > 100 {
			q = 100
		}
		quals[b] = q
	}
	return bits, quals
}

