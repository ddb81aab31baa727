// Package afsk implements the two mandatory AFSK demodulator profiles:
// a coherent I/Q correlator (profile A, the default above 600 baud) and
// an FM-discriminator alternative (profile B), both feeding a shared
// DPLL/slicer per output slice.
package afsk

import (
	"math"

	"github.com/kf5zzy/modemcore/dsp"
	"github.com/kf5zzy/modemcore/pll"
)

// Profile selects the demodulation strategy.
type Profile int

const (
	Coherent Profile = iota
	FMDiscriminator
)

// sinTable256 is a shared 256-entry sine table (one entry per 1.40625
// degrees of a full cycle) indexed by
// the top 8 bits of a 32-bit oscillator phase, avoiding a sin() call on
// every audio sample.
var sinTable256 [256]float64
var cosTable256 [256]float64

func init() {
	for i := range sinTable256 {
		angle := 2 * math.Pi * float64(i) / 256
		sinTable256[i] = math.Sin(angle)
		cosTable256[i] = math.Cos(angle)
	}
}

func tableSin(phase uint32) float64 { return sinTable256[phase>>24] }
func tableCos(phase uint32) float64 { return cosTable256[phase>>24] }

func oscDelta(freq, sampleRate float64) uint32 {
	return uint32(math.Round((1 << 32) * freq / sampleRate))
}

// Config describes one AFSK channel/subchannel.
type Config struct {
	SampleRate float64
	Baud       float64
	MarkFreq   float64
	SpaceFreq  float64
	Profile    Profile

	UsePrefilter bool
	Window       dsp.Window

	UseRRC       bool
	LPFBaud      float64 // lowpass cutoff as a fraction of baud (generic FIR path)
	RRCWidthSym  float64
	RRCRolloff   float64

	NumSlicers int
	Hysteresis float64

	LockedInertia    float64
	SearchingInertia float64
}

// DefaultConfig returns the classic 1200/2200 Hz, 1200 baud channel with
// profile A and a single slicer.
func DefaultConfig(sampleRate float64) Config {
	return Config{
		SampleRate:       sampleRate,
		Baud:             1200,
		MarkFreq:         1200,
		SpaceFreq:        2200,
		Profile:          Coherent,
		UsePrefilter:     true,
		Window:           dsp.Truncated,
		UseRRC:           false,
		LPFBaud:          0.14,
		RRCWidthSym:      2.8,
		RRCRolloff:       0.2,
		NumSlicers:       1,
		Hysteresis:       0.0,
		LockedInertia:    0.74,
		SearchingInertia: 0.50,
	}
}

// Demod is one AFSK demodulator instance (one channel/subchannel).
type Demod struct {
	cfg Config

	prefilter *dsp.FilterLine

	mOscPhase, mOscDelta uint32
	sOscPhase, sOscDelta uint32
	cOscPhase, cOscDelta uint32 // profile B center-frequency oscillator

	mI, mQ, sI, sQ *dsp.FilterLine // profile A
	cI, cQ         *dsp.FilterLine // profile B

	mAGC, sAGC *dsp.AGC // per-tone amplitude AGC, normalizing branch
	levelMark  *dsp.AGC // quick/sluggish reporting envelopes
	levelSpace *dsp.AGC
	levelRec   *dsp.AGC

	prevPhase float64 // profile B: previous instantaneous phase
	havePhase bool

	lastMAmp, lastSAmp float64 // cached per-tone amplitudes for the multi-slicer path

	prevBit []bool

	slicers []*pll.Slicer
}

// New constructs a demodulator for the given config.
func New(cfg Config) *Demod {
	sps := cfg.SampleRate / cfg.Baud

	d := &Demod{cfg: cfg}
	d.mOscDelta = oscDelta(cfg.MarkFreq, cfg.SampleRate)
	d.sOscDelta = oscDelta(cfg.SpaceFreq, cfg.SampleRate)
	centerFreq := (cfg.MarkFreq + cfg.SpaceFreq) / 2
	d.cOscDelta = oscDelta(centerFreq, cfg.SampleRate)

	if cfg.UsePrefilter {
		lo := math.Min(cfg.MarkFreq, cfg.SpaceFreq) - 0.15*cfg.Baud
		hi := math.Max(cfg.MarkFreq, cfg.SpaceFreq) + 0.15*cfg.Baud
		n := dsp.TapsForWidth(8, sps)
		taps := make([]float64, n)
		dsp.GenBandpass(lo/cfg.SampleRate, hi/cfg.SampleRate, taps, cfg.Window)
		d.prefilter = dsp.NewFilterLine(taps)
	}

	lpTaps := d.lowpassKernel(sps)
	d.mI = dsp.NewFilterLine(lpTaps)
	d.mQ = dsp.NewFilterLine(lpTaps)
	d.sI = dsp.NewFilterLine(lpTaps)
	d.sQ = dsp.NewFilterLine(lpTaps)
	d.cI = dsp.NewFilterLine(lpTaps)
	d.cQ = dsp.NewFilterLine(lpTaps)

	d.mAGC = dsp.NewAGC(0.5, 0.01)
	d.sAGC = dsp.NewAGC(0.5, 0.01)
	d.levelMark = dsp.NewAGC(0.1, 0.001)
	d.levelSpace = dsp.NewAGC(0.1, 0.001)
	d.levelRec = dsp.NewAGC(0.1, 0.001)

	n := cfg.NumSlicers
	if n < 1 {
		n = 1
	}
	d.prevBit = make([]bool, n)
	d.slicers = make([]*pll.Slicer, n)
	step := int32(pll.TicksPerCycle * cfg.Baud / cfg.SampleRate)
	dcd := pll.GenericDCDConfig()
	for i := 0; i < n; i++ {
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

func (d *Demod) lowpassKernel(sps float64) []float64 {
	if d.cfg.UseRRC {
		n := dsp.TapsForWidth(d.cfg.RRCWidthSym, sps)
		taps := make([]float64, n)
		dsp.GenRRC(taps, d.cfg.RRCRolloff, sps)
		return taps
	}
	n := dsp.TapsForWidth(2.0, sps)
	taps := make([]float64, n)
	dsp.GenLowpass(d.cfg.LPFBaud*d.cfg.Baud/d.cfg.SampleRate, taps, d.cfg.Window)
	return taps
}

// Result carries one slicer's output for this audio sample.
type Result struct {
	SlicerIndex int
	Event       *pll.Event
}

// ProcessSample runs one audio sample (normalized to roughly [-1,1])
// through the demodulator and every configured slicer. It returns one
// entry per slicer whose DPLL overflowed this sample (usually none).
func (d *Demod) ProcessSample(sample float64) []Result {
	d.levelRec.Update(sample)

	in := sample
	if d.prefilter != nil {
		in = d.prefilter.PushConvolve(sample)
	}

	var demodOut float64
	var amplitude float64

	switch d.cfg.Profile {
	case FMDiscriminator:
		demodOut, amplitude = d.processFM(in)
	default:
		demodOut, amplitude = d.processCoherent(in)
	}

	var results []Result
	for i, s := range d.slicers {
		out := demodOut
		if d.cfg.Profile == Coherent && len(d.slicers) > 1 {
			spaceGain := spaceGainForSlice(i, len(d.slicers))
			out = d.lastMAmp - d.lastSAmp*spaceGain
		} else if d.cfg.Profile == FMDiscriminator && len(d.slicers) > 1 {
			frac := (float64(i)/float64(len(d.slicers)-1) - 0.5)
			out = demodOut + frac
		}

		bit := out > 0
		if math.Abs(out) < d.cfg.Hysteresis {
			bit = d.prevBit[i]
		}
		d.prevBit[i] = bit

		if ev := s.Step(out, bit, amplitude); ev != nil {
			results = append(results, Result{SlicerIndex: i, Event: ev})
		}
	}
	return results
}

func (d *Demod) processCoherent(in float64) (demodOut float64, amplitude float64) {
	d.mOscPhase += d.mOscDelta
	d.sOscPhase += d.sOscDelta

	mI := d.mI.PushConvolve(in * tableCos(d.mOscPhase))
	mQ := d.mQ.PushConvolve(in * tableSin(d.mOscPhase))
	sI := d.sI.PushConvolve(in * tableCos(d.sOscPhase))
	sQ := d.sQ.PushConvolve(in * tableSin(d.sOscPhase))

	mAmp := dsp.Hypot(mI, mQ)
	sAmp := dsp.Hypot(sI, sQ)
	d.lastMAmp = mAmp
	d.lastSAmp = sAmp

	d.levelMark.Update(mAmp)
	d.levelSpace.Update(sAmp)

	mNorm := d.mAGC.Process(mAmp)
	sNorm := d.sAGC.Process(sAmp)

	amplitude = (d.mAGC.Amplitude() + d.sAGC.Amplitude())
	return mNorm - sNorm, amplitude
}

func (d *Demod) processFM(in float64) (demodOut float64, amplitude float64) {
	d.cOscPhase += d.cOscDelta
	cI := d.cI.PushConvolve(in * tableCos(d.cOscPhase))
	cQ := d.cQ.PushConvolve(in * tableSin(d.cOscPhase))

	phase := math.Atan2(cQ, cI)
	if !d.havePhase {
		d.prevPhase = phase
		d.havePhase = true
	}
	rate := unwrap(phase - d.prevPhase)
	d.prevPhase = phase

	denom := 0.5 * math.Abs(d.cfg.MarkFreq-d.cfg.SpaceFreq) * 2 * math.Pi
	norm := rate * (d.cfg.SampleRate / denom)

	amp := dsp.Hypot(cI, cQ)
	d.levelMark.Update(amp)
	amplitude = amp
	return norm, amplitude
}

func unwrap(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// spaceGainForSlice returns a geometric progression from 0.5 to 4.0
// across the configured number of slicers, per the multi-slicer AFSK
// fan-out.
func spaceGainForSlice(i, n int) float64 {
	const lo, hi = 0.5, 4.0
	if n <= 1 {
		return 1.0
	}
	t := float64(i) / float64(n-1)
	return lo * math.Pow(hi/lo, t)
}

// AudioLevel reports the long-term received/mark/space envelope peaks,
// scaled to approximately 0..100, for the dispatcher's reporting API.
func (d *Demod) AudioLevel() (rec, mark, space float64) {
	return d.levelRec.Amplitude() * 100, d.levelMark.Amplitude() * 100, d.levelSpace.Amplitude() * 100
}
