// Package baseband implements the 9600 baud (and faster) G3RUH-style
// demodulator: a polyphase FIR upsampler, AGC, zero-crossing slicer, and
// the 17-bit self-synchronizing descrambler, feeding the shared DPLL
// using its interpolating nudge mode.
package baseband

import (
	"github.com/kf5zzy/modemcore/dsp"
	"github.com/kf5zzy/modemcore/pll"
)

// Scrambled selects whether the bit stream is G3RUH-descrambled after
// slicing (MODEM_SCRAMBLE) or passed through raw (plain baseband / AIS).
type Scrambled bool

const (
	Raw       Scrambled = false
	Descramble Scrambled = true
)

// Config describes one 9600-class channel/subchannel.
type Config struct {
	SampleRate float64
	Baud       float64
	Upsample   int // 2, 3, or 4; 0 means "choose automatically"
	Scrambled  Scrambled
	LPFBaud    float64 // cutoff as a fraction of baud at the upsampled rate, ~1.0
	NumSlicers int

	LockedInertia    float64
	SearchingInertia float64
}

// DefaultConfig returns the classic 9600 bps scrambled G3RUH channel.
func DefaultConfig(sampleRate float64) Config {
	return Config{
		SampleRate:       sampleRate,
		Baud:             9600,
		Upsample:         chooseUpsample(sampleRate, 9600),
		Scrambled:        Descramble,
		LPFBaud:          1.0,
		NumSlicers:       1,
		LockedInertia:    0.74,
		SearchingInertia: 0.50,
	}
}

// chooseUpsample picks the smallest integer factor (2..4) that puts at
// least 5 samples/symbol after upsampling, or 4 if none does.
func chooseUpsample(sampleRate, baud float64) int {
	for _, u := range []int{2, 3, 4} {
		if sampleRate*float64(u)/baud >= 5 {
			return u
		}
	}
	return 4
}

// Demod is one G3RUH-class demodulator instance.
type Demod struct {
	cfg Config

	raw      *dsp.FilterLine // history of incoming (non-upsampled) samples
	poly     [][]float64     // polyphase kernel, one slice per upsample phase

	agc *dsp.AGC

	descramblers []uint32 // one LFSR per slicer
	slicers      []*pll.Slicer
}

func dcd9600() pll.DCDConfig {
	return pll.DCDConfig{ThreshOn: 32, ThreshOff: 8, GoodWidth: 1024}
}

// New builds the polyphase kernel and slicer bank for cfg.
func New(cfg Config) *Demod {
	if cfg.Upsample < 1 {
		cfg.Upsample = chooseUpsample(cfg.SampleRate, cfg.Baud)
	}
	upRate := cfg.SampleRate * float64(cfg.Upsample)
	sps := upRate / cfg.Baud

	fullLen := dsp.TapsForWidth(1.0, sps)
	// Round the full kernel length up to a multiple of Upsample so the
	// polyphase split has equal-length arms.
	if rem := fullLen % cfg.Upsample; rem != 0 {
		fullLen += cfg.Upsample - rem
	}
	full := make([]float64, fullLen)
	dsp.GenLowpass(cfg.LPFBaud*cfg.Baud/upRate, full, dsp.Hamming)

	armLen := fullLen / cfg.Upsample
	poly := make([][]float64, cfg.Upsample)
	for p := 0; p < cfg.Upsample; p++ {
		arm := make([]float64, armLen)
		for j := 0; j < armLen; j++ {
			idx := j*cfg.Upsample + p
			if idx < fullLen {
				arm[j] = full[idx]
			}
		}
		poly[p] = arm
	}

	d := &Demod{cfg: cfg, poly: poly}
	d.raw = dsp.NewFilterLine(make([]float64, armLen)) // buffer only; taps unused here
	d.agc = dsp.NewAGC(0.4, 0.005)

	n := cfg.NumSlicers
	if n < 1 {
		n = 1
	}
	step := int32(pll.TicksPerCycle * cfg.Baud / upRate)
	dcd := dcd9600()
	d.slicers = make([]*pll.Slicer, n)
	d.descramblers = make([]uint32, n)
	for i := range d.slicers {
		d.slicers[i] = pll.New(pll.Config{
			StepPerSample:    step,
			LockedInertia:    cfg.LockedInertia,
			SearchingInertia: cfg.SearchingInertia,
			Mode:             pll.NudgeInterpolate,
			DCD:              dcd,
		})
	}
	return d
}

// BitEvent is one recovered data bit, already descrambled if configured.
type BitEvent struct {
	SlicerIndex int
	Bit         bool
	IsScrambled bool
	Quality     int
	DCDChanged  bool
	DCDLocked   bool
}

// ProcessSample runs one incoming (non-upsampled) audio sample through
// the polyphase interpolator and every upsampled sub-sample through the
// slicer bank. It returns zero or more bit events, in time order.
func (d *Demod) ProcessSample(sample float64) []BitEvent {
	d.raw.Push(sample)

	var events []BitEvent
	for p := 0; p < d.cfg.Upsample; p++ {
		filtered := d.raw.ConvolveWith(d.poly[p])
		events = append(events, d.processFiltered(filtered)...)
	}
	return events
}

func (d *Demod) processFiltered(sample float64) []BitEvent {
	normalized := d.agc.Process(sample)
	amplitude := d.agc.Amplitude()

	var events []BitEvent
	for i, s := range d.slicers {
		sliceLevel := sliceOffset(i, len(d.slicers))
		localBit := normalized > sliceLevel
		ev := s.Step(normalized-sliceLevel, localBit, amplitude)
		if ev == nil {
			continue
		}
		outBit := ev.Bit
		scrambled := bool(d.cfg.Scrambled)
		if scrambled {
			outBit = descramble(&d.descramblers[i], ev.Bit)
		}
		events = append(events, BitEvent{
			SlicerIndex: i,
			Bit:         outBit,
			IsScrambled: scrambled,
			Quality:     ev.Quality,
			DCDChanged:  ev.DCDChanged,
			DCDLocked:   ev.DCDLocked,
		})
	}
	return events
}

// sliceOffset returns the per-slicer threshold offset around zero: a
// small fan of levels 0.02*(k-(n-1)/2) spanning the configured slicers.
func sliceOffset(k, n int) float64 {
	if n <= 1 {
		return 0
	}
	return 0.02 * (float64(k) - float64(n-1)/2)
}

// descramble applies the inverse of the 17-bit self-synchronizing G3RUH
// scrambler (x^17 + x^12 + 1): the descrambler's shift register is fed
// by the received (still-scrambled) bit, and the recovered data bit is
// the received bit XORed with taps 17 and 12 of the register.
func descramble(lfsr *uint32, received bool) bool {
	r := boolBit(received)
	out := r ^ ((*lfsr >> 16) & 1) ^ ((*lfsr >> 11) & 1)
	*lfsr = ((*lfsr << 1) | r) & 0x1FFFF
	return out == 1
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
