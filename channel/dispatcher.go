package channel

import (
	"fmt"

	"github.com/kf5zzy/modemcore/afsk"
	"github.com/kf5zzy/modemcore/baseband"
	"github.com/kf5zzy/modemcore/dsp"
	"github.com/kf5zzy/modemcore/internal/diag"
	"github.com/kf5zzy/modemcore/psk"
	"github.com/kf5zzy/modemcore/sink"
)

// EAS (Emergency Alert System / SAME) runs the AFSK engine at fixed,
// non-configurable tone and baud values instead of the channel's
// Mark/Space/Baud settings.
const (
	easBaud      = 520.833333333333
	easMarkFreq  = 2083.33333333333
	easSpaceFreq = 1562.5
)

type subDemod struct {
	letter  profileLetter
	afsk    *afsk.Demod
	psk     *psk.Demod
	bb      *baseband.Demod
}

// Dispatcher is one radio channel's receive core: decimation, mute
// control, fan-out to its subchannel demodulators, and signal-level
// reporting.
type Dispatcher struct {
	chanNum int
	cfg     Config
	subs    []subDemod

	decimAccum float64
	decimCount int

	muted bool

	level *dsp.AGC

	bits sink.BitSink
	dcd  sink.DCDSink

	log *diag.Logger
}

// NewDispatcher validates cfg and builds the demodulator bank for one
// radio channel.
func NewDispatcher(chanNum int, cfg Config, bits sink.BitSink, dcd sink.DCDSink, log *diag.Logger) (*Dispatcher, error) {
	if log == nil {
		log = diag.Default
	}
	cfg, err := cfg.Normalize(log)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		chanNum: chanNum,
		cfg:     cfg,
		level:   dsp.NewAGC(0.1, 0.001),
		bits:    bits,
		dcd:     dcd,
		log:     log,
	}

	letters, _, _ := parseProfiles(cfg.Profiles)
	if len(letters) == 0 {
		letters = []profileLetter{0}
	}
	effectiveRate := cfg.SampleRateHz / float64(cfg.Decimate)
	numFreq := cfg.NumFreq
	if numFreq < 1 {
		numFreq = 1
	}

	for _, letter := range letters {
		for fi := 0; fi < numFreq; fi++ {
			sd := subDemod{letter: letter}
			switch cfg.Modem {
			case AFSKKind, EASKind:
				ac := afsk.DefaultConfig(effectiveRate)
				ac.Baud = cfg.Baud
				ac.MarkFreq = cfg.MarkFreqHz
				ac.SpaceFreq = cfg.SpaceFreqHz
				if cfg.Modem == EASKind {
					ac.Baud = easBaud
					ac.MarkFreq = easMarkFreq
					ac.SpaceFreq = easSpaceFreq
				}
				ac.NumSlicers = cfg.NumSlicers
				applyAFSKLetter(&ac, letter)
				if numFreq > 1 {
					// Stagger demodulators symmetrically around the
					// configured center frequency to tolerate drift.
					k := float64(fi)*cfg.Offset - float64(numFreq-1)*cfg.Offset/2
					ac.MarkFreq += k
					ac.SpaceFreq += k
				}
				if n := dsp.TapsForWidth(8, effectiveRate/ac.Baud); n >= dsp.MaxFilterTaps-1 {
					log.Log(diag.Notice, "prefilter clamped to maximum taps")
				}
				sd.afsk = afsk.New(ac)
			case QPSKKind, PSK8Kind:
				pc := psk.DefaultConfig(effectiveRate)
				if cfg.Modem == PSK8Kind {
					pc.Order = psk.Eight
				}
				pc.BitRate = cfg.Baud * float64(bitsForOrder(pc.Order))
				pc.NumSlicers = cfg.NumSlicers
				if cfg.V26 == V26A {
					pc.V26 = psk.V26A
				}
				applyPSKLetter(&pc, letter)
				sd.psk = psk.New(pc)
			case BasebandKind, ScrambleKind, AISKind:
				bc := baseband.DefaultConfig(effectiveRate)
				bc.Baud = cfg.Baud
				bc.Upsample = cfg.Upsample
				bc.NumSlicers = cfg.NumSlicers
				bc.Scrambled = baseband.Scrambled(cfg.Modem == ScrambleKind)
				sd.bb = baseband.New(bc)
			case Off:
				// no demodulator; channel accepts samples but emits nothing.
			default:
				return nil, &ConfigError{Reason: fmt.Sprintf("unsupported modem kind %v", cfg.Modem)}
			}
			d.subs = append(d.subs, sd)
		}
	}

	return d, nil
}

func bitsForOrder(o psk.Order) int {
	if o == psk.Eight {
		return 3
	}
	return 2
}

// applyAFSKLetter maps the historical single-letter profile onto a
// concrete afsk.Config: 'F' takes a fast/no-extras path and the other
// letters are filter-shape variations on the two baseline profiles
// (coherent vs. FM discriminator).
func applyAFSKLetter(c *afsk.Config, letter profileLetter) {
	switch letter {
	case 'B':
		c.Profile = afsk.FMDiscriminator
	case 'C':
		c.Profile = afsk.Coherent
		c.UseRRC = true
	case 'D':
		c.Profile = afsk.Coherent
		c.Window = dsp.Blackman
	case 'E':
		c.Profile = afsk.FMDiscriminator
		c.UsePrefilter = true
	case 'F':
		c.Profile = afsk.Coherent
		c.UsePrefilter = false
	default: // 'A' or unset
		c.Profile = afsk.Coherent
	}
}

func applyPSKLetter(c *psk.Config, letter profileLetter) {
	switch letter {
	case 'P', 'T':
		c.Frontend = psk.SelfCorrelation
	case 'Q', 'U':
		c.Frontend = psk.SelfCorrelationFiltered
	case 'R', 'V':
		c.Frontend = psk.LocalOscillator
	case 'S', 'W':
		c.Frontend = psk.LocalOscillatorFiltered
	}
}

// Mute forces the dispatcher to treat all input as zero while the
// transmitter is keyed on the same channel (half-duplex); demodulators
// keep running so DCD naturally drops, matching demod_mute_input.
func (d *Dispatcher) Mute(mute bool) { d.muted = mute }

// ProcessSample runs one 16-bit signed audio sample through decimation
// and every subchannel demodulator, delivering bit and DCD events to the
// configured sinks.
func (d *Dispatcher) ProcessSample(sample int16) {
	in := float64(sample) / 32768.0
	if d.muted {
		in = 0
	}
	d.level.Update(in)

	if d.cfg.Decimate > 1 {
		d.decimAccum += in
		d.decimCount++
		if d.decimCount < d.cfg.Decimate {
			return
		}
		in = d.decimAccum / float64(d.cfg.Decimate)
		d.decimAccum = 0
		d.decimCount = 0
	}

	for subchan, sd := range d.subs {
		switch {
		case sd.afsk != nil:
			for _, r := range sd.afsk.ProcessSample(in) {
				d.emitAFSK(subchan, r)
			}
		case sd.psk != nil:
			for _, r := range sd.psk.ProcessSample(in) {
				d.emitPSK(subchan, r)
			}
		case sd.bb != nil:
			for _, r := range sd.bb.ProcessSample(in) {
				d.emitBaseband(subchan, r)
			}
		}
	}
}

func (d *Dispatcher) emitAFSK(subchan int, r afsk.Result) {
	ev := r.Event
	if ev.DCDChanged && d.dcd != nil {
		d.dcd.DCDChange(d.chanNum, subchan, r.SlicerIndex, ev.DCDLocked)
	}
	if d.bits != nil {
		d.bits.RecBit(d.chanNum, subchan, r.SlicerIndex, ev.Bit, false, ev.Quality)
	}
}

func (d *Dispatcher) emitPSK(subchan int, r psk.SymbolEvent) {
	if r.PLL.DCDChanged && d.dcd != nil {
		d.dcd.DCDChange(d.chanNum, subchan, r.SlicerIndex, r.PLL.DCDLocked)
	}
	if d.bits == nil {
		return
	}
	for i, bit := range r.Bits {
		q := r.PLL.Quality
		if i < len(r.Qualities) {
			q = r.Qualities[i]
		}
		d.bits.RecBit(d.chanNum, subchan, r.SlicerIndex, bit, false, q)
	}
}

func (d *Dispatcher) emitBaseband(subchan int, r baseband.BitEvent) {
	if r.DCDChanged && d.dcd != nil {
		d.dcd.DCDChange(d.chanNum, subchan, r.SlicerIndex, r.DCDLocked)
	}
	if d.bits != nil {
		d.bits.RecBit(d.chanNum, subchan, r.SlicerIndex, r.Bit, r.IsScrambled, r.Quality)
	}
}

// AudioLevel returns the long-term received-signal level plus, for AFSK
// subchannels, the mark/space envelope levels, scaled to roughly 0..100,
// per demod_get_audio_level.
func (d *Dispatcher) AudioLevel(subchan int) (rec, mark, space float64) {
	rec = d.level.Amplitude() * 100
	if subchan >= 0 && subchan < len(d.subs) && d.subs[subchan].afsk != nil {
		_, mark, space = d.subs[subchan].afsk.AudioLevel()
	}
	return rec, mark, space
}
