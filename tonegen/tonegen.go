// Package tonegen is the transmit counterpart of afsk/psk/baseband: it
// produces the inverse waveform for the same channel parameters.
package tonegen

import (
	"math"

	"github.com/kf5zzy/modemcore/internal/diag"
	"github.com/kf5zzy/modemcore/psk"
)

const maxSample = 32767

// clamp saturates to the 16-bit signed range, logging one warning per
// call via the caller-supplied logger: non-fatal, saturate, emit one
// warning.
func clamp(v float64, log *diag.Logger) int16 {
	if v > maxSample {
		if log != nil {
			log.Log(diag.Notice, "transmit sample clipped high", "value", v)
		}
		return maxSample
	}
	if v < -maxSample-1 {
		if log != nil {
			log.Log(diag.Notice, "transmit sample clipped low", "value", v)
		}
		return -maxSample - 1
	}
	return int16(v)
}

// AFSKGenerator produces a continuous-phase two-tone waveform.
type AFSKGenerator struct {
	sampleRate       float64
	phase            uint32
	f1Delta, f2Delta uint32
	log              *diag.Logger
}

func NewAFSKGenerator(sampleRate, markFreq, spaceFreq float64, log *diag.Logger) *AFSKGenerator {
	return &AFSKGenerator{
		sampleRate: sampleRate,
		f1Delta:    uint32(math.Round((1 << 32) * markFreq / sampleRate)),
		f2Delta:    uint32(math.Round((1 << 32) * spaceFreq / sampleRate)),
		log:        log,
	}
}

// NextSample advances the oscillator by one audio sample for the given
// bit (mark=1/space=0) and returns a 16-bit PCM sample.
func (g *AFSKGenerator) NextSample(bit bool) int16 {
	delta := g.f2Delta
	if bit {
		delta = g.f1Delta
	}
	g.phase += delta
	angle := 2 * math.Pi * float64(g.phase) / (1 << 32)
	return clamp(math.Sin(angle)*maxSample, g.log)
}

// PSKGenerator accumulates bits into a symbol (dibit for QPSK, tribit
// for 8-PSK), maps through the Gray table, and emits a phase-continuous
// carrier whose phase steps by the selected constellation angle once per
// symbol period.
type PSKGenerator struct {
	sampleRate  float64
	carrierFreq float64
	order       psk.Order
	v26Bias     bool

	samplesPerSymbol int
	sampleInSymbol   int

	bitAccum   int
	bitsWaited int

	carrierPhase float64
	symbolPhase  float64

	log *diag.Logger
}

func NewPSKGenerator(sampleRate, bitRate float64, order psk.Order, v26B bool, log *diag.Logger) *PSKGenerator {
	bps := 2
	if order == psk.Eight {
		bps = 3
	}
	baud := bitRate / float64(bps)
	return &PSKGenerator{
		sampleRate:       sampleRate,
		carrierFreq:      1800,
		order:            order,
		v26Bias:          v26B,
		samplesPerSymbol: int(sampleRate/baud + 0.5),
		log:              log,
	}
}

// PutBit feeds one data bit into the symbol accumulator. It returns the
// samples produced for any symbol boundaries crossed; normally it
// returns nothing until bitsPerSymbol bits have accumulated, at which
// point it returns samplesPerSymbol samples for the completed symbol.
func (g *PSKGenerator) PutBit(bit bool) []int16 {
	bps := 2
	if g.order == psk.Eight {
		bps = 3
	}
	if bit {
		g.bitAccum |= 1 << g.bitsWaited
	}
	g.bitsWaited++
	if g.bitsWaited < bps {
		return nil
	}

	idx := psk.PhaseForGray(g.order, g.bitAccum)
	g.bitAccum = 0
	g.bitsWaited = 0

	delta := 2 * math.Pi * float64(idx) / float64(g.order)
	if g.v26Bias && g.order == psk.Four {
		delta += math.Pi / 4
	}
	g.symbolPhase += delta

	out := make([]int16, g.samplesPerSymbol)
	for i := range out {
		g.carrierPhase += 2 * math.Pi * g.carrierFreq / g.sampleRate
		out[i] = clamp(math.Cos(g.carrierPhase+g.symbolPhase)*maxSample, g.log)
	}
	return out
}

// BasebandGenerator scrambles (G3RUH 17-bit self-synchronizing LFSR) and
// shapes an NRZ bit stream into a phase-continuous tone: each bit
// transition resumes a half-baud-rate sine sweep from wherever the
// oscillator left off, and a run of unchanged bits holds the oscillator
// flat at whichever of the 90/270 degree points it last crossed,
// avoiding the hard edges a bare zero-order-hold would produce.
type BasebandGenerator struct {
	upsample int
	lfsr     uint32
	scramble bool

	tonePhase     uint32
	halfBaudDelta uint32
	prevDat       bool

	log *diag.Logger
}

func NewBasebandGenerator(sampleRate, baud float64, upsample int, scramble bool, log *diag.Logger) *BasebandGenerator {
	if upsample < 1 {
		upsample = 1
	}
	outRate := sampleRate * float64(upsample)
	return &BasebandGenerator{
		upsample:      upsample,
		scramble:      scramble,
		halfBaudDelta: uint32(math.Round((1 << 32) * (baud * 0.5) / outRate)),
		log:           log,
	}
}

// PutBit scrambles one data bit (if configured) and returns Upsample
// shaped output samples for it.
func (g *BasebandGenerator) PutBit(bit bool) []int16 {
	dat := bit
	if g.scramble {
		dat = g.scrambleBit(bit)
	}

	out := make([]int16, g.upsample)
	for i := 0; i < g.upsample; i++ {
		switch {
		case dat != g.prevDat:
			g.tonePhase += g.halfBaudDelta
		case g.tonePhase&0x80000000 != 0:
			g.tonePhase = 0xc0000000
		default:
			g.tonePhase = 0x40000000
		}
		angle := 2 * math.Pi * float64(g.tonePhase) / (1 << 32)
		out[i] = clamp(math.Sin(angle)*maxSample, g.log)
	}
	g.prevDat = dat
	return out
}

// scrambleBit applies the 17-bit self-synchronizing scrambler
// (x^17 + x^12 + 1): output = data XOR tap16 XOR tap11 of the register,
// and the register shifts in its own output (self-synchronizing, so the
// receiver's descrambler — baseband.descramble — can invert it without
// needing the transmitter's register state).
func (g *BasebandGenerator) scrambleBit(data bool) bool {
	d := uint32(0)
	if data {
		d = 1
	}
	x := d ^ ((g.lfsr >> 16) & 1) ^ ((g.lfsr >> 11) & 1)
	g.lfsr = ((g.lfsr << 1) | x) & 0x1FFFF
	return x == 1
}
