package channel

import (
	"math"
	"testing"

	"github.com/kf5zzy/modemcore/internal/diag"
	"github.com/kf5zzy/modemcore/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDerivesSubchanAndSlicers(t *testing.T) {
	cfg := Config{
		Modem:        AFSKKind,
		SampleRateHz: 44100,
		Baud:         1200,
		MarkFreqHz:   1200,
		SpaceFreqHz:  2200,
		Profiles:     "ABC+",
	}
	got, err := cfg.Normalize(diag.Default)
	require.NoError(t, err)
	assert.Equal(t, 3, got.NumSubchan)
	assert.Equal(t, 3, got.NumSlicers)
	assert.Equal(t, 1, got.Decimate)
}

func TestNormalizeDefaultsV26B(t *testing.T) {
	cfg := Config{
		Modem:        QPSKKind,
		SampleRateHz: 44100,
		Baud:         1200,
		Profiles:     "Q",
	}
	got, err := cfg.Normalize(diag.Default)
	require.NoError(t, err)
	assert.Equal(t, V26B, got.V26)
}

func TestNormalizeForcesEASSafeOptions(t *testing.T) {
	cfg := Config{
		Modem:        EASKind,
		SampleRateHz: 44100,
		Baud:         520,
		Profiles:     "A",
		FixBits:      1,
		PassAll:      true,
	}
	got, err := cfg.Normalize(diag.Default)
	require.NoError(t, err)
	assert.Equal(t, 0, got.FixBits)
	assert.False(t, got.PassAll)
}

func TestNormalizeRejectsBadSampleRate(t *testing.T) {
	cfg := Config{Modem: AFSKKind, SampleRateHz: 1000, Baud: 1200, Profiles: "A"}
	_, err := cfg.Normalize(diag.Default)
	require.Error(t, err)
}

func TestNormalizeDefaultsNumFreq(t *testing.T) {
	cfg := Config{Modem: AFSKKind, SampleRateHz: 44100, Baud: 1200, Profiles: "A"}
	got, err := cfg.Normalize(diag.Default)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NumFreq)
}

func TestNormalizeRejectsMultiLetterWithNumFreq(t *testing.T) {
	cfg := Config{Modem: AFSKKind, SampleRateHz: 44100, Baud: 1200, Profiles: "AB", NumFreq: 3}
	_, err := cfg.Normalize(diag.Default)
	require.Error(t, err)
}

func TestNormalizeRejectsMultiSlicerWithNumFreq(t *testing.T) {
	cfg := Config{Modem: AFSKKind, SampleRateHz: 44100, Baud: 1200, Profiles: "A+", NumFreq: 3}
	_, err := cfg.Normalize(diag.Default)
	require.Error(t, err)
}

func TestDispatcherBuildsOneSubchanPerFreq(t *testing.T) {
	cfg := Config{
		Modem:        AFSKKind,
		SampleRateHz: 44100,
		Baud:         1200,
		MarkFreqHz:   1200,
		SpaceFreqHz:  2200,
		Profiles:     "A",
		NumFreq:      3,
		Offset:       50,
	}
	disp, err := NewDispatcher(0, cfg, sink.Funcs{}, sink.Funcs{}, diag.Default)
	require.NoError(t, err)
	assert.Len(t, disp.subs, 3)
}

// TestEASForcesFixedToneAndBaud feeds a tone at the EAS mark/space
// frequencies and baud (not the channel's configured 1200/2200 AFSK
// values) and confirms the EAS demodulator locks onto it, proving the
// dispatcher overrides cfg.Baud/MarkFreqHz/SpaceFreqHz for EASKind
// rather than reusing them.
func TestEASForcesFixedToneAndBaud(t *testing.T) {
	const sampleRate = 44100.0
	cfg := Config{
		Modem:        EASKind,
		SampleRateHz: sampleRate,
		Baud:         1200,
		MarkFreqHz:   1200,
		SpaceFreqHz:  2200,
		Profiles:     "A",
	}

	var bits []sink.Bit
	var dcds []sink.DCDEvent
	fns := sink.Funcs{
		Bit: func(c, s, sl int, bit bool, scr bool, q int) {
			bits = append(bits, sink.Bit{Chan: c, Subchan: s, Slice: sl, Value: bit, IsScrambled: scr, Quality: q})
		},
		DCD: func(c, s, sl int, locked bool) {
			dcds = append(dcds, sink.DCDEvent{Chan: c, Subchan: s, Slice: sl, Locked: locked})
		},
	}

	disp, err := NewDispatcher(0, cfg, fns, fns, diag.Default)
	require.NoError(t, err)

	var phase float64
	mark := true
	samplesPerSymbol := sampleRate / easBaud
	for i := 0; i < int(sampleRate*2); i++ {
		freq := easSpaceFreq
		if mark {
			freq = easMarkFreq
		}
		phase += 2 * math.Pi * freq / sampleRate
		s := int16(30000 * math.Sin(phase))
		if i > 0 && i%int(samplesPerSymbol) == 0 {
			mark = !mark
		}
		disp.ProcessSample(s)
	}

	assert.NotEmpty(t, bits)
	require.NotEmpty(t, dcds, "DCD never changed state")
	assert.True(t, dcds[0].Locked)
}

func TestDispatcherAlternatingToneProducesBits(t *testing.T) {
	const sampleRate = 44100.0
	cfg := Config{
		Modem:        AFSKKind,
		SampleRateHz: sampleRate,
		Baud:         1200,
		MarkFreqHz:   1200,
		SpaceFreqHz:  2200,
		Profiles:     "A",
	}

	var bits []sink.Bit
	var dcds []sink.DCDEvent
	fns := sink.Funcs{
		Bit: func(c, s, sl int, bit bool, scr bool, q int) {
			bits = append(bits, sink.Bit{Chan: c, Subchan: s, Slice: sl, Value: bit, IsScrambled: scr, Quality: q})
		},
		DCD: func(c, s, sl int, locked bool) {
			dcds = append(dcds, sink.DCDEvent{Chan: c, Subchan: s, Slice: sl, Locked: locked})
		},
	}

	disp, err := NewDispatcher(0, cfg, fns, fns, diag.Default)
	require.NoError(t, err)

	var phase float64
	mark := true
	samplesPerSymbol := sampleRate / cfg.Baud
	for i := 0; i < int(sampleRate*2); i++ {
		freq := cfg.SpaceFreqHz
		if mark {
			freq = cfg.MarkFreqHz
		}
		phase += 2 * math.Pi * freq / sampleRate
		s := int16(30000 * math.Sin(phase))
		if i > 0 && i%int(samplesPerSymbol) == 0 {
			mark = !mark
		}
		disp.ProcessSample(s)
	}

	assert.NotEmpty(t, bits)
	assert.NotEmpty(t, dcds)
}
