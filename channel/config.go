// Package channel ties the window/filter generators, DPLL, and the three
// demodulator families together into the per-radio-channel dispatcher
// described as component F: configuration, decimation, mute control, and
// routing each audio sample to the right demodulator.
package channel

import (
	"fmt"

	"github.com/kf5zzy/modemcore/internal/diag"
)

// ModemKind is the demodulator family selected for a channel.
type ModemKind int

const (
	Off ModemKind = iota
	AFSKKind
	EASKind
	QPSKKind
	PSK8Kind
	BasebandKind
	ScrambleKind
	AISKind
)

// V26Variant selects the QPSK constellation bias; "" means unspecified.
type V26Variant string

const (
	V26Unspecified V26Variant = ""
	V26A           V26Variant = "A"
	V26B           V26Variant = "B"
)

// Config is one radio channel's demodulator configuration.
type Config struct {
	Modem        ModemKind
	SampleRateHz float64
	Baud         float64
	MarkFreqHz   float64
	SpaceFreqHz  float64
	Profiles     string // e.g. "A", "A+", "BCD"
	V26          V26Variant
	NumSubchan   int     // derived from len(Profiles) if left 0
	NumSlicers   int     // derived from trailing '+' if left 0
	NumFreq      int     // staggered-frequency demodulators, 0 = auto (treated as 1)
	Offset       float64 // Hz between adjacent staggered frequencies, centered on Mark/SpaceFreqHz
	Decimate     int     // 1..4, 0 = auto (treated as 1)
	Upsample     int     // 1..4, baseband only, 0 = auto
	FixBits      int
	PassAll      bool
}

// ConfigError is returned for invalid configuration or oversized filter
// requests that aren't auto-clamped: startup, fatal, one diagnostic.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "modemcore: invalid configuration: " + e.Reason }

// Normalize validates cfg, applies non-fatal corrections (defaulting an
// unspecified V.26 variant, forcing safe options for EAS/AIS), and fills
// in derived fields (NumSubchan/NumSlicers from the profile string,
// NumFreq/Decimate/Upsample defaults). It returns a *ConfigError for fatal
// conditions, including a multi-letter profile combined with NumFreq>1.
func (c Config) Normalize(log *diag.Logger) (Config, error) {
	if c.SampleRateHz < 8000 || c.SampleRateHz > 192000 {
		return c, &ConfigError{Reason: fmt.Sprintf("sample rate %g out of range [8000,192000]", c.SampleRateHz)}
	}
	if c.Baud < 100 || c.Baud > 40000 {
		return c, &ConfigError{Reason: fmt.Sprintf("baud %g out of range [100,40000]", c.Baud)}
	}
	if c.SampleRateHz < 2*c.Baud {
		return c, &ConfigError{Reason: "sample rate must be at least 2x baud"}
	}

	letters, multi, err := parseProfiles(c.Profiles)
	if err != nil {
		return c, &ConfigError{Reason: err.Error()}
	}
	if c.NumSubchan == 0 {
		c.NumSubchan = len(letters)
		if c.NumSubchan == 0 {
			c.NumSubchan = 1
		}
	}
	if c.NumSlicers == 0 {
		if multi {
			c.NumSlicers = 3
		} else {
			c.NumSlicers = 1
		}
	}
	if c.NumFreq == 0 {
		c.NumFreq = 1
	}
	if c.NumFreq < 1 || c.NumFreq > 9 {
		return c, &ConfigError{Reason: "num_freq must be in 1..9"}
	}
	if c.NumFreq > 1 && (len(letters) > 1 || multi) {
		return c, &ConfigError{Reason: "num_freq>1 can't be combined with a multi-letter profile or the + multi-slicer flag"}
	}

	if c.Decimate == 0 {
		c.Decimate = 1
	}
	if c.Decimate < 1 || c.Decimate > 4 {
		return c, &ConfigError{Reason: "decimate must be in 1..4"}
	}
	if c.Upsample < 0 || c.Upsample > 4 {
		return c, &ConfigError{Reason: "upsample must be in 0..4"}
	}

	if (c.Modem == QPSKKind) && c.V26 == V26Unspecified {
		log.Log(diag.Notice, "V.26 alternative unspecified, defaulting to B")
		c.V26 = V26B
	}

	if c.Modem == EASKind || c.Modem == AISKind {
		if c.FixBits != 0 || c.PassAll {
			log.Log(diag.Notice, "fix_bits/passall are unsafe for EAS/AIS, forcing off")
			c.FixBits = 0
			c.PassAll = false
		}
	}

	return c, nil
}

// profileLetter describes one AFSK or PSK demodulator personality
// selected by a single uppercase letter (A-F are AFSK variants; P, Q,
// R, S, T, U, V, W are PSK front-end/order combinations).
type profileLetter byte

func parseProfiles(s string) (letters []profileLetter, multiSlicer bool, err error) {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '+' {
			multiSlicer = true
			continue
		}
		if ch < 'A' || ch > 'Z' {
			return nil, false, fmt.Errorf("invalid profile character %q", ch)
		}
		switch ch {
		case 'A', 'B', 'C', 'D', 'E', 'F', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W':
			letters = append(letters, profileLetter(ch))
		default:
			return nil, false, fmt.Errorf("unknown profile letter %q", ch)
		}
	}
	return letters, multiSlicer, nil
}
