// Package config loads a channel table from YAML, the serialization
// format this module uses in place of a line-oriented flat config file
// for per-channel settings.
package config

import (
	"os"

	"github.com/kf5zzy/modemcore/channel"
	"gopkg.in/yaml.v3"
)

// ChannelEntry is one channel's YAML-serializable configuration.
type ChannelEntry struct {
	ModemType  string  `yaml:"modem_type"`
	SampleRate float64 `yaml:"sample_rate_hz"`
	Baud       float64 `yaml:"baud"`
	MarkFreq   float64 `yaml:"mark_freq"`
	SpaceFreq  float64 `yaml:"space_freq"`
	Profiles   string  `yaml:"profiles"`
	V26        string  `yaml:"v26_alternative"`
	NumFreq    int     `yaml:"num_freq"`
	Offset     float64 `yaml:"offset"`
	Decimate   int     `yaml:"decimate"`
	Upsample   int     `yaml:"upsample"`
	FixBits    int     `yaml:"fix_bits"`
	PassAll    bool    `yaml:"passall"`
}

// Document is the top-level YAML channel table: one document, one list
// of channels, indexed by position.
type Document struct {
	Channels []ChannelEntry `yaml:"channels"`
}

// Load reads and parses a channel-table YAML file.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

var modemKinds = map[string]channel.ModemKind{
	"OFF":       channel.Off,
	"AFSK":      channel.AFSKKind,
	"EAS":       channel.EASKind,
	"QPSK":      channel.QPSKKind,
	"8PSK":      channel.PSK8Kind,
	"BASEBAND":  channel.BasebandKind,
	"SCRAMBLE":  channel.ScrambleKind,
	"AIS":       channel.AISKind,
}

// ToChannelConfig converts one parsed YAML entry into a channel.Config,
// ready for channel.NewDispatcher.
func (e ChannelEntry) ToChannelConfig() channel.Config {
	v26 := channel.V26Unspecified
	switch e.V26 {
	case "A":
		v26 = channel.V26A
	case "B":
		v26 = channel.V26B
	}
	return channel.Config{
		Modem:        modemKinds[e.ModemType],
		SampleRateHz: e.SampleRate,
		Baud:         e.Baud,
		MarkFreqHz:   e.MarkFreq,
		SpaceFreqHz:  e.SpaceFreq,
		Profiles:     e.Profiles,
		V26:          v26,
		NumFreq:      e.NumFreq,
		Offset:       e.Offset,
		Decimate:     e.Decimate,
		Upsample:     e.Upsample,
		FixBits:      e.FixBits,
		PassAll:      e.PassAll,
	}
}
