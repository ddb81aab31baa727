// Command demodcat runs the receive core over a raw 16-bit PCM file and
// prints each recovered bit and DCD transition, driving the
// demodulators from a file instead of a live sound card.
package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/kf5zzy/modemcore/channel"
	"github.com/kf5zzy/modemcore/internal/diag"
	"github.com/kf5zzy/modemcore/sink"
	"github.com/spf13/pflag"
)

func main() {
	var (
		sampleRate = pflag.Float64("rate", 44100, "sample rate in Hz")
		baud       = pflag.Float64("baud", 1200, "baud rate")
		mark       = pflag.Float64("mark", 1200, "mark tone frequency in Hz")
		space      = pflag.Float64("space", 2200, "space tone frequency in Hz")
		profiles   = pflag.StringP("profiles", "p", "A", "profile letters, e.g. \"A+\"")
		inPath     = pflag.StringP("in", "i", "", "input file (raw 16-bit little-endian PCM); - for stdin")
		verbose    = pflag.CountP("verbose", "v", "increase log verbosity")
	)
	pflag.Parse()

	log := diag.New()
	log.SetLevel(*verbose)

	var r io.Reader = os.Stdin
	if *inPath != "" && *inPath != "-" {
		f, err := os.Open(*inPath)
		if err != nil {
			log.Log(diag.Error, "cannot open input file", "path", *inPath, "err", err)
			os.Exit(1)
		}
		defer f.Close()
		r = f
	}
	br := bufio.NewReader(r)

	cfg := channel.Config{
		Modem:        channel.AFSKKind,
		SampleRateHz: *sampleRate,
		Baud:         *baud,
		MarkFreqHz:   *mark,
		SpaceFreqHz:  *space,
		Profiles:     *profiles,
	}

	fns := sink.Funcs{
		Bit: func(ch, subchan, slice int, bit bool, scrambled bool, quality int) {
			fmt.Printf("bit chan=%d subchan=%d slice=%d value=%v quality=%d\n", ch, subchan, slice, bit, quality)
		},
		DCD: func(ch, subchan, slice int, locked bool) {
			fmt.Printf("dcd chan=%d subchan=%d slice=%d locked=%v\n", ch, subchan, slice, locked)
		},
	}

	disp, err := channel.NewDispatcher(0, cfg, fns, fns, log)
	if err != nil {
		log.Log(diag.Error, "invalid channel configuration", "err", err)
		os.Exit(1)
	}

	var sample int16
	for {
		if err := binary.Read(br, binary.LittleEndian, &sample); err != nil {
			if err != io.EOF {
				log.Log(diag.Error, "read error", "err", err)
			}
			break
		}
		disp.ProcessSample(sample)
	}
}
