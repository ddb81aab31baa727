// Command afskgen writes a raw 16-bit PCM test signal for a channel
// configuration by driving the tonegen package directly.
package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"

	"github.com/kf5zzy/modemcore/internal/diag"
	"github.com/kf5zzy/modemcore/tonegen"
	"github.com/spf13/pflag"
)

func main() {
	var (
		sampleRate = pflag.Float64("rate", 44100, "sample rate in Hz")
		baud       = pflag.Float64("baud", 1200, "baud rate")
		mark       = pflag.Float64("mark", 1200, "mark tone frequency in Hz")
		space      = pflag.Float64("space", 2200, "space tone frequency in Hz")
		numBits    = pflag.Int("bits", 1000, "number of random bits to generate")
		outPath    = pflag.StringP("out", "o", "out.raw", "output file (raw 16-bit little-endian PCM)")
		seed       = pflag.Int64("seed", 1, "PRNG seed for the random bit stream")
		verbose    = pflag.CountP("verbose", "v", "increase log verbosity")
	)
	pflag.Parse()

	log := diag.New()
	log.SetLevel(*verbose)

	f, err := os.Create(*outPath)
	if err != nil {
		log.Log(diag.Error, "cannot create output file", "path", *outPath, "err", err)
		os.Exit(1)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	gen := tonegen.NewAFSKGenerator(*sampleRate, *mark, *space, log)
	samplesPerSymbol := int(*sampleRate / *baud)

	rng := rand.New(rand.NewSource(*seed))
	for i := 0; i < *numBits; i++ {
		bit := rng.Intn(2) == 1
		for s := 0; s < samplesPerSymbol; s++ {
			sample := gen.NextSample(bit)
			binary.Write(w, binary.LittleEndian, sample)
		}
	}

	fmt.Printf("wrote %d bits (%d samples) to %s\n", *numBits, *numBits*samplesPerSymbol, *outPath)
}
