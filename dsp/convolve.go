package dsp

// FilterLine is a fixed-capacity circular input buffer paired with a FIR
// kernel of the same length: samples are pushed in, and Convolve walks
// the kernel against the buffer in left-to-right summation order so
// results are bit-for-bit deterministic across builds.
type FilterLine struct {
	taps []float64
	buf  []float64
	next int
}

// NewFilterLine creates a filter line sized to len(taps). taps is
// retained by reference, not copied; callers must not mutate it after
// the line is in use.
func NewFilterLine(taps []float64) *FilterLine {
	return &FilterLine{
		taps: taps,
		buf:  make([]float64, len(taps)),
	}
}

// Push inserts a new sample, evicting the oldest.
func (f *FilterLine) Push(sample float64) {
	f.buf[f.next] = sample
	f.next++
	if f.next >= len(f.buf) {
		f.next = 0
	}
}

// Convolve returns the dot product of the kernel with the buffer
// contents, oldest-to-newest, accumulated strictly left to right.
func (f *FilterLine) Convolve() float64 {
	n := len(f.taps)
	var sum float64
	// f.next is the index of the oldest sample (about to be overwritten
	// next). Walk from there, wrapping, so taps[0] always multiplies the
	// oldest sample in the line.
	idx := f.next
	for j := 0; j < n; j++ {
		sum += f.taps[j] * f.buf[idx]
		idx++
		if idx >= n {
			idx = 0
		}
	}
	return sum
}

// PushConvolve is the common push-then-convolve step used on every
// demodulator hot path.
func (f *FilterLine) PushConvolve(sample float64) float64 {
	f.Push(sample)
	return f.Convolve()
}

// ConvolveWith convolves the line's current buffer contents against an
// externally supplied kernel of the same length, without touching the
// line's own stored taps. Used by the polyphase upsampler, where one
// shared sample history is convolved against several different
// per-phase kernels.
func (f *FilterLine) ConvolveWith(taps []float64) float64 {
	n := len(taps)
	var sum float64
	idx := f.next
	for j := 0; j < n; j++ {
		sum += taps[j] * f.buf[idx]
		idx++
		if idx >= n {
			idx = 0
		}
	}
	return sum
}

// DelayLine is a simple circular buffer used by the PSK demodulator's
// self-correlation and local-oscillator front ends; unlike FilterLine it
// has no kernel and exposes direct indexed lookback.
type DelayLine struct {
	buf  []float64
	next int
}

func NewDelayLine(n int) *DelayLine {
	return &DelayLine{buf: make([]float64, n)}
}

func (d *DelayLine) Push(sample float64) {
	d.buf[d.next] = sample
	d.next++
	if d.next >= len(d.buf) {
		d.next = 0
	}
}

// At returns the sample that is `offset` slots behind the most recently
// pushed one, wrapping modulo the line length. offset=0 is the most
// recently pushed sample.
func (d *DelayLine) At(offset int) float64 {
	n := len(d.buf)
	idx := (d.next - 1 - offset) % n
	if idx < 0 {
		idx += n
	}
	return d.buf[idx]
}

// Len reports the capacity of the line.
func (d *DelayLine) Len() int { return len(d.buf) }
