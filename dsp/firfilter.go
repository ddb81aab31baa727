package dsp

import "math"

// GenLowpass fills out (length N) with a windowed-sinc lowpass kernel at
// cutoff fc (as a fraction of the sample rate, 0 < fc < 0.5), normalized
// to unity DC gain.
func GenLowpass(fc float64, out []float64, win Window) {
	n := len(out)
	c := float64(n-1) / 2.0
	for j := 0; j < n; j++ {
		d := float64(j) - c
		var sinc float64
		if d == 0 {
			sinc = 2 * fc
		} else {
			sinc = math.Sin(2*math.Pi*fc*d) / (math.Pi * d)
		}
		out[j] = sinc * weight(win, j, n)
	}
	normalizeDC(out)
}

// GenBandpass fills out with a windowed-sinc bandpass kernel covering
// [f1, f2] (fractions of sample rate), normalized to unity gain at the
// center frequency (f1+f2)/2.
func GenBandpass(f1, f2 float64, out []float64, win Window) {
	n := len(out)
	c := float64(n-1) / 2.0
	for j := 0; j < n; j++ {
		d := float64(j) - c
		var sinc float64
		if d == 0 {
			sinc = 2 * (f2 - f1)
		} else {
			sinc = (math.Sin(2*math.Pi*f2*d) - math.Sin(2*math.Pi*f1*d)) / (math.Pi * d)
		}
		out[j] = sinc * weight(win, j, n)
	}
	normalizeCenterGain(out, (f1+f2)/2)
}

func normalizeDC(taps []float64) {
	var sum float64
	for _, t := range taps {
		sum += t
	}
	if sum == 0 {
		return
	}
	for i := range taps {
		taps[i] /= sum
	}
}

// normalizeCenterGain scales taps so that a unit-amplitude cosine at
// frequency fc (fraction of sample rate) produces unity response:
// gain = sum(2*taps[j]*cos((j-c)*omega)).
func normalizeCenterGain(taps []float64, fc float64) {
	n := len(taps)
	c := float64(n-1) / 2.0
	omega := 2 * math.Pi * fc
	var gain float64
	for j, t := range taps {
		gain += 2 * t * math.Cos((float64(j)-c)*omega)
	}
	if gain == 0 {
		return
	}
	for i := range taps {
		taps[i] /= gain
	}
}

// GenRRC fills out with a root-raised-cosine pulse shape, rolloff alpha
// in (0,1], at sps samples per symbol. The singularities at t=0 and at
// t = +/- sps/(4*alpha) are given their analytic limits rather than
// evaluated directly. Normalized to unit peak response.
func GenRRC(out []float64, alpha float64, sps float64) {
	n := len(out)
	c := float64(n-1) / 2.0
	for j := 0; j < n; j++ {
		t := (float64(j) - c) / sps
		out[j] = rrcSample(t, alpha)
	}
	var peak float64
	for _, v := range out {
		if math.Abs(v) > peak {
			peak = math.Abs(v)
		}
	}
	if peak != 0 {
		for i := range out {
			out[i] /= peak
		}
	}
}

func rrcSample(t, alpha float64) float64 {
	if t == 0 {
		return 1.0 - alpha + 4*alpha/math.Pi
	}
	if alpha != 0 && math.Abs(4*alpha*t) == 1 {
		s := (1 + 2/math.Pi)*math.Sin(math.Pi/(4*alpha)) + (1-2/math.Pi)*math.Cos(math.Pi/(4*alpha))
		return (alpha / math.Sqrt2) * s
	}
	num := math.Sin(math.Pi*t*(1-alpha)) + 4*alpha*t*math.Cos(math.Pi*t*(1+alpha))
	den := math.Pi * t * (1 - math.Pow(4*alpha*t, 2))
	return num / den
}

// TapsForWidth returns an odd tap count spanning widthSym symbol periods
// at sps samples/symbol, clamped to [5, MaxFilterTaps-1].
func TapsForWidth(widthSym, sps float64) int {
	n := int(widthSym*sps + 0.5)
	if n%2 == 0 {
		n++
	}
	if n < 4 {
		n = 5
	}
	if n > MaxFilterTaps-1 {
		n = MaxFilterTaps - 1
	}
	return n
}
