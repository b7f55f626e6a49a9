package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Tuning estimation parameters.
const (
	pitchFMin       = 150.0
	pitchFMax       = 4000.0
	pitchThreshold  = 0.1
	tuningRes       = 0.01
	chromaCenterOct = 5.0
	chromaOctWidth  = 2.0
)

// hzToOcts converts Hz to octave numbers, with A440 shifted by tuning
// (in fractions of a chroma bin).
func hzToOcts(hz, tuning float64) float64 {
	a440 := 440.0 * math.Pow(2, tuning/NumChroma)
	return math.Log2(hz / (a440 / 16))
}

// pymod is the floored modulo: the result has the sign of m.
func pymod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r != 0 && (r < 0) != (m < 0) {
		r += m
	}
	return r
}

// estimateTuning estimates the deviation of the recording from A440 in
// fractions of a chroma bin, in [-0.5, 0.5).
func estimateTuning(power [][]float64, sampleRate, nfft int) float64 {
	pitches, mags := pipTrack(power, sampleRate, nfft)
	if len(pitches) == 0 {
		return 0
	}

	sorted := append([]float64(nil), mags...)
	sort.Float64s(sorted)
	threshold := median(sorted)

	var selected []float64
	for i, p := range pitches {
		if mags[i] >= threshold {
			selected = append(selected, p)
		}
	}
	return pitchTuning(selected)
}

// pipTrack finds spectral peaks between pitchFMin and pitchFMax and
// refines them by parabolic interpolation. It returns the positive peak
// frequencies and their interpolated magnitudes.
func pipTrack(power [][]float64, sampleRate, nfft int) (pitches, mags []float64) {
	fmax := math.Min(pitchFMax, float64(sampleRate)/2)
	freqs := fftFrequencies(sampleRate, nfft)
	binHz := float64(sampleRate) / float64(nfft)

	for _, s := range power {
		n := len(s)
		ref := pitchThreshold * floats.Max(s)
		gated := func(k int) float64 {
			if s[k] > ref {
				return s[k]
			}
			return 0
		}
		for k := range n {
			if freqs[k] < pitchFMin || freqs[k] >= fmax {
				continue
			}
			// Local maximum of the gated spectrum, edges padded by repetition.
			left, right := k-1, k+1
			if left < 0 {
				left = 0
			}
			if right >= n {
				right = n - 1
			}
			x := gated(k)
			if !(x > gated(left) && x >= gated(right)) {
				continue
			}

			var shift, avg float64
			if k > 0 && k < n-1 {
				avg = 0.5 * (s[k+1] - s[k-1])
				a := s[k+1] + s[k-1] - 2*s[k]
				if math.Abs(avg) < math.Abs(a) {
					shift = -avg / a
				}
			}
			pitch := (float64(k) + shift) * binHz
			if pitch <= 0 {
				continue
			}
			pitches = append(pitches, pitch)
			mags = append(mags, s[k]+0.5*avg*shift)
		}
	}
	return pitches, mags
}

// pitchTuning histograms the residuals of frequencies against the
// equal-tempered grid and returns the most common one.
func pitchTuning(freqs []float64) float64 {
	if len(freqs) == 0 {
		return 0
	}
	numBins := int(math.Ceil(1 / tuningRes))
	edges := linspace(-0.5, 0.5, numBins+1)
	counts := make([]int, numBins)

	for _, f := range freqs {
		r := pymod(NumChroma*hzToOcts(f, 0), 1.0)
		if r >= 0.5 {
			r -= 1.0
		}
		counts[histogramBin(r, edges)]++
	}

	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return edges[best]
}

// histogramBin returns the bin of v for uniform edges, with the last bin
// closed on the right.
func histogramBin(v float64, edges []float64) int {
	n := len(edges) - 1
	first, last := edges[0], edges[n]
	i := int((v - first) * float64(n) / (last - first))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	if v < edges[i] && i > 0 {
		i--
	}
	if v >= edges[i+1] && i != n-1 {
		i++
	}
	return i
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return 0.5 * (sorted[n/2-1] + sorted[n/2])
}

// chromaFilterBank builds the [NumChroma][nfft/2+1] filter bank mapping
// FFT bins to pitch classes starting at C.
func chromaFilterBank(sampleRate, nfft int, tuning float64) [][]float64 {
	// Bin positions in chroma units for every FFT bin, DC extrapolated.
	frqBins := make([]float64, nfft)
	for i := 1; i < nfft; i++ {
		f := float64(i) * float64(sampleRate) / float64(nfft)
		frqBins[i] = NumChroma * hzToOcts(f, tuning)
	}
	frqBins[0] = frqBins[1] - 1.5*NumChroma

	binWidth := make([]float64, nfft)
	for i := 0; i < nfft-1; i++ {
		binWidth[i] = math.Max(frqBins[i+1]-frqBins[i], 1)
	}
	binWidth[nfft-1] = 1

	half := math.Round(NumChroma / 2.0)
	wts := make([][]float64, NumChroma)
	for c := range NumChroma {
		row := make([]float64, nfft)
		for i := range nfft {
			d := pymod(frqBins[i]-float64(c)+half+10*NumChroma, NumChroma) - half
			row[i] = math.Exp(-0.5 * math.Pow(2*d/binWidth[i], 2))
		}
		wts[c] = row
	}

	// Unit L2 norm per FFT bin, then the octave-dominance Gaussian.
	for i := range nfft {
		var norm float64
		for c := range NumChroma {
			norm += wts[c][i] * wts[c][i]
		}
		norm = math.Sqrt(norm)
		if norm < tiny {
			norm = 1
		}
		octWeight := math.Exp(-0.5 * math.Pow((frqBins[i]/NumChroma-chromaCenterOct)/chromaOctWidth, 2))
		for c := range NumChroma {
			wts[c][i] = wts[c][i] / norm * octWeight
		}
	}

	// Rotate so row 0 is C instead of A, and keep the non-negative bins.
	bank := make([][]float64, NumChroma)
	for c := range NumChroma {
		bank[c] = wts[(c+3)%NumChroma][:nfft/2+1]
	}
	return bank
}

// chromaSTFT projects each power frame onto the chroma bank and scales the
// frame so its largest bin is 1. Returns [NumChroma][frames].
func chromaSTFT(power [][]float64, bank [][]float64) [][]float64 {
	out := make([][]float64, NumChroma)
	for c := range out {
		out[c] = make([]float64, len(power))
	}
	raw := make([]float64, NumChroma)
	for t, frame := range power {
		peak := 0.0
		for c, filter := range bank {
			raw[c] = floats.Dot(filter, frame)
			if a := math.Abs(raw[c]); a > peak {
				peak = a
			}
		}
		if peak < tiny {
			peak = 1
		}
		for c := range NumChroma {
			out[c][t] = raw[c] / peak
		}
	}
	return out
}
