package features

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// tiny is the smallest positive normal float64. Frames whose total falls
// below it are treated as empty.
const tiny = 2.2250738585072014e-308

// hannWindow generates a periodic Hann window of length n.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// stft returns the magnitude spectrogram [frames][FFTSize/2+1] of y.
// Frames are centered: y is padded with FFTSize/2 zeros on both sides, so
// frame t covers y[t*hop-FFTSize/2 : t*hop+FFTSize/2].
func (e *Extractor) stft(y []float64) [][]float64 {
	nfft := e.cfg.FFTSize
	hop := e.cfg.HopSize
	pad := nfft / 2

	padded := make([]float64, len(y)+2*pad)
	copy(padded[pad:], y)
	numFrames := 1 + (len(padded)-nfft)/hop

	// fourier.FFT keeps work buffers, so each call gets its own plan.
	plan := fourier.NewFFT(nfft)
	frame := make([]float64, nfft)
	coeff := make([]complex128, nfft/2+1)

	mag := make([][]float64, numFrames)
	for t := range numFrames {
		start := t * hop
		for i := range nfft {
			frame[i] = padded[start+i] * e.window[i]
		}
		coeff = plan.Coefficients(coeff, frame)
		row := make([]float64, len(coeff))
		for k, c := range coeff {
			row[k] = cmplx.Abs(c)
		}
		mag[t] = row
	}
	return mag
}

// squared returns the element-wise square of a spectrogram.
func squared(mag [][]float64) [][]float64 {
	out := make([][]float64, len(mag))
	for t, row := range mag {
		p := make([]float64, len(row))
		floats.MulTo(p, row, row)
		out[t] = p
	}
	return out
}

func sumOf(x []float64) float64 {
	return floats.Sum(x)
}

// fftFrequencies returns the center frequency of each FFT bin.
func fftFrequencies(sampleRate, nfft int) []float64 {
	freqs := make([]float64, nfft/2+1)
	for k := range freqs {
		freqs[k] = float64(k) * float64(sampleRate) / float64(nfft)
	}
	return freqs
}
