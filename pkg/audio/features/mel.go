package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27.0

// hzToMel converts frequency in Hz to the Slaney mel scale.
func hzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

// melToHz converts Slaney mel back to Hz.
func melToHz(mel float64) float64 {
	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return mel * melFSp
}

// linspace returns n evenly spaced values from start to stop inclusive.
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// melFilterBank creates Slaney-normalized triangular filters.
// Returns [numMels][fftSize/2+1].
func melFilterBank(sampleRate, fftSize, numMels int, fmin, fmax float64) [][]float64 {
	fftFreqs := fftFrequencies(sampleRate, fftSize)

	melF := linspace(hzToMel(fmin), hzToMel(fmax), numMels+2)
	for i, m := range melF {
		melF[i] = melToHz(m)
	}

	bank := make([][]float64, numMels)
	for m := range numMels {
		lowDiff := melF[m+1] - melF[m]
		highDiff := melF[m+2] - melF[m+1]
		enorm := 2.0 / (melF[m+2] - melF[m])

		filter := make([]float64, len(fftFreqs))
		for k, f := range fftFreqs {
			lower := (f - melF[m]) / lowDiff
			upper := (melF[m+2] - f) / highDiff
			if w := math.Min(lower, upper); w > 0 {
				filter[k] = w * enorm
			}
		}
		bank[m] = filter
	}
	return bank
}

// dctBasis returns the first n rows of the orthonormal DCT-II matrix of
// size size.
func dctBasis(n, size int) [][]float64 {
	basis := make([][]float64, n)
	for i := range n {
		scale := math.Sqrt(2.0 / float64(size))
		if i == 0 {
			scale = math.Sqrt(1.0 / float64(size))
		}
		row := make([]float64, size)
		for m := range size {
			row[m] = scale * math.Cos(math.Pi*float64(i)*(2*float64(m)+1)/(2*float64(size)))
		}
		basis[i] = row
	}
	return basis
}

// mfcc computes cepstral coefficients per frame from a power spectrogram.
// Returns [NumMFCC][frames].
func (e *Extractor) mfcc(power [][]float64, melBank [][]float64) [][]float64 {
	numFrames := len(power)

	logMel := make([][]float64, numFrames)
	maxDB := math.Inf(-1)
	for t, frame := range power {
		row := make([]float64, len(melBank))
		for m, filter := range melBank {
			row[m] = powerToDB(floats.Dot(filter, frame))
		}
		if v := floats.Max(row); v > maxDB {
			maxDB = v
		}
		logMel[t] = row
	}

	// Clamp the whole spectrogram to TopDB below its peak.
	if e.cfg.TopDB > 0 {
		floor := maxDB - e.cfg.TopDB
		for _, row := range logMel {
			for m, v := range row {
				if v < floor {
					row[m] = floor
				}
			}
		}
	}

	out := make([][]float64, len(e.dct))
	for i, basis := range e.dct {
		coeffs := make([]float64, numFrames)
		for t, row := range logMel {
			coeffs[t] = floats.Dot(basis, row)
		}
		out[i] = coeffs
	}
	return out
}

// powerToDB converts power to decibels relative to 1.0 with a 1e-10 floor.
func powerToDB(p float64) float64 {
	const amin = 1e-10
	return 10 * math.Log10(math.Max(amin, p))
}
