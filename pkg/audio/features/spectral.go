package features

import "math"

// spectralCentroid returns the magnitude-weighted mean frequency of each
// frame. Empty frames yield 0.
func spectralCentroid(mag [][]float64, freqs []float64) []float64 {
	out := make([]float64, len(mag))
	for t, frame := range mag {
		total := sumOf(frame)
		if total < tiny {
			continue
		}
		var acc float64
		for k, m := range frame {
			acc += freqs[k] * m
		}
		out[t] = acc / total
	}
	return out
}

// spectralRolloff returns, per frame, the lowest bin frequency at which the
// cumulative magnitude reaches rollPercent of the frame total.
func spectralRolloff(mag [][]float64, freqs []float64, rollPercent float64) []float64 {
	out := make([]float64, len(mag))
	for t, frame := range mag {
		threshold := rollPercent * sumOf(frame)
		var cum float64
		for k, m := range frame {
			cum += m
			if cum >= threshold {
				out[t] = freqs[k]
				break
			}
		}
	}
	return out
}

// zeroCrossingRate returns the fraction of sign changes per frame. The
// signal is edge-padded by frameLength/2 on both sides and magnitudes at
// or below 1e-10 count as zero, which is treated as positive.
func zeroCrossingRate(y []float64, frameLength, hop int) []float64 {
	const threshold = 1e-10
	pad := frameLength / 2

	padded := make([]float64, len(y)+2*pad)
	for i := range pad {
		padded[i] = y[0]
		padded[len(padded)-1-i] = y[len(y)-1]
	}
	copy(padded[pad:], y)

	negative := make([]bool, len(padded))
	for i, v := range padded {
		negative[i] = math.Abs(v) > threshold && v < 0
	}

	numFrames := 1 + (len(padded)-frameLength)/hop
	out := make([]float64, numFrames)
	for t := range numFrames {
		start := t * hop
		crossings := 0
		for i := start + 1; i < start+frameLength; i++ {
			if negative[i] != negative[i-1] {
				crossings++
			}
		}
		out[t] = float64(crossings) / float64(frameLength)
	}
	return out
}
