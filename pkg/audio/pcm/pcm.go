package pcm

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Format represents an interleaved PCM layout.
type Format struct {
	SampleRate int  // samples per second per channel
	Channels   int  // interleaved channel count
	Depth      int  // bits per sample
	Float      bool // IEEE float samples instead of integers
}

// Validate reports whether the format can be converted to a Signal.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("pcm: invalid sample rate %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("pcm: invalid channel count %d", f.Channels)
	}
	if f.Float {
		if f.Depth != 32 && f.Depth != 64 {
			return fmt.Errorf("pcm: unsupported float depth %d", f.Depth)
		}
		return nil
	}
	switch f.Depth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("pcm: unsupported bit depth %d", f.Depth)
	}
	return nil
}

// Frames returns the number of frames (samples per channel) in n
// interleaved samples.
func (f Format) Frames(n int) int {
	return n / f.Channels
}

// Duration returns the duration of the given number of frames.
func (f Format) Duration(frames int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Scale returns the divisor that maps full-scale signed integers to
// [-1, 1). Float formats are already normalized and scale by 1.
func (f Format) Scale() float64 {
	if f.Float {
		return 1
	}
	return float64(int64(1) << (f.Depth - 1))
}

// Signal converts interleaved signed integer samples to a mono Signal by
// normalizing each sample with Scale and averaging the channels of each
// frame. Trailing samples that do not fill a whole frame are dropped.
func (f Format) Signal(samples []int) Signal {
	scale := f.Scale()
	norm := make([]float64, len(samples))
	for i, v := range samples {
		norm[i] = float64(v) / scale
	}
	return f.Mix(norm)
}

// Mix averages the channels of interleaved normalized samples into a mono
// Signal. Trailing samples that do not fill a whole frame are dropped.
func (f Format) Mix(samples []float64) Signal {
	ch := f.Channels
	n := f.Frames(len(samples))
	out := make([]float64, n)
	for i := range n {
		var sum float64
		for c := range ch {
			sum += samples[i*ch+c]
		}
		out[i] = sum / float64(ch)
	}
	return Signal{Samples: out, Rate: f.SampleRate}
}

// String returns a human-readable string representation of the format.
func (f Format) String() string {
	kind := "L"
	if f.Float {
		kind = "F"
	}
	return fmt.Sprintf("audio/%s%d; rate=%d; channels=%d", kind, f.Depth, f.SampleRate, f.Channels)
}

// Int16LE decodes little-endian signed 16-bit samples. A trailing odd byte
// is ignored.
func Int16LE(b []byte) []int {
	n := len(b) / 2
	out := make([]int, n)
	for i := range n {
		out[i] = int(int16(b[i*2]) | int16(b[i*2+1])<<8)
	}
	return out
}

// Float32LE decodes little-endian IEEE 754 single precision samples.
// Trailing bytes short of a sample are ignored.
func Float32LE(b []byte) []float64 {
	n := len(b) / 4
	out := make([]float64, n)
	for i := range n {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	return out
}

// Float64LE decodes little-endian IEEE 754 double precision samples.
// Trailing bytes short of a sample are ignored.
func Float64LE(b []byte) []float64 {
	n := len(b) / 8
	out := make([]float64, n)
	for i := range n {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out
}

// Signal is a mono waveform at its native sample rate.
type Signal struct {
	Samples []float64
	Rate    int
}

// Len returns the number of samples.
func (s Signal) Len() int {
	return len(s.Samples)
}

// Duration returns the playback duration of the signal.
func (s Signal) Duration() time.Duration {
	if s.Rate <= 0 {
		return 0
	}
	return time.Duration(len(s.Samples)) * time.Second / time.Duration(s.Rate)
}

// Window returns the part of the signal that starts at offset and lasts at
// most length. Sample positions are rounded to the nearest integer. The
// result shares memory with s and is empty when offset is past the end.
func (s Signal) Window(offset, length time.Duration) Signal {
	start := samplesIn(s.Rate, offset)
	if start >= len(s.Samples) {
		return Signal{Rate: s.Rate}
	}
	end := start + samplesIn(s.Rate, length)
	if end > len(s.Samples) {
		end = len(s.Samples)
	}
	return Signal{Samples: s.Samples[start:end], Rate: s.Rate}
}

// Peak returns the largest absolute sample value.
func (s Signal) Peak() float64 {
	var peak float64
	for _, v := range s.Samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

func samplesIn(rate int, d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(float64(rate) * d.Seconds()))
}
