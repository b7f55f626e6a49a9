// Package pcm provides types and utilities for working with decoded PCM
// audio.
//
// Decoders produce interleaved integer or float samples described by a
// Format.
// Analysis code works on a Signal: a mono float64 waveform at the native
// sample rate of the source, with samples normalized to [-1, 1].
//
// Key types:
//   - Format: interleaved sample layout (rate, channels, depth, float flag)
//   - Signal: mono float64 samples plus sample rate
//
// Example usage:
//
//	// Convert 16-bit stereo bytes to a mono signal
//	f := pcm.Format{SampleRate: 44100, Channels: 2, Depth: 16}
//	sig := f.Signal(pcm.Int16LE(data))
//
//	// Select 5 seconds starting at 0.5 seconds
//	seg := sig.Window(500*time.Millisecond, 5*time.Second)
package pcm
