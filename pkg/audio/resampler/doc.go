// Package resampler converts mono signals between sample rates using a
// pure Go polyphase resampler (no CGO/FFI dependencies).
//
// Feature extraction runs at the native rate of the recording. This package
// is only used when a deployment explicitly asks for a canonical analysis
// rate.
//
// Example usage:
//
//	sig, err := resampler.Resample(sig, 22050)
//	if err != nil {
//	    return err
//	}
package resampler
