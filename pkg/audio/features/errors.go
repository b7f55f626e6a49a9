package features

import (
	"errors"
	"fmt"
)

var (
	// ErrSegmentTooShort means no samples remain after the analysis
	// offset.
	ErrSegmentTooShort = errors.New("segment too short")

	// ErrSilentSegment means the magnitude spectrum is zero in every frame,
	// so spectral centroid and rolloff are undefined.
	ErrSilentSegment = errors.New("silent segment")

	// ErrNonFinite means a feature evaluated to NaN or Inf.
	ErrNonFinite = errors.New("non-finite feature value")
)

// Stage names the extraction step that failed.
type Stage string

const (
	StageSegment   Stage = "segment"
	StageSpectrum  Stage = "spectrum"
	StageAggregate Stage = "aggregate"
)

// ExtractionError reports a failed feature computation on decoded audio.
type ExtractionError struct {
	Stage Stage
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("features: %s: %v", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
