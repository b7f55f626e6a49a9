package screening

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from
	// the length the loaded models were fitted on.
	ErrDimensionMismatch = errors.New("screening: dimension mismatch")

	// ErrInvalidProbability is returned when a classifier produces a
	// distribution that is not finite, not within [0, 1], or does not sum
	// to 1.
	ErrInvalidProbability = errors.New("screening: invalid probability")

	// ErrUnknownKind is returned for artifacts whose kind has no
	// registered decoder.
	ErrUnknownKind = errors.New("screening: unknown artifact kind")

	// ErrUnknownEncoding is returned for artifact locations whose
	// extension maps to no supported encoding.
	ErrUnknownEncoding = errors.New("screening: unknown artifact encoding")
)

// ArtifactLoadError reports a normalizer or classifier artifact that could
// not be read, decoded or validated.
type ArtifactLoadError struct {
	Artifact string // "scaler" or "model"
	Path     string
	Err      error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("screening: load %s %s: %v", e.Artifact, e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error {
	return e.Err
}

// ScoringError reports a failure to turn a feature vector into an
// assessment. It indicates a configuration integrity problem rather than
// bad input audio.
type ScoringError struct {
	Err error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("screening: score: %v", e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}

func dimensionError(got, want int) error {
	return &ScoringError{Err: fmt.Errorf("%w: got %d values, want %d", ErrDimensionMismatch, got, want)}
}
