package screening

import (
	"errors"
	"fmt"
	"math"
)

// Normalizer maps a raw feature vector into the space the classifier was
// fitted on.
//
// Implementations must be immutable after construction and safe for
// concurrent use.
type Normalizer interface {
	// Transform returns a new normalized vector. It fails with
	// ErrDimensionMismatch when len(x) != Dim().
	Transform(x []float64) ([]float64, error)

	// Dim returns the vector length the normalizer was fitted on.
	Dim() int

	// Kind returns the artifact kind, e.g. "standard_scaler".
	Kind() string
}

// Normalizer kinds.
const (
	KindStandardScaler = "standard_scaler"
	KindMinMaxScaler   = "min_max_scaler"
)

// StandardScaler standardizes features as (x - mean) / scale.
type StandardScaler struct {
	Mean         []float64 `json:"mean" yaml:"mean" msgpack:"mean"`
	Scale        []float64 `json:"scale" yaml:"scale" msgpack:"scale"`
	FeatureNames []string  `json:"feature_names,omitempty" yaml:"feature_names,omitempty" msgpack:"feature_names,omitempty"`
}

// Validate checks that the parameters are consistent and usable.
func (s *StandardScaler) Validate() error {
	if len(s.Mean) == 0 {
		return errors.New("standard_scaler: empty mean")
	}
	if len(s.Scale) != len(s.Mean) {
		return fmt.Errorf("standard_scaler: %d means but %d scales", len(s.Mean), len(s.Scale))
	}
	if err := checkNames(s.FeatureNames, len(s.Mean)); err != nil {
		return fmt.Errorf("standard_scaler: %w", err)
	}
	for i := range s.Mean {
		if !isFinite(s.Mean[i]) || !isFinite(s.Scale[i]) {
			return fmt.Errorf("standard_scaler: non-finite parameter at %d", i)
		}
		if s.Scale[i] == 0 {
			return fmt.Errorf("standard_scaler: zero scale at %d", i)
		}
	}
	return nil
}

func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, dimensionError(len(x), len(s.Mean))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}

func (s *StandardScaler) Dim() int     { return len(s.Mean) }
func (s *StandardScaler) Kind() string { return KindStandardScaler }

// MinMaxScaler rescales features as x*scale + min, where scale and min
// were derived from the training range.
type MinMaxScaler struct {
	Scale        []float64 `json:"scale" yaml:"scale" msgpack:"scale"`
	Min          []float64 `json:"min" yaml:"min" msgpack:"min"`
	FeatureNames []string  `json:"feature_names,omitempty" yaml:"feature_names,omitempty" msgpack:"feature_names,omitempty"`
}

// Validate checks that the parameters are consistent and finite.
func (s *MinMaxScaler) Validate() error {
	if len(s.Scale) == 0 {
		return errors.New("min_max_scaler: empty scale")
	}
	if len(s.Min) != len(s.Scale) {
		return fmt.Errorf("min_max_scaler: %d scales but %d mins", len(s.Scale), len(s.Min))
	}
	if err := checkNames(s.FeatureNames, len(s.Scale)); err != nil {
		return fmt.Errorf("min_max_scaler: %w", err)
	}
	for i := range s.Scale {
		if !isFinite(s.Scale[i]) || !isFinite(s.Min[i]) {
			return fmt.Errorf("min_max_scaler: non-finite parameter at %d", i)
		}
	}
	return nil
}

func (s *MinMaxScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Scale) {
		return nil, dimensionError(len(x), len(s.Scale))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v*s.Scale[i] + s.Min[i]
	}
	return out, nil
}

func (s *MinMaxScaler) Dim() int     { return len(s.Scale) }
func (s *MinMaxScaler) Kind() string { return KindMinMaxScaler }

func checkNames(names []string, n int) error {
	if len(names) != 0 && len(names) != n {
		return fmt.Errorf("%d feature names for %d features", len(names), n)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

var (
	_ Normalizer = (*StandardScaler)(nil)
	_ Normalizer = (*MinMaxScaler)(nil)
)
