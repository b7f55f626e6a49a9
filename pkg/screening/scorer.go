package screening

import (
	"errors"
	"fmt"
	"math"

	"github.com/haivivi/adscreen/pkg/audio/features"
)

// probabilityTolerance bounds how far P(CN)+P(AD) may stray from 1.
const probabilityTolerance = 1e-6

// Scorer normalizes feature vectors, classifies them and applies the
// decision threshold. It is safe for concurrent use.
type Scorer struct {
	norm      Normalizer
	clf       Classifier
	threshold float64
}

// NewScorer returns a Scorer over the loaded models using ADThreshold.
func NewScorer(m *Models) (*Scorer, error) {
	if m == nil || m.Normalizer == nil || m.Classifier == nil {
		return nil, &ScoringError{Err: errors.New("models not loaded")}
	}
	if m.Normalizer.Dim() != m.Classifier.Dim() {
		return nil, dimensionError(m.Normalizer.Dim(), m.Classifier.Dim())
	}
	return &Scorer{norm: m.Normalizer, clf: m.Classifier, threshold: ADThreshold}, nil
}

// Dim returns the vector length the models expect.
func (s *Scorer) Dim() int {
	return s.norm.Dim()
}

// NormalizerKind returns the kind tag of the loaded normalizer.
func (s *Scorer) NormalizerKind() string {
	return s.norm.Kind()
}

// ClassifierKind returns the kind tag of the loaded classifier.
func (s *Scorer) ClassifierKind() string {
	return s.clf.Kind()
}

// Score assesses a feature vector.
func (s *Scorer) Score(v features.Vector) (Assessment, error) {
	return s.ScoreSlice(v[:])
}

// ScoreSlice assesses a vector of arbitrary length. A length that differs
// from Dim fails with ErrDimensionMismatch; the vector is never truncated
// or padded.
func (s *Scorer) ScoreSlice(x []float64) (Assessment, error) {
	if len(x) != s.norm.Dim() {
		return Assessment{}, dimensionError(len(x), s.norm.Dim())
	}
	z, err := s.norm.Transform(x)
	if err != nil {
		return Assessment{}, asScoringError(err)
	}
	proba, err := s.clf.PredictProba(z)
	if err != nil {
		return Assessment{}, asScoringError(err)
	}
	if err := checkProba(proba); err != nil {
		return Assessment{}, &ScoringError{Err: err}
	}
	ad := proba[ClassAD]
	return Assessment{
		ADProbability: ad,
		CNProbability: proba[ClassCN],
		Label:         LabelFor(ad, s.threshold),
		Threshold:     s.threshold,
	}, nil
}

func checkProba(p [2]float64) error {
	for _, v := range p {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidProbability, p)
		}
	}
	if math.Abs(p[0]+p[1]-1) > probabilityTolerance {
		return fmt.Errorf("%w: %v does not sum to 1", ErrInvalidProbability, p)
	}
	return nil
}

func asScoringError(err error) error {
	var se *ScoringError
	if errors.As(err, &se) {
		return err
	}
	return &ScoringError{Err: err}
}
