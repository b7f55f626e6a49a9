package screening

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Class indices of a binary classifier's probability output.
const (
	ClassCN = 0
	ClassAD = 1
)

// Classifier maps a normalized vector to class probabilities.
//
// Implementations must be immutable after construction and safe for
// concurrent use.
type Classifier interface {
	// PredictProba returns {P(CN), P(AD)}.
	PredictProba(z []float64) ([2]float64, error)

	// Dim returns the vector length the classifier was fitted on.
	Dim() int

	// Kind returns the artifact kind, e.g. "random_forest".
	Kind() string
}

// Classifier kinds.
const (
	KindRandomForest       = "random_forest"
	KindLogisticRegression = "logistic_regression"
)

// leaf marks a missing child in the flattened tree arrays.
const leaf = -1

// Tree is one fitted decision tree in flattened array form: node i splits
// on Feature[i] at Threshold[i], going to ChildrenLeft[i] when the value is
// at most the threshold and to ChildrenRight[i] otherwise. Leaves have both
// children set to -1 and carry per-class counts or fractions in Value.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left" yaml:"children_left" msgpack:"children_left"`
	ChildrenRight []int       `json:"children_right" yaml:"children_right" msgpack:"children_right"`
	Feature       []int       `json:"feature" yaml:"feature" msgpack:"feature"`
	Threshold     []float64   `json:"threshold" yaml:"threshold" msgpack:"threshold"`
	Value         [][]float64 `json:"value" yaml:"value" msgpack:"value"`
}

func (t *Tree) validate(nFeatures int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return errors.New("empty tree")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("node arrays disagree in length (%d, %d, %d, %d, %d)",
			n, len(t.ChildrenRight), len(t.Feature), len(t.Threshold), len(t.Value))
	}
	for i := range n {
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == leaf || r == leaf {
			if l != r {
				return fmt.Errorf("node %d has one child", i)
			}
			if len(t.Value[i]) != 2 {
				return fmt.Errorf("leaf %d has %d class values, want 2", i, len(t.Value[i]))
			}
			for _, v := range t.Value[i] {
				if !isFinite(v) || v < 0 {
					return fmt.Errorf("leaf %d has invalid value %v", i, v)
				}
			}
			if floats.Sum(t.Value[i]) <= 0 {
				return fmt.Errorf("leaf %d has no weight", i)
			}
			continue
		}
		// Children always follow their parent, which rules out cycles.
		if l <= i || l >= n || r <= i || r >= n {
			return fmt.Errorf("node %d has out-of-order children %d, %d", i, l, r)
		}
		if f := t.Feature[i]; f < 0 || f >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d of %d", i, f, nFeatures)
		}
		if math.IsNaN(t.Threshold[i]) {
			return fmt.Errorf("node %d has NaN threshold", i)
		}
	}
	return nil
}

// predict walks to the leaf for z and returns its normalized class
// distribution. Features are rounded to float32 before comparison, since
// the thresholds were fitted on float32 inputs.
func (t *Tree) predict(z []float64) [2]float64 {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		if float64(float32(z[t.Feature[node]])) <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	v := t.Value[node]
	total := v[0] + v[1]
	return [2]float64{v[0] / total, v[1] / total}
}

// RandomForest averages the leaf distributions of its trees.
type RandomForest struct {
	NFeatures  int     `json:"n_features" yaml:"n_features" msgpack:"n_features"`
	Classes    []int   `json:"classes,omitempty" yaml:"classes,omitempty" msgpack:"classes,omitempty"`
	Estimators []*Tree `json:"estimators" yaml:"estimators" msgpack:"estimators"`
}

// Validate checks every tree against the declared feature count.
func (f *RandomForest) Validate() error {
	if f.NFeatures <= 0 {
		return fmt.Errorf("random_forest: invalid n_features %d", f.NFeatures)
	}
	if err := checkClasses(f.Classes); err != nil {
		return fmt.Errorf("random_forest: %w", err)
	}
	if len(f.Estimators) == 0 {
		return errors.New("random_forest: no estimators")
	}
	for i, t := range f.Estimators {
		if t == nil {
			return fmt.Errorf("random_forest: estimator %d is null", i)
		}
		if err := t.validate(f.NFeatures); err != nil {
			return fmt.Errorf("random_forest: estimator %d: %w", i, err)
		}
	}
	return nil
}

func (f *RandomForest) PredictProba(z []float64) ([2]float64, error) {
	if len(z) != f.NFeatures {
		return [2]float64{}, dimensionError(len(z), f.NFeatures)
	}
	var sum [2]float64
	for _, t := range f.Estimators {
		p := t.predict(z)
		sum[0] += p[0]
		sum[1] += p[1]
	}
	n := float64(len(f.Estimators))
	return [2]float64{sum[0] / n, sum[1] / n}, nil
}

func (f *RandomForest) Dim() int     { return f.NFeatures }
func (f *RandomForest) Kind() string { return KindRandomForest }

// LogisticRegression scores sigmoid(coef·z + intercept) as P(AD).
type LogisticRegression struct {
	Coef      []float64 `json:"coef" yaml:"coef" msgpack:"coef"`
	Intercept float64   `json:"intercept" yaml:"intercept" msgpack:"intercept"`
	Classes   []int     `json:"classes,omitempty" yaml:"classes,omitempty" msgpack:"classes,omitempty"`
}

// Validate checks that the weights are present and finite.
func (m *LogisticRegression) Validate() error {
	if len(m.Coef) == 0 {
		return errors.New("logistic_regression: empty coef")
	}
	if err := checkClasses(m.Classes); err != nil {
		return fmt.Errorf("logistic_regression: %w", err)
	}
	if !isFinite(m.Intercept) {
		return errors.New("logistic_regression: non-finite intercept")
	}
	for i, w := range m.Coef {
		if !isFinite(w) {
			return fmt.Errorf("logistic_regression: non-finite coef at %d", i)
		}
	}
	return nil
}

func (m *LogisticRegression) PredictProba(z []float64) ([2]float64, error) {
	if len(z) != len(m.Coef) {
		return [2]float64{}, dimensionError(len(z), len(m.Coef))
	}
	p := sigmoid(floats.Dot(m.Coef, z) + m.Intercept)
	return [2]float64{1 - p, p}, nil
}

func (m *LogisticRegression) Dim() int     { return len(m.Coef) }
func (m *LogisticRegression) Kind() string { return KindLogisticRegression }

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// checkClasses accepts an absent label list or exactly {0, 1}, so that
// output index 1 is always the AD class.
func checkClasses(classes []int) error {
	if len(classes) == 0 {
		return nil
	}
	if len(classes) != 2 || classes[ClassCN] != 0 || classes[ClassAD] != 1 {
		return fmt.Errorf("classes %v, want [0 1]", classes)
	}
	return nil
}

var (
	_ Classifier = (*RandomForest)(nil)
	_ Classifier = (*LogisticRegression)(nil)
)
