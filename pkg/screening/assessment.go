package screening

// ADThreshold is the AD probability at or above which a recording is
// labeled high risk.
const ADThreshold = 0.40

// Label is the binary screening outcome.
type Label string

const (
	LowRisk  Label = "LOW_RISK"
	HighRisk Label = "HIGH_RISK"
)

// LabelFor returns HighRisk when p reaches threshold.
func LabelFor(p, threshold float64) Label {
	if p >= threshold {
		return HighRisk
	}
	return LowRisk
}

// Headline returns the user-facing message for the label.
func (l Label) Headline() string {
	switch l {
	case HighRisk:
		return "HIGH RISK: AD-Like Speech Patterns Detected"
	case LowRisk:
		return "LOW RISK: Cognitively Normal Speech"
	}
	return string(l)
}

// Assessment is the result of scoring one feature vector.
type Assessment struct {
	ADProbability float64 `json:"ad_probability" yaml:"ad_probability"`
	CNProbability float64 `json:"cn_probability" yaml:"cn_probability"`
	Label         Label   `json:"label" yaml:"label"`
	Threshold     float64 `json:"threshold" yaml:"threshold"`
}
