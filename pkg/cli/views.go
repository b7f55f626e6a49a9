package cli

import (
	"fmt"
	"strings"

	"github.com/haivivi/adscreen/pkg/audio/features"
	"github.com/haivivi/adscreen/pkg/screening"
)

// ReportView renders a screening report.
type ReportView struct {
	*screening.Report
}

// Pretty renders the risk banner followed by probabilities and source
// details.
func (v ReportView) Pretty(s Styles) string {
	a := v.Assessment
	banner := s.Calm
	if a.Label == screening.HighRisk {
		banner = s.Alert
	}

	parts := []string{
		banner.Render(a.Label.Headline()),
		s.Section("Assessment", [][2]string{
			{"AD probability", FormatPercent(a.ADProbability)},
			{"CN probability", FormatPercent(a.CNProbability)},
			{"Threshold", FormatPercent(a.Threshold)},
		}),
	}
	src := v.Source
	rows := [][2]string{
		{"Container", string(src.Container)},
		{"Sample rate", fmt.Sprintf("%d Hz", src.SampleRate)},
		{"Channels", fmt.Sprint(src.Channels)},
		{"Duration", fmt.Sprintf("%.2fs", src.Duration)},
	}
	if v.Features != nil {
		rows = append(rows, [2]string{"Analyzed", fmt.Sprintf("%.2fs at %d Hz", v.Features.AnalyzedSeconds, src.AnalysisRate)})
	}
	if v.Elapsed > 0 {
		rows = append(rows, [2]string{"Elapsed", FormatDuration(v.Elapsed)})
	}
	parts = append(parts, s.Section("Recording", rows))
	parts = append(parts, s.Help.Render("Screening aid only; not a diagnosis."))
	return strings.Join(parts, "\n\n")
}

// FeaturesView renders a named feature vector.
type FeaturesView struct {
	Source   string             `json:"source" yaml:"source"`
	Names    []string           `json:"names" yaml:"names"`
	Features *features.Features `json:"features" yaml:"features"`
}

// NewFeaturesView pairs features with their names.
func NewFeaturesView(source string, f *features.Features) FeaturesView {
	names := features.Names()
	return FeaturesView{Source: source, Names: names[:], Features: f}
}

// Pretty renders one row per vector entry.
func (v FeaturesView) Pretty(s Styles) string {
	rows := make([][2]string, 0, features.VectorLen)
	for i, n := range v.Names {
		rows = append(rows, [2]string{n, fmt.Sprintf("%.6f", v.Features.Vector[i])})
	}
	title := fmt.Sprintf("%s (%d frames at %d Hz)", v.Source, v.Features.Frames, v.Features.SampleRate)
	return s.Section(title, rows)
}

// ModelsView summarizes loaded artifacts.
type ModelsView struct {
	Scaler      ArtifactInfo `json:"scaler" yaml:"scaler"`
	Model       ArtifactInfo `json:"model" yaml:"model"`
	Threshold   float64      `json:"threshold" yaml:"threshold"`
	ExpectedDim int          `json:"expected_dim" yaml:"expected_dim"`
}

// ArtifactInfo describes one artifact.
type ArtifactInfo struct {
	Location string `json:"location" yaml:"location"`
	Kind     string `json:"kind" yaml:"kind"`
	Dim      int    `json:"dim" yaml:"dim"`
}

// NewModelsView summarizes m.
func NewModelsView(m *screening.Models) ModelsView {
	return ModelsView{
		Scaler:      ArtifactInfo{Location: m.ScalerLocation.String(), Kind: m.Normalizer.Kind(), Dim: m.Normalizer.Dim()},
		Model:       ArtifactInfo{Location: m.ModelLocation.String(), Kind: m.Classifier.Kind(), Dim: m.Classifier.Dim()},
		Threshold:   screening.ADThreshold,
		ExpectedDim: features.VectorLen,
	}
}

// Compatible reports whether the artifacts accept the extractor's vector.
func (v ModelsView) Compatible() bool {
	return v.Scaler.Dim == v.ExpectedDim && v.Model.Dim == v.ExpectedDim
}

// Pretty renders both artifacts and the compatibility verdict.
func (v ModelsView) Pretty(s Styles) string {
	verdict := s.Calm.Render(fmt.Sprintf("compatible with the %d-value feature vector", v.ExpectedDim))
	if !v.Compatible() {
		verdict = s.Alert.Render(fmt.Sprintf("incompatible: extractor produces %d values", v.ExpectedDim))
	}
	return strings.Join([]string{
		s.Section("Scaler", [][2]string{
			{"Location", v.Scaler.Location},
			{"Kind", v.Scaler.Kind},
			{"Features", fmt.Sprint(v.Scaler.Dim)},
		}),
		s.Section("Model", [][2]string{
			{"Location", v.Model.Location},
			{"Kind", v.Model.Kind},
			{"Features", fmt.Sprint(v.Model.Dim)},
			{"Threshold", FormatPercent(v.Threshold)},
		}),
		verdict,
	}, "\n\n")
}
