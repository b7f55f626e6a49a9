package screening

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/haivivi/adscreen/pkg/audio/codec"
	"github.com/haivivi/adscreen/pkg/audio/features"
	"github.com/haivivi/adscreen/pkg/audio/resampler"
)

// Config controls the screening pipeline.
type Config struct {
	// Features configures segment selection and extraction.
	Features features.Config

	// ExpectedSampleRate is the rate the models were trained on. A
	// recording at another rate is still analyzed at its native rate but
	// logged as a warning. Zero disables the check.
	ExpectedSampleRate int

	// ResampleRate, when positive, converts every recording to this rate
	// before extraction.
	ResampleRate int
}

// DefaultConfig returns the pipeline configuration used in training:
// native-rate analysis with the default extractor.
func DefaultConfig() Config {
	return Config{Features: features.DefaultConfig()}
}

// Source describes the decoded recording.
type Source struct {
	Container    codec.Container `json:"container" yaml:"container"`
	SampleRate   int             `json:"sample_rate" yaml:"sample_rate"`
	Channels     int             `json:"channels" yaml:"channels"`
	BitDepth     int             `json:"bit_depth" yaml:"bit_depth"`
	Duration     float64         `json:"duration_seconds" yaml:"duration_seconds"`
	AnalysisRate int             `json:"analysis_rate" yaml:"analysis_rate"`
}

// Report is the full result of screening one recording.
type Report struct {
	Assessment Assessment         `json:"assessment" yaml:"assessment"`
	Features   *features.Features `json:"features" yaml:"features"`
	Source     Source             `json:"source" yaml:"source"`
	Elapsed    time.Duration      `json:"-" yaml:"-"`
}

// Screener runs decode, extraction and scoring for one recording at a
// time. It holds no per-request state and is safe for concurrent use.
type Screener struct {
	cfg       Config
	extractor *features.Extractor
	scorer    *Scorer
	logger    *slog.Logger
}

// Option configures a Screener.
type Option func(*Screener)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Screener) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds a Screener over loaded models. The models must expect
// exactly features.VectorLen values.
func New(models *Models, cfg Config, opts ...Option) (*Screener, error) {
	scorer, err := NewScorer(models)
	if err != nil {
		return nil, err
	}
	if scorer.Dim() != features.VectorLen {
		return nil, dimensionError(features.VectorLen, scorer.Dim())
	}
	if cfg.ResampleRate < 0 {
		return nil, fmt.Errorf("screening: invalid resample rate %d", cfg.ResampleRate)
	}
	ext, err := features.New(cfg.Features)
	if err != nil {
		return nil, fmt.Errorf("screening: %w", err)
	}
	s := &Screener{
		cfg:       cfg,
		extractor: ext,
		scorer:    scorer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Scorer returns the underlying scorer.
func (s *Screener) Scorer() *Scorer {
	return s.scorer
}

// AssessFile decodes and screens the recording at path.
func (s *Screener) AssessFile(ctx context.Context, path string) (*Report, error) {
	audio, err := codec.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return s.Assess(ctx, audio)
}

// AssessReader decodes and screens a recording from r.
func (s *Screener) AssessReader(ctx context.Context, r io.ReadSeeker) (*Report, error) {
	audio, err := codec.Decode(r)
	if err != nil {
		return nil, err
	}
	return s.Assess(ctx, audio)
}

// Assess screens an already decoded recording. Errors keep their type
// (*features.ExtractionError, *ScoringError) so callers can use errors.As.
func (s *Screener) Assess(ctx context.Context, audio *codec.Audio) (*Report, error) {
	start := time.Now()
	sig := audio.Signal

	if want := s.cfg.ExpectedSampleRate; want > 0 && sig.Rate != want {
		s.logger.Warn("sample rate differs from training rate",
			"rate", sig.Rate, "expected", want, "resample_rate", s.cfg.ResampleRate)
	}
	if s.cfg.ResampleRate > 0 && sig.Rate != s.cfg.ResampleRate {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resampled, err := resampler.Resample(sig, s.cfg.ResampleRate)
		if err != nil {
			return nil, fmt.Errorf("screening: %w", err)
		}
		sig = resampled
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	feats, err := s.extractor.Analyze(sig)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	assessment, err := s.scorer.Score(feats.Vector)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Assessment: assessment,
		Features:   feats,
		Source: Source{
			Container:    audio.Container,
			SampleRate:   audio.Format.SampleRate,
			Channels:     audio.Format.Channels,
			BitDepth:     audio.Format.Depth,
			Duration:     audio.Signal.Duration().Seconds(),
			AnalysisRate: sig.Rate,
		},
		Elapsed: time.Since(start),
	}
	s.logger.Debug("screened recording",
		"container", audio.Container,
		"rate", sig.Rate,
		"ad_probability", assessment.ADProbability,
		"label", assessment.Label,
		"elapsed", report.Elapsed)
	return report, nil
}
