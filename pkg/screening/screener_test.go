package screening

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/haivivi/adscreen/pkg/audio/codec"
	"github.com/haivivi/adscreen/pkg/audio/codec/wav"
	"github.com/haivivi/adscreen/pkg/audio/features"
	"github.com/haivivi/adscreen/pkg/audio/pcm"
)

func tone(freq float64, rate int, d time.Duration, amp float64) pcm.Signal {
	n := int(math.Round(float64(rate) * d.Seconds()))
	s := make([]float64, n)
	for i := range s {
		s[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return pcm.Signal{Samples: s, Rate: rate}
}

func writeWAV(t *testing.T, sig pcm.Signal) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "speech.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := wav.Encode(f, sig); err != nil {
		t.Fatal(err)
	}
	return path
}

func newScreener(t *testing.T, cfg Config, opts ...Option) *Screener {
	t.Helper()
	s, err := New(loadTestdata(t, "scaler.json", "logistic.json"), cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestAssessFile(t *testing.T) {
	s := newScreener(t, DefaultConfig())
	report, err := s.AssessFile(context.Background(), writeWAV(t, tone(440, 22050, 6*time.Second, 0.5)))
	if err != nil {
		t.Fatalf("AssessFile: %v", err)
	}

	src := report.Source
	if src.Container != codec.ContainerWAV || src.SampleRate != 22050 || src.AnalysisRate != 22050 {
		t.Errorf("Source = %+v", src)
	}
	if math.Abs(src.Duration-6) > 1e-3 {
		t.Errorf("Duration = %f, want 6", src.Duration)
	}
	if math.Abs(report.Features.AnalyzedSeconds-5) > 1e-3 {
		t.Errorf("AnalyzedSeconds = %f, want 5", report.Features.AnalyzedSeconds)
	}

	// The golden model only looks at the zero-crossing rate.
	zcr := report.Features.Vector.ZCR()
	want := 1 / (1 + math.Exp(-(2*(zcr-0.25)/0.25 - 1)))
	a := report.Assessment
	if math.Abs(a.ADProbability-want) > 1e-9 {
		t.Errorf("ADProbability = %f, want %f", a.ADProbability, want)
	}
	if a.Label != LabelFor(want, ADThreshold) {
		t.Errorf("Label = %s", a.Label)
	}
}

func TestAssessReader_MatchesAssessFile(t *testing.T) {
	s := newScreener(t, DefaultConfig())
	path := writeWAV(t, tone(220, 16000, 3*time.Second, 0.3))

	fromFile, err := s.AssessFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	fromReader, err := s.AssessReader(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if fromFile.Assessment != fromReader.Assessment || fromFile.Features.Vector != fromReader.Features.Vector {
		t.Errorf("reports differ:\n%+v\n%+v", fromFile.Assessment, fromReader.Assessment)
	}
}

func TestAssess_Silence(t *testing.T) {
	path := writeWAV(t, pcm.Signal{Samples: make([]float64, 22050*6), Rate: 22050})

	_, err := newScreener(t, DefaultConfig()).AssessFile(context.Background(), path)
	var ee *features.ExtractionError
	if !errors.As(err, &ee) || !errors.Is(err, features.ErrSilentSegment) {
		t.Fatalf("err = %v, want ExtractionError wrapping ErrSilentSegment", err)
	}

	cfg := DefaultConfig()
	cfg.Features.AllowSilence = true
	report, err := newScreener(t, cfg).AssessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("AssessFile with AllowSilence: %v", err)
	}
	// ZCR of silence is 0, so z = -1 and the score is sigmoid(-3).
	if want := 1 / (1 + math.Exp(3)); math.Abs(report.Assessment.ADProbability-want) > 1e-12 {
		t.Errorf("ADProbability = %f, want %f", report.Assessment.ADProbability, want)
	}
}

func TestAssess_Errors(t *testing.T) {
	s := newScreener(t, DefaultConfig())

	_, err := s.AssessReader(context.Background(), strings.NewReader("not audio"))
	var de *codec.DecodeError
	if !errors.As(err, &de) {
		t.Errorf("err = %v, want *codec.DecodeError", err)
	}

	_, err = s.AssessFile(context.Background(), writeWAV(t, tone(440, 22050, 300*time.Millisecond, 0.5)))
	if !errors.Is(err, features.ErrSegmentTooShort) {
		t.Errorf("err = %v, want ErrSegmentTooShort", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.AssessFile(ctx, writeWAV(t, tone(440, 22050, time.Second, 0.5)))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestAssess_Resample(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResampleRate = 16000
	s := newScreener(t, cfg)

	report, err := s.AssessFile(context.Background(), writeWAV(t, tone(440, 44100, 2*time.Second, 0.5)))
	if err != nil {
		t.Fatal(err)
	}
	if report.Source.SampleRate != 44100 || report.Source.AnalysisRate != 16000 {
		t.Errorf("Source = %+v, want 44100 Hz analyzed at 16000 Hz", report.Source)
	}
	if report.Features.SampleRate != 16000 {
		t.Errorf("Features.SampleRate = %d", report.Features.SampleRate)
	}
}

func TestAssess_WarnsOnUnexpectedRate(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	cfg := DefaultConfig()
	cfg.ExpectedSampleRate = 22050
	s := newScreener(t, cfg, WithLogger(logger))

	if _, err := s.AssessFile(context.Background(), writeWAV(t, tone(440, 16000, 2*time.Second, 0.5))); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(logs.String(), "sample rate differs") {
		t.Errorf("expected rate warning, got %q", logs.String())
	}

	logs.Reset()
	if _, err := s.AssessFile(context.Background(), writeWAV(t, tone(440, 22050, 2*time.Second, 0.5))); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(logs.String(), "sample rate differs") {
		t.Errorf("unexpected warning at the expected rate: %q", logs.String())
	}
}

func TestNew_RejectsWrongDimension(t *testing.T) {
	m := &Models{Normalizer: identity(31), Classifier: &LogisticRegression{Coef: make([]float64, 31)}}
	_, err := New(m, DefaultConfig())
	var se *ScoringError
	if !errors.As(err, &se) || !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ScoringError wrapping ErrDimensionMismatch", err)
	}

	cfg := DefaultConfig()
	cfg.Features.HopSize = 0
	if _, err := New(loadTestdata(t, "scaler.json", "logistic.json"), cfg); err == nil {
		t.Error("New accepted an invalid feature config")
	}
}
