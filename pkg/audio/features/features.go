// Package features computes the fixed acoustic feature vector used by the
// screening classifier.
//
// The vector has 32 entries in a fixed order:
//
//	0..27  MFCC means, coefficients 0..27
//	   28  chroma mean (per-bin time means, then mean over the 12 bins)
//	   29  spectral centroid mean (Hz)
//	   30  spectral rolloff mean (Hz, 85% of magnitude)
//	   31  zero-crossing rate mean
//
// The analysis conventions match the librosa 0.10 defaults the classifier
// was trained with:
//
//	FFTSize:    2048
//	HopSize:     512
//	Window:     periodic Hann, centered frames, zero padded
//	NumMels:     128 (Slaney scale and area normalization)
//	TopDB:        80
//	Rolloff:    0.85
//
// No resampling is done here: spectral features are computed at whatever
// rate the Signal carries.
package features

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/haivivi/adscreen/pkg/audio/pcm"
)

const (
	// NumMFCC is the number of cepstral coefficients in the vector.
	NumMFCC = 28

	// NumChroma is the number of pitch classes.
	NumChroma = 12

	// VectorLen is the length of the feature vector.
	VectorLen = NumMFCC + 4
)

// Positions of the scalar features in a Vector.
const (
	IndexChroma   = NumMFCC
	IndexCentroid = NumMFCC + 1
	IndexRolloff  = NumMFCC + 2
	IndexZCR      = NumMFCC + 3
)

// Vector is the ordered feature vector consumed by the scorer.
type Vector [VectorLen]float64

// MFCC returns the MFCC means.
func (v Vector) MFCC() []float64 { return v[:NumMFCC] }

// Chroma returns the chroma mean.
func (v Vector) Chroma() float64 { return v[IndexChroma] }

// Centroid returns the spectral centroid mean in Hz.
func (v Vector) Centroid() float64 { return v[IndexCentroid] }

// Rolloff returns the spectral rolloff mean in Hz.
func (v Vector) Rolloff() float64 { return v[IndexRolloff] }

// ZCR returns the zero-crossing rate mean.
func (v Vector) ZCR() float64 { return v[IndexZCR] }

// Finite reports whether every entry is a finite number.
func (v Vector) Finite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Names returns the column name of every vector position.
func Names() [VectorLen]string {
	var names [VectorLen]string
	for i := range NumMFCC {
		names[i] = fmt.Sprintf("mfcc_%02d", i)
	}
	names[IndexChroma] = "chroma_mean"
	names[IndexCentroid] = "spectral_centroid"
	names[IndexRolloff] = "spectral_rolloff"
	names[IndexZCR] = "zero_crossing_rate"
	return names
}

// Config controls segment selection and analysis parameters.
type Config struct {
	Offset      time.Duration // start of the analyzed segment (default 500ms)
	Duration    time.Duration // maximum segment length (default 5s)
	FFTSize     int           // STFT size, power of two (default 2048)
	HopSize     int           // STFT hop (default 512)
	NumMels     int           // mel bands feeding the MFCC DCT (default 128)
	TopDB       float64       // dynamic range clamp of the log-mel spectrum (default 80)
	RollPercent float64       // rolloff energy fraction (default 0.85)

	// AllowSilence makes an all-zero spectrum produce the degenerate
	// values (centroid and rolloff 0) instead of ErrSilentSegment.
	AllowSilence bool
}

// DefaultConfig returns the configuration the classifier was trained with.
func DefaultConfig() Config {
	return Config{
		Offset:      500 * time.Millisecond,
		Duration:    5 * time.Second,
		FFTSize:     2048,
		HopSize:     512,
		NumMels:     128,
		TopDB:       80,
		RollPercent: 0.85,
	}
}

func (c Config) validate() error {
	if c.FFTSize < 2 || c.FFTSize&(c.FFTSize-1) != 0 {
		return fmt.Errorf("features: FFT size %d is not a power of two", c.FFTSize)
	}
	if c.HopSize <= 0 {
		return fmt.Errorf("features: invalid hop size %d", c.HopSize)
	}
	if c.NumMels < NumMFCC {
		return fmt.Errorf("features: %d mel bands cannot yield %d coefficients", c.NumMels, NumMFCC)
	}
	if c.RollPercent <= 0 || c.RollPercent >= 1 {
		return fmt.Errorf("features: rolloff fraction %v out of (0, 1)", c.RollPercent)
	}
	if c.Duration <= 0 || c.Offset < 0 {
		return fmt.Errorf("features: invalid segment %v+%v", c.Offset, c.Duration)
	}
	return nil
}

// Features is the full result of one analysis. Vector is what the scorer
// consumes; the other fields are diagnostics.
type Features struct {
	Vector          Vector             `json:"vector" yaml:"vector"`
	ChromaBins      [NumChroma]float64 `json:"chroma_bins" yaml:"chroma_bins"`
	Tuning          float64            `json:"tuning" yaml:"tuning"`
	Frames          int                `json:"frames" yaml:"frames"`
	SampleRate      int                `json:"sample_rate" yaml:"sample_rate"`
	AnalyzedSeconds float64            `json:"analyzed_seconds" yaml:"analyzed_seconds"`
}

// Extractor computes feature vectors. It holds only precomputed tables and
// is safe for concurrent use.
type Extractor struct {
	cfg    Config
	window []float64   // periodic Hann window
	dct    [][]float64 // [NumMFCC][NumMels] orthonormal DCT-II basis
}

// New creates an Extractor with the given config.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Extractor{
		cfg:    cfg,
		window: hannWindow(cfg.FFTSize),
		dct:    dctBasis(NumMFCC, cfg.NumMels),
	}, nil
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config {
	return e.cfg
}

// Extract selects the analysis segment of sig and returns its feature
// vector. On failure no partial vector is returned.
func (e *Extractor) Extract(sig pcm.Signal) (Vector, error) {
	f, err := e.Analyze(sig)
	if err != nil {
		return Vector{}, err
	}
	return f.Vector, nil
}

// Analyze is like Extract but also returns the diagnostic fields.
func (e *Extractor) Analyze(sig pcm.Signal) (*Features, error) {
	if sig.Rate <= 0 {
		return nil, &ExtractionError{Stage: StageSegment, Err: fmt.Errorf("invalid sample rate %d", sig.Rate)}
	}
	seg := sig.Window(e.cfg.Offset, e.cfg.Duration)
	// Segments shorter than one FFT frame are zero padded by the
	// centered STFT, so only an empty segment is rejected.
	if seg.Len() == 0 {
		return nil, &ExtractionError{
			Stage: StageSegment,
			Err:   fmt.Errorf("%w: no samples after %v offset", ErrSegmentTooShort, e.cfg.Offset),
		}
	}
	return e.analyzeSegment(seg)
}

// analyzeSegment computes features over the whole of seg.
func (e *Extractor) analyzeSegment(seg pcm.Signal) (*Features, error) {
	cfg := e.cfg
	mag := e.stft(seg.Samples)
	power := squared(mag)

	silent := true
	for _, frame := range mag {
		if sumOf(frame) >= tiny {
			silent = false
			break
		}
	}
	if silent && !cfg.AllowSilence {
		return nil, &ExtractionError{Stage: StageSpectrum, Err: ErrSilentSegment}
	}

	out := &Features{
		Frames:          len(mag),
		SampleRate:      seg.Rate,
		AnalyzedSeconds: seg.Duration().Seconds(),
	}

	// MFCC
	melBank := melFilterBank(seg.Rate, cfg.FFTSize, cfg.NumMels, 0, float64(seg.Rate)/2)
	mfcc := e.mfcc(power, melBank)
	for i := range NumMFCC {
		out.Vector[i] = stat.Mean(mfcc[i], nil)
	}

	// Chroma
	tuning := estimateTuning(power, seg.Rate, cfg.FFTSize)
	chroma := chromaSTFT(power, chromaFilterBank(seg.Rate, cfg.FFTSize, tuning))
	for c := range NumChroma {
		out.ChromaBins[c] = stat.Mean(chroma[c], nil)
	}
	out.Tuning = tuning
	out.Vector[IndexChroma] = stat.Mean(out.ChromaBins[:], nil)

	// Spectral shape
	freqs := fftFrequencies(seg.Rate, cfg.FFTSize)
	out.Vector[IndexCentroid] = stat.Mean(spectralCentroid(mag, freqs), nil)
	out.Vector[IndexRolloff] = stat.Mean(spectralRolloff(mag, freqs, cfg.RollPercent), nil)

	// Zero crossings
	out.Vector[IndexZCR] = stat.Mean(zeroCrossingRate(seg.Samples, cfg.FFTSize, cfg.HopSize), nil)

	if !out.Vector.Finite() {
		return nil, &ExtractionError{Stage: StageAggregate, Err: ErrNonFinite}
	}
	return out, nil
}
