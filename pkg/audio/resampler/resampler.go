package resampler

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/haivivi/adscreen/pkg/audio/pcm"
)

// Resample converts sig to the given sample rate. A signal already at rate
// is returned as is.
func Resample(sig pcm.Signal, rate int) (pcm.Signal, error) {
	if rate <= 0 {
		return pcm.Signal{}, fmt.Errorf("resampler: invalid target rate %d", rate)
	}
	if sig.Rate <= 0 {
		return pcm.Signal{}, fmt.Errorf("resampler: invalid source rate %d", sig.Rate)
	}
	if sig.Rate == rate || sig.Len() == 0 {
		return pcm.Signal{Samples: sig.Samples, Rate: rate}, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(sig.Rate),
		OutputRate: float64(rate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return pcm.Signal{}, fmt.Errorf("failed to create resampler: %w", err)
	}

	out, err := r.Process(sig.Samples)
	if err != nil {
		return pcm.Signal{}, fmt.Errorf("resample error: %w", err)
	}
	tail, err := r.Flush()
	if err != nil {
		return pcm.Signal{}, fmt.Errorf("resample flush: %w", err)
	}
	out = append(out, tail...)

	// Flush pushes zeros through the filters; keep the span of the input.
	if want := outputLen(sig.Len(), sig.Rate, rate); len(out) > want {
		out = out[:want]
	}
	return pcm.Signal{Samples: out, Rate: rate}, nil
}

// outputLen returns the number of samples n input samples span at the
// target rate.
func outputLen(n, from, to int) int {
	return int(math.Round(float64(n) * float64(to) / float64(from)))
}
