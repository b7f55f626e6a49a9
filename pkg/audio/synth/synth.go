// Package synth generates test recordings as mono signals.
package synth

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/haivivi/adscreen/pkg/audio/pcm"
)

// ErrInvalid is returned for out-of-range generator parameters.
var ErrInvalid = errors.New("synth: invalid parameters")

// harmonics approximates a struck string: relative amplitude and decay
// rate per partial. Higher partials decay faster.
var harmonics = []struct {
	ratio, amplitude, decay float64
}{
	{1, 1.0, 1.0},
	{2, 0.7, 1.2},
	{3, 0.45, 1.5},
	{4, 0.3, 1.8},
	{5, 0.2, 2.2},
	{6, 0.12, 2.6},
	{7, 0.08, 3.0},
	{8, 0.05, 3.5},
}

func samples(rate int, d time.Duration) (int, error) {
	if rate <= 0 {
		return 0, fmt.Errorf("%w: sample rate %d", ErrInvalid, rate)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: duration %s", ErrInvalid, d)
	}
	return int(math.Round(float64(rate) * d.Seconds())), nil
}

func checkTone(freq float64, rate int, amp float64) error {
	if freq <= 0 || freq >= float64(rate)/2 {
		return fmt.Errorf("%w: frequency %g Hz outside (0, %d)", ErrInvalid, freq, rate/2)
	}
	if amp < 0 || amp > 1 {
		return fmt.Errorf("%w: amplitude %g outside [0, 1]", ErrInvalid, amp)
	}
	return nil
}

// Silence returns d of digital silence.
func Silence(rate int, d time.Duration) (pcm.Signal, error) {
	n, err := samples(rate, d)
	if err != nil {
		return pcm.Signal{}, err
	}
	return pcm.Signal{Samples: make([]float64, n), Rate: rate}, nil
}

// Sine returns a pure tone with peak amplitude amp.
func Sine(freq float64, rate int, d time.Duration, amp float64) (pcm.Signal, error) {
	if err := checkTone(freq, rate, amp); err != nil {
		return pcm.Signal{}, err
	}
	n, err := samples(rate, d)
	if err != nil {
		return pcm.Signal{}, err
	}
	s := make([]float64, n)
	for i := range s {
		s[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return pcm.Signal{Samples: s, Rate: rate}, nil
}

// Harmonic returns a decaying note with string-like partials, scaled so
// its peak is amp. Partials at or above Nyquist are skipped. A short
// attack avoids a click at the start.
func Harmonic(freq float64, rate int, d time.Duration, amp float64) (pcm.Signal, error) {
	if err := checkTone(freq, rate, amp); err != nil {
		return pcm.Signal{}, err
	}
	n, err := samples(rate, d)
	if err != nil {
		return pcm.Signal{}, err
	}

	// Stiff strings put higher partials slightly sharp.
	inharmonicity := 0.0001 * (freq / 440) * (freq / 440)
	attack := 0.01 * float64(rate)
	nyquist := float64(rate) / 2
	total := d.Seconds()

	s := make([]float64, n)
	for i := range s {
		t := float64(i) / float64(rate)
		progress := t / total
		var v float64
		for _, h := range harmonics {
			ratio := h.ratio * math.Sqrt(1+inharmonicity*h.ratio*h.ratio)
			if freq*ratio >= nyquist {
				continue
			}
			v += h.amplitude * math.Exp(-progress*h.decay*3) * math.Sin(2*math.Pi*freq*ratio*t)
		}
		if fi := float64(i); fi < attack {
			v *= fi / attack
		}
		s[i] = v
	}

	sig := pcm.Signal{Samples: s, Rate: rate}
	if peak := sig.Peak(); peak > 0 {
		k := amp / peak
		for i := range s {
			s[i] *= k
		}
	}
	return sig, nil
}
