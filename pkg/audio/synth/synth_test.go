package synth

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestSilence(t *testing.T) {
	sig, err := Silence(16000, 1500*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Len() != 24000 || sig.Rate != 16000 {
		t.Errorf("len = %d, rate = %d", sig.Len(), sig.Rate)
	}
	if sig.Peak() != 0 {
		t.Errorf("peak = %f, want 0", sig.Peak())
	}
}

func TestSine(t *testing.T) {
	sig, err := Sine(1000, 8000, time.Second, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Len() != 8000 {
		t.Fatalf("len = %d", sig.Len())
	}
	// 1 kHz at 8 kHz repeats every 8 samples; sample 2 is the crest.
	if math.Abs(sig.Samples[2]-0.5) > 1e-12 {
		t.Errorf("crest = %f, want 0.5", sig.Samples[2])
	}
	if math.Abs(sig.Peak()-0.5) > 1e-12 {
		t.Errorf("peak = %f", sig.Peak())
	}
}

func TestHarmonic(t *testing.T) {
	sig, err := Harmonic(220, 22050, 2*time.Second, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sig.Peak()-0.8) > 1e-12 {
		t.Errorf("peak = %f, want 0.8", sig.Peak())
	}
	if sig.Samples[0] != 0 {
		t.Errorf("first sample = %f, want 0 (attack)", sig.Samples[0])
	}

	// The note decays: the last 100 ms is quieter than the first.
	head := sig.Window(0, 100*time.Millisecond)
	tail := sig.Window(1900*time.Millisecond, 100*time.Millisecond)
	if tail.Peak() >= head.Peak() {
		t.Errorf("tail peak %f >= head peak %f", tail.Peak(), head.Peak())
	}
}

func TestHarmonic_SkipsPartialsAboveNyquist(t *testing.T) {
	// 3 kHz at 8 kHz keeps only the fundamental.
	sig, err := Harmonic(3000, 8000, 100*time.Millisecond, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range sig.Samples {
		if math.IsNaN(v) || math.Abs(v) > 1+1e-12 {
			t.Fatalf("sample %d = %f", i, v)
		}
	}
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"zero rate", func() error { _, err := Silence(0, time.Second); return err }},
		{"zero duration", func() error { _, err := Silence(8000, 0); return err }},
		{"above nyquist", func() error { _, err := Sine(5000, 8000, time.Second, 0.5); return err }},
		{"zero frequency", func() error { _, err := Harmonic(0, 8000, time.Second, 0.5); return err }},
		{"loud", func() error { _, err := Sine(440, 8000, time.Second, 1.5); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}
