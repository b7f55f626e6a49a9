package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/adscreen/pkg/audio/codec/wav"
	"github.com/haivivi/adscreen/pkg/audio/pcm"
	"github.com/haivivi/adscreen/pkg/audio/synth"
)

var (
	synthRate      int
	synthDuration  time.Duration
	synthFreq      float64
	synthAmplitude float64
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Write test recordings",
	Long: `Write 16-bit mono WAV files for trying out the pipeline.

Examples:
  adscreen synth tone tone.wav --freq 440 --duration 6s
  adscreen synth note note.wav --freq 220
  adscreen synth silence quiet.wav --rate 16000`,
}

var synthToneCmd = &cobra.Command{
	Use:   "tone <out.wav>",
	Short: "Write a sine tone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sig, err := synth.Sine(synthFreq, synthRate, synthDuration, synthAmplitude)
		if err != nil {
			return err
		}
		return writeSynth(cmd, args[0], sig)
	},
}

var synthNoteCmd = &cobra.Command{
	Use:   "note <out.wav>",
	Short: "Write a decaying note with harmonics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sig, err := synth.Harmonic(synthFreq, synthRate, synthDuration, synthAmplitude)
		if err != nil {
			return err
		}
		return writeSynth(cmd, args[0], sig)
	},
}

var synthSilenceCmd = &cobra.Command{
	Use:   "silence <out.wav>",
	Short: "Write digital silence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sig, err := synth.Silence(synthRate, synthDuration)
		if err != nil {
			return err
		}
		return writeSynth(cmd, args[0], sig)
	},
}

func writeSynth(cmd *cobra.Command, path string, sig pcm.Signal) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	if err := wav.Encode(f, sig); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s at %d Hz)\n", path, sig.Duration(), sig.Rate)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{synthToneCmd, synthNoteCmd, synthSilenceCmd} {
		c.Flags().IntVar(&synthRate, "rate", 22050, "sample rate in Hz")
		c.Flags().DurationVar(&synthDuration, "duration", 6*time.Second, "length of the recording")
	}
	for _, c := range []*cobra.Command{synthToneCmd, synthNoteCmd} {
		c.Flags().Float64Var(&synthFreq, "freq", 440, "fundamental frequency in Hz")
		c.Flags().Float64Var(&synthAmplitude, "amplitude", 0.5, "peak amplitude in [0, 1]")
	}

	synthCmd.AddCommand(synthToneCmd, synthNoteCmd, synthSilenceCmd)
	rootCmd.AddCommand(synthCmd)
}
