package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/adscreen/pkg/audio/codec"
	"github.com/haivivi/adscreen/pkg/audio/features"
	"github.com/haivivi/adscreen/pkg/audio/resampler"
	"github.com/haivivi/adscreen/pkg/cli"
)

var extractCmd = &cobra.Command{
	Use:   "extract <audio>",
	Short: "Print the acoustic feature vector of a recording",
	Long: `Decode a WAV or MP3 recording and print its 32 named features.

No model artifacts are needed.

Examples:
  adscreen extract speech.wav
  adscreen extract speech.mp3 -o json --output-file features.json
  adscreen extract speech.wav --resample 16000 -o pretty`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		cfg := e.analysisConfig()

		audio, err := codec.DecodeFile(args[0])
		if err != nil {
			return err
		}
		sig := audio.Signal
		if cfg.ResampleRate > 0 && sig.Rate != cfg.ResampleRate {
			if sig, err = resampler.Resample(sig, cfg.ResampleRate); err != nil {
				return err
			}
		}

		ext, err := features.New(cfg.Features)
		if err != nil {
			return fmt.Errorf("invalid analysis config: %w", err)
		}
		f, err := ext.Analyze(sig)
		if err != nil {
			return err
		}
		e.logger.Debug("extracted features", "file", args[0], "rate", f.SampleRate, "frames", f.Frames)
		return e.output(cmd, cli.NewFeaturesView(args[0], f))
	},
}

func init() {
	addAnalysisFlags(extractCmd)
	rootCmd.AddCommand(extractCmd)
}
