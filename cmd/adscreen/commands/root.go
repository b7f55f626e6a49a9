package commands

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath   string
	logLevel     string
	outputFormat string
	outputFile   string
)

var rootCmd = &cobra.Command{
	Use:   "adscreen",
	Short: "Speech-based Alzheimer's risk screening",
	Long: `adscreen - screen speech recordings for Alzheimer's-like acoustic patterns.

A recording is decoded, a 5 second window starting at 0.5s is summarized
into 32 acoustic features (28 MFCC means, chroma, spectral centroid,
spectral rolloff, zero-crossing rate), standardized with a frozen scaler
and scored by a frozen classifier. An AD probability of 0.40 or more is
reported as HIGH RISK.

This is a screening aid, not a diagnosis.

Configuration is read from ~/.adscreen/config.yaml unless --config is set.

Examples:
  # Write a test tone and screen it
  adscreen synth tone /tmp/tone.wav --duration 6s
  adscreen assess /tmp/tone.wav --scaler scaler.json --model forest.msgpack -o pretty

  # Print the feature vector
  adscreen extract speech.wav -o json

  # Run the HTTP service with artifacts from S3
  adscreen serve --scaler s3://models/ad/scaler.json --model s3://models/ad/forest.msgpack`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "config file (default ~/.adscreen/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	pf.StringVarP(&outputFormat, "output", "o", "yaml", "output format: yaml, json, pretty")
	pf.StringVar(&outputFile, "output-file", "", "write output to a file instead of stdout")
}
