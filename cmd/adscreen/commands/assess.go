package commands

import (
	"github.com/spf13/cobra"

	"github.com/haivivi/adscreen/pkg/cli"
)

var assessCmd = &cobra.Command{
	Use:   "assess <audio>",
	Short: "Screen a recording for AD-like speech patterns",
	Long: `Decode a WAV or MP3 recording, extract its features and score them with
the configured scaler and model.

The pretty format renders a HIGH RISK or LOW RISK banner; yaml and json
print the full report (assessment, features, source).

Examples:
  adscreen assess speech.wav -o pretty
  adscreen assess speech.mp3 --scaler scaler.json --model forest.msgpack -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		scr, err := e.newScreener(cmd.Context())
		if err != nil {
			return err
		}
		report, err := scr.AssessFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		e.logger.Info("assessed recording",
			"file", args[0],
			"label", report.Assessment.Label,
			"ad_probability", report.Assessment.ADProbability)

		if e.format == cli.FormatPretty {
			return e.output(cmd, cli.ReportView{Report: report})
		}
		return e.output(cmd, report)
	},
}

func init() {
	addArtifactFlags(assessCmd)
	addAnalysisFlags(assessCmd)
	rootCmd.AddCommand(assessCmd)
}
