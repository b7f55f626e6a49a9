package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/adscreen/pkg/cli"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load the scaler and model artifacts and check them",
	Long: `Check that the configured scaler and model exist, load them, print
their kinds and dimensions, and fail if they do not accept the 32-value
feature vector. Missing artifacts are all reported at once.

Examples:
  adscreen inspect --scaler scaler.json --model forest.msgpack
  adscreen inspect -o pretty`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		a, resolver, err := e.artifacts(cmd.Context())
		if err != nil {
			return err
		}
		if err := checkArtifacts(cmd.Context(), resolver, a); err != nil {
			return err
		}
		models, err := e.loadFrom(cmd.Context(), resolver, a)
		if err != nil {
			return err
		}
		view := cli.NewModelsView(models)
		if err := e.output(cmd, view); err != nil {
			return err
		}
		if !view.Compatible() {
			return fmt.Errorf("artifacts expect %d features, extractor produces %d", view.Model.Dim, view.ExpectedDim)
		}
		return nil
	},
}

func init() {
	addArtifactFlags(inspectCmd)
	rootCmd.AddCommand(inspectCmd)
}
