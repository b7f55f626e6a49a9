package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/adscreen/cmd/adscreen/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat == "json" {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			return e.output(cmd, build.Current())
		}
		fmt.Fprintln(cmd.OutOrStdout(), build.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
