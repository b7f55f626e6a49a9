// Package cli provides the configuration, logging and output helpers
// shared by the adscreen command-line tool.
//
// This package includes:
//   - Configuration loading (~/.adscreen/config.yaml or --config)
//   - Logger construction from a level name
//   - Output formatting (YAML, JSON, pretty terminal reports)
//
// Example usage:
//
//	cfg, err := cli.LoadConfig(configPath)
//
//	logger, err := cli.NewLogger(os.Stderr, cfg.Log.Level)
//
//	cli.Output(report, cli.OutputOptions{
//	    Format: cli.FormatPretty,
//	})
package cli
