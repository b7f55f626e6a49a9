// Package main is the entry point for the adscreen CLI.
//
// Usage:
//
//	adscreen [flags] <command> [args]
//
// Commands:
//
//	extract    - Print the 32-value acoustic feature vector of a recording
//	assess     - Screen a recording for AD-like speech patterns
//	inspect    - Load the scaler and model artifacts and check them
//	serve      - Run the HTTP screening service
//	synth      - Write test recordings (tone, note, silence)
//	config     - Manage the configuration file
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/adscreen/cmd/adscreen/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
