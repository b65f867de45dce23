// Package main is the entry point for the research-planner CLI.
package main

import (
	"os"

	"research-planner/cmd/cli/cmd"
	"research-planner/internal/logging"
)

func main() {
	err := cmd.Execute()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
