// Package main provides the horizon CLI application.
// horizon manages the temporal feature pipeline: dataset ingestion,
// target construction, feature materialization, training and scoring.
package main

import (
	"os"
)

var (
	// Version is set by build flags
	Version = "dev"
)

func main() {
	if err := getRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
