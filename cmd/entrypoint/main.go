// Package main provides the Docker container entrypoint
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	trackerBinary = "/app/bin/tracker"
	exportBinary  = "/app/bin/export"
)

func main() {
	runType := getEnvWithDefault("RUN_TYPE", "tracker")

	switch runType {
	case "tracker":
		if getEnvWithDefault("AUTO_MIGRATE", "false") == "true" {
			execBinary(trackerBinary, "db", "migrate")
		}
		execBinary(trackerBinary, "run")
	case "migrate":
		execBinary(trackerBinary, "db", "migrate")
	case "export":
		execBinary(exportBinary, strings.Fields(os.Getenv("EXPORT_ARGS"))...)
	default:
		fmt.Fprintf(os.Stderr, "Invalid RUN_TYPE. Must be one of 'tracker', 'migrate' or 'export'\n")
		fmt.Fprintf(os.Stderr, "Usage: RUN_TYPE=tracker [AUTO_MIGRATE=true] | RUN_TYPE=export [EXPORT_ARGS=\"--week 2024-W10\"]\n")
		os.Exit(1)
	}
}

// getEnvWithDefault returns the environment variable value or the default if not set.
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// execBinary executes the specified binary with given arguments.
func execBinary(path string, args ...string) {
	cmd := exec.Command(path, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute %s: %v\n", filepath.Base(path), err)
		os.Exit(1)
	}
}
