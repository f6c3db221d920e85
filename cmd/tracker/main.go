package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

const (
	// TrackerLogDir specifies where tracker log files are stored.
	TrackerLogDir = "logs/tracker_logs"
	// CommandLogDir specifies where one-shot command log files are stored.
	CommandLogDir = "logs/command_logs"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "tracker",
		Usage: "Collect and analyze group attendance",
		Commands: []*cli.Command{
			runCommand(),
			recordCommand(),
			refreshCommand(),
			analyzeCommand(),
			queryCommand(),
			observeCommand(),
			searchCommand(),
			infoCommand(),
			optionsCommand(),
			statusCommand(),
			dbCommand(),
		},
	}

	return app.Run(context.Background(), os.Args)
}
