package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bczgroup/tracker/internal/analysis"
	"github.com/bczgroup/tracker/internal/cache"
	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/bczgroup/tracker/internal/export"
	"github.com/bczgroup/tracker/internal/setup"
	"github.com/bczgroup/tracker/internal/setup/telemetry"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	// ExportLogDir specifies where export log files are stored.
	ExportLogDir = "logs/export_logs"
)

var ErrInvalidFormat = errors.New("invalid export format")

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "export",
		Usage: "Export recorded member rows and weekly analyses to files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Base output directory, defaults to the configured export directory",
			},
			&cli.StringSliceFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export formats (sqlite, csv), defaults to all",
			},
			&cli.StringFlag{
				Name:    "export-version",
				Aliases: []string{"v"},
				Value:   "1.0.0",
				Usage:   "Export version",
			},
			&cli.StringFlag{
				Name:    "description",
				Aliases: []string{"d"},
				Value:   "Tracker Export",
				Usage:   "Export description",
			},
			&cli.IntFlag{Name: "group", Aliases: []string{"g"}, Usage: "Only this group id"},
			&cli.StringFlag{Name: "start", Usage: "First date, YYYY-MM-DD"},
			&cli.StringFlag{Name: "end", Usage: "Last date, YYYY-MM-DD"},
			&cli.StringFlag{
				Name:    "week",
				Aliases: []string{"w"},
				Usage:   "Also export the analysis of this week (YYYY-Www)",
			},
			&cli.StringFlag{
				Name:    "salt",
				Aliases: []string{"s"},
				Usage:   "Replace user ids by salted hashes",
			},
			&cli.StringFlag{
				Name:    "hash-type",
				Aliases: []string{"t"},
				Value:   string(export.HashTypeSHA256),
				Usage:   "Hash algorithm to use (argon2id or sha256)",
			},
			&cli.UintFlag{
				Name:    "iterations",
				Aliases: []string{"i"},
				Value:   1,
				Usage:   "Number of hash iterations",
			},
			&cli.UintFlag{
				Name:    "memory",
				Aliases: []string{"m"},
				Value:   16,
				Usage:   "Memory to use for Argon2id in MB",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"c"},
				Value:   4,
				Usage:   "Number of concurrent hash operations",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			app, err := setup.InitializeApp(ctx, telemetry.ServiceExport, ExportLogDir, setup.Options{})
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Cleanup(ctx)

			config, err := getExportConfig(c)
			if err != nil {
				return err
			}

			baseDir := c.String("output")
			if baseDir == "" {
				baseDir = app.Config.Tracker.Export.OutputDir
			}

			outDir := filepath.Join(baseDir, time.Now().Format("2006-01-02_150405"))

			filter := types.MemberFilter{
				GroupID:   c.Int("group"),
				StartDate: c.String("start"),
				EndDate:   c.String("end"),
			}

			var weeks []*analysis.GroupWeek
			if week := c.String("week"); week != "" {
				weeks, err = analyzeWeek(ctx, app, week, filter.GroupID)
				if err != nil {
					return err
				}
			}

			exporter := export.New(app.DB.Model().Member(), outDir, config, app.Logger)

			manifest, err := exporter.Export(ctx, filter, weeks)
			if err != nil {
				return fmt.Errorf("failed to export data: %w", err)
			}

			for name, count := range manifest.Counts {
				fmt.Printf("%s: %d rows\n", name, count)
			}

			fmt.Printf("Files written to: %s\n", outDir)

			return nil
		},
	}

	return app.Run(context.Background(), os.Args)
}

// getExportConfig builds the export configuration from flags.
func getExportConfig(c *cli.Command) (*export.Config, error) {
	config := &export.Config{
		ExportVersion: c.String("export-version"),
		Description:   c.String("description"),
	}

	for _, f := range c.StringSlice("format") {
		format := export.Format(f)
		if format != export.FormatSQLite && format != export.FormatCSV {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, f)
		}
		config.Formats = append(config.Formats, format)
	}

	if salt := c.String("salt"); salt != "" {
		config.Anonymizer = &export.Anonymizer{
			Salt:        salt,
			HashType:    export.HashType(c.String("hash-type")),
			Iterations:  uint32(c.Uint("iterations")), //nolint:gosec // -
			Memory:      uint32(c.Uint("memory")),     //nolint:gosec // -
			Concurrency: int(c.Int("concurrency")),
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// analyzeWeek analyzes one week over the observed groups, refreshing stale rosters.
func analyzeWeek(ctx context.Context, app *setup.App, week string, groupID int64) ([]*analysis.GroupWeek, error) {
	gate := cache.NewGate(app.DB.Service().Staged(), app.Fetcher, app.Logger)

	groups, err := gate.EnsureFresh(ctx, app.Config.Tracker.Cache.CacheTTL(), groupID)
	if err != nil {
		return nil, err
	}

	app.Logger.Info("Analyzing week for export",
		zap.String("week", week),
		zap.Int("groups", len(groups)),
		zap.String("groupID", strconv.FormatInt(groupID, 10)))

	return analysis.NewAnalyzer(app.DB.Model().Member(), app.Location, app.Logger).AnalyzeWeek(ctx, groups, week)
}
