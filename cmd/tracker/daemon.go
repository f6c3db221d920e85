package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/bczgroup/tracker/internal/schedule"
	"github.com/bczgroup/tracker/internal/setup"
	"github.com/bczgroup/tracker/internal/setup/telemetry"
	"github.com/bczgroup/tracker/internal/worker/core"
	"github.com/bczgroup/tracker/internal/worker/record"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the daily record schedule until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "cron",
				Usage: "Override the configured daily record expression",
			},
		},
		Action: withApp(telemetry.ServiceTracker, TrackerLogDir, setup.Options{}, runDaemon),
	}
}

func recordCommand() *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "Record every daily-record group once now",
		Action: command(func(ctx context.Context, app *setup.App, _ *cli.Command) error {
			result, err := newRecordWorker(app, nil).Run(ctx)
			if err != nil {
				return err
			}

			fmt.Println(result.String())

			return nil
		}),
	}
}

func newRecordWorker(app *setup.App, reporter record.Reporter) *record.Worker {
	services := app.DB.Service()

	return record.New(
		app.Fetcher,
		services.Observed(),
		services.History(),
		reporter,
		app.LogManager.GetWorkerLogger(record.WorkerType),
	)
}

// runDaemon schedules the record worker and blocks until SIGINT or SIGTERM.
func runDaemon(ctx context.Context, app *setup.App, c *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	expr := app.Config.Tracker.Scheduler.DailyRecord
	if c.IsSet("cron") {
		expr = c.String("cron")
	}

	var reporter *core.StatusReporter
	if app.StatusClient != nil {
		reporter = core.NewStatusReporter(app.StatusClient, record.WorkerType, app.Logger)
	}

	var worker *record.Worker
	if reporter != nil {
		worker = newRecordWorker(app, reporter)
	} else {
		worker = newRecordWorker(app, nil)
	}

	if _, err := schedule.Parse(expr); err != nil {
		return fmt.Errorf("invalid daily record schedule %q: %w", expr, err)
	}

	scheduler := schedule.New(expr, worker.Job(), app.Logger)

	if reporter != nil {
		reporter.UpdateStatus("Waiting for schedule", 0)
		reporter.Start(ctx)
		defer reporter.Stop(context.WithoutCancel(ctx))
	}

	scheduler.Start(ctx)

	app.Logger.Info("Tracker started",
		zap.String("schedule", scheduler.Expression().String()),
		zap.String("instanceID", app.LogManager.GetInstanceID()))

	<-ctx.Done()

	app.Logger.Info("Shutting down, waiting for running jobs")
	scheduler.Stop()
	scheduler.Wait()

	return nil
}
