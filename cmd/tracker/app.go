package main

import (
	"context"
	"fmt"

	"github.com/bczgroup/tracker/internal/analysis"
	"github.com/bczgroup/tracker/internal/cache"
	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/bczgroup/tracker/internal/setup"
	"github.com/bczgroup/tracker/internal/setup/telemetry"
	"github.com/bytedance/sonic"
	"github.com/urfave/cli/v3"
)

// appAction is a command action that needs an initialized application.
type appAction func(ctx context.Context, app *setup.App, c *cli.Command) error

// withApp initializes the application around a command action.
func withApp(serviceType telemetry.ServiceType, logDir string, opts setup.Options, fn appAction) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		app, err := setup.InitializeApp(ctx, serviceType, logDir, opts)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer app.Cleanup(ctx)

		return fn(ctx, app, c)
	}
}

// command wraps a one-shot command action.
func command(fn appAction) cli.ActionFunc {
	return withApp(telemetry.ServiceCommand, CommandLogDir, setup.Options{}, fn)
}

func newGate(app *setup.App) *cache.Gate {
	return cache.NewGate(app.DB.Service().Staged(), app.Fetcher, app.Logger)
}

func newAnalyzer(app *setup.App) *analysis.Analyzer {
	return analysis.NewAnalyzer(app.DB.Model().Member(), app.Location, app.Logger)
}

// freshGroups returns observed groups with rosters from the cache gate.
func freshGroups(ctx context.Context, app *setup.App, groupID int64) ([]*types.ObservedGroup, error) {
	return newGate(app).EnsureFresh(ctx, app.Config.Tracker.Cache.CacheTTL(), groupID)
}

// redact masks auth tokens before groups are printed.
func redact(groups []*types.ObservedGroup) []*types.ObservedGroup {
	redacted := make([]*types.ObservedGroup, len(groups))
	for i, g := range groups {
		redacted[i] = g.Redacted()
	}

	return redacted
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	data, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	fmt.Println(string(data))

	return nil
}
