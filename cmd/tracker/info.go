package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bczgroup/tracker/internal/analysis"
	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/bczgroup/tracker/internal/setup"
	"github.com/bczgroup/tracker/internal/worker/core"
	"github.com/urfave/cli/v3"
)

var (
	ErrSearchKeyRequired = errors.New("either --share-key or --uid is required")
	ErrStatusUnavailable = errors.New("worker status requires Redis")
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Look up groups on the platform",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "share-key", Aliases: []string{"k"}, Usage: "Group share key"},
			&cli.StringFlag{Name: "uid", Aliases: []string{"u"}, Usage: "Unique id of a group owner"},
		},
		Action: command(func(ctx context.Context, app *setup.App, c *cli.Command) error {
			var (
				groups []*types.GroupInfo
				err    error
			)

			switch {
			case c.String("share-key") != "":
				groups, err = app.Fetcher.SearchByShareKey(ctx, c.String("share-key"))
			case c.String("uid") != "":
				groups, err = app.Fetcher.SearchByUser(ctx, c.String("uid"))
			default:
				return ErrSearchKeyRequired
			}

			if err != nil {
				return err
			}

			return printJSON(groups)
		}),
	}
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show recorded history and main account state",
		Action: command(func(ctx context.Context, app *setup.App, _ *cli.Command) error {
			overview, err := app.DB.Service().Overview().Overview(ctx, app.Fetcher)
			if err != nil {
				return err
			}

			return printJSON(overview)
		}),
	}
}

// Options lists the values selectable in queries and analyses.
type Options struct {
	Groups []*types.GroupOption `json:"groups"`
	Weeks  []string             `json:"weeks"`
}

func optionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "options",
		Usage: "List known groups and recent weeks",
		Action: command(func(ctx context.Context, app *setup.App, _ *cli.Command) error {
			groups, err := app.DB.Service().Overview().SearchOptions(ctx)
			if err != nil {
				return err
			}

			return printJSON(Options{
				Groups: groups,
				Weeks:  analysis.WeekOptions(time.Now().In(app.Location), app.Config.Tracker.Analysis.WeekOptions),
			})
		}),
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show worker heartbeats",
		Action: command(func(ctx context.Context, app *setup.App, _ *cli.Command) error {
			if app.StatusClient == nil {
				return ErrStatusUnavailable
			}

			statuses, err := core.NewMonitor(app.StatusClient, app.Logger).GetAllStatuses(ctx)
			if err != nil {
				return err
			}

			if len(statuses) == 0 {
				fmt.Println("No workers reporting")
				return nil
			}

			now := time.Now()
			for _, s := range statuses {
				state := "healthy"
				switch {
				case s.IsStale(now):
					state = "offline"
				case !s.IsHealthy:
					state = "unhealthy"
				}

				fmt.Printf("%s %s [%s] task=%q progress=%d%% last_run=%s result=%q\n",
					s.WorkerType, s.WorkerID, state, s.CurrentTask, s.Progress,
					formatTime(s.LastRun), s.LastResult)
			}

			return nil
		}),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	return t.Format(time.DateTime)
}
