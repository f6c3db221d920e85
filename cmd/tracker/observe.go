package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bczgroup/tracker/internal/database/service"
	"github.com/bczgroup/tracker/internal/setup"
	"github.com/urfave/cli/v3"
)

var ErrGroupIDRequired = errors.New("GROUP_ID argument required")

func observeCommand() *cli.Command {
	return &cli.Command{
		Name:  "observe",
		Usage: "Manage observed groups",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Observe the group behind a share key",
				ArgsUsage: "SHARE_KEY",
				Action: command(func(ctx context.Context, app *setup.App, c *cli.Command) error {
					group, err := app.DB.Service().Observed().Subscribe(ctx, app.Fetcher, c.Args().First())
					if err != nil {
						return err
					}

					return printJSON(group.Redacted())
				}),
			},
			{
				Name:      "set",
				Usage:     "Change the settings of an observed group",
				ArgsUsage: "GROUP_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "daily", Usage: "Record the group every day"},
					&cli.StringFlag{Name: "late", Usage: "Lateness cutoff HH:MM, 00:00 disables"},
					&cli.StringFlag{Name: "token", Usage: "Secondary access token"},
					&cli.BoolFlag{Name: "valid", Usage: "Keep the group observed"},
				},
				Action: command(func(ctx context.Context, app *setup.App, c *cli.Command) error {
					groupID, err := groupIDArg(c)
					if err != nil {
						return err
					}

					var params service.ConfigureParams
					if c.IsSet("daily") {
						daily := c.Bool("daily")
						params.DailyRecord = &daily
					}
					if c.IsSet("late") {
						late := c.String("late")
						params.LateDakaTime = &late
					}
					if c.IsSet("token") {
						token := c.String("token")
						params.AuthToken = &token
					}
					if c.IsSet("valid") {
						valid := c.Bool("valid")
						params.Valid = &valid
					}

					if err := app.DB.Service().Observed().Configure(ctx, groupID, params); err != nil {
						return err
					}

					fmt.Printf("Updated group %d\n", groupID)

					return nil
				}),
			},
			{
				Name:      "disable",
				Usage:     "Stop observing a group",
				ArgsUsage: "GROUP_ID",
				Action: command(func(ctx context.Context, app *setup.App, c *cli.Command) error {
					groupID, err := groupIDArg(c)
					if err != nil {
						return err
					}

					if err := app.DB.Service().Observed().Disable(ctx, groupID); err != nil {
						return err
					}

					fmt.Printf("Disabled group %d\n", groupID)

					return nil
				}),
			},
			{
				Name:  "list",
				Usage: "List observed groups",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "Include disabled groups"},
				},
				Action: command(func(ctx context.Context, app *setup.App, c *cli.Command) error {
					groups, err := app.DB.Service().Observed().List(ctx, c.Bool("all"))
					if err != nil {
						return err
					}

					return printJSON(redact(groups))
				}),
			},
		},
	}
}

func groupIDArg(c *cli.Command) (int64, error) {
	arg := c.Args().First()
	if arg == "" {
		return 0, ErrGroupIDRequired
	}

	groupID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid group id %q: %w", arg, err)
	}

	return groupID, nil
}
