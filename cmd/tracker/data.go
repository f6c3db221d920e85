package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bczgroup/tracker/internal/analysis"
	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/bczgroup/tracker/internal/setup"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Show observed groups with their current rosters, refreshing stale data",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "group",
				Aliases: []string{"g"},
				Usage:   "Only this group id; always refreshes",
			},
		},
		Action: command(func(ctx context.Context, app *setup.App, c *cli.Command) error {
			groups, err := freshGroups(ctx, app, c.Int("group"))
			if err != nil {
				return err
			}

			return printJSON(redact(groups))
		}),
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyze weekly lateness and absence",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "week",
				Aliases: []string{"w"},
				Usage:   "Week as YYYY-Www, defaults to the current week",
			},
			&cli.IntFlag{
				Name:    "group",
				Aliases: []string{"g"},
				Usage:   "Only this group id",
			},
			&cli.StringFlag{
				Name:  "chart",
				Usage: "Directory to write one PNG chart per group into",
			},
		},
		Action: command(func(ctx context.Context, app *setup.App, c *cli.Command) error {
			weeks, err := analyzeWeek(ctx, app, c.String("week"), c.Int("group"))
			if err != nil {
				return err
			}

			if dir := c.String("chart"); dir != "" {
				if err := writeCharts(app, dir, weeks); err != nil {
					return err
				}
			}

			for _, gw := range weeks {
				gw.Group = gw.Group.Redacted()
			}

			return printJSON(weeks)
		}),
	}
}

// analyzeWeek analyzes a week over fresh observed groups. An empty week is
// the current one.
func analyzeWeek(ctx context.Context, app *setup.App, week string, groupID int64) ([]*analysis.GroupWeek, error) {
	if week == "" {
		week = analysis.WeekOf(time.Now().In(app.Location)).String()
	}

	groups, err := freshGroups(ctx, app, groupID)
	if err != nil {
		return nil, err
	}

	return newAnalyzer(app).AnalyzeWeek(ctx, groups, week)
}

func writeCharts(app *setup.App, dir string, weeks []*analysis.GroupWeek) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create chart directory: %w", err)
	}

	cfg := app.Config.Tracker.Analysis

	for _, gw := range weeks {
		buf, err := analysis.NewChartBuilder(gw, cfg.ChartWidth, cfg.ChartHeight).Build()
		if err != nil {
			return err
		}

		path := filepath.Join(dir, fmt.Sprintf("%d_%s.png", gw.Group.GroupID, gw.Week))
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write chart: %w", err)
		}

		app.Logger.Info("Wrote chart", zap.String("path", path))
	}

	return nil
}

// memberFilterFlags are shared by query and export.
func memberFilterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "uid", Usage: "Substring of the user id"},
		&cli.StringFlag{Name: "nickname", Usage: "Substring of nickname or group nickname"},
		&cli.IntFlag{Name: "group", Aliases: []string{"g"}, Usage: "Exact group id"},
		&cli.StringFlag{Name: "group-name", Usage: "Substring of the group name"},
		&cli.StringFlag{Name: "start", Usage: "First date, YYYY-MM-DD"},
		&cli.StringFlag{Name: "end", Usage: "Last date, YYYY-MM-DD"},
		&cli.StringFlag{Name: "cheat", Usage: "Only cheating (true) or honest (false) rows"},
		&cli.StringFlag{Name: "completed-after", Usage: "Only rows not completed or completed after HH:MM"},
		&cli.BoolFlag{Name: "staged", Usage: "Include the latest refreshed rows"},
	}
}

// memberFilter builds a member filter from memberFilterFlags.
func memberFilter(c *cli.Command) (types.MemberFilter, error) {
	filter := types.MemberFilter{
		UserID:         c.String("uid"),
		Nickname:       c.String("nickname"),
		GroupID:        c.Int("group"),
		GroupName:      c.String("group-name"),
		StartDate:      c.String("start"),
		EndDate:        c.String("end"),
		CompletedAfter: c.String("completed-after"),
		IncludeStaged:  c.Bool("staged"),
	}

	if raw := c.String("cheat"); raw != "" {
		cheat, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid cheat filter %q: %w", raw, err)
		}
		filter.Cheat = &cheat
	}

	return filter, nil
}

func queryCommand() *cli.Command {
	flags := append(memberFilterFlags(),
		&cli.StringFlag{Name: "page", Aliases: []string{"p"}, Usage: "Page number"},
		&cli.StringFlag{Name: "size", Aliases: []string{"s"}, Usage: "Page size, or " + types.PageSizeUnlimited},
		&cli.BoolFlag{Name: "all", Usage: "Return every matching row"},
	)

	return &cli.Command{
		Name:  "query",
		Usage: "Search recorded member rows",
		Flags: flags,
		Action: command(func(ctx context.Context, app *setup.App, c *cli.Command) error {
			filter, err := memberFilter(c)
			if err != nil {
				return err
			}

			page, err := types.ParsePageRequest(c.String("page"), c.String("size"))
			if err != nil {
				return err
			}

			if c.Bool("all") {
				page = types.UnlimitedPage()
			}

			if filter.IncludeStaged {
				if _, err := freshGroups(ctx, app, 0); err != nil {
					return err
				}
			}

			result, err := app.DB.Model().Member().QueryMembers(ctx, filter, page)
			if err != nil {
				return err
			}

			return printJSON(result)
		}),
	}
}
