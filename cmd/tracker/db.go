package main

import (
	"context"
	"fmt"

	"github.com/bczgroup/tracker/internal/database"
	"github.com/bczgroup/tracker/internal/database/migrations"
	"github.com/bczgroup/tracker/internal/setup"
	"github.com/bczgroup/tracker/internal/setup/telemetry"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// dbAction wraps a database management action; migrations are not checked.
func dbAction(fn func(ctx context.Context, app *setup.App, migrator *migrate.Migrator) error) cli.ActionFunc {
	return withApp(telemetry.ServiceCommand, CommandLogDir, setup.Options{SkipMigrationCheck: true},
		func(ctx context.Context, app *setup.App, _ *cli.Command) error {
			migrator := migrate.NewMigrator(app.DB.DB(), migrations.Migrations)
			if err := migrator.Init(ctx); err != nil {
				return fmt.Errorf("failed to initialize migrations: %w", err)
			}

			return fn(ctx, app, migrator)
		})
}

func dbCommand() *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "Database management",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Run pending migrations",
				Action: dbAction(func(ctx context.Context, app *setup.App, migrator *migrate.Migrator) error {
					if err := migrator.Lock(ctx); err != nil {
						return err
					}
					defer migrator.Unlock(ctx) //nolint:errcheck

					group, err := database.Migrate(ctx, app.DB.DB(), app.Logger)
					if err != nil {
						return err
					}

					if group.IsZero() {
						app.Logger.Info("No new migrations to run (database is up to date)")
					}

					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "Rollback the last migration group",
				Action: dbAction(func(ctx context.Context, app *setup.App, migrator *migrate.Migrator) error {
					if err := migrator.Lock(ctx); err != nil {
						return err
					}
					defer migrator.Unlock(ctx) //nolint:errcheck

					group, err := migrator.Rollback(ctx)
					if err != nil {
						return err
					}

					if group.IsZero() {
						app.Logger.Info("No groups to roll back")
						return nil
					}

					app.Logger.Info("Rolled back", zap.String("group", group.String()))

					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "Print migration status",
				Action: dbAction(func(ctx context.Context, _ *setup.App, migrator *migrate.Migrator) error {
					ms, err := migrator.MigrationsWithStatus(ctx)
					if err != nil {
						return err
					}

					fmt.Printf("migrations: %s\n", ms)
					fmt.Printf("unapplied migrations: %s\n", ms.Unapplied())
					fmt.Printf("last migration group: %s\n", ms.LastGroup())

					return nil
				}),
			},
		},
	}
}
