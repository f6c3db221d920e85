package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			-- Latest snapshot per group
			CREATE INDEX IF NOT EXISTS idx_group_snapshots_group_time
			ON group_snapshots (group_id, data_time DESC);

			-- Member history lookups
			CREATE INDEX IF NOT EXISTS idx_members_group_time
			ON members (group_id, data_time DESC);

			CREATE INDEX IF NOT EXISTS idx_members_group_date
			ON members (group_id, today_date);

			CREATE INDEX IF NOT EXISTS idx_members_user
			ON members (user_id);

			-- Staged table refresh and cache age
			CREATE INDEX IF NOT EXISTS idx_staged_members_group_time
			ON staged_members (group_id, data_time DESC);

			CREATE INDEX IF NOT EXISTS idx_staged_members_time
			ON staged_members (data_time DESC);

			-- Observed groups are keyed by platform group id
			CREATE UNIQUE INDEX IF NOT EXISTS idx_observed_groups_group_id
			ON observed_groups (group_id);

			CREATE INDEX IF NOT EXISTS idx_observed_groups_share_key
			ON observed_groups (share_key);
		`).Exec(ctx)

		return err
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			DROP INDEX IF EXISTS idx_group_snapshots_group_time;
			DROP INDEX IF EXISTS idx_members_group_time;
			DROP INDEX IF EXISTS idx_members_group_date;
			DROP INDEX IF EXISTS idx_members_user;
			DROP INDEX IF EXISTS idx_staged_members_group_time;
			DROP INDEX IF EXISTS idx_staged_members_time;
			DROP INDEX IF EXISTS idx_observed_groups_group_id;
			DROP INDEX IF EXISTS idx_observed_groups_share_key;
		`).Exec(ctx)

		return err
	})
}
