package models

import (
	"context"
	"fmt"

	"github.com/bczgroup/tracker/internal/database/dbretry"
	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// GroupModel handles database operations for group history snapshots.
type GroupModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewGroup creates a GroupModel.
func NewGroup(db *bun.DB, logger *zap.Logger) *GroupModel {
	return &GroupModel{
		db:     db,
		logger: logger.Named("db_group"),
	}
}

// InsertSnapshot appends a group snapshot to history.
func (r *GroupModel) InsertSnapshot(ctx context.Context, db bun.IDB, snapshot *types.GroupSnapshot) error {
	if _, err := db.NewInsert().Model(snapshot).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert snapshot for group %d: %w", snapshot.GroupID, err)
	}

	return nil
}

// LatestSnapshotsQuery selects the newest snapshot of every recorded group.
func (r *GroupModel) LatestSnapshotsQuery(model any) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(model).
		DistinctOn("group_id").
		Order("group_id ASC", "data_time DESC")
}

// LatestSnapshots returns the newest snapshot of every recorded group.
func (r *GroupModel) LatestSnapshots(ctx context.Context) ([]*types.GroupSnapshot, error) {
	snapshots, err := dbretry.Operation(ctx, func(ctx context.Context) ([]*types.GroupSnapshot, error) {
		var snapshots []*types.GroupSnapshot
		err := r.LatestSnapshotsQuery(&snapshots).Scan(ctx)
		return snapshots, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshots: %w", err)
	}

	return snapshots, nil
}

// GroupOptions returns one "id(name)" option per recorded group, using the
// name from the newest snapshot.
func (r *GroupModel) GroupOptions(ctx context.Context) ([]*types.GroupOption, error) {
	snapshots, err := r.LatestSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	options := make([]*types.GroupOption, 0, len(snapshots))
	for _, s := range snapshots {
		options = append(options, &types.GroupOption{
			GroupID: s.GroupID,
			Label:   fmt.Sprintf("%d(%s)", s.GroupID, s.Name),
		})
	}

	return options, nil
}
