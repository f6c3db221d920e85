package models

import (
	"context"
	"fmt"
	"time"

	"github.com/bczgroup/tracker/internal/database/dbretry"
	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// StagedModel handles the staged table holding the latest refresh of each group.
type StagedModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewStaged creates a StagedModel.
func NewStaged(db *bun.DB, logger *zap.Logger) *StagedModel {
	return &StagedModel{
		db:     db,
		logger: logger.Named("db_staged"),
	}
}

// LatestDataTime returns the newest staged data time, optionally scoped to one
// group. The zero time is returned when no staged rows exist.
func (r *StagedModel) LatestDataTime(ctx context.Context, groupID int64) (time.Time, error) {
	latest, err := dbretry.Operation(ctx, func(ctx context.Context) (bun.NullTime, error) {
		var latest bun.NullTime

		query := r.db.NewSelect().
			Model((*types.StagedMember)(nil)).
			ColumnExpr("MAX(data_time)")
		if groupID != 0 {
			query = query.Where("group_id = ?", groupID)
		}

		err := query.Scan(ctx, &latest)
		return latest, err
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest staged time: %w", err)
	}

	return latest.Time, nil
}

// Clear deletes staged rows, scoped to one group when groupID is nonzero.
func (r *StagedModel) Clear(ctx context.Context, db bun.IDB, groupID int64) error {
	query := db.NewDelete().Model((*types.StagedMember)(nil))
	if groupID != 0 {
		query = query.Where("group_id = ?", groupID)
	} else {
		query = query.Where("TRUE")
	}

	if _, err := query.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear staged rows: %w", err)
	}

	return nil
}

// Insert stages a group roster.
func (r *StagedModel) Insert(ctx context.Context, db bun.IDB, members []*types.Member) error {
	if len(members) == 0 {
		return nil
	}

	staged := types.StagedMembers(members)
	if _, err := db.NewInsert().Model(&staged).Exec(ctx); err != nil {
		return fmt.Errorf("failed to stage %d members: %w", len(staged), err)
	}

	r.logger.Debug("Staged group members",
		zap.Int64("groupID", members[0].GroupID),
		zap.Int("count", len(staged)))

	return nil
}

// ListMembers returns the staged roster of one group.
func (r *StagedModel) ListMembers(ctx context.Context, groupID int64) ([]*types.Member, error) {
	staged, err := dbretry.Operation(ctx, func(ctx context.Context) ([]*types.StagedMember, error) {
		var staged []*types.StagedMember
		err := r.db.NewSelect().
			Model(&staged).
			Where("group_id = ?", groupID).
			Order("user_id ASC").
			Scan(ctx)
		return staged, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list staged members: %w", err)
	}

	members := make([]*types.Member, 0, len(staged))
	for _, s := range staged {
		m := s.Member
		members = append(members, &m)
	}

	return members, nil
}
