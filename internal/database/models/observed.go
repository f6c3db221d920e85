package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bczgroup/tracker/internal/database/dbretry"
	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// groupInfoColumns are the collected columns refreshed from a snapshot.
var groupInfoColumns = []string{ //nolint:gochecknoglobals // -
	"name", "share_key", "introduction", "leader", "leader_id",
	"member_count", "count_limit", "today_daka_count", "finishing_rate",
	"created_time", "rank", "type", "avatar", "avatar_frame", "notice",
	"updated_at",
}

// ObservedSettings are the operator-controlled columns of an observed group.
// Nil fields are left unchanged.
type ObservedSettings struct {
	DailyRecord  *bool
	LateDakaTime *string
	AuthToken    *string
	Valid        *bool
}

// Empty reports whether no setting is present.
func (s ObservedSettings) Empty() bool {
	return s.DailyRecord == nil && s.LateDakaTime == nil && s.AuthToken == nil && s.Valid == nil
}

// ObservedModel handles database operations for observed groups.
type ObservedModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewObserved creates an ObservedModel.
func NewObserved(db *bun.DB, logger *zap.Logger) *ObservedModel {
	return &ObservedModel{
		db:     db,
		logger: logger.Named("db_observed"),
	}
}

// ListQuery selects observed groups ordered by group id. A nonzero groupID
// restricts the result to that group.
func (r *ObservedModel) ListQuery(model any, groupID int64, includeInvalid bool) *bun.SelectQuery {
	query := r.db.NewSelect().Model(model).Order("group_id ASC")

	if !includeInvalid {
		query = query.Where("valid = ?", true)
	}

	if groupID != 0 {
		query = query.Where("group_id = ?", groupID)
	}

	return query
}

// List returns observed groups. Invalid (disabled) groups are skipped unless
// includeInvalid is set.
func (r *ObservedModel) List(ctx context.Context, groupID int64, includeInvalid bool) ([]*types.ObservedGroup, error) {
	groups, err := dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ObservedGroup, error) {
		var groups []*types.ObservedGroup
		err := r.ListQuery(&groups, groupID, includeInvalid).Scan(ctx)
		return groups, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list observed groups: %w", err)
	}

	return groups, nil
}

// Get returns one observed group regardless of its validity.
func (r *ObservedModel) Get(ctx context.Context, groupID int64) (*types.ObservedGroup, error) {
	var group types.ObservedGroup

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(&group).
			Where("group_id = ?", groupID).
			Limit(1).
			Scan(ctx)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", types.ErrGroupNotObserved, groupID)
		}

		return nil, fmt.Errorf("failed to get observed group %d: %w", groupID, err)
	}

	return &group, nil
}

// ExistsShareKey reports whether any observed group uses the share key.
func (r *ObservedModel) ExistsShareKey(ctx context.Context, shareKey string) (bool, error) {
	exists, err := dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		return r.db.NewSelect().
			Model((*types.ObservedGroup)(nil)).
			Where("share_key = ?", shareKey).
			Exists(ctx)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check share key: %w", err)
	}

	return exists, nil
}

// Insert stores a new observed group, or revives and refreshes an existing
// row with the same group id.
func (r *ObservedModel) Insert(ctx context.Context, group *types.ObservedGroup) error {
	group.UpdatedAt = time.Now()

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		query := r.db.NewInsert().
			Model(group).
			On("CONFLICT (group_id) DO UPDATE").
			Set("daily_record = EXCLUDED.daily_record").
			Set("late_daka_time = EXCLUDED.late_daka_time").
			Set("auth_token = EXCLUDED.auth_token").
			Set("valid = EXCLUDED.valid")

		for _, col := range groupInfoColumns {
			query = query.Set(col + " = EXCLUDED." + col)
		}

		_, err := query.Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert observed group %d: %w", group.GroupID, err)
	}

	r.logger.Debug("Inserted observed group",
		zap.Int64("groupID", group.GroupID),
		zap.String("name", group.Name))

	return nil
}

// UpdateCollected writes freshly collected group fields back to the observed
// table. Groups whose collection failed are skipped.
func (r *ObservedModel) UpdateCollected(ctx context.Context, db bun.IDB, groups []*types.ObservedGroup) error {
	now := time.Now()

	for _, group := range groups {
		if group.Failed() || group.GroupID == 0 {
			continue
		}

		group.UpdatedAt = now

		_, err := db.NewUpdate().
			Model(group).
			Column(groupInfoColumns...).
			Where("group_id = ?", group.GroupID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update observed group %d: %w", group.GroupID, err)
		}
	}

	return nil
}

// UpdateSettings applies operator settings to one observed group.
func (r *ObservedModel) UpdateSettings(ctx context.Context, groupID int64, settings ObservedSettings) error {
	if settings.Empty() {
		return nil
	}

	result, err := dbretry.Operation(ctx, func(ctx context.Context) (sql.Result, error) {
		query := r.db.NewUpdate().
			Model((*types.ObservedGroup)(nil)).
			Set("updated_at = ?", time.Now()).
			Where("group_id = ?", groupID)

		if settings.DailyRecord != nil {
			query = query.Set("daily_record = ?", *settings.DailyRecord)
		}

		if settings.LateDakaTime != nil {
			query = query.Set("late_daka_time = ?", *settings.LateDakaTime)
		}

		if settings.AuthToken != nil {
			query = query.Set("auth_token = ?", *settings.AuthToken)
		}

		if settings.Valid != nil {
			query = query.Set("valid = ?", *settings.Valid)
		}

		return query.Exec(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to update observed group %d: %w", groupID, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %d", types.ErrGroupNotObserved, groupID)
	}

	r.logger.Debug("Updated observed group settings", zap.Int64("groupID", groupID))

	return nil
}

// Disable marks an observed group invalid. Rows are never hard-deleted.
func (r *ObservedModel) Disable(ctx context.Context, groupID int64) error {
	valid := false
	return r.UpdateSettings(ctx, groupID, ObservedSettings{Valid: &valid})
}
