package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bczgroup/tracker/internal/database/dbretry"
	"github.com/bczgroup/tracker/internal/database/models"
	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// StagedService owns the staged table and the observed rows refreshed with it.
type StagedService struct {
	db       *bun.DB
	staged   *models.StagedModel
	observed *models.ObservedModel
	logger   *zap.Logger
}

// NewStaged creates a new staged service.
func NewStaged(
	db *bun.DB,
	staged *models.StagedModel,
	observed *models.ObservedModel,
	logger *zap.Logger,
) *StagedService {
	return &StagedService{
		db:       db,
		staged:   staged,
		observed: observed,
		logger:   logger.Named("staged_service"),
	}
}

// LatestDataTime returns the newest staged collection time, zero when empty.
func (s *StagedService) LatestDataTime(ctx context.Context) (time.Time, error) {
	return s.staged.LatestDataTime(ctx, 0)
}

// ObservedGroups returns valid observed groups, or the one group when groupID
// is nonzero.
func (s *StagedService) ObservedGroups(ctx context.Context, groupID int64) ([]*types.ObservedGroup, error) {
	groups, err := s.observed.List(ctx, groupID, false)
	if err != nil {
		return nil, err
	}

	if groupID != 0 && len(groups) == 0 {
		return nil, fmt.Errorf("%w: %d", types.ErrGroupNotObserved, groupID)
	}

	return groups, nil
}

// ApplyRefresh persists refreshed groups. In one transaction the observed rows
// are updated, staged rows are cleared (only the given group when groupID is
// nonzero) and the new rosters inserted. Failed groups are skipped.
func (s *StagedService) ApplyRefresh(ctx context.Context, groupID int64, groups []*types.ObservedGroup) error {
	err := dbretry.Transaction(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		if err := s.observed.UpdateCollected(ctx, tx, groups); err != nil {
			return err
		}

		if err := s.staged.Clear(ctx, tx, groupID); err != nil {
			return err
		}

		for _, group := range groups {
			if group.Failed() {
				continue
			}

			if err := s.staged.Insert(ctx, tx, group.Members); err != nil {
				return fmt.Errorf("group %d: %w", group.GroupID, err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply refresh: %w", err)
	}

	return nil
}

// AttachStaged loads each group's staged roster into its Members.
func (s *StagedService) AttachStaged(ctx context.Context, groups []*types.ObservedGroup) error {
	for _, group := range groups {
		members, err := s.staged.ListMembers(ctx, group.GroupID)
		if err != nil {
			return err
		}

		group.Members = members
		if len(members) > 0 {
			group.DataTime = members[0].DataTime
		}
	}

	return nil
}
