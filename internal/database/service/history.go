package service

import (
	"context"
	"fmt"

	"github.com/bczgroup/tracker/internal/database/dbretry"
	"github.com/bczgroup/tracker/internal/database/models"
	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// HistoryService persists collected snapshots into the append-only history.
type HistoryService struct {
	db     *bun.DB
	group  *models.GroupModel
	member *models.MemberModel
	logger *zap.Logger
}

// NewHistory creates a new history service.
func NewHistory(
	db *bun.DB,
	group *models.GroupModel,
	member *models.MemberModel,
	logger *zap.Logger,
) *HistoryService {
	return &HistoryService{
		db:     db,
		group:  group,
		member: member,
		logger: logger.Named("history_service"),
	}
}

// Record stores a snapshot and its roster in one transaction.
func (s *HistoryService) Record(ctx context.Context, snapshot *types.GroupSnapshot) error {
	err := dbretry.Transaction(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		if err := s.group.InsertSnapshot(ctx, tx, snapshot); err != nil {
			return err
		}

		return s.member.InsertMembers(ctx, tx, snapshot.Members)
	})
	if err != nil {
		return fmt.Errorf("failed to record group %d: %w", snapshot.GroupID, err)
	}

	s.logger.Debug("Recorded group snapshot",
		zap.Int64("groupID", snapshot.GroupID),
		zap.Int("members", len(snapshot.Members)))

	return nil
}
