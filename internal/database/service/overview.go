package service

import (
	"context"

	"github.com/bczgroup/tracker/internal/database/models"
	"github.com/bczgroup/tracker/internal/database/types"
	"go.uber.org/zap"
)

// OwnerLookup resolves the account behind the main platform token.
type OwnerLookup interface {
	Owner(ctx context.Context) (uniqueID, name string, err error)
}

// Overview summarizes the stored history and the main token state.
type Overview struct {
	RecordCount int                      `json:"count"`
	RecordDays  int                      `json:"days"`
	Groups      []*types.ObservedSummary `json:"groups"`
	TokenValid  bool                     `json:"tokenValid"`
	OwnerID     string                   `json:"uid,omitempty"`
	OwnerName   string                   `json:"name,omitempty"`
}

// OverviewService builds the tracker overview.
type OverviewService struct {
	member   *models.MemberModel
	group    *models.GroupModel
	observed *models.ObservedModel
	logger   *zap.Logger
}

// NewOverview creates a new overview service.
func NewOverview(
	member *models.MemberModel,
	group *models.GroupModel,
	observed *models.ObservedModel,
	logger *zap.Logger,
) *OverviewService {
	return &OverviewService{
		member:   member,
		group:    group,
		observed: observed,
		logger:   logger.Named("overview_service"),
	}
}

// Overview returns history counts, observed groups and main token validity.
// A failed owner lookup marks the token invalid rather than failing.
func (s *OverviewService) Overview(ctx context.Context, owner OwnerLookup) (*Overview, error) {
	count, err := s.member.CountRows(ctx)
	if err != nil {
		return nil, err
	}

	days, err := s.member.CountDays(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.observed.List(ctx, 0, false)
	if err != nil {
		return nil, err
	}

	overview := &Overview{
		RecordCount: count,
		RecordDays:  days,
		Groups:      make([]*types.ObservedSummary, 0, len(groups)),
	}

	for _, g := range groups {
		overview.Groups = append(overview.Groups, &types.ObservedSummary{
			GroupID:     g.GroupID,
			Name:        g.Name,
			DailyRecord: g.DailyRecord,
		})
	}

	if owner != nil {
		uid, name, err := owner.Owner(ctx)
		if err != nil {
			s.logger.Warn("Main token check failed", zap.Error(err))
		} else {
			overview.TokenValid = true
			overview.OwnerID = uid
			overview.OwnerName = name
		}
	}

	return overview, nil
}

// SearchOptions returns one option per recorded group for search filters.
func (s *OverviewService) SearchOptions(ctx context.Context) ([]*types.GroupOption, error) {
	return s.group.GroupOptions(ctx)
}
