package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bczgroup/tracker/internal/database/models"
	"github.com/bczgroup/tracker/internal/database/types"
	"go.uber.org/zap"
)

// ErrInvalidLateTime is returned when a lateness cutoff is not "HH:MM".
var ErrInvalidLateTime = errors.New("late time must be HH:MM")

// noLateTracking is the cutoff value that disables lateness tracking.
const noLateTracking = "00:00"

// GroupCollector fetches a single group from the platform.
type GroupCollector interface {
	FetchGroup(ctx context.Context, shareKey, secondaryToken string) (*types.GroupSnapshot, error)
}

// ConfigureParams are the operator settings of an observed group. Nil fields
// are left unchanged.
type ConfigureParams struct {
	DailyRecord  *bool
	LateDakaTime *string
	AuthToken    *string
	Valid        *bool
}

// ObservedService handles observed group management.
type ObservedService struct {
	model  *models.ObservedModel
	logger *zap.Logger
}

// NewObserved creates a new observed group service.
func NewObserved(model *models.ObservedModel, logger *zap.Logger) *ObservedService {
	return &ObservedService{
		model:  model,
		logger: logger.Named("observed_service"),
	}
}

// Subscribe starts observing the group behind a share key. The group is
// fetched once so that it is stored with its current metadata.
func (s *ObservedService) Subscribe(
	ctx context.Context, collector GroupCollector, shareKey string,
) (*types.ObservedGroup, error) {
	shareKey = strings.TrimSpace(shareKey)
	if shareKey == "" {
		return nil, fmt.Errorf("%w: empty share key", types.ErrInvalidGroupID)
	}

	exists, err := s.model.ExistsShareKey(ctx, shareKey)
	if err != nil {
		return nil, err
	}

	if exists {
		return nil, fmt.Errorf("%w: %s", types.ErrAlreadyObserved, shareKey)
	}

	snapshot, err := collector.FetchGroup(ctx, shareKey, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch group for subscription: %w", err)
	}

	group := &types.ObservedGroup{
		GroupInfo:   snapshot.GroupInfo,
		DailyRecord: true,
		Valid:       true,
		DataTime:    snapshot.DataTime,
	}

	if err := s.model.Insert(ctx, group); err != nil {
		return nil, err
	}

	s.logger.Info("Subscribed to group",
		zap.Int64("groupID", group.GroupID),
		zap.String("name", group.Name))

	return group, nil
}

// Configure updates the settings of an observed group. A "00:00" late time
// disables lateness tracking.
func (s *ObservedService) Configure(ctx context.Context, groupID int64, params ConfigureParams) error {
	if groupID <= 0 {
		return fmt.Errorf("%w: %d", types.ErrInvalidGroupID, groupID)
	}

	settings := models.ObservedSettings{
		DailyRecord: params.DailyRecord,
		AuthToken:   params.AuthToken,
		Valid:       params.Valid,
	}

	if params.LateDakaTime != nil {
		late, err := NormalizeLateTime(*params.LateDakaTime)
		if err != nil {
			return err
		}
		settings.LateDakaTime = &late
	}

	if params.AuthToken != nil {
		token := strings.TrimSpace(*params.AuthToken)
		settings.AuthToken = &token
	}

	return s.model.UpdateSettings(ctx, groupID, settings)
}

// Disable stops observing a group without deleting it.
func (s *ObservedService) Disable(ctx context.Context, groupID int64) error {
	if err := s.model.Disable(ctx, groupID); err != nil {
		return err
	}

	s.logger.Info("Disabled observed group", zap.Int64("groupID", groupID))

	return nil
}

// List returns observed groups, optionally including disabled ones.
func (s *ObservedService) List(ctx context.Context, includeInvalid bool) ([]*types.ObservedGroup, error) {
	return s.model.List(ctx, 0, includeInvalid)
}

// NormalizeLateTime validates a lateness cutoff. Empty and "00:00" both mean
// no lateness tracking and normalize to "".
func NormalizeLateTime(late string) (string, error) {
	late = strings.TrimSpace(late)
	if late == "" || late == noLateTracking {
		return "", nil
	}

	t, err := time.Parse("15:04", late)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidLateTime, late)
	}

	// Cutoffs compare lexically against HH:MM:SS
	return t.Format("15:04"), nil
}
