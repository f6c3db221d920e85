package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/bczgroup/tracker/pkg/utils"
	"go.uber.org/zap"
)

// Store is the persistence behind the staged table.
type Store interface {
	LatestDataTime(ctx context.Context) (time.Time, error)
	ObservedGroups(ctx context.Context, groupID int64) ([]*types.ObservedGroup, error)
	ApplyRefresh(ctx context.Context, groupID int64, groups []*types.ObservedGroup) error
	AttachStaged(ctx context.Context, groups []*types.ObservedGroup) error
}

// Refresher re-fetches observed groups from the platform.
type Refresher interface {
	Refresh(ctx context.Context, groups []*types.ObservedGroup, fullDetail bool) []*types.ObservedGroup
}

// Gate decides whether staged data can be served or must be refreshed.
type Gate struct {
	store     Store
	refresher Refresher
	now       func() time.Time
	logger    *zap.Logger
}

// NewGate creates a Gate.
func NewGate(store Store, refresher Refresher, logger *zap.Logger) *Gate {
	return &Gate{
		store:     store,
		refresher: refresher,
		now:       time.Now,
		logger:    logger.Named("cache_gate"),
	}
}

// WithClock replaces the clock used for staleness checks.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// EnsureFresh returns the observed groups with their rosters. A groupID of 0
// means every valid group. Staged data older than ttl, or any point query for
// a single group, triggers a refresh that replaces the staged rows. Otherwise
// the staged rows are attached as they are.
func (g *Gate) EnsureFresh(ctx context.Context, ttl time.Duration, groupID int64) ([]*types.ObservedGroup, error) {
	last, err := g.store.LatestDataTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache age: %w", err)
	}

	groups, err := g.store.ObservedGroups(ctx, groupID)
	if err != nil {
		return nil, err
	}

	now := g.now()
	if groupID == 0 && !utils.IsStale(last, ttl, now) {
		if err := g.store.AttachStaged(ctx, groups); err != nil {
			return nil, fmt.Errorf("failed to load staged members: %w", err)
		}

		g.logger.Debug("Serving staged members",
			zap.Duration("age", now.Sub(last)),
			zap.Int("groups", len(groups)))

		return groups, nil
	}

	groups = g.refresher.Refresh(ctx, groups, true)

	if err := g.store.ApplyRefresh(ctx, groupID, groups); err != nil {
		return nil, err
	}

	g.logger.Info("Refreshed staged members",
		zap.Int64("groupID", groupID),
		zap.Int("groups", len(groups)),
		zap.Bool("expired", utils.IsStale(last, ttl, now)))

	return groups, nil
}
