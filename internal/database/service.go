package database

import (
	"github.com/bczgroup/tracker/internal/database/service"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Service provides access to all business logic services.
type Service struct {
	observed *service.ObservedService
	history  *service.HistoryService
	staged   *service.StagedService
	overview *service.OverviewService
}

// NewService creates a new service instance with all services.
func NewService(db *bun.DB, repository *Repository, logger *zap.Logger) *Service {
	memberModel := repository.Member()
	stagedModel := repository.Staged()
	groupModel := repository.Group()
	observedModel := repository.Observed()

	return &Service{
		observed: service.NewObserved(observedModel, logger),
		history:  service.NewHistory(db, groupModel, memberModel, logger),
		staged:   service.NewStaged(db, stagedModel, observedModel, logger),
		overview: service.NewOverview(memberModel, groupModel, observedModel, logger),
	}
}

// Observed returns the observed group service.
func (s *Service) Observed() *service.ObservedService {
	return s.observed
}

// History returns the history service.
func (s *Service) History() *service.HistoryService {
	return s.history
}

// Staged returns the staged table service.
func (s *Service) Staged() *service.StagedService {
	return s.staged
}

// Overview returns the overview service.
func (s *Service) Overview() *service.OverviewService {
	return s.overview
}
