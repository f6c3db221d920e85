package database

import (
	"github.com/bczgroup/tracker/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	member   *models.MemberModel
	staged   *models.StagedModel
	group    *models.GroupModel
	observed *models.ObservedModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		member:   models.NewMember(db, logger),
		staged:   models.NewStaged(db, logger),
		group:    models.NewGroup(db, logger),
		observed: models.NewObserved(db, logger),
	}
}

// Member returns the member history model repository.
func (r *Repository) Member() *models.MemberModel {
	return r.member
}

// Staged returns the staged member model repository.
func (r *Repository) Staged() *models.StagedModel {
	return r.staged
}

// Group returns the group snapshot model repository.
func (r *Repository) Group() *models.GroupModel {
	return r.group
}

// Observed returns the observed group model repository.
func (r *Repository) Observed() *models.ObservedModel {
	return r.observed
}
