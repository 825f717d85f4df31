// Package generation holds the repos for course-generation entities. All
// writes go through UpdateFields-style column updates; rows are never
// replaced wholesale.
package generation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/pkg/dbctx"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

type ArtifactRepo interface {
	Create(dbc dbctx.Context, artifacts []*domain.Artifact) ([]*domain.Artifact, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Artifact, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type artifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	return &artifactRepo{db: db, log: baseLog.With("repo", "ArtifactRepo")}
}

func (r *artifactRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *artifactRepo) Create(dbc dbctx.Context, artifacts []*domain.Artifact) ([]*domain.Artifact, error) {
	if len(artifacts) == 0 {
		return []*domain.Artifact{}, nil
	}
	if err := r.conn(dbc).WithContext(dbc.Ctx).Create(&artifacts).Error; err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (r *artifactRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Artifact, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var a domain.Artifact
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == uuid.Nil {
		return nil, nil
	}
	return &a, nil
}

func (r *artifactRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Artifact{}).
		Where("id = ?", id).
		Updates(updates).Error
}
