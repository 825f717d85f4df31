package generation

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/pkg/dbctx"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

type ModuleRepo interface {
	Create(dbc dbctx.Context, modules []*domain.Module) ([]*domain.Module, error)
	GetByArtifactID(dbc dbctx.Context, artifactID uuid.UUID) ([]*domain.Module, error)
	DeleteByArtifactID(dbc dbctx.Context, artifactID uuid.UUID) error
}

type moduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModuleRepo(db *gorm.DB, baseLog *logger.Logger) ModuleRepo {
	return &moduleRepo{db: db, log: baseLog.With("repo", "ModuleRepo")}
}

func (r *moduleRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *moduleRepo) Create(dbc dbctx.Context, modules []*domain.Module) ([]*domain.Module, error) {
	if len(modules) == 0 {
		return []*domain.Module{}, nil
	}
	if err := r.conn(dbc).WithContext(dbc.Ctx).Create(&modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

func (r *moduleRepo) GetByArtifactID(dbc dbctx.Context, artifactID uuid.UUID) ([]*domain.Module, error) {
	var out []*domain.Module
	if artifactID == uuid.Nil {
		return out, nil
	}
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("artifact_id = ?", artifactID).
		Order("idx ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *moduleRepo) DeleteByArtifactID(dbc dbctx.Context, artifactID uuid.UUID) error {
	if artifactID == uuid.Nil {
		return nil
	}
	return r.conn(dbc).WithContext(dbc.Ctx).
		Where("artifact_id = ?", artifactID).
		Delete(&domain.Module{}).Error
}
