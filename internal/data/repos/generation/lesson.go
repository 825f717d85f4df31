package generation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/pkg/dbctx"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

type LessonRepo interface {
	Create(dbc dbctx.Context, lessons []*domain.Lesson) ([]*domain.Lesson, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Lesson, error)
	GetByArtifactID(dbc dbctx.Context, artifactID uuid.UUID) ([]*domain.Lesson, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteByArtifactID(dbc dbctx.Context, artifactID uuid.UUID) error
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *lessonRepo) Create(dbc dbctx.Context, lessons []*domain.Lesson) ([]*domain.Lesson, error) {
	if len(lessons) == 0 {
		return []*domain.Lesson{}, nil
	}
	if err := r.conn(dbc).WithContext(dbc.Ctx).Create(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *lessonRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Lesson, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var l domain.Lesson
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&l).Error
	if err != nil {
		return nil, err
	}
	if l.ID == uuid.Nil {
		return nil, nil
	}
	return &l, nil
}

func (r *lessonRepo) GetByArtifactID(dbc dbctx.Context, artifactID uuid.UUID) ([]*domain.Lesson, error) {
	var out []*domain.Lesson
	if artifactID == uuid.Nil {
		return out, nil
	}
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("artifact_id = ?", artifactID).
		Order("module_id ASC, idx ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Lesson{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *lessonRepo) DeleteByArtifactID(dbc dbctx.Context, artifactID uuid.UUID) error {
	if artifactID == uuid.Nil {
		return nil
	}
	return r.conn(dbc).WithContext(dbc.Ctx).
		Where("artifact_id = ?", artifactID).
		Delete(&domain.Lesson{}).Error
}
