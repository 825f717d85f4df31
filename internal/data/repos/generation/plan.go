package generation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/pkg/dbctx"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

type PlanRepo interface {
	Create(dbc dbctx.Context, plan *domain.InstructionalPlan) (*domain.InstructionalPlan, error)
	GetByArtifactID(dbc dbctx.Context, artifactID uuid.UUID) (*domain.InstructionalPlan, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type planRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlanRepo(db *gorm.DB, baseLog *logger.Logger) PlanRepo {
	return &planRepo{db: db, log: baseLog.With("repo", "PlanRepo")}
}

func (r *planRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *planRepo) Create(dbc dbctx.Context, plan *domain.InstructionalPlan) (*domain.InstructionalPlan, error) {
	if plan == nil {
		return nil, nil
	}
	if err := r.conn(dbc).WithContext(dbc.Ctx).Create(plan).Error; err != nil {
		return nil, err
	}
	return plan, nil
}

// GetByArtifactID returns the most recent plan for the artifact, nil when none exists.
func (r *planRepo) GetByArtifactID(dbc dbctx.Context, artifactID uuid.UUID) (*domain.InstructionalPlan, error) {
	if artifactID == uuid.Nil {
		return nil, nil
	}
	var p domain.InstructionalPlan
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("artifact_id = ?", artifactID).
		Order("created_at DESC").
		Limit(1).
		Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

func (r *planRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.InstructionalPlan{}).
		Where("id = ?", id).
		Updates(updates).Error
}
