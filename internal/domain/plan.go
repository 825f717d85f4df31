package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InstructionalPlan is the per-artifact teaching plan: one lesson_plan entry
// per syllabus lesson, plus reviewer blockers raised by validation.
type InstructionalPlan struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ArtifactID uuid.UUID `gorm:"type:uuid;not null;index" json:"artifact_id"`

	LessonPlans datatypes.JSON `gorm:"column:lesson_plans;type:jsonb" json:"lesson_plans"`
	Blockers    datatypes.JSON `gorm:"column:blockers;type:jsonb" json:"blockers,omitempty"`

	State            string         `gorm:"column:state;not null;index" json:"state"`
	ValidationReport datatypes.JSON `gorm:"column:validation_report;type:jsonb" json:"validation_report,omitempty"`
	GenerationMeta   datatypes.JSON `gorm:"column:generation_metadata;type:jsonb" json:"generation_metadata,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (InstructionalPlan) TableName() string { return "instructional_plan" }
