package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Artifact is the top-level generated-course record built up across pipeline
// stages. Pipelines update specific columns only, never the whole row.
type Artifact struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Title       string    `gorm:"column:title" json:"title"`
	CentralIdea string    `gorm:"column:central_idea" json:"central_idea"`
	Route       string    `gorm:"column:route" json:"route,omitempty"`
	Description string    `gorm:"column:description" json:"description"`

	// JSON array of objective strings supplied by the admin.
	Objectives datatypes.JSON `gorm:"column:objectives;type:jsonb" json:"objectives"`
	// Raw form input from the phase-1 trigger, kept for audit.
	FormData datatypes.JSON `gorm:"column:form_data;type:jsonb" json:"form_data,omitempty"`
	// JSON array of generated course-name options.
	NameOptions datatypes.JSON `gorm:"column:name_options;type:jsonb" json:"name_options,omitempty"`
	// Accepted (or last attempted) syllabus payload.
	Syllabus datatypes.JSON `gorm:"column:syllabus;type:jsonb" json:"syllabus,omitempty"`

	State            string         `gorm:"column:state;not null;index" json:"state"`
	ValidationReport datatypes.JSON `gorm:"column:validation_report;type:jsonb" json:"validation_report,omitempty"`
	GenerationMeta   datatypes.JSON `gorm:"column:generation_metadata;type:jsonb" json:"generation_metadata,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Artifact) TableName() string { return "artifact" }

// Module is one syllabus module materialized from an accepted payload.
type Module struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ArtifactID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"artifact_id"`
	Index       int            `gorm:"column:idx;not null" json:"index"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Description string         `gorm:"column:description" json:"description"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Module) TableName() string { return "module" }

// Lesson belongs to a module. Components holds the generated content blocks;
// ExpectedComponents the block types the syllabus promised. DoD and State are
// owned by materials validation.
type Lesson struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ArtifactID uuid.UUID `gorm:"type:uuid;not null;index" json:"artifact_id"`
	ModuleID   uuid.UUID `gorm:"type:uuid;not null;index" json:"module_id"`
	Index      int       `gorm:"column:idx;not null" json:"index"`
	Title      string    `gorm:"column:title;not null" json:"title"`
	Summary    string    `gorm:"column:summary" json:"summary"`

	ExpectedComponents datatypes.JSON `gorm:"column:expected_components;type:jsonb" json:"expected_components"`
	Components         datatypes.JSON `gorm:"column:components;type:jsonb" json:"components,omitempty"`

	State     string         `gorm:"column:state;not null;index" json:"state"`
	DoD       datatypes.JSON `gorm:"column:dod;type:jsonb" json:"dod,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

// FlatLesson is a lesson joined with its module context, the shape the
// instructional-plan prompt consumes.
type FlatLesson struct {
	LessonID    uuid.UUID `json:"lesson_id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	ModuleTitle string    `json:"module_title"`
	ModuleIndex int       `json:"module_index"`
	LessonIndex int       `json:"lesson_index"`
}
