package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope published for every job lifecycle transition.
type Event struct {
	Type       string                 `json:"type"`
	JobID      uuid.UUID              `json:"job_id"`
	JobType    string                 `json:"job_type"`
	EntityType string                 `json:"entity_type,omitempty"`
	EntityID   uuid.UUID              `json:"entity_id,omitempty"`
	Progress   int                    `json:"progress,omitempty"`
	Stage      string                 `json:"stage,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	At         time.Time              `json:"at"`
}

const (
	EventJobProgress = "job.progress"
	EventJobDone     = "job.done"
	EventJobFailed   = "job.failed"
)

type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}
