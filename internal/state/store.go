// Package state records pipeline run history in SQLite.
package state

import (
	"context"
	"time"
)

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

// Run status values.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one invocation of the display pipeline.
type Run struct {
	ID              string     `json:"id"`
	Identifier      string     `json:"identifier"`
	URL             string     `json:"url"`
	Artifact        string     `json:"artifact"`
	CoordinateCount int        `json:"coordinate_count"`
	Status          RunStatus  `json:"status"`
	FailedStage     string     `json:"failed_stage,omitempty"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// RunOutcome carries the fields written when a run finishes.
type RunOutcome struct {
	Status          RunStatus
	CoordinateCount int
	FailedStage     string
	Error           string
}

// Store persists run history.
type Store interface {
	CreateRun(ctx context.Context, identifier, url, artifact string) (*Run, error)
	CompleteRun(ctx context.Context, id string, outcome RunOutcome) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	Close() error
}
