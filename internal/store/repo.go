// Package store declares interfaces for persisting runner progress.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("run record not found")

// RunStatus mirrors the runs status column.
type RunStatus string

// Run statuses persisted in runs.status.
const (
	RunRunning  RunStatus = "running"
	RunPaused   RunStatus = "paused"
	RunFinished RunStatus = "finished"
)

// RunRecord models the runs table for API responses.
type RunRecord struct {
	// ID is the runner identifier.
	ID uuid.UUID
	// Name is the runner's display label.
	Name string
	// Status is running/paused/finished.
	Status RunStatus
	// Progress is the most recently persisted counter value.
	Progress int64
	// MaxProgress is the configured upper bound.
	MaxProgress int64
	// StartedAt captures when the run was first marked running.
	StartedAt time.Time
	// UpdatedAt captures the timestamp of the most recent write.
	UpdatedAt time.Time
	// FinishedAt is nil until the run reaches its maximum.
	FinishedAt *time.Time
}

// RunRepository persists incremental runner progress.
type RunRepository interface {
	// UpsertRunStart inserts (or idempotently re-marks) a running record.
	UpsertRunStart(ctx context.Context, rec RunRecord) error
	// UpdateProgress applies the latest counter value for a run.
	UpdateProgress(ctx context.Context, id uuid.UUID, progressVal int64, at time.Time) error
	// CompleteRun marks the run paused or finished.
	CompleteRun(ctx context.Context, id uuid.UUID, status RunStatus, progressVal int64, at time.Time) error

	// GetRun loads a single record or returns ErrNotFound.
	GetRun(ctx context.Context, id uuid.UUID) (RunRecord, error)
	// ListRuns returns records filtered by optional status plus limit/offset,
	// most recently updated first.
	ListRuns(ctx context.Context, status *RunStatus, limit, offset int) ([]RunRecord, error)

	// Close releases any underlying resources.
	Close()
}
