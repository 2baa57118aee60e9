// Package memory provides an in-memory RunRepository for development and
// tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/racekit/pacer/internal/store"
)

// Repository keeps run records in a mutex-guarded map.
type Repository struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]store.RunRecord
}

// New creates an empty Repository.
func New() *Repository {
	return &Repository{runs: make(map[uuid.UUID]store.RunRecord)}
}

// UpsertRunStart inserts the record or re-marks an existing one as running.
func (r *Repository) UpsertRunStart(_ context.Context, rec store.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.runs[rec.ID]; ok {
		existing.Status = store.RunRunning
		existing.Progress = rec.Progress
		existing.UpdatedAt = rec.UpdatedAt
		existing.FinishedAt = nil
		r.runs[rec.ID] = existing
		return nil
	}
	rec.Status = store.RunRunning
	r.runs[rec.ID] = rec
	return nil
}

// UpdateProgress stores the latest counter value.
func (r *Repository) UpdateProgress(_ context.Context, id uuid.UUID, progressVal int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.runs[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.Progress = progressVal
	rec.UpdatedAt = at
	r.runs[id] = rec
	return nil
}

// CompleteRun marks the run paused or finished.
func (r *Repository) CompleteRun(
	_ context.Context,
	id uuid.UUID,
	status store.RunStatus,
	progressVal int64,
	at time.Time,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.runs[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.Status = status
	rec.Progress = progressVal
	rec.UpdatedAt = at
	if status == store.RunFinished {
		finished := at
		rec.FinishedAt = &finished
	}
	r.runs[id] = rec
	return nil
}

// GetRun loads a single record or returns store.ErrNotFound.
func (r *Repository) GetRun(_ context.Context, id uuid.UUID) (store.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.runs[id]
	if !ok {
		return store.RunRecord{}, store.ErrNotFound
	}
	return rec, nil
}

// ListRuns returns records most recently updated first.
func (r *Repository) ListRuns(
	_ context.Context,
	status *store.RunStatus,
	limit, offset int,
) ([]store.RunRecord, error) {
	r.mu.RLock()
	records := make([]store.RunRecord, 0, len(r.runs))
	for _, rec := range r.runs {
		if status != nil && rec.Status != *status {
			continue
		}
		records = append(records, rec)
	}
	r.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	if offset >= len(records) {
		return nil, nil
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}

// Close implements RunRepository; it performs no action.
func (r *Repository) Close() {}
