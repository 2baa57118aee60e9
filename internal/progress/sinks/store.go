package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/racekit/pacer/internal/progress"
	"github.com/racekit/pacer/internal/store"
)

// StoreSink projects progress events into a store.RunRepository so run
// history survives the supervisor's in-memory registry. Consecutive ticks
// for the same run are collapsed to the last value in the batch to reduce
// write amplification.
type StoreSink struct {
	repo   store.RunRepository
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for the provided repository.
func NewStoreSink(repo store.RunRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger}
}

// Consume forwards lifecycle events in order and the collapsed tick values,
// returning repository errors verbatim.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	ticks := make(map[[16]byte]progress.Event)

	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			if err := s.repo.UpsertRunStart(ctx, store.RunRecord{
				ID:          evt.RunUUID(),
				Name:        evt.Name,
				Status:      store.RunRunning,
				Progress:    evt.Progress,
				MaxProgress: evt.Max,
				StartedAt:   evt.TS,
				UpdatedAt:   evt.TS,
			}); err != nil {
				return fmt.Errorf("upsert run start: %w", err)
			}
		case progress.StageRunTick:
			ticks[evt.RunID] = evt
		case progress.StageRunPaused:
			delete(ticks, evt.RunID)
			if err := s.repo.CompleteRun(ctx, evt.RunUUID(), store.RunPaused, evt.Progress, evt.TS); err != nil {
				return fmt.Errorf("mark run paused: %w", err)
			}
		case progress.StageRunDone:
			delete(ticks, evt.RunID)
			if err := s.repo.CompleteRun(ctx, evt.RunUUID(), store.RunFinished, evt.Progress, evt.TS); err != nil {
				return fmt.Errorf("mark run finished: %w", err)
			}
		}
	}

	for _, evt := range ticks {
		if err := s.repo.UpdateProgress(ctx, evt.RunUUID(), evt.Progress, evt.TS); err != nil {
			return fmt.Errorf("update run progress: %w", err)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
