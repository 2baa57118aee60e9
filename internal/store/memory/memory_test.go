package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/racekit/pacer/internal/store"
)

func newRecord(name string, at time.Time) store.RunRecord {
	return store.RunRecord{
		ID:          uuid.New(),
		Name:        name,
		Status:      store.RunRunning,
		Progress:    0,
		MaxProgress: 100,
		StartedAt:   at,
		UpdatedAt:   at,
	}
}

// TestUpsertAndGet verifies a stored record round-trips.
func TestUpsertAndGet(t *testing.T) {
	t.Parallel()

	repo := New()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	rec := newRecord("tortoise", now)

	require.NoError(t, repo.UpsertRunStart(ctx, rec))
	got, err := repo.GetRun(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec, got)
}

// TestGetUnknownRun verifies ErrNotFound for missing records.
func TestGetUnknownRun(t *testing.T) {
	t.Parallel()

	repo := New()
	_, err := repo.GetRun(context.Background(), uuid.New())
	require.ErrorIs(t, err, store.ErrNotFound)
}

// TestUpsertResumeClearsFinish verifies re-marking a paused run as running
// clears its finish timestamp and refreshes progress.
func TestUpsertResumeClearsFinish(t *testing.T) {
	t.Parallel()

	repo := New()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	rec := newRecord("tortoise", now)

	require.NoError(t, repo.UpsertRunStart(ctx, rec))
	require.NoError(t, repo.CompleteRun(ctx, rec.ID, store.RunPaused, 5, now.Add(time.Second)))

	rec.Progress = 5
	rec.UpdatedAt = now.Add(2 * time.Second)
	require.NoError(t, repo.UpsertRunStart(ctx, rec))

	got, err := repo.GetRun(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, store.RunRunning, got.Status)
	require.EqualValues(t, 5, got.Progress)
	require.Nil(t, got.FinishedAt)
}

// TestCompleteRunFinished verifies finishing stamps FinishedAt.
func TestCompleteRunFinished(t *testing.T) {
	t.Parallel()

	repo := New()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	rec := newRecord("tortoise", now)

	require.NoError(t, repo.UpsertRunStart(ctx, rec))
	finishedAt := now.Add(time.Minute)
	require.NoError(t, repo.CompleteRun(ctx, rec.ID, store.RunFinished, 100, finishedAt))

	got, err := repo.GetRun(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, store.RunFinished, got.Status)
	require.EqualValues(t, 100, got.Progress)
	require.NotNil(t, got.FinishedAt)
	require.Equal(t, finishedAt, *got.FinishedAt)
}

// TestUpdateProgressUnknownRun verifies progress writes demand an existing
// record.
func TestUpdateProgressUnknownRun(t *testing.T) {
	t.Parallel()

	repo := New()
	err := repo.UpdateProgress(context.Background(), uuid.New(), 1, time.Now())
	require.ErrorIs(t, err, store.ErrNotFound)
}

// TestListRunsFilterAndPaging verifies status filtering, recency ordering,
// and limit/offset windows.
func TestListRunsFilterAndPaging(t *testing.T) {
	t.Parallel()

	repo := New()
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	var paused store.RunRecord
	for i := 0; i < 4; i++ {
		rec := newRecord("runner", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.UpsertRunStart(ctx, rec))
		if i == 3 {
			paused = rec
		}
	}
	require.NoError(t, repo.CompleteRun(ctx, paused.ID, store.RunPaused, 9, base.Add(time.Hour)))

	status := store.RunPaused
	got, err := repo.ListRuns(ctx, &status, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, paused.ID, got[0].ID)

	all, err := repo.ListRuns(ctx, nil, 2, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, paused.ID, all[0].ID) // most recent update first

	rest, err := repo.ListRuns(ctx, nil, 10, 2)
	require.NoError(t, err)
	require.Len(t, rest, 2)

	empty, err := repo.ListRuns(ctx, nil, 10, 100)
	require.NoError(t, err)
	require.Empty(t, empty)
}
