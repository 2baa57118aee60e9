// Package postgres provides a Postgres-backed RunRepository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/racekit/pacer/internal/store"
)

// DB is the subset of pgxpool.Pool the repository uses; pgxmock satisfies it
// in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Repository implements store.RunRepository against the runs table.
type Repository struct {
	db DB
}

// New connects a pgx pool for the given DSN.
func New(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewWithDB(pool), nil
}

// NewWithDB wraps an existing pool or mock.
func NewWithDB(db DB) *Repository {
	return &Repository{db: db}
}

// Close closes the underlying pool.
func (r *Repository) Close() {
	r.db.Close()
}

// UpsertRunStart inserts the run row or re-marks an existing one as running,
// clearing any finish timestamp from a prior leg.
func (r *Repository) UpsertRunStart(ctx context.Context, rec store.RunRecord) error {
	query := `
		INSERT INTO runs (id, name, status, progress, max_progress, started_at, updated_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, NULL)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    progress = EXCLUDED.progress,
		    updated_at = EXCLUDED.updated_at,
		    finished_at = NULL;
	`
	_, err := r.db.Exec(ctx, query, rec.ID, rec.Name, store.RunRunning, rec.Progress, rec.MaxProgress, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert run start: %w", err)
	}
	return nil
}

// UpdateProgress stores the latest counter value for the run.
func (r *Repository) UpdateProgress(ctx context.Context, id uuid.UUID, progressVal int64, at time.Time) error {
	query := `UPDATE runs SET progress = $1, updated_at = $2 WHERE id = $3;`
	tag, err := r.db.Exec(ctx, query, progressVal, at, id)
	if err != nil {
		return fmt.Errorf("update run progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CompleteRun marks the run paused or finished.
func (r *Repository) CompleteRun(
	ctx context.Context,
	id uuid.UUID,
	status store.RunStatus,
	progressVal int64,
	at time.Time,
) error {
	var query string
	switch status {
	case store.RunFinished:
		query = `UPDATE runs SET status = $1, progress = $2, updated_at = $3, finished_at = $3 WHERE id = $4;`
	case store.RunPaused:
		query = `UPDATE runs SET status = $1, progress = $2, updated_at = $3 WHERE id = $4;`
	default:
		return fmt.Errorf("unsupported completion status: %s", status)
	}
	tag, err := r.db.Exec(ctx, query, status, progressVal, at, id)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetRun loads a single run row or returns store.ErrNotFound.
func (r *Repository) GetRun(ctx context.Context, id uuid.UUID) (store.RunRecord, error) {
	query := `
		SELECT id, name, status, progress, max_progress, started_at, updated_at, finished_at
		FROM runs WHERE id = $1;
	`
	rec, err := scanRun(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.RunRecord{}, store.ErrNotFound
		}
		return store.RunRecord{}, fmt.Errorf("get run: %w", err)
	}
	return rec, nil
}

// ListRuns returns run rows filtered by optional status, most recently
// updated first.
func (r *Repository) ListRuns(
	ctx context.Context,
	status *store.RunStatus,
	limit, offset int,
) ([]store.RunRecord, error) {
	query := `
		SELECT id, name, status, progress, max_progress, started_at, updated_at, finished_at
		FROM runs
	`
	args := make([]any, 0, 3)
	if status != nil {
		query += ` WHERE status = $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3;`
		args = append(args, *status, limit, offset)
	} else {
		query += ` ORDER BY updated_at DESC LIMIT $1 OFFSET $2;`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []store.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return records, nil
}

func scanRun(row pgx.Row) (store.RunRecord, error) {
	var rec store.RunRecord
	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Status,
		&rec.Progress,
		&rec.MaxProgress,
		&rec.StartedAt,
		&rec.UpdatedAt,
		&rec.FinishedAt,
	)
	if err != nil {
		return store.RunRecord{}, err
	}
	return rec, nil
}
