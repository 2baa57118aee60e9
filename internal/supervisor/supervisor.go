// Package supervisor owns the goroutines that execute runner loops. It is
// the single writer of lifecycle transitions: one active loop per runner,
// pause by context cancellation, resume by starting a new loop over the
// preserved counter.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/racekit/pacer/internal/clock"
	"github.com/racekit/pacer/internal/progress"
	"github.com/racekit/pacer/internal/race"
)

// ErrNotFound signals an unknown runner ID.
var ErrNotFound = errors.New("runner not found")

// ErrShuttingDown rejects starts after Shutdown has begun.
var ErrShuttingDown = errors.New("supervisor is shutting down")

// Spec carries the caller-supplied runner configuration.
type Spec struct {
	Name              string
	MaxProgress       int64
	ProgressIncrement int64
	DelayInterval     time.Duration
	InitialProgress   int64
}

// Snapshot is a point-in-time view of a runner for display layers.
type Snapshot struct {
	ID                uuid.UUID
	Name              string
	Progress          int64
	MaxProgress       int64
	ProgressIncrement int64
	DelayInterval     time.Duration
	State             race.State
}

// Supervisor registers runners and manages their run loops. All methods are
// safe for concurrent use.
type Supervisor struct {
	clk     clock.Clock
	emitter progress.Emitter
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	wg      sync.WaitGroup
	closed  bool
}

type entry struct {
	runner *race.Runner
	// cancel is non-nil exactly while a loop is active for this runner.
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Supervisor. The emitter is handed to every runner it
// creates; pass progress.Discard for an unobserved supervisor.
func New(clk clock.Clock, emitter progress.Emitter, logger *zap.Logger) *Supervisor {
	if emitter == nil {
		emitter = progress.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		clk:     clk,
		emitter: emitter,
		logger:  logger,
		entries: make(map[uuid.UUID]*entry),
	}
}

// Create validates the spec and registers a new idle runner. The returned
// snapshot carries the assigned ID.
func (s *Supervisor) Create(spec Spec) (Snapshot, error) {
	id := uuid.New()
	runner, err := race.New(id, race.Config{
		Name:              spec.Name,
		MaxProgress:       spec.MaxProgress,
		ProgressIncrement: spec.ProgressIncrement,
		DelayInterval:     spec.DelayInterval,
		InitialProgress:   spec.InitialProgress,
	}, s.clk, s.emitter)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrShuttingDown
	}
	e := &entry{runner: runner}
	s.entries[id] = e
	s.logger.Info("runner registered",
		zap.String("runner_id", id.String()),
		zap.String("name", spec.Name),
		zap.Int64("max_progress", spec.MaxProgress),
	)
	return snapshotOf(e), nil
}

// Start launches the run loop for the runner. It returns
// race.ErrAlreadyRunning when a loop is already active, and ErrNotFound for
// unknown IDs. Starting a finished runner is a no-op loop that exits
// immediately.
func (s *Supervisor) Start(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrShuttingDown
	}
	e, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	if e.cancel != nil {
		return race.ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		if err := e.runner.Run(ctx); err != nil {
			s.logger.Warn("run loop rejected",
				zap.String("runner_id", id.String()),
				zap.Error(err),
			)
		}
		cancel()
		s.mu.Lock()
		if e.cancel != nil && e.done == done {
			e.cancel = nil
		}
		s.mu.Unlock()
	}()
	return nil
}

// Pause cancels the runner's active loop and waits for it to park. Pausing
// an idle or finished runner is a no-op.
func (s *Supervisor) Pause(id uuid.UUID) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	cancel := e.cancel
	done := e.done
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Get returns a snapshot of a single runner.
func (s *Supervisor) Get(id uuid.UUID) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return snapshotOf(e), nil
}

// List returns snapshots of every registered runner ordered by name, then ID.
func (s *Supervisor) List() []Snapshot {
	s.mu.Lock()
	snapshots := make([]Snapshot, 0, len(s.entries))
	for _, e := range s.entries {
		snapshots = append(snapshots, snapshotOf(e))
	}
	s.mu.Unlock()

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].Name != snapshots[j].Name {
			return snapshots[i].Name < snapshots[j].Name
		}
		return snapshots[i].ID.String() < snapshots[j].ID.String()
	})
	return snapshots
}

// Shutdown pauses every active loop and waits for them to exit, bounded by
// ctx. Further Create/Start calls fail with ErrShuttingDown.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for _, e := range s.entries {
		if e.cancel != nil {
			e.cancel()
		}
	}
	s.mu.Unlock()

	waited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("supervisor shutdown wait: %w", ctx.Err())
	}
}

// snapshotOf is called with s.mu held. State is derived from the entry's
// cancel slot rather than the runner's own flag so a Get immediately after
// Start already observes Running.
func snapshotOf(e *entry) Snapshot {
	r := e.runner
	state := r.State()
	if e.cancel != nil && state == race.StateIdle {
		state = race.StateRunning
	}
	return Snapshot{
		ID:                r.ID(),
		Name:              r.Name(),
		Progress:          r.Current(),
		MaxProgress:       r.Max(),
		ProgressIncrement: r.Increment(),
		DelayInterval:     r.Delay(),
		State:             state,
	}
}
