package race

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/racekit/pacer/internal/clock"
	"github.com/racekit/pacer/internal/progress"
)

// ErrInvalidConfiguration is returned by New when a config invariant fails.
// No Runner is produced.
var ErrInvalidConfiguration = errors.New("invalid runner configuration")

// ErrAlreadyRunning is returned by Run when the instance already has an
// active loop. It signals API misuse; cancellation is never an error.
var ErrAlreadyRunning = errors.New("runner already has an active loop")

// State is the logical lifecycle state of a Runner.
type State string

// Runner states. Finished is a terminal flavor of Idle: further Run calls
// return immediately because the loop condition is already false.
const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateFinished State = "finished"
)

// Config is the immutable configuration of a Runner.
type Config struct {
	// Name is a display label; it carries no behavioral weight.
	Name string
	// MaxProgress is the upper bound on progress; must be > 0.
	MaxProgress int64
	// ProgressIncrement is added per tick; must be > 0.
	ProgressIncrement int64
	// DelayInterval is the pause between ticks; must be >= 0.
	DelayInterval time.Duration
	// InitialProgress seeds the counter; must be in [0, MaxProgress].
	InitialProgress int64
}

// Runner advances an integer progress value by a fixed increment after each
// delay interval until the maximum is reached. The counter is the only
// mutable field; it is written solely by the active run loop and may be read
// concurrently through Current.
type Runner struct {
	id      uuid.UUID
	cfg     Config
	clk     clock.Clock
	emitter progress.Emitter

	current atomic.Int64
	running atomic.Bool
}

// New validates cfg and constructs a Runner. The emitter receives lifecycle
// and tick events; pass progress.Discard (or nil) for an unobserved runner.
func New(id uuid.UUID, cfg Config, clk clock.Clock, emitter progress.Emitter) (*Runner, error) {
	if cfg.MaxProgress <= 0 {
		return nil, fmt.Errorf("%w: max progress %d must be > 0", ErrInvalidConfiguration, cfg.MaxProgress)
	}
	if cfg.ProgressIncrement <= 0 {
		return nil, fmt.Errorf("%w: progress increment %d must be > 0", ErrInvalidConfiguration, cfg.ProgressIncrement)
	}
	if cfg.DelayInterval < 0 {
		return nil, fmt.Errorf("%w: delay interval %s must be >= 0", ErrInvalidConfiguration, cfg.DelayInterval)
	}
	if cfg.InitialProgress < 0 || cfg.InitialProgress > cfg.MaxProgress {
		return nil, fmt.Errorf(
			"%w: initial progress %d outside [0, %d]",
			ErrInvalidConfiguration, cfg.InitialProgress, cfg.MaxProgress,
		)
	}
	if emitter == nil {
		emitter = progress.Discard
	}
	r := &Runner{
		id:      id,
		cfg:     cfg,
		clk:     clk,
		emitter: emitter,
	}
	r.current.Store(cfg.InitialProgress)
	return r, nil
}

// Run executes the tick loop until progress reaches MaxProgress or ctx is
// cancelled. Each tick sleeps for DelayInterval and then increments the
// counter; cancellation during the sleep aborts without incrementing, and
// the preserved counter lets a later Run call resume where this one stopped.
// A final tick that would overshoot MaxProgress is clamped to it.
//
// Run returns nil both on completion and on cancellation; cancellation is a
// normal exit. ErrAlreadyRunning is returned if another loop is active on
// this instance.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.running.Store(false)

	started := r.clk.Now()
	r.emit(progress.StageRunStart, 0, 0, "")
	for r.current.Load() < r.cfg.MaxProgress {
		if err := r.clk.Sleep(ctx, r.cfg.DelayInterval); err != nil {
			r.emit(progress.StageRunPaused, 0, r.clk.Now().Sub(started), "cancelled during delay")
			return nil
		}
		delta := r.advance()
		r.emit(progress.StageRunTick, delta, 0, "")
	}
	r.emit(progress.StageRunDone, 0, r.clk.Now().Sub(started), "")
	return nil
}

// advance applies one increment, clamped at MaxProgress, and reports the
// applied delta. Only the active loop calls it.
func (r *Runner) advance() int64 {
	cur := r.current.Load()
	next := cur + r.cfg.ProgressIncrement
	if next > r.cfg.MaxProgress {
		next = r.cfg.MaxProgress
	}
	r.current.Store(next)
	return next - cur
}

// ID returns the runner's identifier.
func (r *Runner) ID() uuid.UUID {
	return r.id
}

// Name returns the display label.
func (r *Runner) Name() string {
	return r.cfg.Name
}

// Current returns a snapshot of the progress counter. Safe for concurrent
// readers while a loop is active.
func (r *Runner) Current() int64 {
	return r.current.Load()
}

// Max returns the configured maximum progress.
func (r *Runner) Max() int64 {
	return r.cfg.MaxProgress
}

// Increment returns the configured per-tick increment.
func (r *Runner) Increment() int64 {
	return r.cfg.ProgressIncrement
}

// Delay returns the configured interval between ticks.
func (r *Runner) Delay() time.Duration {
	return r.cfg.DelayInterval
}

// State derives the logical state from the running flag and the counter.
func (r *Runner) State() State {
	if r.running.Load() {
		return StateRunning
	}
	if r.current.Load() >= r.cfg.MaxProgress {
		return StateFinished
	}
	return StateIdle
}

func (r *Runner) emit(stage progress.Stage, delta int64, dur time.Duration, note string) {
	r.emitter.Emit(progress.Event{
		RunID:    progress.UUIDToBytes(r.id),
		TS:       r.clk.Now(),
		Stage:    stage,
		Name:     r.cfg.Name,
		Progress: r.current.Load(),
		Max:      r.cfg.MaxProgress,
		Delta:    delta,
		Dur:      dur,
		Note:     note,
	})
}
