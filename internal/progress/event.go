package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	// StageRunStart is emitted once per Run invocation, including resumes.
	StageRunStart Stage = "RUN_START"
	// StageRunTick is emitted after each completed sleep-then-increment cycle.
	StageRunTick Stage = "RUN_TICK"
	// StageRunPaused is emitted when cancellation interrupts the sleep.
	StageRunPaused Stage = "RUN_PAUSED"
	// StageRunDone is emitted when progress reaches its maximum.
	StageRunDone Stage = "RUN_DONE"
)

// Event captures a single milestone of a runner's advance.
type Event struct {
	// RunID uniquely identifies a runner using the 16-byte UUID form.
	RunID [16]byte
	// TS is the timestamp recorded by the emitter's clock.
	TS time.Time
	// Stage denotes which lifecycle milestone occurred.
	Stage Stage
	// Name is the runner's display label.
	Name string
	// Progress is the runner's progress after the milestone.
	Progress int64
	// Max is the runner's configured maximum progress.
	Max int64
	// Delta carries the increment applied by a tick (zero otherwise).
	Delta int64
	// Dur captures elapsed run time for pause/done milestones.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.Max <= 0 {
		return errors.New("max progress must be > 0")
	}
	if e.Progress < 0 || e.Progress > e.Max {
		return fmt.Errorf("progress %d outside [0, %d]", e.Progress, e.Max)
	}
	switch e.Stage {
	case StageRunStart, StageRunPaused:
	case StageRunTick:
		if e.Delta <= 0 {
			return errors.New("tick requires a positive delta")
		}
	case StageRunDone:
		if e.Progress != e.Max {
			return errors.New("done requires progress at max")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID for repositories.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
