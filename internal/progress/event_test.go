package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func sampleEvent(stage Stage) Event {
	evt := Event{
		RunID:    UUIDToBytes(uuid.New()),
		TS:       time.Now().UTC(),
		Stage:    stage,
		Name:     "tortoise",
		Progress: 5,
		Max:      100,
	}
	if stage == StageRunTick {
		evt.Delta = 1
	}
	if stage == StageRunDone {
		evt.Progress = evt.Max
	}
	return evt
}

// TestEventValidateAcceptsAllStages verifies each supported stage passes
// validation with its required fields populated.
func TestEventValidateAcceptsAllStages(t *testing.T) {
	t.Parallel()

	for _, stage := range []Stage{StageRunStart, StageRunTick, StageRunPaused, StageRunDone} {
		require.NoError(t, sampleEvent(stage).Validate(), "stage %s", stage)
	}
}

// TestEventValidateRejectsBadPayloads walks the per-field failure modes.
func TestEventValidateRejectsBadPayloads(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Event){
		"missing run id":     func(e *Event) { e.RunID = [16]byte{} },
		"missing timestamp":  func(e *Event) { e.TS = time.Time{} },
		"zero max":           func(e *Event) { e.Max = 0 },
		"negative progress":  func(e *Event) { e.Progress = -1 },
		"progress above max": func(e *Event) { e.Progress = e.Max + 1 },
		"unknown stage":      func(e *Event) { e.Stage = "RUN_WARP" },
		"negative duration":  func(e *Event) { e.Dur = -time.Second },
	}
	for name, mutate := range cases {
		evt := sampleEvent(StageRunStart)
		mutate(&evt)
		require.Error(t, evt.Validate(), name)
	}
}

// TestEventValidateTickRequiresDelta verifies ticks must carry a positive
// increment.
func TestEventValidateTickRequiresDelta(t *testing.T) {
	t.Parallel()

	evt := sampleEvent(StageRunTick)
	evt.Delta = 0
	require.Error(t, evt.Validate())
}

// TestEventValidateDoneRequiresMax verifies RUN_DONE only validates when
// progress landed on the configured maximum.
func TestEventValidateDoneRequiresMax(t *testing.T) {
	t.Parallel()

	evt := sampleEvent(StageRunDone)
	evt.Progress = evt.Max - 1
	require.Error(t, evt.Validate())
}

// TestRunUUIDRoundTrip verifies the binary and uuid forms convert cleanly.
func TestRunUUIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	evt := Event{RunID: UUIDToBytes(id)}
	require.Equal(t, id, evt.RunUUID())
}
