package system

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestNowIsUTC verifies the clock reports UTC timestamps.
func TestNowIsUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	require.Equal(t, time.UTC, clk.Now().Location())
}

// TestSleepElapses verifies a short sleep returns nil after the duration.
func TestSleepElapses(t *testing.T) {
	t.Parallel()

	clk := New()
	start := time.Now()
	require.NoError(t, clk.Sleep(context.Background(), 10*time.Millisecond))
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

// TestSleepCancelled verifies cancellation interrupts the wait with ctx.Err.
func TestSleepCancelled(t *testing.T) {
	t.Parallel()

	clk := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, clk.Sleep(ctx, time.Minute), context.Canceled)
}

// TestSleepZeroDurationChecksContext verifies a zero-length sleep still
// honors an already-cancelled context.
func TestSleepZeroDurationChecksContext(t *testing.T) {
	t.Parallel()

	clk := New()
	require.NoError(t, clk.Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, clk.Sleep(ctx, 0), context.Canceled)
}
