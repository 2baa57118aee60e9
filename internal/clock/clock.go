// Package clock abstracts time so run loops can be driven by a real or a
// virtual clock.
package clock

import (
	"context"
	"time"
)

// Clock provides the current time and a cancellable sleep. Sleep is the only
// suspension point in a run loop: it returns nil when the full duration has
// elapsed and the context error when cancelled first.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}
