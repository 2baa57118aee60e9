// Package notify declares the finish-line notification contract.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FinishEvent describes a runner that reached its maximum progress.
type FinishEvent struct {
	RunID      uuid.UUID     `json:"run_id"`
	Name       string        `json:"name"`
	Progress   int64         `json:"progress"`
	FinishedAt time.Time     `json:"finished_at"`
	RunTime    time.Duration `json:"run_time_ns"`
}

// Notifier publishes finish events to an external audience. Implementations
// return the broker's message ID when available.
type Notifier interface {
	Publish(ctx context.Context, evt FinishEvent) (string, error)
}

// Noop discards every notification.
type Noop struct{}

// Publish implements Notifier; it does nothing.
func (Noop) Publish(context.Context, FinishEvent) (string, error) {
	return "", nil
}
