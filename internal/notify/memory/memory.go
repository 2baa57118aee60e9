// Package memory provides an in-process Notifier for development and tests.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/racekit/pacer/internal/notify"
)

// Notifier records published finish events in memory.
type Notifier struct {
	mu     sync.Mutex
	events []notify.FinishEvent
}

// New creates an empty Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Publish appends the event and returns its sequence number as the ID.
func (n *Notifier) Publish(_ context.Context, evt notify.FinishEvent) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
	return strconv.Itoa(len(n.events)), nil
}

// Events returns a copy of everything published so far.
func (n *Notifier) Events() []notify.FinishEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.FinishEvent(nil), n.events...)
}
