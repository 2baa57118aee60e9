package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/racekit/pacer/internal/notify"
	"github.com/racekit/pacer/internal/progress"
)

// NotifySink publishes a finish-line notification for every RUN_DONE event.
type NotifySink struct {
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewNotifySink constructs a NotifySink for the provided notifier.
func NewNotifySink(notifier notify.Notifier, logger *zap.Logger) *NotifySink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotifySink{notifier: notifier, logger: logger}
}

// Consume publishes one notification per finished run in the batch.
func (s *NotifySink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.notifier == nil {
		return nil
	}
	for _, evt := range batch {
		if evt.Stage != progress.StageRunDone {
			continue
		}
		id, err := s.notifier.Publish(ctx, notify.FinishEvent{
			RunID:      evt.RunUUID(),
			Name:       evt.Name,
			Progress:   evt.Progress,
			FinishedAt: evt.TS,
			RunTime:    evt.Dur,
		})
		if err != nil {
			return fmt.Errorf("publish finish event: %w", err)
		}
		s.logger.Debug("finish event published",
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("message_id", id),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *NotifySink) Close(context.Context) error {
	return nil
}
