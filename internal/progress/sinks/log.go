package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/racekit/pacer/internal/progress"
)

// LogSink emits structured logs for debugging progress streams. It is useful
// during development or in the simulate command where no store is wired.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.logger.Info("progress event",
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("stage", string(evt.Stage)),
			zap.String("name", evt.Name),
			zap.Int64("progress", evt.Progress),
			zap.Int64("max", evt.Max),
			zap.Int64("delta", evt.Delta),
			zap.Duration("dur", evt.Dur),
			zap.String("note", evt.Note),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
