package audit

import (
	"context"
	"log/slog"
)

// LogSink writes events as structured log lines. It is the sink of last
// resort when neither Postgres nor Kafka is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Append(ctx context.Context, e Event) error {
	s.logger.InfoContext(ctx, "audit event",
		"event_id", e.ID,
		"action", e.Action,
		"session_id", e.SessionID,
		"role", e.Role,
		"step", e.Step,
		"code", e.Code,
		"request_id", e.RequestID,
	)
	return nil
}
