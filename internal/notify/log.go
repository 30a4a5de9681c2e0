package notify

import (
	"context"
	"log/slog"
)

// LogSender writes notifications to the log. It stands in for a broker in
// development and when no Kafka brokers are configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) Send(ctx context.Context, msg Message) error {
	l.logger.InfoContext(ctx, "notification",
		"type", msg.Type,
		"key", msg.Key,
		"occurred_at", msg.OccurredAt,
	)
	return nil
}
