package service

import (
	"context"
	"log/slog"

	"commentboard/internal/notifications"
	"commentboard/internal/observability"
)

// Publisher delivers comment events to live viewers.
type Publisher interface {
	Publish(event notifications.Event) error
}

// publish is fire-and-forget: a failure is logged and counted but never
// undoes the state change that produced the event.
func publish(ctx context.Context, p Publisher, event notifications.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(event); err != nil {
		observability.BroadcastFailures.WithLabelValues(event.Type).Inc()
		observability.GlobalLogger.WarnContext(ctx, "broadcast failed",
			slog.String("event_type", event.Type),
			slog.String("error", err.Error()),
		)
	}
}
