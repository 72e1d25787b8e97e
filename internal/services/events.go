package services

import (
	"context"
	"log/slog"
	"time"

	"ledger/internal/core"
)

// EventPublisher delivers ledger events to other processes. A nil
// publisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, evt core.LedgerEvent) error
}

// publishEvent is best-effort: the mutation has already committed, so a
// delivery failure is logged and never returned to the caller.
func publishEvent(ctx context.Context, p EventPublisher, evt core.LedgerEvent) {
	if p == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping ledger event", "event_type", evt.Type)
		return
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	if err := p.Publish(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event_type", evt.Type,
			"user_id", evt.UserID,
			"entity_id", evt.EntityID,
			"error", err)
	}
}
