package services

import (
	"context"
	"log/slog"

	"bilancio/internal/amqp"
)

// publish sends a ledger event if a messaging client is configured.
// Event delivery is best-effort: the ledger mutation has already committed,
// so a publish failure is logged and never fails the operation.
func publish(ctx context.Context, client *amqp.Client, event *amqp.Event) {
	if client == nil {
		return
	}
	if err := client.PublishEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", event.Kind,
			"entity_id", event.EntityID,
			"error", err)
	}
}
