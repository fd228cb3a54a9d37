package emitter

import (
	"context"
	"log/slog"

	"github.com/brazyl/brazyl/internal/core/domain"
)

// Emitter publishes notification delivery outcomes
type Emitter interface {
	// Emit sends a single event
	Emit(ctx context.Context, event *domain.DeliveryEvent) error

	// Close flushes and releases the emitter
	Close() error
}

// LogEmitter writes events to the structured log. It is used when no broker is configured.
type LogEmitter struct {
	log *slog.Logger
}

// NewLogEmitter creates a log-backed emitter.
func NewLogEmitter() *LogEmitter {
	return &LogEmitter{log: slog.Default().With("component", "delivery-events")}
}

func (e *LogEmitter) Emit(ctx context.Context, event *domain.DeliveryEvent) error {
	e.log.Info("Delivery event",
		"notification_id", event.NotificationID,
		"user_id", event.UserID,
		"status", event.Status,
		"message_id", event.MessageID,
		"error", event.Error,
	)
	return nil
}

func (e *LogEmitter) Close() error {
	return nil
}
