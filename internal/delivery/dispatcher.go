// Package delivery moves notifications through their lifecycle: immediate
// dispatch, the scheduled sweep and the user-facing notification service.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/core/format"
	"github.com/brazyl/brazyl/internal/core/metrics"
	"github.com/brazyl/brazyl/internal/core/notification"
	"github.com/brazyl/brazyl/internal/infra/emitter"
	"github.com/brazyl/brazyl/internal/infra/gateway"
	"github.com/brazyl/brazyl/internal/infra/storage"
)

const messageHeader = "*🇧🇷 Brazyl - Acompanhe Políticos*"

// finalizeTimeout bounds the terminal status write, which outlives the caller's ctx.
const finalizeTimeout = 10 * time.Second

// FormatMessage renders the WhatsApp text for a notification sent at sentAt.
func FormatMessage(title, body string, sentAt time.Time) string {
	return fmt.Sprintf("%s\n\n*%s*\n\n%s\n\n_Enviado em %s_",
		messageHeader, title, body, format.DateTimeBR(sentAt))
}

// Dispatcher delivers a single PENDING notification through the gateway.
type Dispatcher struct {
	repo    storage.NotificationRepository
	gateway gateway.Gateway
	emitter emitter.Emitter
	now     func() time.Time
	log     *slog.Logger
}

// NewDispatcher creates a Dispatcher. A nil emitter falls back to the log emitter.
func NewDispatcher(
	repo storage.NotificationRepository,
	gw gateway.Gateway,
	em emitter.Emitter,
) *Dispatcher {
	if em == nil {
		em = emitter.NewLogEmitter()
	}
	return &Dispatcher{
		repo:    repo,
		gateway: gw,
		emitter: em,
		now:     time.Now,
		log:     slog.Default().With("component", "dispatcher"),
	}
}

// Dispatch sends n and records the outcome. The status moves to SENT before
// the gateway is called, then to DELIVERED or FAILED. Once the gateway has been
// called the terminal write is made even if ctx is canceled meanwhile.
func (d *Dispatcher) Dispatch(ctx context.Context, n *domain.Notification) error {
	if err := notification.Check(n.Status, domain.NotificationStatusSent); err != nil {
		return fmt.Errorf("notification %s: %w", n.ID, err)
	}

	final, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	phone, err := d.repo.ResolveRecipientAddress(ctx, n)
	if errors.Is(err, storage.ErrRecipientNotFound) {
		if markErr := d.fail(final, n, "recipient address not found"); markErr != nil {
			return markErr
		}
		return &RecipientUnresolvedError{NotificationID: n.ID}
	}
	if err != nil {
		return fmt.Errorf("resolve recipient of %s: %w", n.ID, err)
	}

	sentAt := d.now()
	text := FormatMessage(n.Title, n.Message, sentAt)

	if err := d.repo.MarkSent(ctx, n.ID, sentAt); err != nil {
		return err
	}
	metrics.NotificationTransitionsTotal.WithLabelValues(string(domain.NotificationStatusSent)).Inc()

	receipt, sendErr := d.gateway.Send(ctx, gateway.Message{Phone: phone, Text: text})
	if sendErr != nil {
		d.log.Error("Gateway send failed", "notification_id", n.ID, "error", sendErr)
		if markErr := d.fail(final, n, sendErr.Error()); markErr != nil {
			return markErr
		}
		return &DeliveryGatewayError{NotificationID: n.ID, Err: sendErr}
	}

	deliveredAt := d.now()
	if deliveredAt.Before(sentAt) {
		deliveredAt = sentAt
	}
	if err := d.repo.MarkDelivered(final, n.ID, deliveredAt); err != nil {
		return err
	}
	metrics.NotificationTransitionsTotal.WithLabelValues(string(domain.NotificationStatusDelivered)).Inc()

	var messageID string
	if receipt != nil {
		messageID = receipt.MessageID
	}
	d.log.Info("Notification delivered", "notification_id", n.ID, "message_id", messageID)
	d.emit(final, &domain.DeliveryEvent{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Status:         domain.NotificationStatusDelivered,
		MessageID:      messageID,
		OccurredAt:     deliveredAt,
	})
	return nil
}

// fail records a FAILED transition and publishes it.
func (d *Dispatcher) fail(ctx context.Context, n *domain.Notification, reason string) error {
	if err := d.repo.MarkFailed(ctx, n.ID, reason); err != nil {
		return err
	}
	metrics.NotificationTransitionsTotal.WithLabelValues(string(domain.NotificationStatusFailed)).Inc()
	d.emit(ctx, &domain.DeliveryEvent{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Status:         domain.NotificationStatusFailed,
		Error:          reason,
		OccurredAt:     d.now(),
	})
	return nil
}

func (d *Dispatcher) emit(ctx context.Context, event *domain.DeliveryEvent) {
	if err := d.emitter.Emit(ctx, event); err != nil {
		d.log.Warn("Failed to emit delivery event", "notification_id", event.NotificationID, "error", err)
	}
}
