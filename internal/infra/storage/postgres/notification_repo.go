package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/core/notification"
	"github.com/brazyl/brazyl/internal/infra/storage"
)

const notificationColumns = `id, user_id, politician_id, event_id, title, message, status,
	scheduled_for, sent_at, delivered_at, error_message, metadata, created_at`

type notificationRow struct {
	ID           string     `db:"id"`
	UserID       string     `db:"user_id"`
	PoliticianID *string    `db:"politician_id"`
	EventID      *string    `db:"event_id"`
	Title        string     `db:"title"`
	Message      string     `db:"message"`
	Status       string     `db:"status"`
	ScheduledFor *time.Time `db:"scheduled_for"`
	SentAt       *time.Time `db:"sent_at"`
	DeliveredAt  *time.Time `db:"delivered_at"`
	ErrorMessage *string    `db:"error_message"`
	Metadata     []byte     `db:"metadata"`
	CreatedAt    time.Time  `db:"created_at"`
}

func (row notificationRow) toDomain() (*domain.Notification, error) {
	n := &domain.Notification{
		ID:           row.ID,
		UserID:       row.UserID,
		PoliticianID: row.PoliticianID,
		EventID:      row.EventID,
		Title:        row.Title,
		Message:      row.Message,
		Status:       domain.NotificationStatus(row.Status),
		ScheduledFor: row.ScheduledFor,
		SentAt:       row.SentAt,
		DeliveredAt:  row.DeliveredAt,
		ErrorMessage: row.ErrorMessage,
		CreatedAt:    row.CreatedAt,
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &n.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", row.ID, err)
		}
	}
	return n, nil
}

func toDomainList(rows []notificationRow) ([]*domain.Notification, error) {
	out := make([]*domain.Notification, 0, len(rows))
	for _, row := range rows {
		n, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// NotificationRepo implements storage.NotificationRepository using PostgreSQL.
type NotificationRepo struct {
	db *DB
}

// NewNotificationRepo creates a new PostgreSQL notification repository.
func NewNotificationRepo(db *DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// CreatePending inserts n as PENDING regardless of its Status field.
func (r *NotificationRepo) CreatePending(ctx context.Context, n *domain.Notification) (string, error) {
	id := n.ID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := n.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}

	query := `
		INSERT INTO notifications (id, user_id, politician_id, event_id, title, message, status, scheduled_for, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`
	_, err = r.db.ExecContext(ctx, query,
		id,
		n.UserID,
		n.PoliticianID,
		n.EventID,
		n.Title,
		n.Message,
		string(domain.NotificationStatusPending),
		n.ScheduledFor,
		string(meta),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create notification: %w", mapError("notifications", err))
	}
	return id, nil
}

// MarkSent moves PENDING -> SENT.
func (r *NotificationRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return r.transition(ctx, id, domain.NotificationStatusSent, "sent_at", sentAt)
}

// MarkDelivered moves SENT -> DELIVERED.
func (r *NotificationRepo) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	return r.transition(ctx, id, domain.NotificationStatusDelivered, "delivered_at", deliveredAt)
}

// MarkFailed moves PENDING or SENT -> FAILED.
func (r *NotificationRepo) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	return r.transition(ctx, id, domain.NotificationStatusFailed, "error_message", errorMessage)
}

// transition guards the status change inside the UPDATE itself so that two
// workers racing on the same row cannot both apply it.
func (r *NotificationRepo) transition(
	ctx context.Context,
	id string,
	to domain.NotificationStatus,
	column string,
	value any,
) error {
	if !isUUID(id) {
		return fmt.Errorf("notification %s: %w", id, storage.ErrNotFound)
	}

	sources := notification.SourcesFor(to)
	from := make([]string, len(sources))
	for i, s := range sources {
		from[i] = string(s)
	}

	query := fmt.Sprintf(`
		UPDATE notifications
		SET status = $3, %s = $4
		WHERE id = $1 AND status = ANY($2::text[])
	`, column)

	res, err := r.db.ExecContext(ctx, query, id, pq.Array(from), string(to), value)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s %s: %w", id, to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	var current string
	err = r.db.GetContext(ctx, &current, `SELECT status FROM notifications WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("notification %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read notification %s: %w", id, err)
	}
	if err := notification.Check(domain.NotificationStatus(current), to); err != nil {
		return fmt.Errorf("notification %s: %w", id, err)
	}
	// The row moved between the UPDATE and the SELECT; whoever moved it won.
	return fmt.Errorf("notification %s: %w: lost race to %s", id, notification.ErrInvalidTransition, to)
}

// FindDue returns PENDING notifications scheduled at or before now, oldest first.
func (r *NotificationRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE status = 'PENDING' AND scheduled_for IS NOT NULL AND scheduled_for <= $1
		ORDER BY scheduled_for ASC
		LIMIT $2
	`
	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to find due notifications: %w", err)
	}
	return toDomainList(rows)
}

// FindStaleSent returns SENT notifications with sent_at before the cutoff.
func (r *NotificationRepo) FindStaleSent(ctx context.Context, before time.Time, limit int) ([]*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE status = 'SENT' AND sent_at < $1
		ORDER BY sent_at ASC
		LIMIT $2
	`
	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, query, before, limit); err != nil {
		return nil, fmt.Errorf("failed to find stale notifications: %w", err)
	}
	return toDomainList(rows)
}

// ResolveRecipientAddress returns the WhatsApp number of the notification's user.
func (r *NotificationRepo) ResolveRecipientAddress(ctx context.Context, n *domain.Notification) (string, error) {
	if !isUUID(n.UserID) {
		return "", storage.ErrRecipientNotFound
	}

	var number string
	err := r.db.GetContext(ctx, &number, `SELECT whatsapp_number FROM users WHERE id = $1`, n.UserID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && number == "") {
		return "", storage.ErrRecipientNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve recipient of %s: %w", n.ID, err)
	}
	return number, nil
}

// GetByID retrieves a notification.
func (r *NotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	if !isUUID(id) {
		return nil, storage.ErrNotFound
	}
	var row notificationRow
	err := r.db.GetContext(ctx, &row, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return row.toDomain()
}

// ListByUser returns a page of the user's notifications, newest first.
func (r *NotificationRepo) ListByUser(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]*domain.Notification, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	list, err := toDomainList(rows)
	return list, total, err
}

// Stats counts the user's notifications per status.
func (r *NotificationRepo) Stats(ctx context.Context, userID string) (*domain.NotificationStats, error) {
	query := `
		SELECT status, COUNT(*) AS count, MAX(created_at) AS last_at
		FROM notifications
		WHERE user_id = $1
		GROUP BY status
	`
	var rows []struct {
		Status string    `db:"status"`
		Count  int       `db:"count"`
		LastAt time.Time `db:"last_at"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to compute notification stats: %w", err)
	}

	stats := &domain.NotificationStats{ByStatus: make(map[domain.NotificationStatus]int)}
	for _, row := range rows {
		stats.Total += row.Count
		stats.ByStatus[domain.NotificationStatus(row.Status)] = row.Count
		if stats.LastNotificationAt == nil || row.LastAt.After(*stats.LastNotificationAt) {
			last := row.LastAt
			stats.LastNotificationAt = &last
		}
	}
	return stats, nil
}

// isUUID reports whether id can be compared against a UUID column without
// Postgres rejecting the cast.
func isUUID(id string) bool {
	return uuid.Validate(id) == nil
}
