package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brazyl/brazyl/internal/core/domain"
)

var (
	// ErrNotFound is returned when a record doesn't exist
	ErrNotFound = errors.New("record not found")

	// ErrRecipientNotFound is returned when a notification has no deliverable address
	ErrRecipientNotFound = errors.New("recipient address not found")
)

// DuplicateKeyError is returned when an insert violates a unique constraint.
type DuplicateKeyError struct {
	Table      string
	Constraint string
	Err        error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key on %s (%s)", e.Table, e.Constraint)
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Err
}

// NotificationRepository is the persistence contract of the delivery pipeline.
// Every Mark* call is a single atomic row update that only applies when the
// current status allows the transition.
type NotificationRepository interface {
	// CreatePending stores n with status PENDING and returns its id
	CreatePending(ctx context.Context, n *domain.Notification) (string, error)

	// MarkSent moves PENDING -> SENT and records sentAt
	MarkSent(ctx context.Context, id string, sentAt time.Time) error

	// MarkDelivered moves SENT -> DELIVERED and records deliveredAt
	MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error

	// MarkFailed moves PENDING or SENT -> FAILED and records the error
	MarkFailed(ctx context.Context, id string, errorMessage string) error

	// FindDue returns PENDING notifications scheduled at or before now, oldest first
	FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.Notification, error)

	// FindStaleSent returns SENT notifications whose sent_at is before the cutoff
	FindStaleSent(ctx context.Context, before time.Time, limit int) ([]*domain.Notification, error)

	// ResolveRecipientAddress returns the user's WhatsApp number or ErrRecipientNotFound
	ResolveRecipientAddress(ctx context.Context, n *domain.Notification) (string, error)

	// GetByID retrieves a notification
	GetByID(ctx context.Context, id string) (*domain.Notification, error)

	// ListByUser returns a page of a user's notifications, newest first, and the total
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Notification, int, error)

	// Stats counts a user's notifications per status
	Stats(ctx context.Context, userID string) (*domain.NotificationStats, error)
}

// UserRepository handles subscriber storage
type UserRepository interface {
	// Create stores a user; a taken WhatsApp number yields *DuplicateKeyError
	Create(ctx context.Context, u *domain.User) error

	// Get retrieves a user or ErrNotFound
	Get(ctx context.Context, id string) (*domain.User, error)
}

// PoliticianRepository handles canonical political-actor storage
type PoliticianRepository interface {
	// Upsert inserts or updates by (source, external id) and reports whether it inserted
	Upsert(ctx context.Context, p *domain.Politician) (created bool, err error)

	// Get retrieves a politician by internal id or ErrNotFound
	Get(ctx context.Context, id string) (*domain.Politician, error)

	// GetByExternalID retrieves a politician or ErrNotFound
	GetByExternalID(ctx context.Context, source domain.Source, externalID string) (*domain.Politician, error)
}

// FollowRepository handles user -> politician subscriptions
type FollowRepository interface {
	// Create stores f; following the same politician twice yields *DuplicateKeyError
	Create(ctx context.Context, f *domain.Follow) error

	// Get retrieves a follow or ErrNotFound
	Get(ctx context.Context, id string) (*domain.Follow, error)

	// Delete removes a follow or returns ErrNotFound
	Delete(ctx context.Context, id string) error

	// ListByUser returns a page of a user's follows with their politicians, newest first, and the total
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Follow, int, error)
}
