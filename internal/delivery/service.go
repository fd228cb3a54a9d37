package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/infra/storage"
)

// CreateRequest describes a notification to create.
type CreateRequest struct {
	UserID       string
	PoliticianID *string
	EventID      *string
	Title        string
	Message      string
	Delivery     domain.Delivery
	ScheduledFor time.Time // required for DeliverScheduled
	Metadata     map[string]any
}

// Service is the entry point for creating and querying notifications.
type Service struct {
	repo       storage.NotificationRepository
	users      storage.UserRepository
	dispatcher *Dispatcher
	now        func() time.Time
	log        *slog.Logger
}

// NewService creates a notification service.
func NewService(
	repo storage.NotificationRepository,
	users storage.UserRepository,
	dispatcher *Dispatcher,
) *Service {
	return &Service{
		repo:       repo,
		users:      users,
		dispatcher: dispatcher,
		now:        time.Now,
		log:        slog.Default().With("component", "notification-service"),
	}
}

// Create stores a PENDING notification. DeliverNow dispatches it before
// returning; the stored row carries scheduled_for = now so a crash between
// the insert and the dispatch leaves it to the next sweep. A dispatch failure
// is returned alongside the created notification's id.
func (s *Service) Create(ctx context.Context, req CreateRequest) (string, error) {
	if _, err := s.users.Get(ctx, req.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrUserNotFound, req.UserID)
		}
		return "", err
	}

	n := &domain.Notification{
		UserID:       req.UserID,
		PoliticianID: req.PoliticianID,
		EventID:      req.EventID,
		Title:        req.Title,
		Message:      req.Message,
		Status:       domain.NotificationStatusPending,
		Metadata:     req.Metadata,
	}

	switch req.Delivery {
	case domain.DeliverNow:
		now := s.now()
		n.ScheduledFor = &now
	case domain.DeliverScheduled:
		if req.ScheduledFor.IsZero() {
			return "", errors.New("scheduled delivery requires a time")
		}
		at := req.ScheduledFor
		n.ScheduledFor = &at
	default:
		return "", fmt.Errorf("unknown delivery mode %d", req.Delivery)
	}

	id, err := s.repo.CreatePending(ctx, n)
	if err != nil {
		return "", err
	}
	n.ID = id
	s.log.Info("Notification created", "notification_id", id, "user_id", req.UserID, "delivery", req.Delivery)

	if req.Delivery == domain.DeliverNow {
		if err := s.dispatcher.Dispatch(ctx, n); err != nil {
			return id, err
		}
	}
	return id, nil
}

// Get returns a single notification.
func (s *Service) Get(ctx context.Context, id string) (*domain.Notification, error) {
	return s.repo.GetByID(ctx, id)
}

// ListForUser returns a page of the user's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Notification, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// Stats aggregates the user's notifications by status.
func (s *Service) Stats(ctx context.Context, userID string) (*domain.NotificationStats, error) {
	return s.repo.Stats(ctx, userID)
}
