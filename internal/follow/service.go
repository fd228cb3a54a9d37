// Package follow manages which politicians each user subscribes to.
package follow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/infra/storage"
)

// DefaultPageSize is used when a listing asks for no limit.
const DefaultPageSize = 20

// Service creates, removes and summarizes follows.
type Service struct {
	follows     storage.FollowRepository
	users       storage.UserRepository
	politicians storage.PoliticianRepository
	log         *slog.Logger
}

// NewService creates a follow service.
func NewService(
	follows storage.FollowRepository,
	users storage.UserRepository,
	politicians storage.PoliticianRepository,
) *Service {
	return &Service{
		follows:     follows,
		users:       users,
		politicians: politicians,
		log:         slog.Default().With("component", "follow-service"),
	}
}

// Follow subscribes userID to politicianID within the user's plan limit.
func (s *Service) Follow(ctx context.Context, userID, politicianID string) (*domain.Follow, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.politicians.Get(ctx, politicianID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPoliticianNotFound, politicianID)
		}
		return nil, err
	}

	_, total, err := s.follows.ListByUser(ctx, userID, 1, 0)
	if err != nil {
		return nil, err
	}
	if limit := user.FollowLimit(); total >= limit {
		return nil, &LimitReachedError{UserID: userID, Limit: limit}
	}

	f := &domain.Follow{UserID: userID, PoliticianID: politicianID}
	err = s.follows.Create(ctx, f)
	var dup *storage.DuplicateKeyError
	if errors.As(err, &dup) {
		return nil, &AlreadyFollowingError{UserID: userID, PoliticianID: politicianID, Err: dup}
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("Follow created", "follow_id", f.ID, "user_id", userID, "politician_id", politicianID)
	return f, nil
}

// Unfollow removes a follow by id.
func (s *Service) Unfollow(ctx context.Context, followID string) error {
	err := s.follows.Delete(ctx, followID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrFollowNotFound, followID)
	}
	if err != nil {
		return err
	}
	s.log.Info("Follow removed", "follow_id", followID)
	return nil
}

// List returns a page of the user's follows, newest first, and the total.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]*domain.Follow, int, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return s.follows.ListByUser(ctx, userID, limit, offset)
}

// Stats counts the user's follows by position and state against their plan limit.
func (s *Service) Stats(ctx context.Context, userID string) (*domain.FollowStats, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	follows, total, err := s.follows.ListByUser(ctx, userID, 0, 0)
	if err != nil {
		return nil, err
	}

	stats := &domain.FollowStats{
		Total:      total,
		MaxAllowed: user.FollowLimit(),
		ByPosition: make(map[domain.Position]int),
		ByState:    make(map[string]int),
	}
	stats.Remaining = max(0, stats.MaxAllowed-total)
	for _, f := range follows {
		if f.Politician == nil {
			continue
		}
		stats.ByPosition[f.Politician.Position]++
		stats.ByState[f.Politician.State]++
	}
	return stats, nil
}

func (s *Service) user(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return user, err
}
