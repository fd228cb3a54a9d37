package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/core/notification"
	"github.com/brazyl/brazyl/internal/infra/storage"
)

type MemoryStorage struct {
	notifications map[string]*domain.Notification
	users         map[string]*domain.User
	politicians   map[string]*domain.Politician
	follows       map[string]*domain.Follow
	mu            sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notifications: make(map[string]*domain.Notification),
		users:         make(map[string]*domain.User),
		politicians:   make(map[string]*domain.Politician),
		follows:       make(map[string]*domain.Follow),
	}
}

// -----------------------------------------------------------------------------
// Notification Repository
// -----------------------------------------------------------------------------

type NotificationRepo struct {
	store *MemoryStorage
	now   func() time.Time
}

func NewNotificationRepo(store *MemoryStorage) *NotificationRepo {
	return &NotificationRepo{store: store, now: time.Now}
}

func (r *NotificationRepo) CreatePending(ctx context.Context, n *domain.Notification) (string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c := cloneNotification(n)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, exists := r.store.notifications[c.ID]; exists {
		return "", &storage.DuplicateKeyError{Table: "notifications", Constraint: "notifications_pkey"}
	}
	c.Status = domain.NotificationStatusPending
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now()
	}
	r.store.notifications[c.ID] = c
	return c.ID, nil
}

func (r *NotificationRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return r.transition(id, domain.NotificationStatusSent, func(n *domain.Notification) {
		n.SentAt = &sentAt
	})
}

func (r *NotificationRepo) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	return r.transition(id, domain.NotificationStatusDelivered, func(n *domain.Notification) {
		n.DeliveredAt = &deliveredAt
	})
}

func (r *NotificationRepo) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	return r.transition(id, domain.NotificationStatusFailed, func(n *domain.Notification) {
		n.ErrorMessage = &errorMessage
	})
}

// transition applies the status change and its field writes under one lock.
func (r *NotificationRepo) transition(id string, to domain.NotificationStatus, apply func(*domain.Notification)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	n, ok := r.store.notifications[id]
	if !ok {
		return fmt.Errorf("notification %s: %w", id, storage.ErrNotFound)
	}
	if err := notification.Check(n.Status, to); err != nil {
		return fmt.Errorf("notification %s: %w", id, err)
	}
	n.Status = to
	apply(n)
	return nil
}

func (r *NotificationRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.Notification, error) {
	return r.find(limit, func(n *domain.Notification) (time.Time, bool) {
		if n.Status != domain.NotificationStatusPending || n.ScheduledFor == nil {
			return time.Time{}, false
		}
		return *n.ScheduledFor, !n.ScheduledFor.After(now)
	})
}

func (r *NotificationRepo) FindStaleSent(ctx context.Context, before time.Time, limit int) ([]*domain.Notification, error) {
	return r.find(limit, func(n *domain.Notification) (time.Time, bool) {
		if n.Status != domain.NotificationStatusSent || n.SentAt == nil {
			return time.Time{}, false
		}
		return *n.SentAt, n.SentAt.Before(before)
	})
}

// find returns matches ordered by the returned sort key, capped at limit.
func (r *NotificationRepo) find(limit int, match func(*domain.Notification) (time.Time, bool)) ([]*domain.Notification, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	type hit struct {
		at time.Time
		n  *domain.Notification
	}
	var hits []hit
	for _, n := range r.store.notifications {
		if at, ok := match(n); ok {
			hits = append(hits, hit{at: at, n: n})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].at.Equal(hits[j].at) {
			return hits[i].n.ID < hits[j].n.ID
		}
		return hits[i].at.Before(hits[j].at)
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]*domain.Notification, 0, len(hits))
	for _, h := range hits {
		out = append(out, cloneNotification(h.n))
	}
	return out, nil
}

func (r *NotificationRepo) ResolveRecipientAddress(ctx context.Context, n *domain.Notification) (string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[n.UserID]
	if !ok || u.WhatsAppNumber == "" {
		return "", storage.ErrRecipientNotFound
	}
	return u.WhatsAppNumber, nil
}

func (r *NotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	n, ok := r.store.notifications[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneNotification(n), nil
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Notification, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var all []*domain.Notification
	for _, n := range r.store.notifications {
		if n.UserID == userID {
			all = append(all, n)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []*domain.Notification{}, total, nil
	}
	end := total
	if limit > 0 {
		end = min(offset+limit, total)
	}
	out := make([]*domain.Notification, 0, end-offset)
	for _, n := range all[offset:end] {
		out = append(out, cloneNotification(n))
	}
	return out, total, nil
}

func (r *NotificationRepo) Stats(ctx context.Context, userID string) (*domain.NotificationStats, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stats := &domain.NotificationStats{ByStatus: make(map[domain.NotificationStatus]int)}
	for _, n := range r.store.notifications {
		if n.UserID != userID {
			continue
		}
		stats.Total++
		stats.ByStatus[n.Status]++
		if stats.LastNotificationAt == nil || n.CreatedAt.After(*stats.LastNotificationAt) {
			created := n.CreatedAt
			stats.LastNotificationAt = &created
		}
	}
	return stats, nil
}

func cloneNotification(n *domain.Notification) *domain.Notification {
	c := *n
	c.Metadata = maps.Clone(n.Metadata)
	return &c
}

// -----------------------------------------------------------------------------
// User Repository
// -----------------------------------------------------------------------------

type UserRepo struct {
	store *MemoryStorage
}

func NewUserRepo(store *MemoryStorage) *UserRepo {
	return &UserRepo{store: store}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.users {
		if existing.WhatsAppNumber == u.WhatsAppNumber {
			return &storage.DuplicateKeyError{Table: "users", Constraint: "users_whatsapp_number_key"}
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	if u.MaxPoliticians <= 0 {
		u.MaxPoliticians = domain.DefaultMaxPoliticians
	}
	c := *u
	r.store.users[u.ID] = &c
	return nil
}

func (r *UserRepo) Get(ctx context.Context, id string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *u
	return &c, nil
}

// -----------------------------------------------------------------------------
// Politician Repository
// -----------------------------------------------------------------------------

type PoliticianRepo struct {
	store *MemoryStorage
}

func NewPoliticianRepo(store *MemoryStorage) *PoliticianRepo {
	return &PoliticianRepo{store: store}
}

func politicianKey(source domain.Source, externalID string) string {
	return string(source) + ":" + externalID
}

func (r *PoliticianRepo) Upsert(ctx context.Context, p *domain.Politician) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := politicianKey(p.Source, p.ExternalID)
	c := *p
	c.SocialLinks = maps.Clone(p.SocialLinks)
	c.UpdatedAt = time.Now()

	existing, ok := r.store.politicians[key]
	if ok {
		c.ID = existing.ID
	} else if c.ID == "" {
		c.ID = uuid.NewString()
	}
	r.store.politicians[key] = &c
	p.ID = c.ID
	return !ok, nil
}

func (r *PoliticianRepo) Get(ctx context.Context, id string) (*domain.Politician, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p := r.store.politicianByID(id)
	if p == nil {
		return nil, storage.ErrNotFound
	}
	return clonePolitician(p), nil
}

func (r *PoliticianRepo) GetByExternalID(ctx context.Context, source domain.Source, externalID string) (*domain.Politician, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.politicians[politicianKey(source, externalID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clonePolitician(p), nil
}

// Count returns the number of stored politicians.
func (r *PoliticianRepo) Count() int {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.politicians)
}

// politicianByID must be called with the lock held.
func (s *MemoryStorage) politicianByID(id string) *domain.Politician {
	for _, p := range s.politicians {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func clonePolitician(p *domain.Politician) *domain.Politician {
	c := *p
	c.SocialLinks = maps.Clone(p.SocialLinks)
	return &c
}

// -----------------------------------------------------------------------------
// Follow Repository
// -----------------------------------------------------------------------------

type FollowRepo struct {
	store *MemoryStorage
	now   func() time.Time
}

func NewFollowRepo(store *MemoryStorage) *FollowRepo {
	return &FollowRepo{store: store, now: time.Now}
}

func (r *FollowRepo) Create(ctx context.Context, f *domain.Follow) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.follows {
		if existing.UserID == f.UserID && existing.PoliticianID == f.PoliticianID {
			return &storage.DuplicateKeyError{Table: "follows", Constraint: "follows_user_id_politician_id_key"}
		}
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = r.now()
	}
	c := *f
	c.Politician = nil
	r.store.follows[f.ID] = &c
	return nil
}

func (r *FollowRepo) Get(ctx context.Context, id string) (*domain.Follow, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	f, ok := r.store.follows[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *f
	return &c, nil
}

func (r *FollowRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.follows[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.store.follows, id)
	return nil
}

func (r *FollowRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Follow, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var all []*domain.Follow
	for _, f := range r.store.follows {
		if f.UserID != userID {
			continue
		}
		c := *f
		if p := r.store.politicianByID(f.PoliticianID); p != nil {
			c.Politician = clonePolitician(p)
		}
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	if offset >= total {
		return []*domain.Follow{}, total, nil
	}
	end := total
	if limit > 0 {
		end = min(offset+limit, total)
	}
	return all[offset:end], total, nil
}
