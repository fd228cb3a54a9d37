package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/core/metrics"
	"github.com/brazyl/brazyl/internal/infra/storage"
)

const (
	// MaxBatchSize caps how many due notifications one sweep handles.
	MaxBatchSize = 100

	sweepLockName = "delivery-sweep"
)

// OutcomeUnknown is recorded on SENT notifications that never got a gateway answer.
const OutcomeUnknown = "delivery outcome unknown"

// SweepConfig controls the scheduled sweep.
type SweepConfig struct {
	BatchSize   int           `yaml:"batch_size"   validate:"gte=0,lte=100"`
	Interval    time.Duration `yaml:"interval"`
	SentTimeout time.Duration `yaml:"sent_timeout"`
}

// WithDefaults fills zero values.
func (c SweepConfig) WithDefaults() SweepConfig {
	if c.BatchSize <= 0 || c.BatchSize > MaxBatchSize {
		c.BatchSize = MaxBatchSize
	}
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	return c
}

// Locker serializes sweeps across replicas. Only the holder of the token
// returned by AcquireLock can release the lock.
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, name, token string) error
}

// Sweeper periodically dispatches notifications whose scheduled time has come.
type Sweeper struct {
	cfg        SweepConfig
	repo       storage.NotificationRepository
	dispatcher *Dispatcher
	locker     Locker
	now        func() time.Time
	log        *slog.Logger
}

// NewSweeper creates a Sweeper. locker may be nil for single-instance deployments.
func NewSweeper(
	cfg SweepConfig,
	repo storage.NotificationRepository,
	dispatcher *Dispatcher,
	locker Locker,
) *Sweeper {
	return &Sweeper{
		cfg:        cfg.WithDefaults(),
		repo:       repo,
		dispatcher: dispatcher,
		locker:     locker,
		now:        time.Now,
		log:        slog.Default().With("component", "sweeper"),
	}
}

// Start runs a sweep immediately and then on every interval until ctx ends.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *Sweeper) run(ctx context.Context) {
	if s.locker != nil {
		token, ok, err := s.locker.AcquireLock(ctx, sweepLockName, s.cfg.Interval)
		if err != nil {
			s.log.Warn("Sweep lock unavailable, running unlocked", "error", err)
		} else if !ok {
			s.log.Debug("Sweep already running elsewhere")
			return
		} else {
			defer func() {
				if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), sweepLockName, token); err != nil {
					s.log.Warn("Failed to release sweep lock", "error", err)
				}
			}()
		}
	}

	if _, err := s.Sweep(ctx); err != nil {
		s.log.Error("Sweep failed", "error", err)
	}
}

// Sweep dispatches every due notification in one batch, one at a time, and
// returns how many dispatches succeeded. Per-notification failures are logged
// and do not stop the batch. A failed store query returns 0 and the error.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.SweepRunsTotal.Inc()
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	now := s.now()

	if s.cfg.SentTimeout > 0 {
		s.recoverStale(ctx, now)
	}

	due, err := s.repo.FindDue(ctx, now, s.cfg.BatchSize)
	if err != nil {
		metrics.SweepProcessed.Set(0)
		return 0, err
	}

	processed := 0
	for _, n := range due {
		if ctx.Err() != nil {
			break
		}
		if err := s.dispatcher.Dispatch(ctx, n); err != nil {
			s.log.Error("Failed to dispatch notification", "notification_id", n.ID, "error", err)
			continue
		}
		processed++
	}

	metrics.SweepProcessed.Set(float64(processed))
	s.log.Info("Sweep complete", "due", len(due), "processed", processed)
	return processed, nil
}

// recoverStale fails notifications stuck in SENT for longer than the timeout.
// They are never re-sent since the gateway may already have delivered them.
func (s *Sweeper) recoverStale(ctx context.Context, now time.Time) {
	stale, err := s.repo.FindStaleSent(ctx, now.Add(-s.cfg.SentTimeout), s.cfg.BatchSize)
	if err != nil {
		s.log.Warn("Failed to find stale notifications", "error", err)
		return
	}
	for _, n := range stale {
		if err := s.repo.MarkFailed(ctx, n.ID, OutcomeUnknown); err != nil {
			s.log.Warn("Failed to expire stale notification", "notification_id", n.ID, "error", err)
			continue
		}
		metrics.NotificationTransitionsTotal.WithLabelValues(string(domain.NotificationStatusFailed)).Inc()
		s.dispatcher.emit(ctx, &domain.DeliveryEvent{
			NotificationID: n.ID,
			UserID:         n.UserID,
			Status:         domain.NotificationStatusFailed,
			Error:          OutcomeUnknown,
			OccurredAt:     now,
		})
		s.log.Warn("Expired stale notification", "notification_id", n.ID, "sent_at", n.SentAt)
	}
}
