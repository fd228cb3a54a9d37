package upstream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/brazyl/brazyl/internal/core/metrics"
)

// PermitPool is a fixed-capacity counting semaphore shared by all callers of one host.
// Waiters are served in FIFO order.
type PermitPool struct {
	host     string
	capacity int64
	sem      *semaphore.Weighted
	inUse    atomic.Int64
}

// NewPermitPool creates a pool with the given capacity (minimum 1).
func NewPermitPool(host string, capacity int) *PermitPool {
	if capacity < 1 {
		capacity = 1
	}
	return &PermitPool{
		host:     host,
		capacity: int64(capacity),
		sem:      semaphore.NewWeighted(int64(capacity)),
	}
}

// Acquire blocks until a permit is free or ctx is done.
// The returned release func is idempotent.
func (p *PermitPool) Acquire(ctx context.Context) (func(), error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire permit for %s: %w", p.host, err)
	}
	metrics.UpstreamPermitsInUse.WithLabelValues(p.host).Set(float64(p.inUse.Add(1)))

	var once sync.Once
	return func() {
		once.Do(func() {
			metrics.UpstreamPermitsInUse.WithLabelValues(p.host).Set(float64(p.inUse.Add(-1)))
			p.sem.Release(1)
		})
	}, nil
}

// InUse returns the number of permits currently held.
func (p *PermitPool) InUse() int {
	return int(p.inUse.Load())
}

// Capacity returns the pool size.
func (p *PermitPool) Capacity() int {
	return int(p.capacity)
}
