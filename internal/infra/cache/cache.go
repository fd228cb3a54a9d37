// Package cache implements the cache-aside layer in front of upstream reads.
package cache

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/brazyl/brazyl/internal/core/metrics"
)

// ComputeFunc produces a fresh value on a cache miss.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// DefaultComputeTimeout bounds a shared compute once it no longer follows
// the context of the caller that started it. It covers a full upstream retry cycle.
const DefaultComputeTimeout = 2 * time.Minute

// Cache is a best-effort cache-aside wrapper. A failing backend turns it into a pass-through.
type Cache struct {
	backend        Backend
	group          singleflight.Group
	computeTimeout time.Duration
	now            func() time.Time
	log            *slog.Logger
}

// New creates a Cache over backend. A nil backend disables caching.
func New(backend Backend) *Cache {
	if backend == nil {
		backend = NoopBackend{}
	}
	return &Cache{
		backend:        backend,
		computeTimeout: DefaultComputeTimeout,
		now:            time.Now,
		log:            slog.Default().With("component", "response-cache"),
	}
}

// GetOrCompute returns the unexpired cached value for sig, or runs compute and stores
// its result for ttl. Failed computes are never stored. Concurrent misses on the same
// key share one compute, which is not canceled when the caller that started it goes
// away; each caller stops waiting when its own ctx is done.
func (c *Cache) GetOrCompute(
	ctx context.Context,
	sig CallSignature,
	ttl time.Duration,
	compute ComputeFunc,
) ([]byte, error) {
	key := sig.Key()

	value, ok, healthy := c.lookup(ctx, sig.Host, key)
	if ok {
		return value, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout)
		defer cancel()

		if healthy {
			// a concurrent caller may have populated the key since the first lookup
			if value, result, _ := c.fetch(cctx, key); result == "hit" {
				return value, nil
			}
		}
		value, err := compute(cctx)
		if err != nil {
			return nil, err
		}
		if healthy {
			c.store(cctx, sig.Host, key, value, ttl)
		}
		return value, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return bytes.Clone(res.Val.([]byte)), nil
	}
}

// lookup reports a hit, or a miss with healthy=false when the backend failed.
func (c *Cache) lookup(ctx context.Context, host, key string) (value []byte, hit, healthy bool) {
	value, result, berr := c.fetch(ctx, key)
	if berr != nil {
		c.backendFailed(host, berr)
		return nil, false, false
	}
	metrics.CacheRequestsTotal.WithLabelValues(host, result).Inc()
	if result != "hit" {
		return nil, false, true
	}
	c.log.Debug("Cache hit", "key", key)
	return value, true, true
}

func (c *Cache) fetch(ctx context.Context, key string) ([]byte, string, *BackendError) {
	raw, found, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, "", &BackendError{Op: "get", Key: key, Err: err}
	}
	if !found {
		return nil, "miss", nil
	}

	entry, err := decodeEntry(raw)
	if err != nil {
		return nil, "", &BackendError{Op: "decode", Key: key, Err: err}
	}
	if entry.Expired(c.now()) {
		return nil, "miss", nil
	}
	return entry.Value, "hit", nil
}

func (c *Cache) store(ctx context.Context, host, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	blob := encodeEntry(Entry{Value: value, ExpiresAt: c.now().Add(ttl)})
	if err := c.backend.SetWithTTL(ctx, key, blob, ttl); err != nil {
		c.backendFailed(host, &BackendError{Op: "set", Key: key, Err: err})
	}
}

func (c *Cache) backendFailed(host string, err *BackendError) {
	metrics.CacheRequestsTotal.WithLabelValues(host, "error").Inc()
	c.log.Warn("Cache backend unavailable, bypassing", "op", err.Op, "key", err.Key, "error", err.Err)
}
