package cache

import (
	"context"
	"time"

	"github.com/brazyl/brazyl/internal/infra/upstream"
)

// CachingClient puts a Cache in front of one host's RetryingClient.
type CachingClient struct {
	cache  *Cache
	client *upstream.RetryingClient
}

// NewCachingClient wraps client with cache.
func NewCachingClient(cache *Cache, client *upstream.RetryingClient) *CachingClient {
	return &CachingClient{cache: cache, client: client}
}

// Host returns the wrapped host identity.
func (c *CachingClient) Host() string {
	return c.client.Host()
}

// Get returns the cached body for endpoint+params or calls the host and caches for ttl.
// Upstream errors propagate unchanged.
func (c *CachingClient) Get(
	ctx context.Context,
	endpoint string,
	params upstream.Params,
	ttl time.Duration,
) ([]byte, error) {
	sig := CallSignature{Host: c.client.Host(), Endpoint: endpoint, Params: params}
	return c.cache.GetOrCompute(ctx, sig, ttl, func(ctx context.Context) ([]byte, error) {
		return c.client.Call(ctx, endpoint, params)
	})
}

// Fetch bypasses the cache.
func (c *CachingClient) Fetch(ctx context.Context, endpoint string, params upstream.Params) ([]byte, error) {
	return c.client.Call(ctx, endpoint, params)
}
