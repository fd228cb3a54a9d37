// Package upstream provides the rate-limited retrying client shared by every
// external API integration.
//
// One RetryingClient exists per host. It owns the host's PermitPool, so all
// callers of that host share the same concurrency cap:
//
//	client := upstream.NewClient(upstream.Config{
//	    Name:        "camara",
//	    BaseURL:     "https://dadosabertos.camara.leg.br/api/v2",
//	    Concurrency: 10,
//	    BackoffBase: upstream.LegislativeBackoffBase,
//	})
//	body, err := client.Call(ctx, "/deputados", upstream.Params{"siglaUf": "SP"})
//
// A 404 fails with *NotFoundError after one attempt. Any other failure is a
// *TransientError that is retried; when attempts run out the call fails with
// *ExhaustedRetriesError.
package upstream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/brazyl/brazyl/internal/core/metrics"
)

// DefaultMaxAttempts is used when a host does not configure its own.
const DefaultMaxAttempts = 3

// Config holds settings for one upstream host.
type Config struct {
	Name              string            `yaml:"-"`
	BaseURL           string            `yaml:"base_url"            validate:"required,url"`
	Concurrency       int               `yaml:"concurrency"         validate:"gte=0"`
	MaxAttempts       int               `yaml:"max_attempts"        validate:"gte=0"`
	BackoffBase       float64           `yaml:"backoff_base"        validate:"gte=0"`
	Timeout           time.Duration     `yaml:"timeout"`
	RequestsPerSecond float64           `yaml:"requests_per_second" validate:"gte=0"`
	Headers           map[string]string `yaml:"headers"`
}

// WithDefaults fills zero values.
func (c Config) WithDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 10
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = LegislativeBackoffBase
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// RetryingClient performs logical calls against one host under its permit pool.
type RetryingClient struct {
	cfg       Config
	transport Transport
	permits   *PermitPool
	backoff   Backoff
	pacer     *rate.Limiter
	sleep     func(ctx context.Context, d time.Duration) error
	log       *slog.Logger
}

// NewClient creates a RetryingClient over an HTTPTransport built from cfg.
func NewClient(cfg Config) *RetryingClient {
	cfg = cfg.WithDefaults()
	transport := NewHTTPTransport(cfg.Name, cfg.BaseURL, cfg.Timeout)
	for k, v := range cfg.Headers {
		transport.SetHeader(k, v)
	}
	return NewRetryingClient(cfg, transport)
}

// NewRetryingClient wraps an arbitrary transport.
func NewRetryingClient(cfg Config, transport Transport) *RetryingClient {
	cfg = cfg.WithDefaults()
	c := &RetryingClient{
		cfg:       cfg,
		transport: transport,
		permits:   NewPermitPool(cfg.Name, cfg.Concurrency),
		backoff:   Backoff{Base: cfg.BackoffBase},
		sleep:     sleepContext,
		log:       slog.Default().With("component", "upstream", "host", cfg.Name),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := max(1, int(cfg.RequestsPerSecond))
		c.pacer = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// Host returns the host identity used in cache keys and metrics.
func (c *RetryingClient) Host() string {
	return c.cfg.Name
}

// Permits exposes the host's permit pool.
func (c *RetryingClient) Permits() *PermitPool {
	return c.permits
}

// Call performs a logical call with the host's configured attempt budget.
func (c *RetryingClient) Call(ctx context.Context, endpoint string, params Params) ([]byte, error) {
	return c.CallWithAttempts(ctx, endpoint, params, c.cfg.MaxAttempts)
}

// CallWithAttempts performs a logical call with at most maxAttempts sequential attempts.
// A single permit is held for the whole call, waits included.
func (c *RetryingClient) CallWithAttempts(
	ctx context.Context,
	endpoint string,
	params Params,
	maxAttempts int,
) ([]byte, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	release, err := c.permits.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var lastErr *TransientError
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if c.pacer != nil {
			if err := c.pacer.Wait(ctx); err != nil {
				return nil, err
			}
		}

		body, err := c.attempt(ctx, endpoint, params)
		if err == nil {
			metrics.UpstreamCallsTotal.WithLabelValues(c.cfg.Name, "success").Inc()
			return body, nil
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			metrics.UpstreamCallsTotal.WithLabelValues(c.cfg.Name, "not_found").Inc()
			return nil, &NotFoundError{Host: c.cfg.Name, Endpoint: endpoint}
		}

		lastErr = &TransientError{Host: c.cfg.Name, Endpoint: endpoint, Err: err}
		if statusErr != nil {
			lastErr.StatusCode = statusErr.Code
		}

		c.log.Warn("Upstream attempt failed",
			"endpoint", endpoint,
			"attempt", attempt+1,
			"max_attempts", maxAttempts,
			"error", err,
		)

		if attempt == maxAttempts-1 {
			break
		}

		if err := c.sleep(ctx, c.backoff.Delay(attempt)); err != nil {
			metrics.UpstreamCallsTotal.WithLabelValues(c.cfg.Name, "canceled").Inc()
			return nil, err
		}
	}

	metrics.UpstreamCallsTotal.WithLabelValues(c.cfg.Name, "exhausted").Inc()
	return nil, &ExhaustedRetriesError{
		Host:     c.cfg.Name,
		Endpoint: endpoint,
		Attempts: maxAttempts,
		Last:     lastErr,
	}
}

func (c *RetryingClient) attempt(ctx context.Context, endpoint string, params Params) ([]byte, error) {
	start := time.Now()
	body, err := c.transport.Get(ctx, endpoint, params)
	metrics.UpstreamLatency.WithLabelValues(c.cfg.Name).Observe(time.Since(start).Seconds())

	status := "ok"
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		status = strconv.Itoa(statusErr.Code)
	case err != nil:
		status = "error"
	}
	metrics.UpstreamAttemptsTotal.WithLabelValues(c.cfg.Name, status).Inc()

	return body, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
