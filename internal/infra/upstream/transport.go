package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Params is the query parameter set of an upstream call. Order is irrelevant.
type Params map[string]string

// Encode renders params as a sorted query string.
func (p Params) Encode() string {
	values := make(url.Values, len(p))
	for k, v := range p {
		values.Set(k, v)
	}
	return values.Encode()
}

// Transport performs a single GET round trip against one host.
type Transport interface {
	Get(ctx context.Context, endpoint string, params Params) ([]byte, error)
}

// HTTPTransport implements Transport for JSON-over-HTTP APIs.
type HTTPTransport struct {
	name       string
	baseURL    string
	httpClient *http.Client
	headers    map[string]string
}

// NewHTTPTransport creates a transport whose per-attempt timeout is timeout.
func NewHTTPTransport(name, baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		headers: map[string]string{"Accept": "application/json"},
	}
}

// SetHeader adds a header sent on every request.
func (t *HTTPTransport) SetHeader(key, value string) {
	t.headers[key] = value
}

// Name returns the host identity.
func (t *HTTPTransport) Name() string {
	return t.name
}

// Get performs GET <base><endpoint>?<params>.
// Non-2xx statuses come back as *StatusError; anything else is a connection error.
func (t *HTTPTransport) Get(ctx context.Context, endpoint string, params Params) ([]byte, error) {
	target := t.baseURL + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
