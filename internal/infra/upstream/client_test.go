package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Helpers
// =============================================================================

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

func newTestClient(t *testing.T, url string, base float64) (*RetryingClient, *sleepRecorder) {
	t.Helper()
	c := NewClient(Config{
		Name:        "camara",
		BaseURL:     url,
		Concurrency: 10,
		MaxAttempts: 3,
		BackoffBase: base,
		Timeout:     5 * time.Second,
	})
	rec := &sleepRecorder{}
	c.sleep = rec.sleep
	return c, rec
}

type stubTransport struct {
	calls atomic.Int32
	fn    func(call int) ([]byte, error)
}

func (s *stubTransport) Get(ctx context.Context, endpoint string, params Params) ([]byte, error) {
	n := int(s.calls.Add(1))
	return s.fn(n)
}

// =============================================================================
// Retry Tests
// =============================================================================

func TestCall_RetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/deputados", r.URL.Path)
		assert.Equal(t, "SP", r.URL.Query().Get("siglaUf"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"dados":[{"id":1}]}`))
	}))
	defer server.Close()

	c, rec := newTestClient(t, server.URL, LegislativeBackoffBase)

	body, err := c.Call(context.Background(), "/deputados", Params{"siglaUf": "SP"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"dados":[{"id":1}]}`, string(body))
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, rec.waits)
	assert.Equal(t, 0, c.Permits().InUse())
}

func TestCall_NotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	c, rec := newTestClient(t, server.URL, LegislativeBackoffBase)

	_, err := c.Call(context.Background(), "/deputados/999", nil)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "/deputados/999", notFound.Endpoint)
	assert.Equal(t, int32(1), hits.Load())
	assert.Empty(t, rec.waits)
	assert.Equal(t, 0, c.Permits().InUse())
}

func TestCall_ExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c, rec := newTestClient(t, server.URL, TransparencyBackoffBase)

	_, err := c.Call(context.Background(), "/servidores", Params{"cpf": "12345678900"})

	var exhausted *ExhaustedRetriesError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	require.NotNil(t, exhausted.Last)
	assert.Equal(t, http.StatusServiceUnavailable, exhausted.Last.StatusCode)

	var transient *TransientError
	assert.ErrorAs(t, err, &transient)

	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, []time.Duration{1 * time.Second, 3 * time.Second}, rec.waits)
	assert.Equal(t, 0, c.Permits().InUse())
}

func TestCall_ConnectionErrorIsTransient(t *testing.T) {
	connErr := errors.New("connection refused")
	transport := &stubTransport{fn: func(call int) ([]byte, error) {
		if call == 1 {
			return nil, connErr
		}
		return []byte(`{}`), nil
	}}
	c := NewRetryingClient(Config{Name: "senado", MaxAttempts: 3}, transport)
	rec := &sleepRecorder{}
	c.sleep = rec.sleep

	body, err := c.Call(context.Background(), "/senador/lista/atual", nil)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(body))
	assert.Equal(t, int32(2), transport.calls.Load())
	assert.Equal(t, []time.Duration{1 * time.Second}, rec.waits)
}

func TestCall_ExhaustedWrapsConnectionError(t *testing.T) {
	connErr := errors.New("dial tcp: i/o timeout")
	transport := &stubTransport{fn: func(int) ([]byte, error) { return nil, connErr }}
	c := NewRetryingClient(Config{Name: "senado", MaxAttempts: 2}, transport)
	c.sleep = (&sleepRecorder{}).sleep

	_, err := c.Call(context.Background(), "/votacao/lista", nil)
	assert.ErrorIs(t, err, connErr)
	assert.Equal(t, int32(2), transport.calls.Load())
}

func TestCall_CustomAttemptBudget(t *testing.T) {
	transport := &stubTransport{fn: func(int) ([]byte, error) {
		return nil, &StatusError{Code: 502}
	}}
	c := NewRetryingClient(Config{Name: "camara"}, transport)
	rec := &sleepRecorder{}
	c.sleep = rec.sleep

	_, err := c.CallWithAttempts(context.Background(), "/votacoes", nil, 5)

	var exhausted *ExhaustedRetriesError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, int32(5), transport.calls.Load())
	assert.Equal(t, []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
	}, rec.waits)
}

func TestCall_CanceledDuringBackoff(t *testing.T) {
	transport := &stubTransport{fn: func(int) ([]byte, error) {
		return nil, &StatusError{Code: 500}
	}}
	c := NewRetryingClient(Config{Name: "camara"}, transport)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Call(ctx, "/votacoes", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.Permits().InUse())
}

// =============================================================================
// Permit Pool Tests
// =============================================================================

type blockingTransport struct {
	mu      sync.Mutex
	active  int
	peak    int
	entered chan struct{}
	gate    chan struct{}
}

func (b *blockingTransport) Get(ctx context.Context, endpoint string, params Params) ([]byte, error) {
	b.mu.Lock()
	b.active++
	b.peak = max(b.peak, b.active)
	b.mu.Unlock()

	b.entered <- struct{}{}
	<-b.gate

	b.mu.Lock()
	b.active--
	b.mu.Unlock()
	return []byte(`{}`), nil
}

func TestCall_ConcurrencyCapped(t *testing.T) {
	const capacity, extra = 2, 3

	transport := &blockingTransport{
		entered: make(chan struct{}, capacity+extra),
		gate:    make(chan struct{}),
	}
	c := NewRetryingClient(Config{Name: "transparencia", Concurrency: capacity}, transport)

	var wg sync.WaitGroup
	for i := 0; i < capacity+extra; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Call(context.Background(), "/servidores", nil)
			assert.NoError(t, err)
		}()
	}

	for i := 0; i < capacity; i++ {
		select {
		case <-transport.entered:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d calls started, want %d", i, capacity)
		}
	}

	select {
	case <-transport.entered:
		t.Fatal("call started while pool was exhausted")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, capacity, c.Permits().InUse())

	close(transport.gate)
	wg.Wait()

	assert.Equal(t, capacity, transport.peak)
	assert.Equal(t, 0, c.Permits().InUse())
}

func TestPermitPool_ReleaseIsIdempotent(t *testing.T) {
	p := NewPermitPool("camara", 1)

	release, err := p.Acquire(context.Background())
	require.NoError(t, err)
	release()
	release()

	assert.Equal(t, 0, p.InUse())

	release2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer release2()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
