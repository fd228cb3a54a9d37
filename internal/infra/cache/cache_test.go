package cache

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

	"github.com/brazyl/brazyl/internal/infra/upstream"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(backend Backend) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := New(backend)
	c.now = clock.Now
	return c, clock
}

type failingBackend struct {
	gets, sets atomic.Int32
}

func (f *failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	f.gets.Add(1)
	return nil, false, errors.New("connection refused")
}

func (f *failingBackend) SetWithTTL(context.Context, string, []byte, time.Duration) error {
	f.sets.Add(1)
	return errors.New("connection refused")
}

var spSig = CallSignature{Host: "camara", Endpoint: "/deputados", Params: upstream.Params{"uf": "SP"}}

func TestCallSignature_Key(t *testing.T) {
	a := CallSignature{Host: "camara", Endpoint: "/deputados", Params: upstream.Params{"siglaUf": "SP", "pagina": "1"}}
	b := CallSignature{Host: "camara", Endpoint: "/deputados", Params: upstream.Params{"pagina": "1", "siglaUf": "SP"}}
	assert.Equal(t, a.Key(), b.Key())

	c := CallSignature{Host: "camara", Endpoint: "/deputados", Params: upstream.Params{"siglaUf": "RJ", "pagina": "1"}}
	assert.NotEqual(t, a.Key(), c.Key())

	d := CallSignature{Host: "senado", Endpoint: "/deputados", Params: a.Params}
	assert.NotEqual(t, a.Key(), d.Key())

	e := CallSignature{Host: "camara", Endpoint: "/votacoes", Params: a.Params}
	assert.NotEqual(t, a.Key(), e.Key())
}

func TestGetOrCompute_HitMissExpiry(t *testing.T) {
	c, clock := newTestCache(NewMemoryBackend())
	ctx := context.Background()

	var calls int
	compute := func(context.Context) ([]byte, error) {
		calls++
		return []byte(`{"dados":[{"siglaUf":"SP"}]}`), nil
	}

	first, err := c.GetOrCompute(ctx, spSig, time.Hour, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	clock.Advance(59 * time.Minute)
	second, err := c.GetOrCompute(ctx, spSig, time.Hour, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "unexpired entry must not call compute")
	assert.Equal(t, first, second)

	clock.Advance(2 * time.Minute)
	_, err = c.GetOrCompute(ctx, spSig, time.Hour, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "expired entry must be a miss")
}

func TestGetOrCompute_FailureNotStored(t *testing.T) {
	backend := NewMemoryBackend()
	c, _ := newTestCache(backend)
	ctx := context.Background()
	boom := errors.New("upstream down")

	_, err := c.GetOrCompute(ctx, spSig, time.Hour, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, backend.Len())

	var calls int
	_, err = c.GetOrCompute(ctx, spSig, time.Hour, func(context.Context) ([]byte, error) {
		calls++
		return []byte(`[]`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGetOrCompute_BackendDownDegradesToPassThrough(t *testing.T) {
	backend := &failingBackend{}
	c, _ := newTestCache(backend)
	ctx := context.Background()

	var calls int
	compute := func(context.Context) ([]byte, error) {
		calls++
		return []byte(`ok`), nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute(ctx, spSig, time.Hour, compute)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(v))
	}
	assert.Equal(t, 3, calls)
	assert.Equal(t, int32(3), backend.gets.Load())
	assert.Zero(t, backend.sets.Load(), "a failing backend must not be written to")
}

func TestGetOrCompute_ReturnsCopies(t *testing.T) {
	c, _ := newTestCache(NewMemoryBackend())
	ctx := context.Background()
	compute := func(context.Context) ([]byte, error) { return []byte("abc"), nil }

	v1, err := c.GetOrCompute(ctx, spSig, time.Hour, compute)
	require.NoError(t, err)
	v1[0] = 'X'

	v2, err := c.GetOrCompute(ctx, spSig, time.Hour, compute)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v2))
}

func TestGetOrCompute_ZeroTTLSkipsStore(t *testing.T) {
	backend := NewMemoryBackend()
	c, _ := newTestCache(backend)

	_, err := c.GetOrCompute(context.Background(), spSig, 0, func(context.Context) ([]byte, error) {
		return []byte("x"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, backend.Len())
}

func TestGetOrCompute_ConcurrentMissesShareCompute(t *testing.T) {
	c, _ := newTestCache(NewMemoryBackend())
	ctx := context.Background()

	var calls atomic.Int32
	gate := make(chan struct{})
	compute := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-gate
		return []byte("shared"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrCompute(ctx, spSig, time.Hour, compute)
			assert.NoError(t, err)
			assert.Equal(t, "shared", string(v))
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrCompute_WaiterSurvivesFirstCallerCancel(t *testing.T) {
	c, _ := newTestCache(NewMemoryBackend())

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	compute := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		close(started)
		select {
		case <-release:
			return []byte("fresh"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrCompute(firstCtx, spSig, time.Hour, compute)
		firstErr <- err
	}()
	<-started

	type result struct {
		v   []byte
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := c.GetOrCompute(context.Background(), spSig, time.Hour, compute)
		second <- result{v, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled caller kept waiting")
	}

	close(release)
	select {
	case r := <-second:
		require.NoError(t, r.err)
		assert.Equal(t, "fresh", string(r.v))
	case <-time.After(time.Second):
		t.Fatal("second caller never got a result")
	}
	assert.Equal(t, int32(1), calls.Load())

	// the shared result was stored even though its starter left
	v, err := c.GetOrCompute(context.Background(), spSig, time.Hour, func(context.Context) ([]byte, error) {
		return nil, errors.New("must not be called")
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(v))
}

func TestGetOrCompute_ComputeIsBounded(t *testing.T) {
	c, _ := newTestCache(NewMemoryBackend())
	c.computeTimeout = 20 * time.Millisecond

	_, err := c.GetOrCompute(context.Background(), spSig, time.Hour, func(ctx context.Context) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryBackend_Expiry(t *testing.T) {
	m := NewMemoryBackend()
	now := time.Now()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.SetWithTTL(ctx, "k", []byte("v"), time.Second))
	v, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))

	now = now.Add(2 * time.Second)
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestCachingClient_Scenario(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"dados":[{"id":204554,"siglaUf":"SP"}]}`))
	}))
	defer server.Close()

	client := upstream.NewClient(upstream.Config{Name: "camara", BaseURL: server.URL})
	c, clock := newTestCache(NewMemoryBackend())
	cc := NewCachingClient(c, client)
	ctx := context.Background()
	params := upstream.Params{"uf": "SP"}

	first, err := cc.Get(ctx, "/deputados", params, time.Hour)
	require.NoError(t, err)
	second, err := cc.Get(ctx, "/deputados", params, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())

	clock.Advance(time.Hour + time.Second)
	_, err = cc.Get(ctx, "/deputados", params, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCachingClient_NotFoundPropagates(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client := upstream.NewClient(upstream.Config{Name: "camara", BaseURL: server.URL})
	cc := NewCachingClient(New(NewMemoryBackend()), client)

	_, err := cc.Get(context.Background(), "/deputados/1", nil, time.Hour)
	var notFound *upstream.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
