package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/brazyl/brazyl/internal/infra/upstream"
)

func ok(ctx context.Context) error { return nil }

func failing(ctx context.Context) error { return errors.New("connection refused") }

func TestMonitor_Statuses(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(m *Monitor)
		expect SystemStatus
	}{
		{
			name:   "all healthy",
			setup:  func(m *Monitor) { m.AddCheck("database", true, ok) },
			expect: StatusHealthy,
		},
		{
			name: "optional dependency down",
			setup: func(m *Monitor) {
				m.AddCheck("database", true, ok)
				m.AddCheck("redis", false, failing)
			},
			expect: StatusDegraded,
		},
		{
			name: "critical dependency down",
			setup: func(m *Monitor) {
				m.AddCheck("database", true, failing)
				m.AddCheck("redis", false, failing)
			},
			expect: StatusCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(0)
			tt.setup(m)
			report := m.Report(context.Background())
			if report.SystemStatus != tt.expect {
				t.Errorf("expected %s, got %s", tt.expect, report.SystemStatus)
			}
		})
	}
}

func TestMonitor_SaturatedPermitPool(t *testing.T) {
	pool := upstream.NewPermitPool("camara", 1)
	m := NewMonitor(0)
	m.AddPermitPool("camara", pool)

	if got := m.CheckHealth(context.Background())["camara"].Status; got != StatusHealthy {
		t.Fatalf("expected healthy idle pool, got %s", got)
	}

	release, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer release()

	h := m.CheckHealth(context.Background())["camara"]
	if h.Status != StatusDegraded {
		t.Errorf("expected degraded saturated pool, got %s", h.Status)
	}
	if h.Details["permits_in_use"] != 1 {
		t.Errorf("unexpected details %v", h.Details)
	}
}

func TestMonitor_CachesReport(t *testing.T) {
	calls := 0
	m := NewMonitor(time.Hour)
	m.AddCheck("database", true, func(ctx context.Context) error {
		calls++
		return nil
	})

	m.CheckHealth(context.Background())
	m.CheckHealth(context.Background())
	if calls != 1 {
		t.Errorf("expected cached report, got %d check calls", calls)
	}
}

func TestServer_Endpoints(t *testing.T) {
	m := NewMonitor(0)
	m.AddCheck("database", true, failing)
	handler := NewServer(m, 0).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	var report HealthReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if report.Components["database"].Error != "connection refused" {
		t.Errorf("unexpected report %+v", report)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected metrics 200, got %d", rec.Code)
	}
}

func TestGRPCServer_Update(t *testing.T) {
	down := false
	m := NewMonitor(0)
	m.AddCheck("database", true, func(ctx context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	})
	g := NewGRPCServer(m, 0)

	g.Update(context.Background())
	resp, err := g.health.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %s", resp.Status)
	}

	down = true
	g.Update(context.Background())
	resp, _ = g.health.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("expected NOT_SERVING, got %s", resp.Status)
	}
}
