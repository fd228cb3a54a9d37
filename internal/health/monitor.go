package health

import (
	"context"
	"sync"
	"time"

	"github.com/brazyl/brazyl/internal/infra/upstream"
)

// CheckFunc checks a dependency; a non-nil error marks it unhealthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name     string
	critical bool
	fn       CheckFunc
}

// Monitor aggregates health status from various system components.
type Monitor struct {
	checks     []check
	pools      []*upstream.PermitPool
	poolNames  []string
	ttl        time.Duration
	lastCheck  time.Time
	lastReport map[string]ComponentHealth
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor. Reports are reused for ttl to
// avoid hammering dependencies from health checks.
func NewMonitor(ttl time.Duration) *Monitor {
	return &Monitor{
		ttl:        ttl,
		lastReport: make(map[string]ComponentHealth),
	}
}

// AddCheck registers a check. A failing critical check makes the system
// critical; any other failing check degrades it.
func (m *Monitor) AddCheck(name string, critical bool, fn CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, check{name: name, critical: critical, fn: fn})
}

// AddPermitPool reports an upstream host as degraded while all its permits are taken.
func (m *Monitor) AddPermitPool(name string, pool *upstream.PermitPool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools = append(m.pools, pool)
	m.poolNames = append(m.poolNames, name)
}

// CheckHealth runs every check, or returns the cached report while it is fresh.
func (m *Monitor) CheckHealth(ctx context.Context) map[string]ComponentHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ttl > 0 && time.Since(m.lastCheck) < m.ttl && len(m.lastReport) > 0 {
		return m.lastReport
	}

	report := make(map[string]ComponentHealth, len(m.checks)+len(m.pools))

	for _, c := range m.checks {
		h := ComponentHealth{Name: c.name, Status: StatusHealthy}
		if err := c.fn(ctx); err != nil {
			h.Error = err.Error()
			h.Status = StatusDegraded
			if c.critical {
				h.Status = StatusCritical
			}
		}
		report[c.name] = h
	}

	for i, pool := range m.pools {
		inUse, capacity := pool.InUse(), pool.Capacity()
		h := ComponentHealth{
			Name:   m.poolNames[i],
			Status: StatusHealthy,
			Details: map[string]any{
				"permits_in_use": inUse,
				"capacity":       capacity,
			},
		}
		if capacity > 0 && inUse >= capacity {
			h.Status = StatusDegraded
		}
		report[m.poolNames[i]] = h
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}

// Report returns the component states with their aggregate.
func (m *Monitor) Report(ctx context.Context) HealthReport {
	components := m.CheckHealth(ctx)
	return HealthReport{
		SystemStatus: Aggregate(components),
		Components:   components,
	}
}
