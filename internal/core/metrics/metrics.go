package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamCallsTotal tracks logical upstream calls by outcome
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brazyl_upstream_calls_total",
			Help: "Total number of logical upstream calls",
		},
		[]string{"host", "outcome"},
	)

	// UpstreamAttemptsTotal tracks individual HTTP attempts, retries included
	UpstreamAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brazyl_upstream_attempts_total",
			Help: "Total number of upstream HTTP attempts",
		},
		[]string{"host", "status"},
	)

	// UpstreamLatency tracks single attempt latency
	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brazyl_upstream_latency_seconds",
			Help:    "Upstream attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host"},
	)

	// UpstreamPermitsInUse tracks permits currently held per host
	UpstreamPermitsInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "brazyl_upstream_permits_in_use",
			Help: "Number of permits currently held per upstream host",
		},
		[]string{"host"},
	)

	// CacheRequestsTotal tracks cache lookups by result (hit, miss, error)
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brazyl_cache_requests_total",
			Help: "Total number of response cache lookups",
		},
		[]string{"host", "result"},
	)

	// NotificationTransitionsTotal tracks status changes
	NotificationTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brazyl_notification_transitions_total",
			Help: "Total number of notification status transitions",
		},
		[]string{"to"},
	)

	// SweepRunsTotal tracks sweep runs
	SweepRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brazyl_sweep_runs_total",
			Help: "Total number of sweep runs",
		},
	)

	// SweepProcessed tracks notifications processed by the last sweep
	SweepProcessed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "brazyl_sweep_processed",
			Help: "Notifications processed by the last sweep run",
		},
	)

	// SweepDuration tracks sweep run duration
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "brazyl_sweep_duration_seconds",
			Help:    "Sweep run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// DBConnectionPoolUsage tracks database connection pool usage percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "brazyl_db_connection_pool_usage",
			Help: "Percentage of open database connections against the pool limit",
		},
	)
)
