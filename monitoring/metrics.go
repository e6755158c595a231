package monitoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dashboard_records_total",
			Help: "Current number of records per collection",
		},
		[]string{"collection"},
	)

	gatewayOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_operations_total",
			Help: "Total data and storage operations issued through the gateway",
		},
		[]string{"operation", "collection", "status"},
	)

	gatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_operation_duration_seconds",
			Help:    "Duration of gateway operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "collection"},
	)

	attendanceUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_updates_total",
			Help: "Attendance answers recorded, by status",
		},
		[]string{"status"},
	)

	signedURLs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signed_urls_issued_total",
			Help: "Signed media URLs handed out",
		},
		[]string{"source"},
	)

	rateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"scope"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

// CountedCollections are sampled by the background collector.
var CountedCollections = []string{"users", "schedules", "attendances", "notices", "movies"}

// Monitor records application metrics. A nil *Monitor is valid and records
// nothing, which keeps call sites free of checks.
type Monitor struct {
	app      core.App
	interval time.Duration
}

func NewMonitor(app core.App) *Monitor {
	return &Monitor{app: app, interval: 30 * time.Second}
}

// Run samples collection sizes until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	if m == nil {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.collectRecordCounts()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectRecordCounts()
		}
	}
}

func (m *Monitor) collectRecordCounts() {
	for _, name := range CountedCollections {
		total, err := m.app.CountRecords(name)
		if err != nil {
			slog.Warn("Failed to count records", "collection", name, "error", err)
			continue
		}
		recordCount.WithLabelValues(name).Set(float64(total))
	}
}

// TrackGatewayOperation counts one gateway call and its latency.
func (m *Monitor) TrackGatewayOperation(operation, collection string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	gatewayOperations.WithLabelValues(operation, collection, status).Inc()
	gatewayDuration.WithLabelValues(operation, collection).Observe(time.Since(started).Seconds())
}

func (m *Monitor) TrackAttendance(status string) {
	if m == nil {
		return
	}
	attendanceUpdates.WithLabelValues(status).Inc()
}

// TrackSignedURL counts an issued URL; source is "cache" or "signed".
func (m *Monitor) TrackSignedURL(source string) {
	if m == nil {
		return
	}
	signedURLs.WithLabelValues(source).Inc()
}

func (m *Monitor) TrackRateLimited(scope string) {
	if m == nil {
		return
	}
	rateLimited.WithLabelValues(scope).Inc()
}

func (m *Monitor) TrackBreakerState(name string, state int) {
	if m == nil {
		return
	}
	breakerState.WithLabelValues(name).Set(float64(state))
}
