// Package telemetry provides application-level observability for the LMS backend.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by cmd/server:
//
//	GET http://<host>:<LMS_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint returns data in the Prometheus text exposition
// format and is intended to be scraped every 15–60 seconds. It is NOT served by
// the Gin router, so it stays off the public ingress and outside rate limiting.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Authorization gate decision counters (by predicate and outcome)
//   - Notification fanout counters (emitted records, email delivery failures)
//   - Analytics rollup run counters (by subject kind and outcome)
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/orgs/:id) rather
// than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments such as entity IDs.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Authorization gate metrics.
//
// AuthzDecisionsTotal is a CounterVec with labels {predicate, allowed}. The
// predicate label holds the gate predicate name (e.g. can_manage_content) — a
// small fixed set, so cardinality is bounded.
//
// Example PromQL queries:
//   - Denial rate by predicate:  sum by (predicate) (rate(authz_decisions_total{allowed="false"}[15m]))
//   - Overall denial ratio:      sum(rate(authz_decisions_total{allowed="false"}[15m])) / sum(rate(authz_decisions_total[15m]))
var AuthzDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authz_decisions_total",
		Help: "Total number of authorization gate decisions, by predicate name and outcome.",
	},
	[]string{"predicate", "allowed"},
)

// Notification fanout metrics.
//
// NotificationsEmittedTotal is a CounterVec with label {type} (notification type
// tag such as new_assignment or goal_deadline) incremented once per notification
// record written by the fanout.
//
// NotificationEmailFailuresTotal counts best-effort email deliveries that failed
// and were swallowed. A rising rate with a configured SMTP host is the alert
// signal for mail delivery problems; the triggering writes themselves succeed.
var (
	NotificationsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_emitted_total",
			Help: "Total number of notification records created by the fanout, by notification type.",
		},
		[]string{"type"},
	)

	NotificationEmailFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_email_failures_total",
			Help: "Total number of notification emails that failed to send and were dropped.",
		},
	)
)

// Analytics rollup metrics.
//
// RollupRunsTotal is a CounterVec with labels {subject_kind, outcome} where
// subject_kind ∈ {organization, student, mentor} and outcome ∈ {computed,
// skipped, error}. "skipped" means a rollup row already existed for the
// (subject, date) key and force was not set.
//
// Example PromQL queries:
//   - Daily computed rollups:  increase(rollup_runs_total{outcome="computed"}[24h])
//   - Alert on failures:       increase(rollup_runs_total{outcome="error"}[1h]) > 0
var RollupRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rollup_runs_total",
		Help: "Total number of analytics rollup runs, by subject kind and outcome.",
	},
	[]string{"subject_kind", "outcome"},
)

// DBOpenConnections is a Gauge that tracks the number of open connections
// currently held by the sql.DB connection pool. It is sampled every 30 seconds
// by StartDBStatsCollector rather than per-request to avoid the overhead of
// sql.DB.Stats() on the hot path.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB
// connection pool statistics every 30 seconds and exports them as Prometheus
// gauges. The goroutine runs for the lifetime of the process.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
		}
	}()
	slog.Debug("database pool stats collector started")
}
