// Package telemetry holds the Prometheus metrics and the slog setup of the
// adoption API.
//
// All metrics are registered against the default Prometheus registry and are
// served by the side-channel HTTP server started by cmd/server:
//
//	GET http://<host>:<PATAS_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/animals/:id)
// rather than the raw request URL to keep label cardinality bounded.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template and status code.
//
// Example PromQL queries:
//   - Request rate:  rate(http_requests_total[5m])
//   - p99 latency:   histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
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

// PolicyDecisionsTotal counts authorization decisions with labels
// {action, outcome, reason}. outcome is "allow" or "deny"; reason is empty on allow.
//
// Example PromQL queries:
//   - Denials by reason:  sum by (reason) (rate(policy_decisions_total{outcome="deny"}[1h]))
var PolicyDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "policy_decisions_total",
		Help: "Total number of authorization decisions, by action, outcome, and deny reason.",
	},
	[]string{"action", "outcome", "reason"},
)

// LoginAttemptsTotal counts login attempts with label {result}: "success" or "failure".
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Total number of password login attempts, by result.",
	},
	[]string{"result"},
)

// PhotoUploadsTotal counts animal photo uploads with labels {backend, result}.
var PhotoUploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "photo_uploads_total",
		Help: "Total number of animal photo uploads, by storage backend and result.",
	},
	[]string{"backend", "result"},
)

// DBOpenConnections tracks the open connections of the sql.DB pool. It is
// sampled every 30 seconds by StartDBStatsCollector.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// RecordPolicyDecision increments PolicyDecisionsTotal.
func RecordPolicyDecision(action string, allowed bool, reason string) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	PolicyDecisionsTotal.WithLabelValues(action, outcome, reason).Inc()
}

// StartDBStatsCollector samples the pool statistics every 30 seconds. The
// goroutine exits when the database becomes unreachable, which happens on
// shutdown once db.Close() runs.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
