/*-------------------------------------------------------------------------
 *
 * prometheus.go
 *    Prometheus metrics for DocFlow
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/metrics/prometheus.go
 *
 *-------------------------------------------------------------------------
 */

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	/* Request metrics */
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	/* Approval flow metrics */
	approvalsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docflow_approvals_started_total",
			Help: "Total number of approval chains started",
		},
	)

	approvalDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_approval_decisions_total",
			Help: "Total number of approval step decisions",
		},
		[]string{"decision"},
	)

	approvalChainsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_approval_chains_completed_total",
			Help: "Total number of approval chains completed",
		},
		[]string{"outcome"},
	)

	approvalChainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docflow_approval_chain_duration_seconds",
			Help:    "End to end approval chain duration in seconds",
			Buckets: []float64{60, 600, 3600, 21600, 86400, 259200, 604800},
		},
	)

	/* Notification metrics */
	notificationsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_notifications_dispatched_total",
			Help: "Total number of notifications dispatched",
		},
		[]string{"channel", "status"},
	)

	/* Sweeper metrics */
	autoApprovalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docflow_auto_approvals_total",
			Help: "Total number of overdue approvals auto-approved by the sweeper",
		},
	)

	/* Database connection pool metrics */
	dbPoolOpenConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "docflow_db_pool_open_connections",
			Help: "Number of open database connections",
		},
		[]string{"database"},
	)

	dbPoolIdleConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "docflow_db_pool_idle_connections",
			Help: "Number of idle database connections",
		},
		[]string{"database"},
	)

	dbPoolInUseConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "docflow_db_pool_in_use_connections",
			Help: "Number of database connections in use",
		},
		[]string{"database"},
	)

	/* Rate limiting metrics */
	rateLimitAllowed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_rate_limit_allowed_total",
			Help: "Total number of requests allowed by rate limiter",
		},
		[]string{"key_id"},
	)

	rateLimitRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_rate_limit_rejected_total",
			Help: "Total number of requests rejected by rate limiter",
		},
		[]string{"key_id"},
	)
)

/* RecordHTTPRequest records an HTTP request */
func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	/* Convert status code to status class for better PromQL queries */
	statusClass := "unknown"
	if status >= 200 && status < 300 {
		statusClass = "2xx"
	} else if status >= 300 && status < 400 {
		statusClass = "3xx"
	} else if status >= 400 && status < 500 {
		statusClass = "4xx"
	} else if status >= 500 {
		statusClass = "5xx"
	}

	httpRequestsTotal.WithLabelValues(method, endpoint, statusClass).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

/* RecordApprovalStarted records a new approval chain */
func RecordApprovalStarted() {
	approvalsStartedTotal.Inc()
}

/* RecordApprovalDecision records a step decision */
func RecordApprovalDecision(decision string) {
	approvalDecisionsTotal.WithLabelValues(decision).Inc()
}

/* RecordApprovalChainCompleted records a finished approval chain */
func RecordApprovalChainCompleted(outcome string, duration time.Duration) {
	approvalChainsCompletedTotal.WithLabelValues(outcome).Inc()
	approvalChainDuration.Observe(duration.Seconds())
}

/* RecordNotificationDispatched records a notification dispatch attempt */
func RecordNotificationDispatched(channel, status string) {
	notificationsDispatchedTotal.WithLabelValues(channel, status).Inc()
}

/* RecordAutoApproval records an auto-approval by the deadline sweeper */
func RecordAutoApproval() {
	autoApprovalsTotal.Inc()
}

/* RecordDBPoolStats records database connection pool statistics */
func RecordDBPoolStats(database string, openConns, idleConns, inUse int) {
	dbPoolOpenConns.WithLabelValues(database).Set(float64(openConns))
	dbPoolIdleConns.WithLabelValues(database).Set(float64(idleConns))
	dbPoolInUseConns.WithLabelValues(database).Set(float64(inUse))
}

/* RecordRateLimitAllowed records a rate limit allowance */
func RecordRateLimitAllowed(keyID string) {
	rateLimitAllowed.WithLabelValues(keyID).Inc()
}

/* RecordRateLimitRejected records a rate limit rejection */
func RecordRateLimitRejected(keyID string) {
	rateLimitRejected.WithLabelValues(keyID).Inc()
}

/* Handler returns the Prometheus metrics handler */
func Handler() http.Handler {
	return promhttp.Handler()
}
