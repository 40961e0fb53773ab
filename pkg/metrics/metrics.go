package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure|locked).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocktrail_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// PermissionChecks counts permission evaluations and their outcome (allowed|denied|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocktrail_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"permission", "result"},
	)

	// AuditWrites counts audit log insert attempts by outcome (success|failure).
	// Audit failures never fail the primary operation, so this counter is the
	// main signal that the trail is degrading.
	AuditWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocktrail_audit_writes_total",
			Help: "Total number of audit log writes",
		},
		[]string{"result"},
	)

	// StockMovements counts stock transactions by type (in|out|adjustment).
	StockMovements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocktrail_stock_movements_total",
			Help: "Total number of recorded stock transactions",
		},
		[]string{"type"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stocktrail_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
