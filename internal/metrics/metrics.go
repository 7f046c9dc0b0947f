// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "incident"

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ReportsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "created_total",
			Help:      "Reports committed together with their attachments",
		},
	)

	// ReportCreateFailures is labelled by the stage that failed:
	// upload or commit.
	ReportCreateFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "create_failures_total",
			Help:      "Report creations rolled back",
		},
		[]string{"stage"},
	)

	OrphanedBlobs = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blobs",
			Name:      "orphaned_total",
			Help:      "Blobs left behind by a failed best-effort delete",
		},
	)

	BlobOperations = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "blobs",
			Name:      "operation_duration_seconds",
			Help:      "Blob store operation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op", "result"},
	)

	LoginLockouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_lockouts_total",
			Help:      "Login attempts rejected by the attempt limiter",
		},
	)

	ColdPartitionFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "cold_fallbacks_total",
			Help:      "Cold partition queries replaced by an empty result",
		},
		[]string{"query"},
	)
)
