// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync metrics track per-schedule sync outcomes
var (
	// ScheduleSyncTotal counts schedule syncs by result
	ScheduleSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_sync_total",
			Help: "Total number of schedule syncs by result",
		},
		[]string{"result"},
	)

	// ScheduleSyncDuration measures the time to sync one schedule
	ScheduleSyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schedule_sync_duration_seconds",
			Help:    "Time taken to fetch, diff and apply one schedule",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"result"},
	)

	// CourseChangesTotal counts course mutations applied by syncs
	CourseChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_changes_total",
			Help: "Total number of course mutations applied",
		},
		[]string{"operation"}, // operation: created, updated, deleted
	)

	// EventPublishFailuresTotal counts change events lost after a committed apply
	EventPublishFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "course_event_publish_failures_total",
			Help: "Total number of change events that could not be published after retries",
		},
	)
)

// Registry metrics track the size of the stored state
var (
	// SchedulesTotal tracks the number of tracked schedules
	SchedulesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "schedules_total",
			Help: "Total number of schedules tracked by the sync worker",
		},
	)

	// WebhookOperationsTotal counts registry operations by result kind
	WebhookOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_registry_operations_total",
			Help: "Total number of webhook registry operations",
		},
		[]string{"operation", "result"},
	)
)

// Database metrics track the connection pool
var (
	// DBConnectionsActive tracks in-use database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)
