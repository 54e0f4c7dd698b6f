package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"course-watch/internal/pkg/config"
)

// WorkerMetrics exposes configuration and cron metrics of a process.
//
// Embedded metrics (from ConfigMetrics), prefixed with the component name:
//   - {component}_config_load_timestamp
//   - {component}_config_validation_errors_total
//   - {component}_config_fallbacks_total
//   - {component}_config_fallback_active
//
// Cron metrics:
//   - worker_cron_job_runs_total{status}
//   - worker_cron_job_duration_seconds
//   - worker_cron_job_schedules_processed_total
//   - worker_cron_job_last_success_timestamp
type WorkerMetrics struct {
	*config.ConfigMetrics

	CronJobRunsTotal               *prometheus.CounterVec
	CronJobDurationSeconds         prometheus.Histogram
	CronJobSchedulesProcessedTotal prometheus.Counter
	CronJobLastSuccessTimestamp    prometheus.Gauge
}

// NewWorkerMetrics creates and registers the worker metrics. It panics when
// called twice in one process, like every promauto constructor.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CronJobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_job_runs_total",
			Help: "Total number of sync ticks by status (started/success/failure/skipped)",
		}, []string{"status"}),

		CronJobDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_cron_job_duration_seconds",
			Help:    "Duration of a sync tick in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		CronJobSchedulesProcessedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_cron_job_schedules_processed_total",
			Help: "Total number of schedules visited across all sync ticks",
		}),

		CronJobLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_cron_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful sync tick",
		}),
	}
}

// RecordJobRun increments the run counter for status ("started", "success",
// "failure" or "skipped").
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.CronJobRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes the duration of one tick in seconds.
func (m *WorkerMetrics) RecordJobDuration(seconds float64) {
	m.CronJobDurationSeconds.Observe(seconds)
}

// RecordSchedulesProcessed adds the schedules visited by one tick.
func (m *WorkerMetrics) RecordSchedulesProcessed(count int) {
	m.CronJobSchedulesProcessedTotal.Add(float64(count))
}

// RecordLastSuccess stamps the last successful tick.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.CronJobLastSuccessTimestamp.SetToCurrentTime()
}
