// Package observability groups the logging, metrics and tracing helpers
// shared by the worker and notifier binaries.
//
// Subpackages:
//   - logging: slog JSON logger, context propagation and secret masking
//   - metrics: Prometheus collectors for sync runs, schedules and the database pool
//   - tracing: OpenTelemetry tracer and span helpers
//
// Example usage:
//
//	import (
//	    "course-watch/internal/observability/logging"
//	    "course-watch/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger() // also the slog default
//	    logger.Info("worker starting")
//
//	    metrics.RecordScheduleSync(metrics.SyncResultChanged, time.Second)
//	}
package observability
