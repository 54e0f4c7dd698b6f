// Package metrics holds the Prometheus collectors shared across course-watch.
//
// This package covers:
//   - Schedule sync outcomes and durations
//   - Course mutations applied by a sync
//   - Registry sizes (schedules, webhooks)
//   - Database connection pool statistics
//
// Component-local collectors (event bus, notification delivery, worker
// jobs) live next to the code that records them. All collectors register
// with the Prometheus default registry and are exposed via /metrics.
//
// Example usage:
//
//	start := time.Now()
//	set, err := applier.Apply(ctx, id, current, fetched)
//	metrics.RecordCourseChanges(len(set.Created), len(set.Updated), len(set.Deleted))
//	metrics.RecordScheduleSync(metrics.SyncResultChanged, time.Since(start))
package metrics
