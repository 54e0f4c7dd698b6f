package metrics

import (
	"time"
)

// Sync results recorded by RecordScheduleSync.
const (
	SyncResultUnchanged    = "unchanged"
	SyncResultChanged      = "changed"
	SyncResultFetchError   = "fetch_error"
	SyncResultApplyError   = "apply_error"
	SyncResultInvalid      = "invalid_data"
	SyncResultEmptySkipped = "empty_skipped"
)

// RecordScheduleSync records the outcome and duration of one schedule sync.
func RecordScheduleSync(result string, duration time.Duration) {
	ScheduleSyncTotal.WithLabelValues(result).Inc()
	ScheduleSyncDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordCourseChanges adds the mutation counts of one apply.
func RecordCourseChanges(created, updated, deleted int) {
	if created > 0 {
		CourseChangesTotal.WithLabelValues("created").Add(float64(created))
	}
	if updated > 0 {
		CourseChangesTotal.WithLabelValues("updated").Add(float64(updated))
	}
	if deleted > 0 {
		CourseChangesTotal.WithLabelValues("deleted").Add(float64(deleted))
	}
}

// RecordEventPublishFailure records a change event that was given up on.
func RecordEventPublishFailure() {
	EventPublishFailuresTotal.Inc()
}

// UpdateSchedulesTotal sets the number of tracked schedules.
func UpdateSchedulesTotal(count int) {
	SchedulesTotal.Set(float64(count))
}

// RecordWebhookOperation records a registry call. result is "ok" or an
// error kind such as "validation" or "authorization".
func RecordWebhookOperation(operation, result string) {
	WebhookOperationsTotal.WithLabelValues(operation, result).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
