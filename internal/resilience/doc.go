// Package resilience groups the fault tolerance helpers used around remote
// calls.
//
//   - circuitbreaker wraps sony/gobreaker so a dead timetable source fails
//     fast for the rest of a sync tick.
//   - retry re-runs an operation with exponential backoff and jitter, used
//     when publishing change events to the broker.
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.TimetableConfig())
//	courses, err := circuitbreaker.Do(cb, func() ([]entity.CourseFields, error) {
//	    return fetchPlan(ctx)
//	})
//
//	err = retry.WithBackoff(ctx, retry.EventPublishConfig(), func() error {
//	    return publisher.PublishCoursesChanged(ctx, event)
//	})
package resilience
