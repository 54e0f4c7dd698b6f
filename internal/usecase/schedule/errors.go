// Package schedule provides admin use cases for the tracked schedules and the
// startup seeding of schedules from configuration.
package schedule

import "errors"

// Sentinel errors for schedule use case operations.
var (
	// ErrScheduleNotFound indicates that the requested schedule was not found.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrDuplicateSchedule indicates that another schedule already tracks the
	// same external reference.
	ErrDuplicateSchedule = errors.New("schedule with this external reference already exists")

	// ErrForbidden indicates the requester is not an admin.
	ErrForbidden = errors.New("forbidden")
)
