// Package course mirrors a fetched timetable onto the stored courses of a
// schedule by computing and applying a minimal set of mutations.
package course

import "errors"

var (
	// ErrInvalidCourse indicates a fetched course record failed validation.
	// Nothing is written when this is returned.
	ErrInvalidCourse = errors.New("invalid course")

	// ErrApplyFailed indicates the mutations could not be persisted.
	// The transaction was rolled back.
	ErrApplyFailed = errors.New("apply course changes failed")
)
