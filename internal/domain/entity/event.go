package entity

import (
	"github.com/google/uuid"
)

// EventTypeCoursesChanged is the type tag of CoursesChangedEvent on the bus.
const EventTypeCoursesChanged = "courses_changed"

// CoursesChangedEvent announces that a schedule's courses were mutated by a
// sync. The id lists name the affected courses; deleted ids no longer exist.
type CoursesChangedEvent struct {
	ScheduleID uuid.UUID   `json:"scheduleId"`
	Created    []uuid.UUID `json:"created"`
	Updated    []uuid.UUID `json:"updated"`
	Deleted    []uuid.UUID `json:"deleted"`
}

// Empty reports whether the event carries no change.
func (e CoursesChangedEvent) Empty() bool {
	return len(e.Created) == 0 && len(e.Updated) == 0 && len(e.Deleted) == 0
}
