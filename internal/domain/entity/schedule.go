package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExternalScheduleRef identifies a schedule on the external timetable source.
// It is the natural key of a Schedule: two schedules never share a ref.
type ExternalScheduleRef struct {
	PlanID   int64  `json:"planId" yaml:"plan_id"`
	Type     string `json:"type" yaml:"type"`
	WeekDays string `json:"weekDays" yaml:"week_days"`
}

// String renders the ref in a compact, log-friendly form.
func (r ExternalScheduleRef) String() string {
	return fmt.Sprintf("%d/%s/%s", r.PlanID, r.Type, r.WeekDays)
}

// Validate checks the ref is addressable on the external source.
func (r ExternalScheduleRef) Validate() error {
	if r.PlanID <= 0 {
		return &ValidationError{Field: "externalRef.planId", Message: "must be positive"}
	}
	if err := requireText("externalRef.type", r.Type, 32); err != nil {
		return err
	}
	return requireText("externalRef.weekDays", r.WeekDays, 32)
}

// Schedule is a named timetable tracked by the sync worker.
type Schedule struct {
	ID          uuid.UUID
	Name        string
	Semester    int
	GroupNumber int
	ExternalRef ExternalScheduleRef
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate validates the Schedule entity fields.
func (s *Schedule) Validate() error {
	if err := requireText("name", s.Name, 255); err != nil {
		return err
	}
	if s.Semester < 1 || s.Semester > 12 {
		return &ValidationError{Field: "semester", Message: "must be between 1 and 12"}
	}
	if s.GroupNumber < 0 {
		return &ValidationError{Field: "groupNumber", Message: "must not be negative"}
	}
	return s.ExternalRef.Validate()
}

// DisplayName is the label used in notifications.
func (s *Schedule) DisplayName() string {
	if s.GroupNumber > 0 {
		return fmt.Sprintf("%s (semester %d, group %d)", s.Name, s.Semester, s.GroupNumber)
	}
	return fmt.Sprintf("%s (semester %d)", s.Name, s.Semester)
}
