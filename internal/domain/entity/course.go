package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CourseType classifies a course meeting.
type CourseType string

const (
	CourseTypeLecture  CourseType = "LECTURE"
	CourseTypeLab      CourseType = "LAB"
	CourseTypeExercise CourseType = "EXERCISE"
	CourseTypeSeminar  CourseType = "SEMINAR"
	CourseTypeProject  CourseType = "PROJECT"
	CourseTypeInfo     CourseType = "INFO"
	CourseTypeOther    CourseType = "OTHER"
)

var validCourseTypes = map[CourseType]bool{
	CourseTypeLecture:  true,
	CourseTypeLab:      true,
	CourseTypeExercise: true,
	CourseTypeSeminar:  true,
	CourseTypeProject:  true,
	CourseTypeInfo:     true,
	CourseTypeOther:    true,
}

// Valid reports whether t is a known course type.
func (t CourseType) Valid() bool { return validCourseTypes[t] }

// WeekParity restricts a course to every week, even weeks or odd weeks.
type WeekParity string

const (
	ParityEvery WeekParity = "EVERY"
	ParityEven  WeekParity = "EVEN"
	ParityOdd   WeekParity = "ODD"
)

// Valid reports whether p is a known parity.
func (p WeekParity) Valid() bool {
	return p == ParityEvery || p == ParityEven || p == ParityOdd
}

// ClockTime is a wall-clock time of day in minutes since midnight.
type ClockTime int

// NewClockTime builds a ClockTime from hours and minutes.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClockTime parses "HH:MM" (24h).
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse clock time %q: %w", s, ErrInvalidInput)
	}
	return NewClockTime(t.Hour(), t.Minute()), nil
}

// Valid reports whether c lies within a single day.
func (c ClockTime) Valid() bool { return c >= 0 && c < 24*60 }

// String formats c as "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// CourseFields is the content of a course as published by the timetable
// source, without storage identity.
type CourseFields struct {
	Name           string
	Description    string
	Type           CourseType
	Teachers       string
	DayOfWeek      time.Weekday
	Start          ClockTime
	End            ClockTime
	Parity         WeekParity
	Classroom      string
	AdditionalInfo string
}

// Validate validates the course fields.
func (f CourseFields) Validate() error {
	if err := requireText("name", f.Name, 255); err != nil {
		return err
	}
	if !f.Type.Valid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown course type %q", f.Type)}
	}
	if f.DayOfWeek < time.Sunday || f.DayOfWeek > time.Saturday {
		return &ValidationError{Field: "dayOfWeek", Message: "must be a weekday"}
	}
	if !f.Start.Valid() || !f.End.Valid() {
		return &ValidationError{Field: "start", Message: "time must be within a day"}
	}
	if f.End <= f.Start {
		return &ValidationError{Field: "end", Message: "must be after start"}
	}
	if !f.Parity.Valid() {
		return &ValidationError{Field: "parity", Message: fmt.Sprintf("unknown week parity %q", f.Parity)}
	}
	return nil
}

// CourseKey is the fingerprint that decides whether a stored course and a
// fetched one describe the same meeting. Fields outside the key are mutable
// and only ever produce an in-place update.
type CourseKey struct {
	DayOfWeek time.Weekday
	Start     ClockTime
	End       ClockTime
	Type      CourseType
	Name      string
}

// Key returns the fingerprint of f.
func (f CourseFields) Key() CourseKey {
	return CourseKey{
		DayOfWeek: f.DayOfWeek,
		Start:     f.Start,
		End:       f.End,
		Type:      f.Type,
		Name:      f.Name,
	}
}

// SameDetails reports whether the mutable fields of f and o are equal.
func (f CourseFields) SameDetails(o CourseFields) bool {
	return f.Description == o.Description &&
		f.Teachers == o.Teachers &&
		f.Parity == o.Parity &&
		f.Classroom == o.Classroom &&
		f.AdditionalInfo == o.AdditionalInfo
}

// Course is a stored course belonging to a schedule.
type Course struct {
	ID         uuid.UUID
	ScheduleID uuid.UUID
	CourseFields
}

// CourseChanges is a set of mutations applied to one schedule atomically.
type CourseChanges struct {
	Create []*Course
	Update []*Course
	Delete []uuid.UUID
}

// Empty reports whether there is nothing to apply.
func (c CourseChanges) Empty() bool {
	return len(c.Create) == 0 && len(c.Update) == 0 && len(c.Delete) == 0
}
