package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFields() CourseFields {
	return CourseFields{
		Name:      "Algorithms",
		Type:      CourseTypeLecture,
		Teachers:  "dr Kowalski",
		DayOfWeek: time.Monday,
		Start:     NewClockTime(8, 15),
		End:       NewClockTime(9, 45),
		Parity:    ParityEvery,
		Classroom: "A-1 101",
	}
}

func TestParseClockTime(t *testing.T) {
	got, err := ParseClockTime("08:15")
	require.NoError(t, err)
	assert.Equal(t, NewClockTime(8, 15), got)
	assert.Equal(t, "08:15", got.String())

	_, err = ParseClockTime("25:00")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseClockTime("noon")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCourseFields_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(f *CourseFields)
		wantField string
	}{
		{name: "valid", mutate: func(f *CourseFields) {}},
		{name: "missing name", mutate: func(f *CourseFields) { f.Name = " " }, wantField: "name"},
		{name: "unknown type", mutate: func(f *CourseFields) { f.Type = "WORKSHOP" }, wantField: "type"},
		{name: "end equals start", mutate: func(f *CourseFields) { f.End = f.Start }, wantField: "end"},
		{name: "end before start", mutate: func(f *CourseFields) { f.End = NewClockTime(7, 0) }, wantField: "end"},
		{name: "invalid weekday", mutate: func(f *CourseFields) { f.DayOfWeek = time.Weekday(9) }, wantField: "dayOfWeek"},
		{name: "unknown parity", mutate: func(f *CourseFields) { f.Parity = "" }, wantField: "parity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			tt.mutate(&f)
			err := f.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestCourseFields_KeyIgnoresMutableFields(t *testing.T) {
	a := validFields()
	b := validFields()
	b.Description = "moved online"
	b.Classroom = "B-2 12"
	b.AdditionalInfo = "bring laptops"
	b.Parity = ParityOdd

	assert.Equal(t, a.Key(), b.Key())
	assert.False(t, a.SameDetails(b))

	c := validFields()
	c.Start = NewClockTime(10, 0)
	c.End = NewClockTime(11, 30)
	assert.NotEqual(t, a.Key(), c.Key())
	assert.True(t, a.SameDetails(c))
}
