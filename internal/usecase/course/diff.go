package course

import (
	"github.com/google/uuid"

	"course-watch/internal/domain/entity"
)

// Plan is the outcome of comparing stored courses with a fetched timetable.
type Plan struct {
	Create []entity.CourseFields
	// Update pairs a stored id with its new field values.
	Update []*entity.Course
	Delete []uuid.UUID
}

// Empty reports whether the stored courses already mirror the fetched ones.
func (p Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

// Diff fingerprints both sides by entity.CourseKey and returns what must
// change for current to mirror fetched.
//
// Courses only in fetched are created, courses only in current are deleted
// and courses on both sides whose mutable fields differ are updated in place
// keeping their id. A fingerprint repeated in fetched counts once, first
// occurrence wins; repeated stored fingerprints beyond the first are deleted.
// Output order follows the input order so plans are deterministic.
func Diff(current []*entity.Course, fetched []entity.CourseFields) Plan {
	var plan Plan

	stored := make(map[entity.CourseKey]*entity.Course, len(current))
	for _, c := range current {
		key := c.Key()
		if _, dup := stored[key]; dup {
			plan.Delete = append(plan.Delete, c.ID)
			continue
		}
		stored[key] = c
	}

	seen := make(map[entity.CourseKey]struct{}, len(fetched))
	for _, f := range fetched {
		key := f.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		existing, ok := stored[key]
		if !ok {
			plan.Create = append(plan.Create, f)
			continue
		}
		if !existing.SameDetails(f) {
			plan.Update = append(plan.Update, &entity.Course{
				ID:           existing.ID,
				ScheduleID:   existing.ScheduleID,
				CourseFields: f,
			})
		}
	}

	for _, c := range current {
		if stored[c.Key()] != c {
			continue // already scheduled for deletion as a duplicate
		}
		if _, ok := seen[c.Key()]; !ok {
			plan.Delete = append(plan.Delete, c.ID)
		}
	}

	return plan
}
