package course

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"course-watch/internal/domain/entity"
	"course-watch/internal/repository"
)

// ChangeSet lists the course ids affected by one apply.
type ChangeSet struct {
	Created []uuid.UUID
	Updated []uuid.UUID
	Deleted []uuid.UUID
}

// Empty reports whether nothing changed.
func (c ChangeSet) Empty() bool {
	return len(c.Created) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}

// Event converts c into the bus message for scheduleID.
// Nil slices become empty lists so consumers always see arrays.
func (c ChangeSet) Event(scheduleID uuid.UUID) entity.CoursesChangedEvent {
	return entity.CoursesChangedEvent{
		ScheduleID: scheduleID,
		Created:    nonNil(c.Created),
		Updated:    nonNil(c.Updated),
		Deleted:    nonNil(c.Deleted),
	}
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

// DiffApplier makes the stored courses of a schedule mirror a fetched set.
type DiffApplier struct {
	Courses repository.CourseRepository

	// NewID is overridable in tests.
	NewID func() uuid.UUID
}

// NewDiffApplier creates a DiffApplier backed by repo.
func NewDiffApplier(repo repository.CourseRepository) *DiffApplier {
	return &DiffApplier{Courses: repo}
}

func (a *DiffApplier) newID() uuid.UUID {
	if a.NewID != nil {
		return a.NewID()
	}
	return uuid.New()
}

// Apply diffs current against fetched and persists the result in a single
// transaction. Every fetched record is validated first; one invalid record
// aborts the whole apply with ErrInvalidCourse. An empty plan performs no
// write and returns an empty ChangeSet.
func (a *DiffApplier) Apply(ctx context.Context, scheduleID uuid.UUID, current []*entity.Course, fetched []entity.CourseFields) (ChangeSet, error) {
	for i, f := range fetched {
		if err := f.Validate(); err != nil {
			return ChangeSet{}, fmt.Errorf("%w: record %d (%s): %w", ErrInvalidCourse, i, f.Name, err)
		}
	}

	plan := Diff(current, fetched)
	if plan.Empty() {
		return ChangeSet{}, nil
	}

	changes := entity.CourseChanges{
		Update: plan.Update,
		Delete: plan.Delete,
	}
	for _, f := range plan.Create {
		changes.Create = append(changes.Create, &entity.Course{
			ID:           a.newID(),
			ScheduleID:   scheduleID,
			CourseFields: f,
		})
	}

	if err := a.Courses.ApplyChanges(ctx, scheduleID, changes); err != nil {
		return ChangeSet{}, fmt.Errorf("%w: schedule %s: %w", ErrApplyFailed, scheduleID, err)
	}

	set := ChangeSet{Deleted: plan.Delete}
	for _, c := range changes.Create {
		set.Created = append(set.Created, c.ID)
	}
	for _, c := range changes.Update {
		set.Updated = append(set.Updated, c.ID)
	}

	slog.InfoContext(ctx, "course changes applied",
		slog.String("schedule_id", scheduleID.String()),
		slog.Int("created", len(set.Created)),
		slog.Int("updated", len(set.Updated)),
		slog.Int("deleted", len(set.Deleted)))
	return set, nil
}
