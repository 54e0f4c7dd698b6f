package repository

import (
	"context"

	"github.com/google/uuid"

	"course-watch/internal/domain/entity"
)

type CourseRepository interface {
	ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*entity.Course, error)
	// ApplyChanges applies all mutations in a single transaction.
	ApplyChanges(ctx context.Context, scheduleID uuid.UUID, changes entity.CourseChanges) error
}
