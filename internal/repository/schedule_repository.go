package repository

import (
	"context"

	"github.com/google/uuid"

	"course-watch/internal/domain/entity"
)

// ScheduleRepository persists schedules. Get and GetByExternalRef return
// (nil, nil) when nothing matches.
type ScheduleRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Schedule, error)
	GetByExternalRef(ctx context.Context, ref entity.ExternalScheduleRef) (*entity.Schedule, error)
	List(ctx context.Context) ([]*entity.Schedule, error)
	// ExistsAll returns the subset of ids that do not exist, in one round trip.
	ExistsAll(ctx context.Context, ids []uuid.UUID) (missing []uuid.UUID, err error)
	Create(ctx context.Context, schedule *entity.Schedule) error
	Update(ctx context.Context, schedule *entity.Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
}
