package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"course-watch/internal/domain/entity"
	"course-watch/internal/repository"
)

// CreateInput represents the input parameters for creating a schedule.
type CreateInput struct {
	Name        string
	Semester    int
	GroupNumber int
	ExternalRef entity.ExternalScheduleRef
}

// UpdateInput replaces every mutable field of a schedule.
type UpdateInput struct {
	Name        string
	Semester    int
	GroupNumber int
	ExternalRef entity.ExternalScheduleRef
}

// Service provides schedule management use cases. Reads are open to every
// requester; mutations are admin only.
type Service struct {
	Repo repository.ScheduleRepository

	// Now is overridable in tests.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// List returns every schedule.
func (s *Service) List(ctx context.Context) ([]*entity.Schedule, error) {
	schedules, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

// Get returns a schedule by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entity.Schedule, error) {
	schedule, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	if schedule == nil {
		return nil, ErrScheduleNotFound
	}
	return schedule, nil
}

// Create validates and stores a new schedule.
func (s *Service) Create(ctx context.Context, in CreateInput, requester entity.Requester) (*entity.Schedule, error) {
	if !requester.IsAdmin() {
		return nil, ErrForbidden
	}

	now := s.now()
	schedule := &entity.Schedule{
		ID:          uuid.New(),
		Name:        in.Name,
		Semester:    in.Semester,
		GroupNumber: in.GroupNumber,
		ExternalRef: in.ExternalRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	if err := s.Repo.Create(ctx, schedule); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateSchedule
		}
		return nil, fmt.Errorf("create schedule: %w", err)
	}

	slog.InfoContext(ctx, "schedule created",
		slog.String("schedule_id", schedule.ID.String()),
		slog.String("external_ref", schedule.ExternalRef.String()),
		slog.String("requester", requester.UserID))
	return schedule, nil
}

// Update replaces the fields of an existing schedule.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, requester entity.Requester) (*entity.Schedule, error) {
	if !requester.IsAdmin() {
		return nil, ErrForbidden
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	schedule := *current
	schedule.Name = in.Name
	schedule.Semester = in.Semester
	schedule.GroupNumber = in.GroupNumber
	schedule.ExternalRef = in.ExternalRef
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	schedule.UpdatedAt = s.now()

	if err := s.Repo.Update(ctx, &schedule); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrDuplicateSchedule
		case errors.Is(err, entity.ErrNotFound):
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("update schedule: %w", err)
	}
	return &schedule, nil
}

// Delete removes a schedule together with its courses and subscriptions.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, requester entity.Requester) error {
	if !requester.IsAdmin() {
		return ErrForbidden
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return ErrScheduleNotFound
		}
		return fmt.Errorf("delete schedule: %w", err)
	}

	slog.InfoContext(ctx, "schedule deleted",
		slog.String("schedule_id", id.String()),
		slog.String("requester", requester.UserID))
	return nil
}

// SeedStats reports the outcome of EnsureSeeded.
type SeedStats struct {
	Created  int
	Existing int
	Invalid  int
}

// EnsureSeeded creates every seed whose external reference is not stored
// yet. Existing schedules are left untouched. Invalid seeds are logged and
// skipped; a repository failure aborts.
func (s *Service) EnsureSeeded(ctx context.Context, seeds []CreateInput) (SeedStats, error) {
	var stats SeedStats
	for _, seed := range seeds {
		existing, err := s.Repo.GetByExternalRef(ctx, seed.ExternalRef)
		if err != nil {
			return stats, fmt.Errorf("lookup seed %s: %w", seed.ExternalRef, err)
		}
		if existing != nil {
			stats.Existing++
			continue
		}

		now := s.now()
		schedule := &entity.Schedule{
			ID:          uuid.New(),
			Name:        seed.Name,
			Semester:    seed.Semester,
			GroupNumber: seed.GroupNumber,
			ExternalRef: seed.ExternalRef,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := schedule.Validate(); err != nil {
			stats.Invalid++
			slog.WarnContext(ctx, "skipping invalid schedule seed",
				slog.String("name", seed.Name),
				slog.String("external_ref", seed.ExternalRef.String()),
				slog.Any("error", err))
			continue
		}

		if err := s.Repo.Create(ctx, schedule); err != nil {
			// another worker seeded it first
			if errors.Is(err, repository.ErrDuplicate) {
				stats.Existing++
				continue
			}
			return stats, fmt.Errorf("create seed %s: %w", seed.ExternalRef, err)
		}
		stats.Created++
	}

	slog.InfoContext(ctx, "schedule seeds ensured",
		slog.Int("created", stats.Created),
		slog.Int("existing", stats.Existing),
		slog.Int("invalid", stats.Invalid))
	return stats, nil
}
