package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"course-watch/internal/domain/entity"
	"course-watch/internal/repository"
)

const scheduleColumns = `id, name, semester, group_number, plan_id, plan_type, week_days, created_at, updated_at`

type ScheduleRepo struct{ db *sql.DB }

func NewScheduleRepo(db *sql.DB) repository.ScheduleRepository {
	return &ScheduleRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSchedule(row rowScanner) (*entity.Schedule, error) {
	var s entity.Schedule
	if err := row.Scan(
		&s.ID, &s.Name, &s.Semester, &s.GroupNumber,
		&s.ExternalRef.PlanID, &s.ExternalRef.Type, &s.ExternalRef.WeekDays,
		&s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (repo *ScheduleRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Schedule, error) {
	const query = `SELECT ` + scheduleColumns + `
FROM schedules
WHERE id = $1`
	s, err := scanSchedule(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return s, nil
}

func (repo *ScheduleRepo) GetByExternalRef(ctx context.Context, ref entity.ExternalScheduleRef) (*entity.Schedule, error) {
	const query = `SELECT ` + scheduleColumns + `
FROM schedules
WHERE plan_id = $1 AND plan_type = $2 AND week_days = $3`
	s, err := scanSchedule(repo.db.QueryRowContext(ctx, query, ref.PlanID, ref.Type, ref.WeekDays))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByExternalRef: %w", err)
	}
	return s, nil
}

func (repo *ScheduleRepo) List(ctx context.Context) ([]*entity.Schedule, error) {
	const query = `SELECT ` + scheduleColumns + `
FROM schedules
ORDER BY name ASC, semester ASC, group_number ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	schedules := make([]*entity.Schedule, 0, 32)
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func (repo *ScheduleRepo) ExistsAll(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	clause, args := buildInClause("id", ids, 1)
	query := `SELECT id FROM schedules WHERE ` + clause
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ExistsAll: %w", err)
	}
	defer func() { _ = rows.Close() }()

	found := make(map[uuid.UUID]struct{}, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ExistsAll: %w", err)
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExistsAll: %w", err)
	}

	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (repo *ScheduleRepo) Create(ctx context.Context, s *entity.Schedule) error {
	const query = `
INSERT INTO schedules (` + scheduleColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.db.ExecContext(ctx, query,
		s.ID, s.Name, s.Semester, s.GroupNumber,
		s.ExternalRef.PlanID, s.ExternalRef.Type, s.ExternalRef.WeekDays,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return translateError("Create", err)
	}
	return nil
}

func (repo *ScheduleRepo) Update(ctx context.Context, s *entity.Schedule) error {
	const query = `
UPDATE schedules SET
       name         = $1,
       semester     = $2,
       group_number = $3,
       plan_id      = $4,
       plan_type    = $5,
       week_days    = $6,
       updated_at   = $7
WHERE id = $8`
	res, err := repo.db.ExecContext(ctx, query,
		s.Name, s.Semester, s.GroupNumber,
		s.ExternalRef.PlanID, s.ExternalRef.Type, s.ExternalRef.WeekDays,
		s.UpdatedAt, s.ID,
	)
	if err != nil {
		return translateError("Update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM schedules WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: %w", entity.ErrNotFound)
	}
	return nil
}
