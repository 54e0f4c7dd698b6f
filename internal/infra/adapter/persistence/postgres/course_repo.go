package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"course-watch/internal/domain/entity"
	"course-watch/internal/repository"
)

type CourseRepo struct{ db *sql.DB }

func NewCourseRepo(db *sql.DB) repository.CourseRepository {
	return &CourseRepo{db: db}
}

func scanCourse(row rowScanner) (*entity.Course, error) {
	var (
		c                  entity.Course
		day, start, end    int
		courseType, parity string
	)
	if err := row.Scan(
		&c.ID, &c.ScheduleID, &c.Name, &c.Description, &courseType, &c.Teachers,
		&day, &start, &end, &parity, &c.Classroom, &c.AdditionalInfo,
	); err != nil {
		return nil, err
	}
	c.Type = entity.CourseType(courseType)
	c.DayOfWeek = time.Weekday(day)
	c.Start = entity.ClockTime(start)
	c.End = entity.ClockTime(end)
	c.Parity = entity.WeekParity(parity)
	return &c, nil
}

func (repo *CourseRepo) ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*entity.Course, error) {
	const query = `
SELECT id, schedule_id, name, description, course_type, teachers,
       day_of_week, start_minute, end_minute, week_parity, classroom, additional_info
FROM courses
WHERE schedule_id = $1
ORDER BY day_of_week ASC, start_minute ASC, name ASC`
	rows, err := repo.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("ListBySchedule: %w", err)
	}
	defer func() { _ = rows.Close() }()

	courses := make([]*entity.Course, 0, 64)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("ListBySchedule: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// ApplyChanges deletes, updates and inserts courses of one schedule inside a
// single transaction. Any failure rolls the whole set back.
func (repo *CourseRepo) ApplyChanges(ctx context.Context, scheduleID uuid.UUID, changes entity.CourseChanges) (err error) {
	if changes.Empty() {
		return nil
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ApplyChanges: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if len(changes.Delete) > 0 {
		clause, args := buildInClause("id", changes.Delete, 2)
		query := `DELETE FROM courses WHERE schedule_id = $1 AND ` + clause
		if _, err = tx.ExecContext(ctx, query, append([]interface{}{scheduleID}, args...)...); err != nil {
			return fmt.Errorf("ApplyChanges: delete: %w", err)
		}
	}

	const updateQuery = `
UPDATE courses SET
       description     = $1,
       teachers        = $2,
       week_parity     = $3,
       classroom       = $4,
       additional_info = $5
WHERE id = $6 AND schedule_id = $7`
	for _, c := range changes.Update {
		var res sql.Result
		res, err = tx.ExecContext(ctx, updateQuery,
			c.Description, c.Teachers, string(c.Parity), c.Classroom, c.AdditionalInfo,
			c.ID, scheduleID,
		)
		if err != nil {
			return fmt.Errorf("ApplyChanges: update %s: %w", c.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			err = fmt.Errorf("ApplyChanges: update %s: %w", c.ID, entity.ErrNotFound)
			return err
		}
	}

	const insertQuery = `
INSERT INTO courses (id, schedule_id, name, description, course_type, teachers,
                     day_of_week, start_minute, end_minute, week_parity, classroom, additional_info)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	for _, c := range changes.Create {
		if _, err = tx.ExecContext(ctx, insertQuery,
			c.ID, scheduleID, c.Name, c.Description, string(c.Type), c.Teachers,
			int(c.DayOfWeek), int(c.Start), int(c.End), string(c.Parity), c.Classroom, c.AdditionalInfo,
		); err != nil {
			return translateError("ApplyChanges: insert", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ApplyChanges: commit: %w", err)
	}
	return nil
}
