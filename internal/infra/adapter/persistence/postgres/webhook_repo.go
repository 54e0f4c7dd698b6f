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

const webhookColumns = `w.id, w.discord_id, w.token, w.added_by, w.created_at, w.updated_at`

type WebhookRepo struct{ db *sql.DB }

func NewWebhookRepo(db *sql.DB) repository.WebhookRepository {
	return &WebhookRepo{db: db}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func scanWebhook(row rowScanner) (*entity.Webhook, error) {
	var w entity.Webhook
	if err := row.Scan(
		&w.ID, &w.Identity.DiscordID, &w.Identity.Token, &w.AddedBy, &w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &w, nil
}

// attachSchedules loads the subscription list of every webhook in one query.
func attachSchedules(ctx context.Context, q queryer, webhooks []*entity.Webhook) error {
	if len(webhooks) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*entity.Webhook, len(webhooks))
	ids := make([]uuid.UUID, 0, len(webhooks))
	for _, w := range webhooks {
		byID[w.ID] = w
		ids = append(ids, w.ID)
	}

	clause, args := buildInClause("webhook_id", ids, 1)
	query := `SELECT webhook_id, schedule_id FROM webhook_schedules WHERE ` + clause + ` ORDER BY webhook_id, schedule_id`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var webhookID, scheduleID uuid.UUID
		if err := rows.Scan(&webhookID, &scheduleID); err != nil {
			return err
		}
		if w, ok := byID[webhookID]; ok {
			w.ScheduleIDs = append(w.ScheduleIDs, scheduleID)
		}
	}
	return rows.Err()
}

func (repo *WebhookRepo) queryWebhooks(ctx context.Context, query string, args ...interface{}) ([]*entity.Webhook, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	webhooks := make([]*entity.Webhook, 0, 16)
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachSchedules(ctx, repo.db, webhooks); err != nil {
		return nil, err
	}
	return webhooks, nil
}

func (repo *WebhookRepo) getOne(ctx context.Context, op, query string, args ...interface{}) (*entity.Webhook, error) {
	w, err := scanWebhook(repo.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := attachSchedules(ctx, repo.db, []*entity.Webhook{w}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return w, nil
}

func (repo *WebhookRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Webhook, error) {
	const query = `SELECT ` + webhookColumns + `
FROM webhooks w
WHERE w.id = $1`
	return repo.getOne(ctx, "Get", query, id)
}

func (repo *WebhookRepo) FindByIdentity(ctx context.Context, identity entity.DiscordWebhookIdentity) (*entity.Webhook, error) {
	const query = `SELECT ` + webhookColumns + `
FROM webhooks w
WHERE w.discord_id = $1 AND w.token = $2`
	return repo.getOne(ctx, "FindByIdentity", query, identity.DiscordID, identity.Token)
}

func (repo *WebhookRepo) List(ctx context.Context, offset, limit int) ([]*entity.Webhook, error) {
	const query = `SELECT ` + webhookColumns + `
FROM webhooks w
ORDER BY w.created_at ASC, w.id ASC
LIMIT $1 OFFSET $2`
	webhooks, err := repo.queryWebhooks(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return webhooks, nil
}

func (repo *WebhookRepo) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM webhooks`
	var n int64
	if err := repo.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

func (repo *WebhookRepo) ListByOwner(ctx context.Context, owner string, offset, limit int) ([]*entity.Webhook, error) {
	const query = `SELECT ` + webhookColumns + `
FROM webhooks w
WHERE w.added_by = $1
ORDER BY w.created_at ASC, w.id ASC
LIMIT $2 OFFSET $3`
	webhooks, err := repo.queryWebhooks(ctx, query, owner, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ListByOwner: %w", err)
	}
	return webhooks, nil
}

func (repo *WebhookRepo) CountByOwner(ctx context.Context, owner string) (int64, error) {
	const query = `SELECT COUNT(*) FROM webhooks WHERE added_by = $1`
	var n int64
	if err := repo.db.QueryRowContext(ctx, query, owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountByOwner: %w", err)
	}
	return n, nil
}

func (repo *WebhookRepo) ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*entity.Webhook, error) {
	const query = `SELECT ` + webhookColumns + `
FROM webhooks w
JOIN webhook_schedules ws ON ws.webhook_id = w.id
WHERE ws.schedule_id = $1
ORDER BY w.created_at ASC, w.id ASC`
	webhooks, err := repo.queryWebhooks(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("ListBySchedule: %w", err)
	}
	return webhooks, nil
}

func insertLinks(ctx context.Context, ex execer, webhookID uuid.UUID, scheduleIDs []uuid.UUID) error {
	const query = `INSERT INTO webhook_schedules (webhook_id, schedule_id) VALUES ($1, $2)`
	for _, scheduleID := range uniqueIDs(scheduleIDs) {
		if _, err := ex.ExecContext(ctx, query, webhookID, scheduleID); err != nil {
			return err
		}
	}
	return nil
}

// Create inserts the webhook and its subscriptions atomically. A taken
// identity surfaces as repository.ErrDuplicate.
func (repo *WebhookRepo) Create(ctx context.Context, w *entity.Webhook) (err error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Create: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `
INSERT INTO webhooks (id, discord_id, token, added_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, query,
		w.ID, w.Identity.DiscordID, w.Identity.Token, w.AddedBy, w.CreatedAt, w.UpdatedAt,
	); err != nil {
		return translateError("Create", err)
	}
	if err = insertLinks(ctx, tx, w.ID, w.ScheduleIDs); err != nil {
		return translateError("Create: link schedules", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("Create: commit: %w", err)
	}
	return nil
}

// Update replaces identity and subscriptions atomically.
func (repo *WebhookRepo) Update(ctx context.Context, w *entity.Webhook) (err error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Update: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `
UPDATE webhooks SET
       discord_id = $1,
       token      = $2,
       updated_at = $3
WHERE id = $4`
	res, err := tx.ExecContext(ctx, query, w.Identity.DiscordID, w.Identity.Token, w.UpdatedAt, w.ID)
	if err != nil {
		return translateError("Update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = fmt.Errorf("Update: %w", entity.ErrNotFound)
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM webhook_schedules WHERE webhook_id = $1`, w.ID); err != nil {
		return fmt.Errorf("Update: unlink schedules: %w", err)
	}
	if err = insertLinks(ctx, tx, w.ID, w.ScheduleIDs); err != nil {
		return translateError("Update: link schedules", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("Update: commit: %w", err)
	}
	return nil
}

func (repo *WebhookRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM webhooks WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: %w", entity.ErrNotFound)
	}
	return nil
}
