package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements is applied in order by MigrateUp. Every statement is
// idempotent so both services may run it on startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS schedules (
    id           UUID PRIMARY KEY,
    name         TEXT NOT NULL,
    semester     INTEGER NOT NULL,
    group_number INTEGER NOT NULL DEFAULT 0,
    plan_id      BIGINT NOT NULL,
    plan_type    TEXT NOT NULL,
    week_days    TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (plan_id, plan_type, week_days)
)`,
	`CREATE TABLE IF NOT EXISTS courses (
    id              UUID PRIMARY KEY,
    schedule_id     UUID NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    course_type     VARCHAR(16) NOT NULL,
    teachers        TEXT NOT NULL DEFAULT '',
    day_of_week     SMALLINT NOT NULL,
    start_minute    SMALLINT NOT NULL,
    end_minute      SMALLINT NOT NULL,
    week_parity     VARCHAR(8) NOT NULL,
    classroom       TEXT NOT NULL DEFAULT '',
    additional_info TEXT NOT NULL DEFAULT '',
    CHECK (end_minute > start_minute)
)`,
	`CREATE TABLE IF NOT EXISTS webhooks (
    id         UUID PRIMARY KEY,
    discord_id TEXT NOT NULL,
    token      TEXT NOT NULL,
    added_by   TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (discord_id, token)
)`,
	`CREATE TABLE IF NOT EXISTS webhook_schedules (
    webhook_id  UUID NOT NULL REFERENCES webhooks(id) ON DELETE CASCADE,
    schedule_id UUID NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
    PRIMARY KEY (webhook_id, schedule_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_courses_schedule_id ON courses(schedule_id)`,
	`CREATE INDEX IF NOT EXISTS idx_webhooks_added_by ON webhooks(added_by)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_schedules_schedule_id ON webhook_schedules(schedule_id)`,
}

var dropStatements = []string{
	`DROP TABLE IF EXISTS webhook_schedules`,
	`DROP TABLE IF EXISTS webhooks`,
	`DROP TABLE IF EXISTS courses`,
	`DROP TABLE IF EXISTS schedules`,
}

// MigrateUp creates the schema if it does not exist yet.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate up: statement %d: %w", i+1, err)
		}
	}
	return nil
}

// MigrateDown drops every table in reverse dependency order.
// Use with caution: this will delete all data.
func MigrateDown(ctx context.Context, db *sql.DB) error {
	for _, stmt := range dropStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	}
	return nil
}
