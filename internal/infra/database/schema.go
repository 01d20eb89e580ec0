package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		message_interval INTEGER NOT NULL DEFAULT 1 CHECK (message_interval > 0),
		interval_unit TEXT NOT NULL DEFAULT 'day' CHECK (interval_unit IN ('day', 'week', 'month')),
		messages_sent_count BIGINT NOT NULL DEFAULT 0,
		responses_received_count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS projects_user_id_idx ON projects (user_id)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		project_id BIGINT REFERENCES projects (id) ON DELETE CASCADE,
		parent_message_id BIGINT REFERENCES messages (id) ON DELETE SET NULL,
		recipient TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'sent', 'responded', 'unresponsive')),
		response_received BOOLEAN NOT NULL DEFAULT FALSE,
		follow_up_count INTEGER NOT NULL DEFAULT 0 CHECK (follow_up_count >= 0),
		follow_up_scheduled BOOLEAN NOT NULL DEFAULT FALSE,
		follow_up_date TIMESTAMPTZ,
		unresponsive_flagged BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS messages_project_status_idx ON messages (project_id, status, updated_at)`,
	`CREATE INDEX IF NOT EXISTS messages_due_follow_up_idx ON messages (follow_up_date) WHERE follow_up_scheduled`,
	`CREATE TABLE IF NOT EXISTS follow_up_templates (
		id BIGSERIAL PRIMARY KEY,
		project_id BIGINT NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
		sequence_order INTEGER NOT NULL CHECK (sequence_order >= 1),
		delay_days INTEGER NOT NULL DEFAULT 3 CHECK (delay_days >= 0),
		template_subject TEXT NOT NULL DEFAULT '',
		template_content TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT follow_up_templates_project_order_unique UNIQUE (project_id, sequence_order)
	)`,
	`CREATE TABLE IF NOT EXISTS outreach_logs (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		recipient TEXT NOT NULL,
		thread_id BIGINT NOT NULL DEFAULT 0,
		outreach_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS outreach_logs_lookup_idx ON outreach_logs (user_id, recipient, outreach_date)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error applying schema statement %d: %w", i, err)
		}
	}
	return nil
}
