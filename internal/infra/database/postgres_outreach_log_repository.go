package database

import (
	"context"
	"database/sql"
	"fmt"

	"outreach_scheduler/internal/domain/outreach"
)

// PostgresOutreachLog implements outreach.Guard on the outreach_logs table.
type PostgresOutreachLog struct {
	db     *sql.DB
	window string
}

// NewPostgresOutreachLog uses window as the spam-prevention period ("1 month", "30 days").
func NewPostgresOutreachLog(db *sql.DB, window string) *PostgresOutreachLog {
	if window == "" {
		window = outreach.DefaultWindow
	}
	return &PostgresOutreachLog{db: db, window: window}
}

func (r *PostgresOutreachLog) RecordContact(ctx context.Context, c outreach.Contact) error {
	query := `INSERT INTO outreach_logs (user_id, recipient, thread_id, outreach_date) VALUES ($1, $2, $3, NOW())`
	if _, err := r.db.ExecContext(ctx, query, c.UserID, c.Recipient, c.ThreadID); err != nil {
		return fmt.Errorf("error recording outreach for user %d: %w", c.UserID, err)
	}
	return nil
}

func (r *PostgresOutreachLog) WasContactedRecently(ctx context.Context, c outreach.Contact) (bool, error) {
	query := `SELECT EXISTS (
                  SELECT 1 FROM outreach_logs
                  WHERE user_id = $1
                    AND recipient = $2
                    AND thread_id <> $3
                    AND outreach_date > NOW() - $4::interval)`
	var contacted bool
	if err := r.db.QueryRowContext(ctx, query, c.UserID, c.Recipient, c.ThreadID, r.window).Scan(&contacted); err != nil {
		return false, fmt.Errorf("error checking outreach history for user %d: %w", c.UserID, err)
	}
	return contacted, nil
}
