// internal/infra/database/postgres_message_repository.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"outreach_scheduler/internal/domain/message"
)

var ErrMessageNotFound = fmt.Errorf("message not found")

const (
	messageColumns = `id, user_id, project_id, parent_message_id, recipient, subject, content, metadata,
	status, response_received, follow_up_count, follow_up_scheduled, follow_up_date,
	unresponsive_flagged, created_at, updated_at`

	defaultMessageListLimit = 20
)

type PostgresMessageRepository struct {
	db *sql.DB
}

func NewPostgresMessageRepository(db *sql.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	if m.Status == "" {
		m.Status = message.StatusDraft
	}
	metadata, err := encodeMetadata(m.Metadata)
	if err != nil {
		return err
	}
	query := `INSERT INTO messages (
                  user_id, project_id, parent_message_id, recipient, subject, content, metadata, status,
                  response_received, follow_up_count, follow_up_scheduled, follow_up_date,
                  unresponsive_flagged, created_at, updated_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
               RETURNING id, created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query,
		m.UserID, m.ProjectID, m.ParentMessageID, m.Recipient, m.Subject, m.Content, metadata, m.Status,
		m.ResponseReceived, m.FollowUpCount, m.FollowUpScheduled, m.FollowUpDate, m.UnresponsiveFlagged,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating message: %w", err)
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id int64) (*message.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	m, err := scanMessage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("error getting message by ID: %w", err)
	}
	return m, nil
}

func (r *PostgresMessageRepository) ListByUserID(ctx context.Context, userID int64, filter message.ListFilter) ([]*message.Message, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + messageColumns + ` FROM messages WHERE user_id = $1`)
	args := []any{userID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	if filter.ProjectID > 0 {
		args = append(args, filter.ProjectID)
		fmt.Fprintf(&sb, " AND project_id = $%d", len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultMessageListLimit
	}
	args = append(args, limit, filter.Offset)
	fmt.Fprintf(&sb, " ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("error listing messages for user %d: %w", userID, err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *PostgresMessageRepository) ListDraftsByProject(ctx context.Context, projectID int64) ([]*message.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
               WHERE project_id = $1 AND status = 'draft'
               ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("error listing drafts for project %d: %w", projectID, err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *PostgresMessageRepository) CountSentInWindow(ctx context.Context, projectID int64, window string) (int, error) {
	query := `SELECT COUNT(*) FROM messages
               WHERE project_id = $1
                 AND status = 'sent'
                 AND updated_at > NOW() - $2::interval`
	var count int
	if err := r.db.QueryRowContext(ctx, query, projectID, window).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting sent messages for project %d: %w", projectID, err)
	}
	return count, nil
}

func (r *PostgresMessageRepository) ListDueFollowUps(ctx context.Context, asOf time.Time) ([]*message.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
               WHERE follow_up_scheduled = TRUE AND follow_up_date <= $1
               ORDER BY follow_up_date ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("error listing due follow-ups: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *PostgresMessageRepository) Update(ctx context.Context, id int64, patch message.Patch) (*message.Message, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}

	var (
		fields []string
		args   []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		fields = append(fields, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Recipient != nil {
		add("recipient", *patch.Recipient)
	}
	if patch.Subject != nil {
		add("subject", *patch.Subject)
	}
	if patch.Content != nil {
		add("content", *patch.Content)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.ResponseReceived != nil {
		add("response_received", *patch.ResponseReceived)
	}
	if patch.FollowUpCount != nil {
		add("follow_up_count", *patch.FollowUpCount)
	}
	if patch.FollowUpScheduled != nil {
		add("follow_up_scheduled", *patch.FollowUpScheduled)
	}
	if patch.FollowUpDate != nil {
		add("follow_up_date", *patch.FollowUpDate)
	}
	if patch.UnresponsiveFlagged != nil {
		add("unresponsive_flagged", *patch.UnresponsiveFlagged)
	}
	fields = append(fields, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE messages SET %s WHERE id = $%d RETURNING `+messageColumns,
		strings.Join(fields, ", "), len(args))
	m, err := scanMessage(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("error updating message %d: %w", id, err)
	}
	return m, nil
}

func (r *PostgresMessageRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting message %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows for message %d: %w", id, err)
	}
	if affected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) Statistics(ctx context.Context, userID int64) (*message.Statistics, error) {
	query := `SELECT
                  COUNT(*),
                  COALESCE(SUM(CASE WHEN status = 'sent' THEN 1 ELSE 0 END), 0),
                  COALESCE(SUM(CASE WHEN status = 'responded' THEN 1 ELSE 0 END), 0),
                  COALESCE(SUM(CASE WHEN status = 'unresponsive' THEN 1 ELSE 0 END), 0),
                  COALESCE(SUM(CASE WHEN follow_up_scheduled THEN 1 ELSE 0 END), 0),
                  COALESCE(SUM(CASE WHEN follow_up_count > 0 THEN 1 ELSE 0 END), 0)
               FROM messages
               WHERE user_id = $1`
	st := message.Statistics{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&st.Total, &st.Sent, &st.Responded, &st.Unresponsive, &st.FollowUpsScheduled, &st.FollowUpsSent)
	if err != nil {
		return nil, fmt.Errorf("error getting message statistics for user %d: %w", userID, err)
	}
	if st.Sent > 0 {
		st.ResponseRate = float64(st.Responded) / float64(st.Sent) * 100
	}
	return &st, nil
}

func scanMessage(row rowScanner) (*message.Message, error) {
	m := message.Message{}
	var metadata []byte
	err := row.Scan(&m.ID, &m.UserID, &m.ProjectID, &m.ParentMessageID, &m.Recipient, &m.Subject, &m.Content,
		&metadata, &m.Status, &m.ResponseReceived, &m.FollowUpCount, &m.FollowUpScheduled, &m.FollowUpDate,
		&m.UnresponsiveFlagged, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &m.Metadata); err != nil {
			return nil, fmt.Errorf("error decoding metadata of message %d: %w", m.ID, err)
		}
	}
	return &m, nil
}

func scanMessages(rows *sql.Rows) ([]*message.Message, error) {
	var messages []*message.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return messages, nil
}

func encodeMetadata(md message.Metadata) ([]byte, error) {
	if md == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("error encoding message metadata: %w", err)
	}
	return b, nil
}
