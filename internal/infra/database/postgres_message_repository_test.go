package database

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"outreach_scheduler/internal/domain/message"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var messageRowColumns = []string{"id", "user_id", "project_id", "parent_message_id", "recipient", "subject", "content",
	"metadata", "status", "response_received", "follow_up_count", "follow_up_scheduled", "follow_up_date",
	"unresponsive_flagged", "created_at", "updated_at"}

func messageRows() *sqlmock.Rows {
	return sqlmock.NewRows(messageRowColumns)
}

func addMessageRow(rows *sqlmock.Rows, id int64, status string, followUpDate any) *sqlmock.Rows {
	now := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	return rows.AddRow(id, int64(1), int64(3), nil, "ada@example.com", "Hello", "Body",
		[]byte(`{"name":"Ada"}`), status, false, 0, followUpDate != nil, followUpDate, false, now, now)
}

func TestPostgresMessageRepository_CreateEncodesMetadata(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMessageRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO messages`)).
		WithArgs(int64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), "ada@example.com", "Hi", "Body",
			[]byte(`{"name":"Ada"}`), "draft", false, 0, false, sqlmock.AnyArg(), false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))

	m := &message.Message{
		UserID:    1,
		ProjectID: sql.NullInt64{Int64: 3, Valid: true},
		Recipient: "ada@example.com",
		Subject:   "Hi",
		Content:   "Body",
		Metadata:  message.Metadata{"name": "Ada"},
	}
	require.NoError(t, repo.Create(context.Background(), m))
	assert.EqualValues(t, 7, m.ID)
	assert.Equal(t, message.StatusDraft, m.Status)
}

func TestPostgresMessageRepository_GetByIDDecodesRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMessageRepository(db)
	due := time.Date(2024, 2, 4, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM messages WHERE id = $1`)).
		WithArgs(int64(7)).
		WillReturnRows(addMessageRow(messageRows(), 7, "sent", due))

	m, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, message.StatusSent, m.Status)
	assert.Equal(t, "Ada", m.Metadata["name"])
	assert.True(t, m.ProjectID.Valid)
	assert.False(t, m.ParentMessageID.Valid)
	assert.True(t, m.FollowUpScheduled)
	assert.Equal(t, due, m.FollowUpDate.Time)
}

func TestPostgresMessageRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM messages WHERE id = $1`)).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestPostgresMessageRepository_ListByUserIDFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = $1 AND status = $2 AND project_id = $3 ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5`)).
		WithArgs(int64(1), "sent", int64(3), 20, 40).
		WillReturnRows(addMessageRow(messageRows(), 1, "sent", nil))

	list, err := repo.ListByUserID(context.Background(), 1, message.ListFilter{Status: message.StatusSent, ProjectID: 3, Offset: 40})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPostgresMessageRepository_ListDraftsByProjectOldestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMessageRepository(db)

	rows := addMessageRow(messageRows(), 1, "draft", nil)
	addMessageRow(rows, 2, "draft", nil)
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at ASC, id ASC`)).
		WithArgs(int64(3)).
		WillReturnRows(rows)

	drafts, err := repo.ListDraftsByProject(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.EqualValues(t, 1, drafts[0].ID)
}

func TestPostgresMessageRepository_CountSentInWindow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`updated_at > NOW() - $2::interval`)).
		WithArgs(int64(3), "1 week").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountSentInWindow(context.Background(), 3, "1 week")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestPostgresMessageRepository_ListDueFollowUps(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMessageRepository(db)
	asOf := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`follow_up_scheduled = TRUE AND follow_up_date <= $1`)).
		WithArgs(asOf).
		WillReturnRows(addMessageRow(messageRows(), 9, "sent", asOf.Add(-time.Hour)))

	due, err := repo.ListDueFollowUps(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.EqualValues(t, 9, due[0].ID)
}

func TestPostgresMessageRepository_UpdateClearsFollowUp(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE messages SET status = $1, response_received = $2, follow_up_scheduled = $3, follow_up_date = $4, updated_at = NOW() WHERE id = $5 RETURNING`)).
		WithArgs("responded", true, false, nil, int64(9)).
		WillReturnRows(addMessageRow(messageRows(), 9, "responded", nil))

	patch := message.ClearFollowUp()
	responded := message.StatusResponded
	received := true
	patch.Status = &responded
	patch.ResponseReceived = &received

	m, err := repo.Update(context.Background(), 9, patch)
	require.NoError(t, err)
	assert.Equal(t, message.StatusResponded, m.Status)
	assert.False(t, m.FollowUpDate.Valid)
}

func TestPostgresMessageRepository_UpdateMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE messages SET`)).
		WillReturnError(sql.ErrNoRows)

	subject := "x"
	_, err := repo.Update(context.Background(), 1, message.Patch{Subject: &subject})
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestPostgresMessageRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMessageRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM messages WHERE id = $1`)).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM messages WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnError(errors.New("connection reset"))

	require.NoError(t, repo.Delete(context.Background(), 2))
	err := repo.Delete(context.Background(), 3)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMessageNotFound)
}

func TestPostgresMessageRepository_Statistics(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM messages`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "sent", "responded", "unresponsive", "scheduled", "follow_ups"}).
			AddRow(10, 4, 1, 2, 3, 2))

	st, err := repo.Statistics(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 10, st.Total)
	assert.InDelta(t, 25.0, st.ResponseRate, 0.001)
}
