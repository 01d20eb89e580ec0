package message

import (
	"context"
	"time"
)

// Repository defines the operations for persisting and retrieving Messages.
type Repository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id int64) (*Message, error)
	ListByUserID(ctx context.Context, userID int64, filter ListFilter) ([]*Message, error)
	// ListDraftsByProject returns drafts oldest first.
	ListDraftsByProject(ctx context.Context, projectID int64) ([]*Message, error)
	// CountSentInWindow counts sent messages whose updated_at falls inside the
	// trailing window, given as a Postgres interval literal ("1 day").
	CountSentInWindow(ctx context.Context, projectID int64, window string) (int, error)
	ListDueFollowUps(ctx context.Context, asOf time.Time) ([]*Message, error)
	Update(ctx context.Context, id int64, patch Patch) (*Message, error)
	Delete(ctx context.Context, id int64) error
	Statistics(ctx context.Context, userID int64) (*Statistics, error)
}
