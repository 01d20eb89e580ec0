package template

import "context"

type Repository interface {
	Create(ctx context.Context, t *FollowUpTemplate) error
	GetByID(ctx context.Context, id int64) (*FollowUpTemplate, error)
	// FindByProjectID returns the sequence sorted by SequenceOrder ascending.
	FindByProjectID(ctx context.Context, projectID int64) ([]*FollowUpTemplate, error)
}
