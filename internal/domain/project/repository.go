package project

import "context"

// Repository defines the operations for persisting and retrieving Projects.
type Repository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id int64) (*Project, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Project, error)
	// ListPage returns projects ordered by id ascending.
	ListPage(ctx context.Context, offset, limit int) ([]*Project, error)
	Update(ctx context.Context, id int64, patch Patch) (*Project, error)
	// IncrementStats must be atomic at the storage layer.
	IncrementStats(ctx context.Context, id int64, delta StatsDelta) (*Project, error)
	Delete(ctx context.Context, id int64) error
}
