package cache

import (
	"context"

	"outreach_scheduler/internal/domain/message"
)

// MessageRepository adds cache-aside reads to a message.Repository.
// Every write invalidates message:{id} and message:user:{userId} before returning.
type MessageRepository struct {
	message.Repository
	aside *Aside
}

func NewMessageRepository(inner message.Repository, aside *Aside) *MessageRepository {
	return &MessageRepository{Repository: inner, aside: aside}
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*message.Message, error) {
	return GetOrLoad(ctx, r.aside, MessageKey(id), func(ctx context.Context) (*message.Message, error) {
		return r.Repository.GetByID(ctx, id)
	})
}

// ListByUserID only caches the unfiltered first page.
func (r *MessageRepository) ListByUserID(ctx context.Context, userID int64, filter message.ListFilter) ([]*message.Message, error) {
	if filter != (message.ListFilter{}) {
		return r.Repository.ListByUserID(ctx, userID, filter)
	}
	return GetOrLoad(ctx, r.aside, MessageUserKey(userID), func(ctx context.Context) ([]*message.Message, error) {
		return r.Repository.ListByUserID(ctx, userID, filter)
	})
}

func (r *MessageRepository) Create(ctx context.Context, m *message.Message) error {
	if err := r.Repository.Create(ctx, m); err != nil {
		return err
	}
	r.aside.Invalidate(ctx, MessageKey(m.ID), MessageUserKey(m.UserID))
	return nil
}

func (r *MessageRepository) Update(ctx context.Context, id int64, patch message.Patch) (*message.Message, error) {
	updated, err := r.Repository.Update(ctx, id, patch)
	if err != nil {
		r.aside.Invalidate(ctx, MessageKey(id))
		return nil, err
	}
	r.aside.Invalidate(ctx, MessageKey(id), MessageUserKey(updated.UserID))
	return updated, nil
}

func (r *MessageRepository) Delete(ctx context.Context, id int64) error {
	keys := []string{MessageKey(id)}
	if existing, err := r.Repository.GetByID(ctx, id); err == nil {
		keys = append(keys, MessageUserKey(existing.UserID))
	}
	err := r.Repository.Delete(ctx, id)
	r.aside.Invalidate(ctx, keys...)
	return err
}
