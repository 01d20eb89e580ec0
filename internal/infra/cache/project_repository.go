package cache

import (
	"context"

	"outreach_scheduler/internal/domain/message"
	"outreach_scheduler/internal/domain/project"
)

// cascadePageSize bounds each read of a deleted project's messages.
const cascadePageSize = 200

// ProjectRepository adds cache-aside reads to a project.Repository.
// messages is only read to find the entries a cascading delete removes.
type ProjectRepository struct {
	project.Repository
	messages message.Repository
	aside    *Aside
}

func NewProjectRepository(inner project.Repository, messages message.Repository, aside *Aside) *ProjectRepository {
	return &ProjectRepository{Repository: inner, messages: messages, aside: aside}
}

func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*project.Project, error) {
	return GetOrLoad(ctx, r.aside, ProjectKey(id), func(ctx context.Context) (*project.Project, error) {
		return r.Repository.GetByID(ctx, id)
	})
}

func (r *ProjectRepository) ListByUserID(ctx context.Context, userID int64) ([]*project.Project, error) {
	return GetOrLoad(ctx, r.aside, ProjectUserKey(userID), func(ctx context.Context) ([]*project.Project, error) {
		return r.Repository.ListByUserID(ctx, userID)
	})
}

func (r *ProjectRepository) Create(ctx context.Context, p *project.Project) error {
	if err := r.Repository.Create(ctx, p); err != nil {
		return err
	}
	r.aside.Invalidate(ctx, ProjectKey(p.ID), ProjectUserKey(p.UserID))
	return nil
}

func (r *ProjectRepository) Update(ctx context.Context, id int64, patch project.Patch) (*project.Project, error) {
	updated, err := r.Repository.Update(ctx, id, patch)
	if err != nil {
		r.aside.Invalidate(ctx, ProjectKey(id))
		return nil, err
	}
	r.aside.Invalidate(ctx, ProjectKey(id), ProjectUserKey(updated.UserID))
	return updated, nil
}

func (r *ProjectRepository) IncrementStats(ctx context.Context, id int64, delta project.StatsDelta) (*project.Project, error) {
	updated, err := r.Repository.IncrementStats(ctx, id, delta)
	if err != nil {
		r.aside.Invalidate(ctx, ProjectKey(id))
		return nil, err
	}
	r.aside.Invalidate(ctx, ProjectKey(id), ProjectUserKey(updated.UserID))
	return updated, nil
}

// Delete also evicts the messages the database removes with the project.
func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	keys := []string{ProjectKey(id)}
	if existing, err := r.Repository.GetByID(ctx, id); err == nil {
		keys = append(keys, ProjectUserKey(existing.UserID), MessageUserKey(existing.UserID))
		keys = append(keys, r.messageKeys(ctx, existing)...)
	}
	err := r.Repository.Delete(ctx, id)
	r.aside.Invalidate(ctx, keys...)
	return err
}

func (r *ProjectRepository) messageKeys(ctx context.Context, p *project.Project) []string {
	var keys []string
	filter := message.ListFilter{ProjectID: p.ID, Limit: cascadePageSize}
	for {
		page, err := r.messages.ListByUserID(ctx, p.UserID, filter)
		if err != nil {
			r.aside.log.WithError(err).WithField("project_id", p.ID).
				Warn("Could not list project messages, their cache entries expire by TTL")
			return keys
		}
		for _, m := range page {
			keys = append(keys, MessageKey(m.ID))
		}
		if len(page) < cascadePageSize {
			return keys
		}
		filter.Offset += cascadePageSize
	}
}
