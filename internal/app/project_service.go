package app

import (
	"context"
	"fmt"
	"strings"

	"outreach_scheduler/internal/domain/project"
	"outreach_scheduler/internal/domain/template"

	"github.com/sirupsen/logrus"
)

type NewProject struct {
	UserID          int64
	Name            string
	MessageInterval int
	IntervalUnit    project.IntervalUnit
}

// ProjectStats is the aggregate shown on a project's dashboard.
type ProjectStats struct {
	MessagesSentCount      int64   `json:"messagesSentCount"`
	ResponsesReceivedCount int64   `json:"responsesReceivedCount"`
	ResponseRate           float64 `json:"responseRate"`
}

// ProjectService manages project settings and their follow-up sequences.
type ProjectService struct {
	projects  project.Repository
	templates template.Repository
	logger    *logrus.Entry
}

func NewProjectService(projects project.Repository, templates template.Repository, logger *logrus.Entry) *ProjectService {
	return &ProjectService{projects: projects, templates: templates, logger: logger}
}

func (s *ProjectService) Create(ctx context.Context, in NewProject) (*project.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.UserID <= 0 || in.Name == "" {
		return nil, fmt.Errorf("%w: user id and name are required", ErrInvalidInput)
	}
	if in.MessageInterval == 0 {
		in.MessageInterval = project.DefaultMessageInterval
	}
	if in.IntervalUnit == "" {
		in.IntervalUnit = project.DefaultIntervalUnit
	}
	if err := validateQuota(in.MessageInterval, in.IntervalUnit); err != nil {
		return nil, err
	}

	p := &project.Project{
		UserID:          in.UserID,
		Name:            in.Name,
		MessageInterval: in.MessageInterval,
		IntervalUnit:    in.IntervalUnit,
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"project_id": p.ID, "user_id": p.UserID}).Info("Project created")
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, id int64) (*project.Project, error) {
	return s.projects.GetByID(ctx, id)
}

func (s *ProjectService) ListByUser(ctx context.Context, userID int64) ([]*project.Project, error) {
	return s.projects.ListByUserID(ctx, userID)
}

func (s *ProjectService) Update(ctx context.Context, id int64, patch project.Patch) (*project.Project, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}
	if patch.MessageInterval != nil && *patch.MessageInterval <= 0 {
		return nil, fmt.Errorf("%w: message interval must be positive", ErrInvalidInput)
	}
	if patch.IntervalUnit != nil && !patch.IntervalUnit.Valid() {
		return nil, fmt.Errorf("%w: unknown interval unit %q", ErrInvalidInput, *patch.IntervalUnit)
	}
	return s.projects.Update(ctx, id, patch)
}

func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("project_id", id).Info("Project deleted")
	return nil
}

// IncrementStats applies delta atomically in the store.
func (s *ProjectService) IncrementStats(ctx context.Context, id int64, delta project.StatsDelta) (*project.Project, error) {
	if delta.MessagesSent < 0 || delta.ResponsesReceived < 0 {
		return nil, fmt.Errorf("%w: counters are never decremented", ErrInvalidInput)
	}
	return s.projects.IncrementStats(ctx, id, delta)
}

func (s *ProjectService) Stats(ctx context.Context, id int64) (*ProjectStats, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ProjectStats{
		MessagesSentCount:      p.MessagesSentCount,
		ResponsesReceivedCount: p.ResponsesReceivedCount,
		ResponseRate:           p.ResponseRate(),
	}, nil
}

// CreateTemplate appends a step to the project's follow-up sequence.
func (s *ProjectService) CreateTemplate(ctx context.Context, t *template.FollowUpTemplate) error {
	if t.SequenceOrder < 1 {
		return fmt.Errorf("%w: sequence order starts at 1", ErrInvalidInput)
	}
	if t.DelayDays < 0 {
		return fmt.Errorf("%w: delay days must not be negative", ErrInvalidInput)
	}
	if _, err := s.projects.GetByID(ctx, t.ProjectID); err != nil {
		return err
	}
	if err := s.templates.Create(ctx, t); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"project_id":     t.ProjectID,
		"template_id":    t.ID,
		"sequence_order": t.SequenceOrder,
	}).Info("Follow-up template created")
	return nil
}

func (s *ProjectService) Templates(ctx context.Context, projectID int64) ([]*template.FollowUpTemplate, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.templates.FindByProjectID(ctx, projectID)
}

func validateQuota(interval int, unit project.IntervalUnit) error {
	if interval <= 0 {
		return fmt.Errorf("%w: message interval must be positive", ErrInvalidInput)
	}
	if !unit.Valid() {
		return fmt.Errorf("%w: unknown interval unit %q", ErrInvalidInput, unit)
	}
	return nil
}
