package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"outreach_scheduler/internal/domain/template"

	"github.com/lib/pq"
)

var ErrTemplateNotFound = fmt.Errorf("follow-up template not found")
var ErrDuplicateSequenceOrder = fmt.Errorf("follow-up template with this sequence order already exists for the project")

const (
	templateColumns          = `id, project_id, sequence_order, delay_days, template_subject, template_content, created_at, updated_at`
	templateOrderConstraint  = "follow_up_templates_project_order_unique"
	pqUniqueViolationErrCode = "23505"
)

type PostgresTemplateRepository struct {
	db *sql.DB
}

func NewPostgresTemplateRepository(db *sql.DB) *PostgresTemplateRepository {
	return &PostgresTemplateRepository{db: db}
}

func (r *PostgresTemplateRepository) Create(ctx context.Context, t *template.FollowUpTemplate) error {
	query := `INSERT INTO follow_up_templates (project_id, sequence_order, delay_days, template_subject, template_content, created_at, updated_at)
               VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, t.ProjectID, t.SequenceOrder, t.DelayDays, t.TemplateSubject, t.TemplateContent).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolationErrCode && pqErr.Constraint == templateOrderConstraint {
			return ErrDuplicateSequenceOrder
		}
		return fmt.Errorf("error creating follow-up template: %w", err)
	}
	return nil
}

func (r *PostgresTemplateRepository) GetByID(ctx context.Context, id int64) (*template.FollowUpTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM follow_up_templates WHERE id = $1`
	t := template.FollowUpTemplate{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.ProjectID, &t.SequenceOrder, &t.DelayDays,
		&t.TemplateSubject, &t.TemplateContent, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("error getting follow-up template by ID: %w", err)
	}
	return &t, nil
}

func (r *PostgresTemplateRepository) FindByProjectID(ctx context.Context, projectID int64) ([]*template.FollowUpTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM follow_up_templates WHERE project_id = $1 ORDER BY sequence_order ASC`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("error listing follow-up templates for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var templates []*template.FollowUpTemplate
	for rows.Next() {
		t := template.FollowUpTemplate{}
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.SequenceOrder, &t.DelayDays,
			&t.TemplateSubject, &t.TemplateContent, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning follow-up template row: %w", err)
		}
		templates = append(templates, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating follow-up template rows: %w", err)
	}
	return templates, nil
}
