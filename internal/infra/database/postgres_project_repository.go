// internal/infra/database/postgres_project_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"outreach_scheduler/internal/domain/project"
)

var ErrProjectNotFound = fmt.Errorf("project not found")

const projectColumns = `id, user_id, name, message_interval, interval_unit,
	messages_sent_count, responses_received_count, created_at, updated_at`

type PostgresProjectRepository struct {
	db *sql.DB
}

func NewPostgresProjectRepository(db *sql.DB) *PostgresProjectRepository {
	return &PostgresProjectRepository{db: db}
}

func (r *PostgresProjectRepository) Create(ctx context.Context, p *project.Project) error {
	if p.MessageInterval <= 0 {
		p.MessageInterval = project.DefaultMessageInterval
	}
	if p.IntervalUnit == "" {
		p.IntervalUnit = project.DefaultIntervalUnit
	}
	query := `INSERT INTO projects (user_id, name, message_interval, interval_unit, created_at, updated_at)
               VALUES ($1, $2, $3, $4, NOW(), NOW())
               RETURNING id, messages_sent_count, responses_received_count, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, p.UserID, p.Name, p.MessageInterval, p.IntervalUnit).
		Scan(&p.ID, &p.MessagesSentCount, &p.ResponsesReceivedCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating project: %w", err)
	}
	return nil
}

func (r *PostgresProjectRepository) GetByID(ctx context.Context, id int64) (*project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	p, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("error getting project by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresProjectRepository) ListByUserID(ctx context.Context, userID int64) ([]*project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE user_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing projects for user %d: %w", userID, err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

func (r *PostgresProjectRepository) ListPage(ctx context.Context, offset, limit int) ([]*project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY id OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing projects page (offset %d): %w", offset, err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

func (r *PostgresProjectRepository) Update(ctx context.Context, id int64, patch project.Patch) (*project.Project, error) {
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
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.MessageInterval != nil {
		add("message_interval", *patch.MessageInterval)
	}
	if patch.IntervalUnit != nil {
		add("interval_unit", *patch.IntervalUnit)
	}
	fields = append(fields, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE projects SET %s WHERE id = $%d RETURNING `+projectColumns,
		strings.Join(fields, ", "), len(args))
	p, err := scanProject(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("error updating project %d: %w", id, err)
	}
	return p, nil
}

// IncrementStats bumps both counters in one statement so concurrent senders never lose updates.
func (r *PostgresProjectRepository) IncrementStats(ctx context.Context, id int64, delta project.StatsDelta) (*project.Project, error) {
	query := `UPDATE projects
               SET messages_sent_count = messages_sent_count + $1,
                   responses_received_count = responses_received_count + $2,
                   updated_at = NOW()
               WHERE id = $3
               RETURNING ` + projectColumns
	p, err := scanProject(r.db.QueryRowContext(ctx, query, delta.MessagesSent, delta.ResponsesReceived, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("error incrementing stats for project %d: %w", id, err)
	}
	return p, nil
}

func (r *PostgresProjectRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting project %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows for project %d: %w", id, err)
	}
	if affected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*project.Project, error) {
	p := project.Project{}
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.MessageInterval, &p.IntervalUnit,
		&p.MessagesSentCount, &p.ResponsesReceivedCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProjects(rows *sql.Rows) ([]*project.Project, error) {
	var projects []*project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning project row: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}
	return projects, nil
}
