package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fabtrack/internal/core/domain"
)

type ProjectRepo struct {
	db *sql.DB
}

func NewProjectRepo(db *sql.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

/*
	CREATE TABLE projects (
		id                 UUID PRIMARY KEY,
		name               TEXT NOT NULL,
		description        TEXT NOT NULL DEFAULT '',
		status             TEXT NOT NULL DEFAULT 'pending',
		priority           TEXT NOT NULL DEFAULT 'normal',
		start_date         TIMESTAMPTZ,
		end_date           TIMESTAMPTZ,
		assigned_worker_id UUID REFERENCES users(id),
		created_by         UUID NOT NULL REFERENCES users(id),
		is_past            BOOLEAN NOT NULL DEFAULT FALSE,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	);
*/

const projectColumns = `id, name, description, status, priority, start_date, end_date, assigned_worker_id, created_by, is_past, created_at, updated_at`

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	query := `INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, query,
		p.ID, p.Name, p.Description, p.Status, p.Priority,
		p.StartDate, p.EndDate, p.AssignedWorkerID, p.CreatedBy,
		p.IsPast, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	p, err := scanProject(exec.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (r *ProjectRepo) Update(ctx context.Context, p *domain.Project) error {
	query := `UPDATE projects
		SET name = $2, description = $3, status = $4, priority = $5,
			start_date = $6, end_date = $7, assigned_worker_id = $8, updated_at = $9
		WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query,
		p.ID, p.Name, p.Description, p.Status, p.Priority,
		p.StartDate, p.EndDate, p.AssignedWorkerID, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return requireRow(result, domain.ErrProjectNotFound)
}

func (r *ProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return requireRow(result, domain.ErrProjectNotFound)
}

func (r *ProjectRepo) SetPast(ctx context.Context, id uuid.UUID, past bool) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx,
		`UPDATE projects SET is_past = $2, updated_at = now() WHERE id = $1`, id, past)
	if err != nil {
		return fmt.Errorf("set project past flag: %w", err)
	}
	return requireRow(result, domain.ErrProjectNotFound)
}

func (r *ProjectRepo) List(ctx context.Context, includePast bool) ([]domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if !includePast {
		query += ` WHERE is_past = FALSE`
	}
	query += ` ORDER BY created_at`

	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Status, &p.Priority,
		&p.StartDate, &p.EndDate, &p.AssignedWorkerID, &p.CreatedBy,
		&p.IsPast, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func requireRow(result sql.Result, missing error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
