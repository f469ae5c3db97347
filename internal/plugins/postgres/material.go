package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fabtrack/internal/core/domain"
)

type MaterialRepo struct {
	db *sql.DB
}

func NewMaterialRepo(db *sql.DB) *MaterialRepo {
	return &MaterialRepo{db: db}
}

/*
	CREATE TABLE materials (
		id             UUID PRIMARY KEY,
		project_id     UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		kind           TEXT NOT NULL,
		thickness      TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL DEFAULT 'empty',
		start_date     TIMESTAMPTZ,
		completed_date TIMESTAMPTZ,
		completed_by   UUID REFERENCES users(id),
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	);
*/

const materialColumns = `id, project_id, kind, thickness, status, start_date, completed_date, completed_by, created_at, updated_at`

func (r *MaterialRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Material, error) {
	query := `SELECT ` + materialColumns + ` FROM materials WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	var m domain.Material
	err := exec.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.ProjectID, &m.Kind, &m.Thickness, &m.Status,
		&m.StartDate, &m.CompletedDate, &m.CompletedBy,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMaterialNotFound
		}
		return nil, fmt.Errorf("get material: %w", err)
	}
	return &m, nil
}

func (r *MaterialRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Material, error) {
	query := `SELECT ` + materialColumns + ` FROM materials WHERE project_id = $1 ORDER BY created_at`
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	var materials []domain.Material
	for rows.Next() {
		var m domain.Material
		err := rows.Scan(
			&m.ID, &m.ProjectID, &m.Kind, &m.Thickness, &m.Status,
			&m.StartDate, &m.CompletedDate, &m.CompletedBy,
			&m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

func (r *MaterialRepo) UpdateStatus(ctx context.Context, m *domain.Material) error {
	query := `UPDATE materials
		SET status = $2, start_date = $3, completed_date = $4, completed_by = $5, updated_at = $6
		WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query,
		m.ID, m.Status, m.StartDate, m.CompletedDate, m.CompletedBy, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update material status: %w", err)
	}
	return requireRow(result, domain.ErrMaterialNotFound)
}
