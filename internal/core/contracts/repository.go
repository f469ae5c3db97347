package contracts

import (
	"context"

	"github.com/google/uuid"

	"fabtrack/internal/core/domain"
)

type ProjectRepository interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	Update(ctx context.Context, p *domain.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetPast(ctx context.Context, id uuid.UUID, past bool) error
	List(ctx context.Context, includePast bool) ([]domain.Project, error)
}

type MaterialRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Material, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Material, error)
	UpdateStatus(ctx context.Context, m *domain.Material) error
}

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
