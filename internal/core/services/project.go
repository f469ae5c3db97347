package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fabtrack/internal/core/contracts"
	"fabtrack/internal/core/domain"
	"fabtrack/pkg/logging"
)

// CreateProjectInput carries the caller-settable fields of a new project.
type CreateProjectInput struct {
	Name             string
	Description      string
	Priority         string
	StartDate        *time.Time
	EndDate          *time.Time
	AssignedWorkerID *uuid.UUID
}

// UpdateProjectInput is a partial update: nil fields are left untouched.
type UpdateProjectInput struct {
	Name             *string
	Description      *string
	Status           *domain.ProjectStatus
	Priority         *string
	StartDate        *time.Time
	EndDate          *time.Time
	AssignedWorkerID *uuid.UUID
}

// ProjectService commits project mutations and then notifies every other
// connected user. The broadcast is strictly after-commit and best-effort:
// an encoding or delivery problem is logged and never fails the mutation.
type ProjectService struct {
	log      *slog.Logger
	projects contracts.ProjectRepository
	hub      contracts.Broadcaster
}

func NewProjectService(log *slog.Logger, projects contracts.ProjectRepository, hub contracts.Broadcaster) *ProjectService {
	return &ProjectService{log: log, projects: projects, hub: hub}
}

func (s *ProjectService) Create(ctx context.Context, actor domain.Actor, in CreateProjectInput) (*domain.Project, error) {
	now := time.Now().UTC()
	project := &domain.Project{
		ID:               uuid.New(),
		Name:             in.Name,
		Description:      in.Description,
		Status:           domain.ProjectPending,
		Priority:         in.Priority,
		StartDate:        in.StartDate,
		EndDate:          in.EndDate,
		AssignedWorkerID: in.AssignedWorkerID,
		CreatedBy:        actor.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}

	s.notify(ctx, domain.EventProjectCreated, domain.ProjectEventPayload{
		Project:   project,
		ProjectID: project.ID,
		UserID:    actor.ID.String(),
		UserName:  actor.Name,
	}, actor)
	return project, nil
}

func (s *ProjectService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in UpdateProjectInput) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := project.Status

	if in.Name != nil {
		project.Name = *in.Name
	}
	if in.Description != nil {
		project.Description = *in.Description
	}
	if in.Status != nil {
		project.Status = *in.Status
	}
	if in.Priority != nil {
		project.Priority = *in.Priority
	}
	if in.StartDate != nil {
		project.StartDate = in.StartDate
	}
	if in.EndDate != nil {
		project.EndDate = in.EndDate
	}
	if in.AssignedWorkerID != nil {
		project.AssignedWorkerID = in.AssignedWorkerID
	}
	project.UpdatedAt = time.Now().UTC()

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, err
	}

	s.notify(ctx, domain.EventProjectUpdated, domain.ProjectEventPayload{
		Project:   project,
		ProjectID: project.ID,
		UserID:    actor.ID.String(),
		UserName:  actor.Name,
	}, actor)

	if project.Status != oldStatus {
		s.notify(ctx, domain.EventProjectStatusChanged, domain.ProjectEventPayload{
			Project:     project,
			ProjectID:   project.ID,
			ProjectName: project.Name,
			OldStatus:   oldStatus,
			NewStatus:   project.Status,
			UserID:      actor.ID.String(),
			UserName:    actor.Name,
		}, actor)
	}
	return project, nil
}

func (s *ProjectService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}

	s.notify(ctx, domain.EventProjectDeleted, domain.ProjectEventPayload{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		UserID:      actor.ID.String(),
		UserName:    actor.Name,
	}, actor)
	return nil
}

func (s *ProjectService) MoveToPast(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	return s.setPast(ctx, actor, id, true, domain.EventProjectMovedToPast)
}

func (s *ProjectService) RestoreFromPast(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	return s.setPast(ctx, actor, id, false, domain.EventProjectRestoredFromPast)
}

func (s *ProjectService) setPast(ctx context.Context, actor domain.Actor, id uuid.UUID, past bool, event string) error {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.projects.SetPast(ctx, id, past); err != nil {
		return err
	}
	project.IsPast = past

	s.notify(ctx, event, domain.ProjectEventPayload{
		Project:   project,
		ProjectID: project.ID,
		UserID:    actor.ID.String(),
		UserName:  actor.Name,
	}, actor)
	return nil
}

func (s *ProjectService) List(ctx context.Context, includePast bool) ([]domain.Project, error) {
	return s.projects.List(ctx, includePast)
}

func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	return s.projects.GetByID(ctx, id)
}

func (s *ProjectService) notify(ctx context.Context, event string, payload domain.ProjectEventPayload, actor domain.Actor) {
	sent, err := s.hub.Broadcast(event, payload, actor.ID.String())
	if err != nil {
		s.log.ErrorContext(ctx, "broadcast failed", logging.Event(event), logging.Err(err))
		return
	}
	s.log.InfoContext(ctx, "event broadcast",
		logging.Event(event),
		slog.Int("delivered", sent),
		logging.User(actor.ID.String()),
	)
}
