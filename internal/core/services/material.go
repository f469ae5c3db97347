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

// MaterialService mutates plate status and broadcasts a coarse change
// notice. The payload deliberately omits the full record: remote clients
// coalesce these into a single debounced refetch instead of patching rows.
// txRunner is the slice of TxManager the material service needs.
type txRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type MaterialService struct {
	log       *slog.Logger
	materials contracts.MaterialRepository
	tx        txRunner
	hub       contracts.Broadcaster
}

func NewMaterialService(log *slog.Logger, materials contracts.MaterialRepository, tx txRunner, hub contracts.Broadcaster) *MaterialService {
	return &MaterialService{log: log, materials: materials, tx: tx, hub: hub}
}

func (s *MaterialService) UpdateStatus(ctx context.Context, actor domain.Actor, materialID uuid.UUID, status domain.MaterialStatus) (*domain.Material, error) {
	material, err := s.materials.GetByID(ctx, materialID)
	if err != nil {
		return nil, err
	}
	s.applyStatus(material, status, actor)
	if err := s.materials.UpdateStatus(ctx, material); err != nil {
		return nil, err
	}

	s.notify(ctx, domain.EventMaterialStatusChanged, domain.MaterialEventPayload{
		ProjectID:  material.ProjectID,
		MaterialID: &material.ID,
		NewStatus:  status,
		UserID:     actor.ID.String(),
		UserName:   actor.Name,
	}, actor)
	return material, nil
}

// BatchUpdateStatus flips several plates of one project in a single
// transaction, then emits one batch event rather than one per plate.
func (s *MaterialService) BatchUpdateStatus(ctx context.Context, actor domain.Actor, projectID uuid.UUID, materialIDs []uuid.UUID, status domain.MaterialStatus) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		for _, id := range materialIDs {
			material, err := s.materials.GetByID(ctx, id)
			if err != nil {
				return err
			}
			s.applyStatus(material, status, actor)
			if err := s.materials.UpdateStatus(ctx, material); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(ctx, domain.EventMaterialBatchStatusChange, domain.MaterialEventPayload{
		ProjectID:   projectID,
		MaterialIDs: materialIDs,
		NewStatus:   status,
		UserID:      actor.ID.String(),
		UserName:    actor.Name,
	}, actor)
	return nil
}

func (s *MaterialService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Material, error) {
	return s.materials.ListByProject(ctx, projectID)
}

func (s *MaterialService) applyStatus(m *domain.Material, status domain.MaterialStatus, actor domain.Actor) {
	now := time.Now().UTC()
	m.Status = status
	m.UpdatedAt = now
	switch status {
	case domain.MaterialInProgress:
		m.StartDate = &now
	case domain.MaterialCompleted:
		m.CompletedDate = &now
		actorID := actor.ID
		m.CompletedBy = &actorID
	}
}

func (s *MaterialService) notify(ctx context.Context, event string, payload domain.MaterialEventPayload, actor domain.Actor) {
	sent, err := s.hub.Broadcast(event, payload, actor.ID.String())
	if err != nil {
		s.log.ErrorContext(ctx, "broadcast failed", logging.Event(event), logging.Err(err))
		return
	}
	s.log.InfoContext(ctx, "event broadcast",
		logging.Event(event),
		slog.Int("delivered", sent),
		logging.Project(payload.ProjectID.String()),
	)
}
