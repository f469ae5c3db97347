package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"fabtrack/internal/core/domain"
	"fabtrack/internal/core/services"
	"fabtrack/pkg/logging"
)

type MaterialHandler struct {
	materials *services.MaterialService
}

func NewMaterialHandler(materials *services.MaterialService) *MaterialHandler {
	return &MaterialHandler{materials: materials}
}

var validMaterialStatus = map[domain.MaterialStatus]bool{
	domain.MaterialEmpty:      true,
	domain.MaterialPending:    true,
	domain.MaterialInProgress: true,
	domain.MaterialCompleted:  true,
}

func (h *MaterialHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	materials, err := h.materials.ListByProject(r.Context(), projectID)
	if err != nil {
		logging.FromContext(r.Context()).ErrorContext(r.Context(), "list materials failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "failed to list materials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"materials": materials})
}

func (h *MaterialHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	materialID, ok := pathID(w, r, "materialID")
	if !ok {
		return
	}

	var req struct {
		Status domain.MaterialStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !validMaterialStatus[req.Status] {
		writeError(w, http.StatusBadRequest, "invalid material status")
		return
	}

	material, err := h.materials.UpdateStatus(r.Context(), actor, materialID, req.Status)
	if err != nil {
		if errors.Is(err, domain.ErrMaterialNotFound) {
			writeError(w, http.StatusNotFound, "material not found")
			return
		}
		logging.FromContext(r.Context()).ErrorContext(r.Context(), "material update failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "material update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"material": material})
}

func (h *MaterialHandler) BatchUpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		MaterialIDs []uuid.UUID           `json:"materialIds"`
		Status      domain.MaterialStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.MaterialIDs) == 0 || !validMaterialStatus[req.Status] {
		writeError(w, http.StatusBadRequest, "invalid batch update request")
		return
	}

	if err := h.materials.BatchUpdateStatus(r.Context(), actor, projectID, req.MaterialIDs, req.Status); err != nil {
		if errors.Is(err, domain.ErrMaterialNotFound) {
			writeError(w, http.StatusNotFound, "material not found")
			return
		}
		logging.FromContext(r.Context()).ErrorContext(r.Context(), "batch material update failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "batch material update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "materials updated"})
}
