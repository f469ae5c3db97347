package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fabtrack/internal/core/domain"
	"fabtrack/internal/core/services"
	"fabtrack/pkg/logging"
	"fabtrack/pkg/middleware"
)

type ProjectHandler struct {
	projects *services.ProjectService
}

func NewProjectHandler(projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

type projectRequest struct {
	Name             string                `json:"name"`
	Description      *string               `json:"description"`
	Status           *domain.ProjectStatus `json:"status"`
	Priority         *string               `json:"priority"`
	StartDate        *time.Time            `json:"startDate"`
	EndDate          *time.Time            `json:"endDate"`
	AssignedWorkerID *uuid.UUID            `json:"assignedWorkerId"`
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	includePast := r.URL.Query().Get("includePast") == "1"
	projects, err := h.projects.List(r.Context(), includePast)
	if err != nil {
		logging.FromContext(r.Context()).ErrorContext(r.Context(), "list projects failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	project, err := h.projects.Get(r.Context(), id)
	if err != nil {
		respondProjectErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": project})
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "project name is required")
		return
	}

	in := services.CreateProjectInput{
		Name:             req.Name,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		AssignedWorkerID: req.AssignedWorkerID,
		Priority:         "normal",
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Priority != nil {
		in.Priority = *req.Priority
	}

	project, err := h.projects.Create(r.Context(), actor, in)
	if err != nil {
		logging.FromContext(r.Context()).ErrorContext(r.Context(), "create project failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "failed to create project")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"project": project})
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := services.UpdateProjectInput{
		Description:      req.Description,
		Status:           req.Status,
		Priority:         req.Priority,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		AssignedWorkerID: req.AssignedWorkerID,
	}
	if req.Name != "" {
		in.Name = &req.Name
	}

	project, err := h.projects.Update(r.Context(), actor, id, in)
	if err != nil {
		respondProjectErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": project})
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.projects.Delete(r.Context(), actor, id); err != nil {
		respondProjectErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "project deleted"})
}

func (h *ProjectHandler) MoveToPast(w http.ResponseWriter, r *http.Request) {
	h.setPast(w, r, true)
}

func (h *ProjectHandler) RestoreFromPast(w http.ResponseWriter, r *http.Request) {
	h.setPast(w, r, false)
}

func (h *ProjectHandler) setPast(w http.ResponseWriter, r *http.Request, past bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var err error
	if past {
		err = h.projects.MoveToPast(r.Context(), actor, id)
	} else {
		err = h.projects.RestoreFromPast(r.Context(), actor, id)
	}
	if err != nil {
		respondProjectErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "project updated"})
}

func respondProjectErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrProjectNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	logging.FromContext(r.Context()).ErrorContext(r.Context(), "project operation failed", logging.Err(err))
	writeError(w, http.StatusInternalServerError, "project operation failed")
}

func requireActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.Actor{}, false
	}
	id, err := uuid.Parse(identity.ID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.Actor{}, false
	}
	return domain.Actor{ID: id, Name: identity.Name}, true
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
