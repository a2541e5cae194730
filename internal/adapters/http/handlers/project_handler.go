// Package handlers provides HTTP request handlers for the service's API endpoints.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jsamuelsen11/trackflow/internal/adapters/http/dto"
	"github.com/jsamuelsen11/trackflow/internal/domain/project"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

// ProjectHandler handles HTTP requests for projects and their modules.
type ProjectHandler struct {
	svc ports.ProjectService
}

// NewProjectHandler creates a new ProjectHandler with the given service port.
func NewProjectHandler(svc ports.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// CreateProject handles POST /api/v1/projects.
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p := &project.Project{
		Key:         req.Key,
		Name:        req.Name,
		Description: req.Description,
	}

	created, err := h.svc.CreateProject(r.Context(), actor(r), p)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToProjectResponse(created))
}

// GetProject handles GET /api/v1/projects/{projectId}.
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProject(r.Context(), chi.URLParam(r, "projectId"))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToProjectResponse(p))
}

// AddModule handles POST /api/v1/projects/{projectId}/modules.
func (h *ProjectHandler) AddModule(w http.ResponseWriter, r *http.Request) {
	var req dto.AddModuleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	m, err := h.svc.AddModule(r.Context(), actor(r), chi.URLParam(r, "projectId"), req.Name)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToModuleResponse(m))
}
