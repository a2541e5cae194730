package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jsamuelsen11/trackflow/internal/adapters/http/dto"
	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/sprint"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

// SprintHandler handles HTTP requests for sprints and the assignment ledger.
type SprintHandler struct {
	svc ports.SprintService
}

// NewSprintHandler creates a new SprintHandler with the given service port.
func NewSprintHandler(svc ports.SprintService) *SprintHandler {
	return &SprintHandler{svc: svc}
}

// CreateSprint handles POST /api/v1/sprints.
func (h *SprintHandler) CreateSprint(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSprintRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	created, err := h.svc.CreateSprint(r.Context(), actor(r), req.ToSprint())
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToSprintResponse(created))
}

// GetSprint handles GET /api/v1/sprints/{sprintId}.
func (h *SprintHandler) GetSprint(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.GetSprint(r.Context(), chi.URLParam(r, "sprintId"))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToSprintResponse(s))
}

type lifecycleFunc func(ctx context.Context, actor domain.Actor, id string) (*sprint.Sprint, error)

func (h *SprintHandler) lifecycle(w http.ResponseWriter, r *http.Request, fn lifecycleFunc) {
	s, err := fn(r.Context(), actor(r), chi.URLParam(r, "sprintId"))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToSprintResponse(s))
}

// StartSprint handles POST /api/v1/sprints/{sprintId}/start.
func (h *SprintHandler) StartSprint(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.StartSprint)
}

// CompleteSprint handles POST /api/v1/sprints/{sprintId}/complete.
func (h *SprintHandler) CompleteSprint(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.CompleteSprint)
}

// CancelSprint handles POST /api/v1/sprints/{sprintId}/cancel.
func (h *SprintHandler) CancelSprint(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.CancelSprint)
}

// Assign handles POST /api/v1/sprints/{sprintId}/assignments.
func (h *SprintHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req dto.AssignRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	a, err := h.svc.Assign(r.Context(), actor(r), ports.AssignRequest{
		SprintID:   chi.URLParam(r, "sprintId"),
		TicketID:   req.TicketID,
		AssigneeID: req.AssigneeID,
		Role:       domain.ParseRole(req.Role),
		Estimate:   req.Estimate,
		Notes:      req.Notes,
	})
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToAssignmentResponse(a))
}

// UpdateAssignment handles PATCH /api/v1/sprints/{sprintId}/assignments/{assignmentId}.
func (h *SprintHandler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateAssignmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	a, err := h.svc.UpdateAssignmentStatus(r.Context(), actor(r),
		chi.URLParam(r, "sprintId"),
		chi.URLParam(r, "assignmentId"),
		sprint.AssignmentStatus(req.Status),
	)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToAssignmentResponse(a))
}
