package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jsamuelsen11/trackflow/internal/adapters/http/dto"
	"github.com/jsamuelsen11/trackflow/internal/domain/bug"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

// BugHandler handles HTTP requests for bugs.
type BugHandler struct {
	svc ports.BugService
}

// NewBugHandler creates a new BugHandler with the given service port.
func NewBugHandler(svc ports.BugService) *BugHandler {
	return &BugHandler{svc: svc}
}

// CreateBug handles POST /api/v1/bugs.
func (h *BugHandler) CreateBug(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBugRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	created, err := h.svc.CreateBug(r.Context(), actor(r), req.ToBug())
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToBugResponse(created))
}

// GetBug handles GET /api/v1/bugs/{bugId}.
func (h *BugHandler) GetBug(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetBug(r.Context(), chi.URLParam(r, "bugId"))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBugResponse(b))
}

// ListBugsForTicket handles GET /api/v1/items/{itemId}/bugs.
func (h *BugHandler) ListBugsForTicket(w http.ResponseWriter, r *http.Request) {
	bugs, err := h.svc.ListBugsForTicket(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBugListResponse(bugs))
}

// TransitionBug handles POST /api/v1/bugs/{bugId}/transitions.
func (h *BugHandler) TransitionBug(w http.ResponseWriter, r *http.Request) {
	var req dto.BugTransitionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	b, err := h.svc.TransitionBug(r.Context(), actor(r), chi.URLParam(r, "bugId"), ports.BugTransition{
		To:         bug.Status(req.Status),
		Reason:     req.Reason,
		AssigneeID: req.AssigneeID,
	})
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBugResponse(b))
}
