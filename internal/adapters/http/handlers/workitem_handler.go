package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jsamuelsen11/trackflow/internal/adapters/http/dto"
	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

// WorkItemHandler handles HTTP requests for work items, their status and
// the consistency endpoints built on reconciliation.
type WorkItemHandler struct {
	svc ports.WorkItemService
}

// NewWorkItemHandler creates a new WorkItemHandler with the given service port.
func NewWorkItemHandler(svc ports.WorkItemService) *WorkItemHandler {
	return &WorkItemHandler{svc: svc}
}

// CreateWorkItem handles POST /api/v1/projects/{projectId}/modules/{moduleId}/items.
func (h *WorkItemHandler) CreateWorkItem(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateWorkItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	created, err := h.svc.CreateWorkItem(r.Context(), actor(r), ports.NewWorkItem{
		ProjectID:   chi.URLParam(r, "projectId"),
		ModuleID:    chi.URLParam(r, "moduleId"),
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		TesterID:    req.TesterID,
		StoryPoints: req.StoryPoints,
	})
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToWorkItemResponse(created))
}

// ListWorkItems handles GET /api/v1/projects/{projectId}/items. Optional
// query parameters: module_id, status, assignee_id, sprint_id and
// include_removed.
func (h *WorkItemHandler) ListWorkItems(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	items, err := h.svc.ListWorkItems(r.Context(), chi.URLParam(r, "projectId"), filter)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToWorkItemListResponse(items))
}

func parseFilter(r *http.Request) (workitem.Filter, error) {
	q := r.URL.Query()
	f := workitem.Filter{
		ModuleID:   q.Get("module_id"),
		Status:     workitem.Status(q.Get("status")),
		AssigneeID: q.Get("assignee_id"),
		SprintID:   q.Get("sprint_id"),
	}

	fields := make(map[string]string)
	if f.Status != "" && !f.Status.IsValid() {
		fields["status"] = fmt.Sprintf("must be one of %v, got %q", workitem.Statuses, f.Status)
	}
	if raw := q.Get("include_removed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			fields["include_removed"] = "must be a boolean"
		}
		f.IncludeRemoved = v
	}
	if len(fields) > 0 {
		return f, &domain.ValidationError{Fields: fields}
	}
	return f, nil
}

// GetWorkItem handles GET /api/v1/items/{itemId}.
func (h *WorkItemHandler) GetWorkItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.GetWorkItem(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToWorkItemResponse(item))
}

// UpdateWorkItem handles PATCH /api/v1/items/{itemId}.
func (h *WorkItemHandler) UpdateWorkItem(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateWorkItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	updated, err := h.svc.UpdateWorkItem(r.Context(), actor(r), chi.URLParam(r, "itemId"), req.ToUpdate())
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToWorkItemResponse(updated))
}

// RemoveWorkItem handles DELETE /api/v1/items/{itemId}.
func (h *WorkItemHandler) RemoveWorkItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveWorkItem(r.Context(), actor(r), chi.URLParam(r, "itemId")); err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ChangeStatus handles POST /api/v1/items/{itemId}/status.
func (h *WorkItemHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangeStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	updated, err := h.svc.ChangeStatus(r.Context(), actor(r), chi.URLParam(r, "itemId"), workitem.Status(req.Status))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToWorkItemResponse(updated))
}

// AddComment handles POST /api/v1/items/{itemId}/comments.
func (h *WorkItemHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req dto.AddCommentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	updated, err := h.svc.AddComment(r.Context(), actor(r), chi.URLParam(r, "itemId"), req.Body)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToWorkItemResponse(updated))
}

// Reconcile handles POST /api/v1/items/{itemId}/reconcile.
func (h *WorkItemHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Reconcile(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToReconcileResponse(report))
}

// Activity handles GET /api/v1/items/{itemId}/activity.
func (h *WorkItemHandler) Activity(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.Activity(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToActivityListResponse(records))
}

// ListFlags handles GET /api/v1/consistency/flags. An optional ticket_id
// query parameter narrows the listing to one ticket.
func (h *WorkItemHandler) ListFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := h.svc.ListFlags(r.Context(), r.URL.Query().Get("ticket_id"))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToFlagListResponse(flags))
}
