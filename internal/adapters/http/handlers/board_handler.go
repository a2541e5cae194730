package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jsamuelsen11/trackflow/internal/adapters/http/dto"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

// BoardHandler handles HTTP requests for Kanban boards.
type BoardHandler struct {
	svc ports.BoardService
}

// NewBoardHandler creates a new BoardHandler with the given service port.
func NewBoardHandler(svc ports.BoardService) *BoardHandler {
	return &BoardHandler{svc: svc}
}

// CreateBoard handles POST /api/v1/boards.
func (h *BoardHandler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBoardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	created, err := h.svc.CreateBoard(r.Context(), actor(r), req.ToBoard())
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToBoardResponse(created))
}

// GetBoard handles GET /api/v1/boards/{boardId}.
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetBoard(r.Context(), chi.URLParam(r, "boardId"))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBoardResponse(b))
}

// ListBoards handles GET /api/v1/projects/{projectId}/boards.
func (h *BoardHandler) ListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := h.svc.ListBoards(r.Context(), chi.URLParam(r, "projectId"))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBoardListResponse(boards))
}

// AddTicket handles POST /api/v1/boards/{boardId}/tickets.
func (h *BoardHandler) AddTicket(w http.ResponseWriter, r *http.Request) {
	var req dto.AddTicketRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	b, err := h.svc.AddTicket(r.Context(), actor(r), chi.URLParam(r, "boardId"), req.TicketID, req.ColumnID)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToBoardResponse(b))
}

// RemoveTicket handles DELETE /api/v1/boards/{boardId}/tickets/{ticketId}.
func (h *BoardHandler) RemoveTicket(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.RemoveTicket(r.Context(), actor(r), chi.URLParam(r, "boardId"), chi.URLParam(r, "ticketId"))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBoardResponse(b))
}

// MoveTicket handles POST /api/v1/boards/{boardId}/moves.
func (h *BoardHandler) MoveTicket(w http.ResponseWriter, r *http.Request) {
	var req dto.MoveTicketRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	b, err := h.svc.MoveTicket(r.Context(), actor(r), ports.MoveRequest{
		BoardID:     chi.URLParam(r, "boardId"),
		TicketID:    req.TicketID,
		FromColumn:  req.FromColumn,
		ToColumn:    req.ToColumn,
		TargetIndex: req.TargetIndex,
	})
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBoardResponse(b))
}

// UpdateColumn handles PATCH /api/v1/boards/{boardId}/columns/{columnId}.
func (h *BoardHandler) UpdateColumn(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateColumnRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	b, err := h.svc.UpdateColumn(r.Context(), actor(r), chi.URLParam(r, "boardId"), chi.URLParam(r, "columnId"), req.ToUpdate())
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBoardResponse(b))
}
