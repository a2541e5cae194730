// Package http provides the inbound HTTP adapter including routing and server lifecycle.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jsamuelsen11/trackflow/internal/adapters/http/handlers"
)

// Handlers groups the resource handlers mounted by NewRouter.
type Handlers struct {
	Projects  *handlers.ProjectHandler
	WorkItems *handlers.WorkItemHandler
	Boards    *handlers.BoardHandler
	Sprints   *handlers.SprintHandler
	Bugs      *handlers.BugHandler
	Health    *handlers.HealthHandler
}

// NewRouter creates an HTTP handler with all application routes registered.
// Middleware is applied globally in the order given.
func NewRouter(h Handlers, middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	// Health endpoints (outside /api/v1 prefix).
	r.Get("/health/live", h.Health.Liveness)
	r.Get("/health/ready", h.Health.Readiness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/projects", h.Projects.CreateProject)
		r.Get("/projects/{projectId}", h.Projects.GetProject)
		r.Post("/projects/{projectId}/modules", h.Projects.AddModule)
		r.Post("/projects/{projectId}/modules/{moduleId}/items", h.WorkItems.CreateWorkItem)
		r.Get("/projects/{projectId}/items", h.WorkItems.ListWorkItems)
		r.Get("/projects/{projectId}/boards", h.Boards.ListBoards)

		r.Route("/items/{itemId}", func(r chi.Router) {
			r.Get("/", h.WorkItems.GetWorkItem)
			r.Patch("/", h.WorkItems.UpdateWorkItem)
			r.Delete("/", h.WorkItems.RemoveWorkItem)
			r.Post("/status", h.WorkItems.ChangeStatus)
			r.Post("/comments", h.WorkItems.AddComment)
			r.Post("/reconcile", h.WorkItems.Reconcile)
			r.Get("/activity", h.WorkItems.Activity)
			r.Get("/bugs", h.Bugs.ListBugsForTicket)
		})
		r.Get("/consistency/flags", h.WorkItems.ListFlags)

		r.Post("/boards", h.Boards.CreateBoard)
		r.Route("/boards/{boardId}", func(r chi.Router) {
			r.Get("/", h.Boards.GetBoard)
			r.Post("/tickets", h.Boards.AddTicket)
			r.Delete("/tickets/{ticketId}", h.Boards.RemoveTicket)
			r.Post("/moves", h.Boards.MoveTicket)
			r.Patch("/columns/{columnId}", h.Boards.UpdateColumn)
		})

		r.Post("/sprints", h.Sprints.CreateSprint)
		r.Route("/sprints/{sprintId}", func(r chi.Router) {
			r.Get("/", h.Sprints.GetSprint)
			r.Post("/start", h.Sprints.StartSprint)
			r.Post("/complete", h.Sprints.CompleteSprint)
			r.Post("/cancel", h.Sprints.CancelSprint)
			r.Post("/assignments", h.Sprints.Assign)
			r.Patch("/assignments/{assignmentId}", h.Sprints.UpdateAssignment)
		})

		r.Post("/bugs", h.Bugs.CreateBug)
		r.Get("/bugs/{bugId}", h.Bugs.GetBug)
		r.Post("/bugs/{bugId}/transitions", h.Bugs.TransitionBug)
	})

	return r
}
