package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jsamuelsen11/trackflow/internal/adapters/audit"
	"github.com/jsamuelsen11/trackflow/internal/adapters/http/dto"
	"github.com/jsamuelsen11/trackflow/internal/adapters/http/handlers"
	"github.com/jsamuelsen11/trackflow/internal/adapters/http/middleware"
	"github.com/jsamuelsen11/trackflow/internal/adapters/storage/memory"
	"github.com/jsamuelsen11/trackflow/internal/app"
	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/project"
	"github.com/jsamuelsen11/trackflow/internal/platform/clock"
	"github.com/jsamuelsen11/trackflow/internal/platform/config"
)

var testTime = time.Date(2026, 2, 12, 15, 4, 5, 0, time.UTC)

var (
	manager = domain.Actor{ID: "mgr-1", Role: domain.RoleManager}
	dev     = domain.Actor{ID: "dev-1", Role: domain.RoleDeveloper}
	qa      = domain.Actor{ID: "qa-1", Role: domain.RoleTester}
	guest   = domain.Actor{ID: "guest", Role: domain.RoleViewer}
)

func withChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func validProject() project.Project {
	return project.Project{
		ID:        "p1",
		Key:       "TRK",
		Name:      "Tracker",
		Modules:   []project.Module{{ID: "m1", Name: "Backend", CreatedAt: testTime}},
		Version:   2,
		CreatedBy: manager.ID,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("failed to encode JSON body: %v", err)
	}
	return buf
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var result T
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
	return result
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rec.Code, want, rec.Body.String())
	}
}

func requireProblemCode(t *testing.T, rec *httptest.ResponseRecorder, want string) dto.ErrorResponse {
	t.Helper()
	resp := decodeJSON[dto.ErrorResponse](t, rec)
	if resp.Code != want {
		t.Errorf("problem code = %q, want %q; detail = %s", resp.Code, want, resp.Detail)
	}
	return resp
}

// call invokes h as actor a with the given chi path params and JSON body.
// A nil body sends no body.
func call(t *testing.T, h http.HandlerFunc, a domain.Actor, method, path string, params map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		r = jsonBody(t, body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req = withChiParams(req, params)
	req = req.WithContext(middleware.WithActor(req.Context(), a))

	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

// env wires the real services over a memory store, with one project "TRK"
// holding one module.
type env struct {
	svc       *app.Services
	projectID string
	moduleID  string
}

func newEnv(t *testing.T) *env {
	t.Helper()

	svc := app.New(app.Deps{
		Store:  memory.New(),
		Audit:  audit.NewMemorySink(),
		Clock:  clock.Fake(testTime),
		Logger: slog.New(slog.DiscardHandler),
		Workflow: config.WorkflowConfig{
			MaxConflictRetries: 3,
			RetryBackoff:       time.Millisecond,
			ReconcileWorkers:   2,
			BugResolvedStatus:  "testing",
		},
	})

	ctx := context.Background()
	p, err := svc.Projects.CreateProject(ctx, manager, &project.Project{Key: "TRK", Name: "Tracker"})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	m, err := svc.Projects.AddModule(ctx, manager, p.ID, "Backend")
	if err != nil {
		t.Fatalf("AddModule() error = %v", err)
	}
	return &env{svc: svc, projectID: p.ID, moduleID: m.ID}
}

type handlerSet struct {
	items   *handlers.WorkItemHandler
	boards  *handlers.BoardHandler
	sprints *handlers.SprintHandler
	bugs    *handlers.BugHandler
}

func handlersFor(e *env) handlerSet {
	return handlerSet{
		items:   handlers.NewWorkItemHandler(e.svc.WorkItems),
		boards:  handlers.NewBoardHandler(e.svc.Boards),
		sprints: handlers.NewSprintHandler(e.svc.Sprints),
		bugs:    handlers.NewBugHandler(e.svc.Bugs),
	}
}

// item creates a work item assigned to dev and tested by qa.
func (e *env) item(t *testing.T, title string) dto.WorkItemResponse {
	t.Helper()

	h := handlersFor(e).items
	rec := call(t, h.CreateWorkItem, manager, http.MethodPost, "/api/v1/projects/p/modules/m/items",
		map[string]string{"projectId": e.projectID, "moduleId": e.moduleID},
		dto.CreateWorkItemRequest{Title: title, AssigneeID: dev.ID, TesterID: qa.ID},
	)
	requireStatus(t, rec, http.StatusCreated)
	return decodeJSON[dto.WorkItemResponse](t, rec)
}
