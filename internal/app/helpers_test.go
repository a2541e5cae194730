package app

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jsamuelsen11/trackflow/internal/adapters/audit"
	"github.com/jsamuelsen11/trackflow/internal/adapters/storage/memory"
	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/kanban"
	"github.com/jsamuelsen11/trackflow/internal/domain/project"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
	"github.com/jsamuelsen11/trackflow/internal/platform/clock"
	"github.com/jsamuelsen11/trackflow/internal/platform/config"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

var epoch = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

var (
	manager = domain.Actor{ID: "mgr", Role: domain.RoleManager}
	dev     = domain.Actor{ID: "dev", Role: domain.RoleDeveloper}
	qa      = domain.Actor{ID: "qa", Role: domain.RoleTester}
	viewer  = domain.Actor{ID: "guest", Role: domain.RoleViewer}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func ptr[T any](v T) *T { return &v }

// fixture wires every service over a memory store and a memory audit sink,
// with one project "TRK" holding one module.
type fixture struct {
	store   ports.Store
	audit   *audit.MemorySink
	clock   *clock.FakeClock
	svc     *Services
	project *project.Project
	module  *project.Module
}

func newFixture(t *testing.T, opts ...func(*Deps)) *fixture {
	t.Helper()

	f := &fixture{
		store: memory.New(),
		audit: audit.NewMemorySink(),
		clock: clock.Fake(epoch),
	}
	d := Deps{
		Store:  f.store,
		Audit:  f.audit,
		Clock:  f.clock,
		Logger: discardLogger(),
		Workflow: config.WorkflowConfig{
			MaxConflictRetries: 3,
			RetryBackoff:       time.Millisecond,
			ReconcileWorkers:   2,
			BugResolvedStatus:  "testing",
		},
	}
	for _, opt := range opts {
		opt(&d)
	}
	f.store = d.Store
	f.svc = New(d)

	ctx := context.Background()
	p, err := f.svc.Projects.CreateProject(ctx, manager, &project.Project{Key: "TRK", Name: "Tracker"})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	m, err := f.svc.Projects.AddModule(ctx, manager, p.ID, "Backend")
	if err != nil {
		t.Fatalf("AddModule() error = %v", err)
	}
	f.project, f.module = p, m
	return f
}

func (f *fixture) item(t *testing.T, title string) *workitem.WorkItem {
	t.Helper()

	w, err := f.svc.WorkItems.CreateWorkItem(context.Background(), manager, ports.NewWorkItem{
		ProjectID:  f.project.ID,
		ModuleID:   f.module.ID,
		Title:      title,
		AssigneeID: dev.ID,
		TesterID:   qa.ID,
	})
	if err != nil {
		t.Fatalf("CreateWorkItem(%q) error = %v", title, err)
	}
	return w
}

// board creates a board with the given columns, or the default column set
// when none are given.
func (f *fixture) board(t *testing.T, name string, autoMove bool, cols ...kanban.Column) *kanban.Board {
	t.Helper()

	b, err := f.svc.Boards.CreateBoard(context.Background(), manager, &kanban.Board{
		ProjectID:              f.project.ID,
		Name:                   name,
		AutoMoveOnStatusChange: autoMove,
		Columns:                cols,
	})
	if err != nil {
		t.Fatalf("CreateBoard(%q) error = %v", name, err)
	}
	return b
}

func (f *fixture) addTicket(t *testing.T, boardID, ticketID, columnID string) {
	t.Helper()

	if _, err := f.svc.Boards.AddTicket(context.Background(), manager, boardID, ticketID, columnID); err != nil {
		t.Fatalf("AddTicket(%s, %s, %q) error = %v", boardID, ticketID, columnID, err)
	}
}

func (f *fixture) setStatus(t *testing.T, id string, to workitem.Status) *workitem.WorkItem {
	t.Helper()

	w, err := f.svc.WorkItems.ChangeStatus(context.Background(), manager, id, to)
	if err != nil {
		t.Fatalf("ChangeStatus(%s, %s) error = %v", id, to, err)
	}
	return w
}

func (f *fixture) getBoard(t *testing.T, id string) *kanban.Board {
	t.Helper()

	b, err := f.store.GetBoard(context.Background(), id)
	if err != nil {
		t.Fatalf("GetBoard(%s) error = %v", id, err)
	}
	return b
}

func (f *fixture) getItem(t *testing.T, id string) *workitem.WorkItem {
	t.Helper()

	w, err := f.store.GetWorkItem(context.Background(), id)
	if err != nil {
		t.Fatalf("GetWorkItem(%s) error = %v", id, err)
	}
	return w
}

// columnOf returns the column holding ticketID on b, or "" when absent.
func columnOf(b *kanban.Board, ticketID string) string {
	col, _, ok := b.FindTicket(ticketID)
	if !ok {
		return ""
	}
	return col.ID
}

// assertDense fails the test if any column's positions are not 1..n.
func assertDense(t *testing.T, b *kanban.Board) {
	t.Helper()

	for _, col := range b.Columns {
		for i, r := range col.Tickets {
			if r.Position != i+1 {
				t.Errorf("board %s column %s: ticket %s at position %d, want %d", b.ID, col.ID, r.TicketID, r.Position, i+1)
			}
		}
	}
}

func countActions(records []domain.ActivityRecord, action string) int {
	n := 0
	for _, r := range records {
		if r.Action == action {
			n++
		}
	}
	return n
}
