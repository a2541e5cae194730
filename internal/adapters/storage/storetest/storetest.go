// Package storetest holds the behavioural contract every ports.Store
// implementation must satisfy. Adapter packages call Run from their tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/bug"
	"github.com/jsamuelsen11/trackflow/internal/domain/kanban"
	"github.com/jsamuelsen11/trackflow/internal/domain/project"
	"github.com/jsamuelsen11/trackflow/internal/domain/sprint"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

// Factory returns an empty store. It should register its own cleanup.
type Factory func(t *testing.T) ports.Store

var epoch = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

// Run exercises the full store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s ports.Store)
	}{
		{"ProjectLifecycle", testProjectLifecycle},
		{"ProjectConflict", testProjectConflict},
		{"ReturnsCopies", testReturnsCopies},
		{"SaveWorkItemBumpsProject", testSaveWorkItemBumpsProject},
		{"SaveWorkItemStaleProject", testSaveWorkItemStaleProject},
		{"SaveWorkItemWrongProject", testSaveWorkItemWrongProject},
		{"ListWorkItems", testListWorkItems},
		{"ConcurrentSaveWorkItem", testConcurrentSaveWorkItem},
		{"BoardTicketIndex", testBoardTicketIndex},
		{"BoardConflict", testBoardConflict},
		{"SprintLifecycle", testSprintLifecycle},
		{"BugLifecycle", testBugLifecycle},
		{"Flags", testFlags},
		{"Health", testHealth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func newProject(t *testing.T, s ports.Store, id string) *project.Project {
	t.Helper()
	p := &project.Project{
		ID:        id,
		Key:       "TRK",
		Name:      "Tracker " + id,
		Modules:   []project.Module{{ID: id + "-m1", Name: "Backend", CreatedAt: epoch}},
		CreatedAt: epoch,
		UpdatedAt: epoch,
	}
	if err := s.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject(%s) error = %v", id, err)
	}
	return p
}

func newItem(p *project.Project, status workitem.Status) *workitem.WorkItem {
	n := p.AllocateNumber()
	return &workitem.WorkItem{
		ID:        fmt.Sprintf("%s-item-%d", p.ID, n),
		ProjectID: p.ID,
		ModuleID:  p.Modules[0].ID,
		Number:    n,
		Key:       p.DisplayKey(n),
		Title:     fmt.Sprintf("Item %d", n),
		Status:    status,
		CreatedAt: epoch,
		UpdatedAt: epoch,
	}
}

func wantErr(t *testing.T, op string, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("%s error = %v, want %v", op, err, target)
	}
}

func testProjectLifecycle(t *testing.T, s ports.Store) {
	ctx := context.Background()

	p := newProject(t, s, "p1")
	if p.Version != 1 {
		t.Errorf("Version after create = %d, want 1", p.Version)
	}

	wantErr(t, "CreateProject(duplicate)", s.CreateProject(ctx, &project.Project{ID: "p1", Key: "X", Name: "X"}), domain.ErrAlreadyExists)

	got, err := s.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got.Name != "Tracker p1" || len(got.Modules) != 1 || !got.CreatedAt.Equal(epoch) {
		t.Errorf("GetProject() = %+v, want stored fields", got)
	}

	got.Description = "edited"
	if err := s.SaveProject(ctx, got); err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}
	if got.Version != 2 {
		t.Errorf("Version after save = %d, want 2", got.Version)
	}

	_, err = s.GetProject(ctx, "missing")
	wantErr(t, "GetProject(missing)", err, domain.ErrNotFound)
	wantErr(t, "SaveProject(missing)", s.SaveProject(ctx, &project.Project{ID: "missing", Version: 1}), domain.ErrNotFound)
}

func testProjectConflict(t *testing.T, s ports.Store) {
	ctx := context.Background()
	newProject(t, s, "p1")

	a, _ := s.GetProject(ctx, "p1")
	b, _ := s.GetProject(ctx, "p1")

	if err := s.SaveProject(ctx, a); err != nil {
		t.Fatalf("first SaveProject() error = %v", err)
	}
	wantErr(t, "stale SaveProject()", s.SaveProject(ctx, b), domain.ErrConflict)
	if b.Version != 1 {
		t.Errorf("stale entity Version = %d, want unchanged 1", b.Version)
	}
}

func testReturnsCopies(t *testing.T, s ports.Store) {
	ctx := context.Background()
	newProject(t, s, "p1")

	first, _ := s.GetProject(ctx, "p1")
	first.Modules[0].Name = "mutated"

	second, err := s.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if second.Modules[0].Name != "Backend" {
		t.Errorf("Modules[0].Name = %q, want %q", second.Modules[0].Name, "Backend")
	}
}

func testSaveWorkItemBumpsProject(t *testing.T, s ports.Store) {
	ctx := context.Background()
	p := newProject(t, s, "p1")
	item := newItem(p, workitem.StatusOpen)

	if err := s.SaveWorkItem(ctx, p, item); err != nil {
		t.Fatalf("SaveWorkItem() error = %v", err)
	}
	if p.Version != 2 {
		t.Errorf("project Version = %d, want 2", p.Version)
	}

	stored, err := s.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if stored.Version != 2 || stored.NextNumber != 2 {
		t.Errorf("stored project Version=%d NextNumber=%d, want 2, 2", stored.Version, stored.NextNumber)
	}

	got, err := s.GetWorkItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetWorkItem() error = %v", err)
	}
	if got.Key != "TRK-1" || got.Status != workitem.StatusOpen {
		t.Errorf("GetWorkItem() = %+v, want TRK-1 open", got)
	}

	_, err = s.GetWorkItem(ctx, "missing")
	wantErr(t, "GetWorkItem(missing)", err, domain.ErrNotFound)
}

func testSaveWorkItemStaleProject(t *testing.T, s ports.Store) {
	ctx := context.Background()
	newProject(t, s, "p1")

	a, _ := s.GetProject(ctx, "p1")
	b, _ := s.GetProject(ctx, "p1")

	if err := s.SaveWorkItem(ctx, a, newItem(a, workitem.StatusOpen)); err != nil {
		t.Fatalf("SaveWorkItem(a) error = %v", err)
	}

	stale := newItem(b, workitem.StatusOpen)
	stale.ID = "stale"
	wantErr(t, "SaveWorkItem(stale)", s.SaveWorkItem(ctx, b, stale), domain.ErrConflict)

	_, err := s.GetWorkItem(ctx, "stale")
	wantErr(t, "GetWorkItem(stale)", err, domain.ErrNotFound)
}

func testSaveWorkItemWrongProject(t *testing.T, s ports.Store) {
	ctx := context.Background()
	p := newProject(t, s, "p1")
	item := newItem(p, workitem.StatusOpen)
	item.ProjectID = "other"

	wantErr(t, "SaveWorkItem(wrong project)", s.SaveWorkItem(ctx, p, item), domain.ErrValidation)
}

func testListWorkItems(t *testing.T, s ports.Store) {
	ctx := context.Background()
	p := newProject(t, s, "p1")
	other := newProject(t, s, "p2")

	statuses := []workitem.Status{workitem.StatusDone, workitem.StatusOpen, workitem.StatusDone}
	for _, st := range statuses {
		if err := s.SaveWorkItem(ctx, p, newItem(p, st)); err != nil {
			t.Fatalf("SaveWorkItem() error = %v", err)
		}
	}
	if err := s.SaveWorkItem(ctx, other, newItem(other, workitem.StatusDone)); err != nil {
		t.Fatalf("SaveWorkItem(other) error = %v", err)
	}

	all, err := s.ListWorkItems(ctx, "p1", workitem.Filter{})
	if err != nil {
		t.Fatalf("ListWorkItems() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(ListWorkItems()) = %d, want 3", len(all))
	}
	for i, w := range all {
		if w.Number != i+1 {
			t.Errorf("item %d Number = %d, want %d", i, w.Number, i+1)
		}
	}

	done, err := s.ListWorkItems(ctx, "p1", workitem.Filter{Status: workitem.StatusDone})
	if err != nil {
		t.Fatalf("ListWorkItems(done) error = %v", err)
	}
	if len(done) != 2 {
		t.Errorf("len(ListWorkItems(done)) = %d, want 2", len(done))
	}
}

func testConcurrentSaveWorkItem(t *testing.T, s ports.Store) {
	ctx := context.Background()
	newProject(t, s, "p1")

	const writers = 4
	errs := make([]error, writers)
	var start sync.WaitGroup
	start.Add(1)
	var wg sync.WaitGroup
	for i := range writers {
		p, err := s.GetProject(ctx, "p1")
		if err != nil {
			t.Fatalf("GetProject() error = %v", err)
		}
		item := newItem(p, workitem.StatusOpen)
		item.ID = fmt.Sprintf("w%d", i)
		wg.Go(func() {
			start.Wait()
			errs[i] = s.SaveWorkItem(ctx, p, item)
		})
	}
	start.Done()
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Errorf("SaveWorkItem() unexpected error = %v", err)
		}
	}
	if ok != 1 || conflicts != writers-1 {
		t.Errorf("successes=%d conflicts=%d, want 1 and %d", ok, conflicts, writers-1)
	}
}

func newBoard(t *testing.T, s ports.Store, id, projectID string, created time.Time) *kanban.Board {
	t.Helper()
	b := &kanban.Board{
		ID:        id,
		ProjectID: projectID,
		Name:      "Board " + id,
		Columns:   kanban.DefaultColumns(),
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := s.CreateBoard(context.Background(), b); err != nil {
		t.Fatalf("CreateBoard(%s) error = %v", id, err)
	}
	return b
}

func boardIDs(boards []kanban.Board) []string {
	ids := make([]string, len(boards))
	for i := range boards {
		ids[i] = boards[i].ID
	}
	return ids
}

func testBoardTicketIndex(t *testing.T, s ports.Store) {
	ctx := context.Background()
	b1 := newBoard(t, s, "b1", "p1", epoch)
	b2 := newBoard(t, s, "b2", "p1", epoch.Add(time.Minute))
	newBoard(t, s, "b3", "p2", epoch)

	for _, b := range []*kanban.Board{b1, b2} {
		if _, err := b.AddTicket("t1", "", workitem.StatusOpen, domain.SystemActor, epoch); err != nil {
			t.Fatalf("AddTicket() error = %v", err)
		}
		if err := s.SaveBoard(ctx, b); err != nil {
			t.Fatalf("SaveBoard(%s) error = %v", b.ID, err)
		}
	}

	got, err := s.ListBoardsForTicket(ctx, "t1")
	if err != nil {
		t.Fatalf("ListBoardsForTicket() error = %v", err)
	}
	if ids := boardIDs(got); len(ids) != 2 || ids[0] != "b1" || ids[1] != "b2" {
		t.Errorf("ListBoardsForTicket(t1) = %v, want [b1 b2]", ids)
	}

	if _, err := b1.RemoveTicket("t1", epoch); err != nil {
		t.Fatalf("RemoveTicket() error = %v", err)
	}
	if err := s.SaveBoard(ctx, b1); err != nil {
		t.Fatalf("SaveBoard(b1) error = %v", err)
	}

	got, err = s.ListBoardsForTicket(ctx, "t1")
	if err != nil {
		t.Fatalf("ListBoardsForTicket() error = %v", err)
	}
	if ids := boardIDs(got); len(ids) != 1 || ids[0] != "b2" {
		t.Errorf("ListBoardsForTicket(t1) after remove = %v, want [b2]", ids)
	}

	none, err := s.ListBoardsForTicket(ctx, "unknown")
	if err != nil || len(none) != 0 {
		t.Errorf("ListBoardsForTicket(unknown) = %v, %v, want empty", boardIDs(none), err)
	}

	project1, err := s.ListBoards(ctx, "p1")
	if err != nil {
		t.Fatalf("ListBoards() error = %v", err)
	}
	if ids := boardIDs(project1); len(ids) != 2 || ids[0] != "b1" || ids[1] != "b2" {
		t.Errorf("ListBoards(p1) = %v, want [b1 b2]", ids)
	}
}

func testBoardConflict(t *testing.T, s ports.Store) {
	ctx := context.Background()
	newBoard(t, s, "b1", "p1", epoch)

	a, _ := s.GetBoard(ctx, "b1")
	b, _ := s.GetBoard(ctx, "b1")

	if _, err := a.AddTicket("t1", "", workitem.StatusOpen, domain.SystemActor, epoch); err != nil {
		t.Fatalf("AddTicket() error = %v", err)
	}
	if err := s.SaveBoard(ctx, a); err != nil {
		t.Fatalf("SaveBoard(a) error = %v", err)
	}
	if _, err := b.AddTicket("t2", "", workitem.StatusOpen, domain.SystemActor, epoch); err != nil {
		t.Fatalf("AddTicket() error = %v", err)
	}
	wantErr(t, "stale SaveBoard()", s.SaveBoard(ctx, b), domain.ErrConflict)

	boards, err := s.ListBoardsForTicket(ctx, "t2")
	if err != nil || len(boards) != 0 {
		t.Errorf("ListBoardsForTicket(t2) = %v, %v, want empty after rejected save", boardIDs(boards), err)
	}
}

func testSprintLifecycle(t *testing.T, s ports.Store) {
	ctx := context.Background()
	sp := &sprint.Sprint{ID: "s1", ProjectID: "p1", Name: "Sprint 1", Status: sprint.StatusPlanned, CreatedAt: epoch}
	if err := s.CreateSprint(ctx, sp); err != nil {
		t.Fatalf("CreateSprint() error = %v", err)
	}
	wantErr(t, "CreateSprint(duplicate)", s.CreateSprint(ctx, &sprint.Sprint{ID: "s1"}), domain.ErrAlreadyExists)

	got, err := s.GetSprint(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSprint() error = %v", err)
	}
	if err := got.Assign(sprint.Assignment{ID: "a1", TicketID: "t1", AssigneeID: "u1", Estimate: 3, AssignedAt: epoch}); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if err := s.SaveSprint(ctx, got); err != nil {
		t.Fatalf("SaveSprint() error = %v", err)
	}
	wantErr(t, "stale SaveSprint()", s.SaveSprint(ctx, sp), domain.ErrConflict)

	reread, err := s.GetSprint(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSprint() error = %v", err)
	}
	if len(reread.Assignments) != 1 || reread.Metrics.TotalPoints != 3 || reread.Version != 2 {
		t.Errorf("GetSprint() = %+v, want one assignment, 3 points, version 2", reread)
	}
	_, err = s.GetSprint(ctx, "missing")
	wantErr(t, "GetSprint(missing)", err, domain.ErrNotFound)
}

func testBugLifecycle(t *testing.T, s ports.Store) {
	ctx := context.Background()
	for i, ticket := range []string{"t1", "t1", "t2"} {
		b, err := bug.New(bug.Bug{
			ID:         fmt.Sprintf("bug-%d", i+1),
			ProjectID:  "p1",
			TicketID:   ticket,
			Title:      "Crash",
			ReporterID: "u1",
		}, epoch.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("bug.New() error = %v", err)
		}
		if err := s.CreateBug(ctx, b); err != nil {
			t.Fatalf("CreateBug() error = %v", err)
		}
	}

	got, err := s.GetBug(ctx, "bug-1")
	if err != nil {
		t.Fatalf("GetBug() error = %v", err)
	}
	if err := got.Transition(bug.StatusAssigned, "u2", "", epoch); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if err := s.SaveBug(ctx, got); err != nil {
		t.Fatalf("SaveBug() error = %v", err)
	}

	reread, err := s.GetBug(ctx, "bug-1")
	if err != nil {
		t.Fatalf("GetBug() error = %v", err)
	}
	if reread.Status != bug.StatusAssigned || len(reread.StatusHistory) != 2 {
		t.Errorf("GetBug() status=%s history=%d, want ASSIGNED, 2", reread.Status, len(reread.StatusHistory))
	}

	forTicket, err := s.ListBugsForTicket(ctx, "t1")
	if err != nil {
		t.Fatalf("ListBugsForTicket() error = %v", err)
	}
	if len(forTicket) != 2 || forTicket[0].ID != "bug-1" || forTicket[1].ID != "bug-2" {
		t.Errorf("ListBugsForTicket(t1) = %d bugs, want [bug-1 bug-2]", len(forTicket))
	}
}

func testFlags(t *testing.T, s ports.Store) {
	ctx := context.Background()

	flags := []domain.ReconcileFlag{
		{TicketID: "t1", BoardID: "b1", Reason: "full", FlaggedAt: epoch},
		{TicketID: "t2", BoardID: "b1", Reason: "full", FlaggedAt: epoch.Add(time.Second)},
		{TicketID: "t1", BoardID: "b2", Reason: "full", FlaggedAt: epoch.Add(2 * time.Second)},
		{TicketID: "t1", BoardID: "b1", Reason: "still full", FlaggedAt: epoch.Add(3 * time.Second)},
	}
	for _, f := range flags {
		if err := s.FlagBoard(ctx, f); err != nil {
			t.Fatalf("FlagBoard() error = %v", err)
		}
	}

	all, err := s.ListFlags(ctx, "")
	if err != nil {
		t.Fatalf("ListFlags() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(ListFlags()) = %d, want 3 after upsert", len(all))
	}
	if all[2].TicketID != "t1" || all[2].BoardID != "b1" || all[2].Reason != "still full" {
		t.Errorf("newest flag = %+v, want upserted t1/b1", all[2])
	}

	t1, err := s.ListFlags(ctx, "t1")
	if err != nil || len(t1) != 2 {
		t.Fatalf("ListFlags(t1) = %v, %v, want 2 flags", t1, err)
	}

	if err := s.ClearFlag(ctx, "t1", "b1"); err != nil {
		t.Fatalf("ClearFlag() error = %v", err)
	}
	if err := s.ClearFlag(ctx, "t1", "b1"); err != nil {
		t.Fatalf("ClearFlag(absent) error = %v", err)
	}
	t1, _ = s.ListFlags(ctx, "t1")
	if len(t1) != 1 || t1[0].BoardID != "b2" {
		t.Errorf("ListFlags(t1) after clear = %+v, want only b2", t1)
	}
}

func testHealth(t *testing.T, s ports.Store) {
	ctx := context.Background()
	if s.Name() == "" {
		t.Error("Name() is empty")
	}
	if err := s.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() = %v, want nil", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() after Close = nil, want error")
	}
}
