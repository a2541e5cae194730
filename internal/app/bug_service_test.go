package app

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/bug"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

func (f *fixture) bug(t *testing.T, ticketID string) *bug.Bug {
	t.Helper()

	b, err := f.svc.Bugs.CreateBug(context.Background(), qa, &bug.Bug{
		ProjectID: f.project.ID,
		TicketID:  ticketID,
		Title:     "Crash on save",
	})
	if err != nil {
		t.Fatalf("CreateBug(%s) error = %v", ticketID, err)
	}
	return b
}

// walk transitions the bug through each status in order as dev.
func (f *fixture) walk(t *testing.T, id string, to ...bug.Status) *bug.Bug {
	t.Helper()

	var b *bug.Bug
	for _, s := range to {
		var err error
		b, err = f.svc.Bugs.TransitionBug(context.Background(), dev, id, ports.BugTransition{To: s, AssigneeID: dev.ID})
		if err != nil {
			t.Fatalf("TransitionBug(%s) error = %v", s, err)
		}
	}
	return b
}

func systemComments(w *workitem.WorkItem) int {
	n := 0
	for _, c := range w.Comments {
		if c.System {
			n++
		}
	}
	return n
}

func TestBugService_CreateBug(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	w := f.item(t, "T1")

	b := f.bug(t, w.ID)
	if b.Status != bug.StatusNew || b.ReporterID != qa.ID || b.Severity != bug.SeverityMedium {
		t.Errorf("bug = %+v, want NEW, reported by qa, medium", b)
	}
	if !slices.Contains(b.Watchers, qa.ID) {
		t.Errorf("Watchers = %v, want reporter", b.Watchers)
	}

	tests := []struct {
		name    string
		actor   domain.Actor
		in      bug.Bug
		wantErr error
	}{
		{name: "viewer is forbidden", actor: viewer, in: bug.Bug{ProjectID: f.project.ID, TicketID: w.ID, Title: "x"}, wantErr: domain.ErrForbidden},
		{name: "missing ticket", actor: qa, in: bug.Bug{ProjectID: f.project.ID, TicketID: "nope", Title: "x"}, wantErr: domain.ErrNotFound},
		{name: "other project", actor: qa, in: bug.Bug{ProjectID: "other", TicketID: w.ID, Title: "x"}, wantErr: domain.ErrValidation},
		{name: "bad severity", actor: qa, in: bug.Bug{ProjectID: f.project.ID, TicketID: w.ID, Title: "x", Severity: "meh"}, wantErr: domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Bugs.CreateBug(ctx, tt.actor, &tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateBug() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	bugs, err := f.svc.Bugs.ListBugsForTicket(ctx, w.ID)
	if err != nil {
		t.Fatalf("ListBugsForTicket() error = %v", err)
	}
	if len(bugs) != 1 || bugs[0].ID != b.ID {
		t.Errorf("ListBugsForTicket() = %d bugs, want only %s", len(bugs), b.ID)
	}
}

func TestBugService_TransitionBug(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	w := f.item(t, "T1")
	b := f.bug(t, w.ID)

	_, err := f.svc.Bugs.TransitionBug(ctx, dev, b.ID, ports.BugTransition{To: bug.StatusResolved})
	var terr *domain.TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("TransitionBug(NEW to RESOLVED) error = %v, want *TransitionError", err)
	}
	if !slices.Equal(terr.Allowed, []string{string(bug.StatusAssigned)}) {
		t.Errorf("Allowed = %v, want [ASSIGNED]", terr.Allowed)
	}
	if _, err := f.svc.Bugs.TransitionBug(ctx, viewer, b.ID, ports.BugTransition{To: bug.StatusAssigned}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("TransitionBug(viewer) error = %v, want ErrForbidden", err)
	}

	got := f.walk(t, b.ID, bug.StatusAssigned, bug.StatusInProgress)
	if got.AssigneeID != dev.ID || !slices.Contains(got.Watchers, dev.ID) {
		t.Errorf("bug = assignee %q watchers %v, want dev assigned and watching", got.AssigneeID, got.Watchers)
	}
	if len(got.StatusHistory) != 3 {
		t.Fatalf("StatusHistory = %d entries, want 3", len(got.StatusHistory))
	}
	if s := bug.ReplayStatus(got.StatusHistory); s != got.Status {
		t.Errorf("ReplayStatus() = %q, want %q", s, got.Status)
	}

	stored, err := f.svc.Bugs.GetBug(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBug() error = %v", err)
	}
	if stored.Status != bug.StatusInProgress || stored.Version != got.Version {
		t.Errorf("stored = %s v%d, want IN_PROGRESS v%d", stored.Status, stored.Version, got.Version)
	}
}

func TestBugService_AssignedMakesReporterWatchTicket(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	w := f.item(t, "T1")
	b := f.bug(t, w.ID)

	f.walk(t, b.ID, bug.StatusAssigned)

	item := f.getItem(t, w.ID)
	if !slices.Contains(item.Watchers, qa.ID) {
		t.Errorf("ticket Watchers = %v, want reporter %s", item.Watchers, qa.ID)
	}
	if item.Status != workitem.StatusOpen {
		t.Errorf("ticket status = %q, want unchanged open", item.Status)
	}
}

func TestBugService_ResolvedMovesTicketToTesting(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	w := f.item(t, "T1")
	f.setStatus(t, w.ID, workitem.StatusInProgress)
	board := f.board(t, "B1", false)
	f.addTicket(t, board.ID, w.ID, "")
	b := f.bug(t, w.ID)

	f.walk(t, b.ID, bug.StatusAssigned, bug.StatusInProgress, bug.StatusResolved)

	item := f.getItem(t, w.ID)
	if item.Status != workitem.StatusTesting {
		t.Errorf("ticket status = %q, want testing", item.Status)
	}
	if n := systemComments(item); n != 1 {
		t.Errorf("system comments = %d, want exactly 1", n)
	}
	if col := columnOf(f.getBoard(t, board.ID), w.ID); col != "testing" {
		t.Errorf("board column = %q, want testing", col)
	}

	// Reopen and resolve again: one more comment per resolution.
	f.walk(t, b.ID, bug.StatusClosed, bug.StatusReopened, bug.StatusInProgress, bug.StatusResolved)
	if n := systemComments(f.getItem(t, w.ID)); n != 2 {
		t.Errorf("system comments after second resolve = %d, want 2", n)
	}
}

func TestBugService_ResolvedRecordsCommentThenStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	w := f.item(t, "T1")
	f.setStatus(t, w.ID, workitem.StatusInProgress)
	b := f.bug(t, w.ID)
	f.walk(t, b.ID, bug.StatusAssigned, bug.StatusInProgress)

	ctx := context.Background()
	before, err := f.audit.Activity(ctx, domain.EntityWorkItem, w.ID)
	if err != nil {
		t.Fatalf("Activity() error = %v", err)
	}
	f.walk(t, b.ID, bug.StatusResolved)
	all, err := f.audit.Activity(ctx, domain.EntityWorkItem, w.ID)
	if err != nil {
		t.Fatalf("Activity() error = %v", err)
	}

	got := all[len(before):]
	if len(got) != 2 {
		t.Fatalf("records for the resolution write = %d, want 2", len(got))
	}
	if got[0].Action != domain.ActionCommented || got[0].ActorID != domain.SystemActor.ID {
		t.Errorf("first record = %s by %s, want commented by system", got[0].Action, got[0].ActorID)
	}
	if got[1].Action != domain.ActionStatusChanged || got[1].OldValue != "in_progress" || got[1].NewValue != "testing" {
		t.Errorf("second record = %+v, want status_changed in_progress to testing", got[1])
	}
	if s := domain.ReplayStatus("open", all); s != "testing" {
		t.Errorf("ReplayStatus() = %q, want testing", s)
	}
}

func TestBugService_ResolvedUsesConfiguredStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(d *Deps) { d.Workflow.BugResolvedStatus = "code_review" })
	w := f.item(t, "T1")
	b := f.bug(t, w.ID)

	f.walk(t, b.ID, bug.StatusAssigned, bug.StatusInProgress, bug.StatusResolved)

	if got := f.getItem(t, w.ID).Status; got != workitem.StatusCodeReview {
		t.Errorf("ticket status = %q, want code_review", got)
	}
}

func TestBugService_ResolvedWithRemovedTicket(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	w := f.item(t, "T1")
	b := f.bug(t, w.ID)
	f.walk(t, b.ID, bug.StatusAssigned, bug.StatusInProgress)

	if err := f.svc.WorkItems.RemoveWorkItem(ctx, manager, w.ID); err != nil {
		t.Fatalf("RemoveWorkItem() error = %v", err)
	}

	got, err := f.svc.Bugs.TransitionBug(ctx, dev, b.ID, ports.BugTransition{To: bug.StatusResolved})
	if err != nil {
		t.Fatalf("TransitionBug(RESOLVED) error = %v, want nil despite removed ticket", err)
	}
	if got.Status != bug.StatusResolved {
		t.Errorf("Status = %q, want RESOLVED", got.Status)
	}
	item := f.getItem(t, w.ID)
	if item.Status != workitem.StatusOpen || systemComments(item) != 0 {
		t.Errorf("removed ticket = %q with %d system comments, want untouched", item.Status, systemComments(item))
	}
}
