package app

import (
	"context"
	"slices"
	"testing"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/kanban"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
)

func TestReconciler_FlagsFullColumnAndClearsOnRetry(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	b1 := f.board(t, "Team", false)
	b2 := f.board(t, "Narrow", false,
		kanban.Column{ID: "todo", StatusMapping: workitem.StatusOpen},
		kanban.Column{ID: "shipped", StatusMapping: workitem.StatusDone, WIPLimit: 1},
	)
	blocker := f.item(t, "already shipped")
	f.addTicket(t, b2.ID, blocker.ID, "shipped")

	w := f.item(t, "T1")
	f.addTicket(t, b1.ID, w.ID, "")
	f.addTicket(t, b2.ID, w.ID, "")

	// The status write succeeds even though one board cannot follow.
	if got := f.setStatus(t, w.ID, workitem.StatusDone); got.Status != workitem.StatusDone {
		t.Fatalf("Status = %q, want done", got.Status)
	}
	if col := columnOf(f.getBoard(t, b1.ID), w.ID); col != "done" {
		t.Errorf("B1 column = %q, want done", col)
	}
	if col := columnOf(f.getBoard(t, b2.ID), w.ID); col != "todo" {
		t.Errorf("B2 column = %q, want todo (left in place)", col)
	}

	flags, err := f.svc.WorkItems.ListFlags(ctx, w.ID)
	if err != nil {
		t.Fatalf("ListFlags() error = %v", err)
	}
	if len(flags) != 1 || flags[0].BoardID != b2.ID {
		t.Fatalf("ListFlags() = %+v, want one flag for %s", flags, b2.ID)
	}
	if flags[0].FlaggedAt.IsZero() || flags[0].Reason == "" {
		t.Errorf("flag = %+v, want reason and timestamp", flags[0])
	}

	// A retry while the column is still full keeps the flag.
	report, err := f.svc.WorkItems.Reconcile(ctx, w.ID)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(report.Flagged) != 1 || !slices.Contains(report.Unchanged, b1.ID) {
		t.Errorf("report = %+v, want B2 flagged and B1 unchanged", report)
	}

	if _, err := f.svc.Boards.UpdateColumn(ctx, manager, b2.ID, "shipped", kanban.ColumnUpdate{WIPLimit: ptr(2)}); err != nil {
		t.Fatalf("UpdateColumn() error = %v", err)
	}
	report, err = f.svc.WorkItems.Reconcile(ctx, w.ID)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if !slices.Contains(report.Moved, b2.ID) || len(report.Flagged) != 0 {
		t.Errorf("report = %+v, want B2 moved and nothing flagged", report)
	}
	if col := columnOf(f.getBoard(t, b2.ID), w.ID); col != "shipped" {
		t.Errorf("B2 column = %q, want shipped", col)
	}

	flags, err = f.svc.WorkItems.ListFlags(ctx, w.ID)
	if err != nil {
		t.Fatalf("ListFlags() error = %v", err)
	}
	if len(flags) != 0 {
		t.Errorf("ListFlags() = %+v, want none after a successful reconcile", flags)
	}

	records, err := f.audit.Activity(ctx, domain.EntityBoard, b2.ID)
	if err != nil {
		t.Fatalf("Activity() error = %v", err)
	}
	if n := countActions(records, domain.ActionTicketReconciled); n != 1 {
		t.Errorf("ticket_reconciled records = %d, want 1", n)
	}
}

func TestReconciler_ReconcileTicket(t *testing.T) {
	t.Parallel()

	t.Run("ticket on no boards", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		w := f.item(t, "T1")

		report, err := f.svc.Reconciler.ReconcileTicket(context.Background(), w.ID)
		if err != nil {
			t.Fatalf("ReconcileTicket() error = %v", err)
		}
		if len(report.Moved)+len(report.Unchanged)+len(report.Flagged) != 0 {
			t.Errorf("report = %+v, want empty", report)
		}
	})

	t.Run("status without a mapped column", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		b := f.board(t, "Small", false,
			kanban.Column{ID: "todo", StatusMapping: workitem.StatusOpen},
			kanban.Column{ID: "done", StatusMapping: workitem.StatusDone},
		)
		w := f.item(t, "T1")
		f.addTicket(t, b.ID, w.ID, "")
		f.setStatus(t, w.ID, workitem.StatusCodeReview)

		report, err := f.svc.Reconciler.ReconcileTicket(context.Background(), w.ID)
		if err != nil {
			t.Fatalf("ReconcileTicket() error = %v", err)
		}
		if !slices.Contains(report.Unchanged, b.ID) {
			t.Errorf("report = %+v, want board unchanged", report)
		}
		if col := columnOf(f.getBoard(t, b.ID), w.ID); col != "todo" {
			t.Errorf("column = %q, want todo", col)
		}
	})

	t.Run("many boards converge", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		w := f.item(t, "T1")
		ids := make([]string, 6)
		for i := range ids {
			ids[i] = f.board(t, "B", false).ID
			f.addTicket(t, ids[i], w.ID, "")
		}

		f.setStatus(t, w.ID, workitem.StatusTesting)
		for _, id := range ids {
			b := f.getBoard(t, id)
			if col := columnOf(b, w.ID); col != "testing" {
				t.Errorf("board %s column = %q, want testing", id, col)
			}
			assertDense(t, b)
		}
	})

	t.Run("unknown ticket", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		if _, err := f.svc.Reconciler.ReconcileTicket(context.Background(), "missing"); err == nil {
			t.Error("ReconcileTicket(missing) error = nil, want not found")
		}
	})
}

func TestReconciler_ReconcileFlagged(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	b := f.board(t, "Narrow", false,
		kanban.Column{ID: "todo", StatusMapping: workitem.StatusOpen},
		kanban.Column{ID: "shipped", StatusMapping: workitem.StatusDone, WIPLimit: 1},
	)
	blocker := f.item(t, "already shipped")
	f.addTicket(t, b.ID, blocker.ID, "shipped")
	w1, w2 := f.item(t, "T1"), f.item(t, "T2")
	for _, w := range []*workitem.WorkItem{w1, w2} {
		f.addTicket(t, b.ID, w.ID, "")
		f.setStatus(t, w.ID, workitem.StatusDone)
	}

	if flags, _ := f.svc.WorkItems.ListFlags(ctx, ""); len(flags) != 2 {
		t.Fatalf("ListFlags() = %+v, want two flags", flags)
	}

	if _, err := f.svc.Boards.UpdateColumn(ctx, manager, b.ID, "shipped", kanban.ColumnUpdate{WIPLimit: ptr(3)}); err != nil {
		t.Fatalf("UpdateColumn() error = %v", err)
	}

	reports, err := f.svc.Reconciler.ReconcileFlagged(ctx)
	if err != nil {
		t.Fatalf("ReconcileFlagged() error = %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("len(reports) = %d, want 2", len(reports))
	}
	for _, r := range reports {
		if !slices.Contains(r.Moved, b.ID) {
			t.Errorf("report for %s = %+v, want board moved", r.TicketID, r)
		}
	}
	if flags, _ := f.svc.WorkItems.ListFlags(ctx, ""); len(flags) != 0 {
		t.Errorf("ListFlags() = %+v, want none", flags)
	}

	reports, err = f.svc.Reconciler.ReconcileFlagged(ctx)
	if err != nil || len(reports) != 0 {
		t.Errorf("second pass = %v, %v, want nothing to do", reports, err)
	}
}
