package kanban_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/kanban"
	"github.com/jsamuelsen11/trackflow/internal/domain/workflow"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
)

var (
	now     = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	manager = domain.Actor{ID: "pm", Role: domain.RoleManager}
	dev     = domain.Actor{ID: "dev", Role: domain.RoleDeveloper}
)

func newBoard(t *testing.T) *kanban.Board {
	t.Helper()
	b := &kanban.Board{
		ID:        "b1",
		ProjectID: "p1",
		Name:      "Team board",
		Columns:   kanban.DefaultColumns(),
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	return b
}

func positions(c *kanban.Column) []string {
	out := make([]string, len(c.Tickets))
	for i, r := range c.Tickets {
		out[i] = fmt.Sprintf("%d:%s", r.Position, r.TicketID)
	}
	return out
}

func requireDense(t *testing.T, b *kanban.Board) {
	t.Helper()
	seen := map[string]bool{}
	for _, c := range b.Columns {
		for i, r := range c.Tickets {
			if r.Position != i+1 {
				t.Errorf("column %s: ticket %s at position %d, want %d", c.ID, r.TicketID, r.Position, i+1)
			}
			if seen[r.TicketID] {
				t.Errorf("ticket %s appears twice", r.TicketID)
			}
			seen[r.TicketID] = true
		}
	}
}

func TestBoard_Validate(t *testing.T) {
	t.Parallel()

	b := &kanban.Board{
		ProjectID: "p1",
		Name:      "x",
		Columns: []kanban.Column{
			{ID: "a", StatusMapping: workitem.StatusOpen},
			{ID: "a", StatusMapping: "nope", WIPLimit: -1},
		},
	}
	err := b.Validate()

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() = %v, want *ValidationError", err)
	}
	for _, f := range []string{"columns[1].id", "columns[1].status_mapping", "columns[1].wip_limit"} {
		if _, ok := verr.Fields[f]; !ok {
			t.Errorf("Fields missing %q: %v", f, verr.Fields)
		}
	}
}

func TestBoard_AddTicket(t *testing.T) {
	t.Parallel()

	t.Run("defaults to column mapped to status", func(t *testing.T) {
		t.Parallel()
		b := newBoard(t)

		col, err := b.AddTicket("t1", "", workitem.StatusTesting, manager, now)
		if err != nil {
			t.Fatalf("AddTicket() = %v", err)
		}
		if col.ID != "testing" {
			t.Errorf("column = %q, want testing", col.ID)
		}
	})

	t.Run("falls back to first column", func(t *testing.T) {
		t.Parallel()
		b := &kanban.Board{ID: "b", Columns: []kanban.Column{
			{ID: "later", StatusMapping: workitem.StatusDone},
			{ID: "review", StatusMapping: workitem.StatusCodeReview},
		}}

		col, err := b.AddTicket("t1", "", workitem.StatusOpen, manager, now)
		if err != nil {
			t.Fatalf("AddTicket() = %v", err)
		}
		if col.ID != "later" {
			t.Errorf("column = %q, want later", col.ID)
		}
	})

	t.Run("duplicate is already exists", func(t *testing.T) {
		t.Parallel()
		b := newBoard(t)
		_, _ = b.AddTicket("t1", "", workitem.StatusOpen, manager, now)

		_, err := b.AddTicket("t1", "done", workitem.StatusOpen, manager, now)
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("AddTicket(dup) = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("full column is capacity error", func(t *testing.T) {
		t.Parallel()
		b := newBoard(t)
		b.Columns[0].WIPLimit = 1
		_, _ = b.AddTicket("t1", "open", workitem.StatusOpen, manager, now)

		_, err := b.AddTicket("t2", "open", workitem.StatusOpen, manager, now)
		if !errors.Is(err, domain.ErrCapacityExceeded) {
			t.Errorf("AddTicket(full) = %v, want ErrCapacityExceeded", err)
		}
	})

	t.Run("unknown column is not found", func(t *testing.T) {
		t.Parallel()
		b := newBoard(t)

		_, err := b.AddTicket("t1", "nope", workitem.StatusOpen, manager, now)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("AddTicket() = %v, want ErrNotFound", err)
		}
	})
}

func TestBoard_RemoveTicket_Renumbers(t *testing.T) {
	t.Parallel()

	b := newBoard(t)
	for _, id := range []string{"t1", "t2", "t3"} {
		if _, err := b.AddTicket(id, "open", workitem.StatusOpen, manager, now); err != nil {
			t.Fatal(err)
		}
	}

	col, err := b.RemoveTicket("t2", now)
	if err != nil {
		t.Fatalf("RemoveTicket() = %v", err)
	}
	got := positions(col)
	want := []string{"1:t1", "2:t3"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("positions = %v, want %v", got, want)
	}

	if _, err := b.RemoveTicket("t2", now); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("RemoveTicket(missing) = %v, want ErrNotFound", err)
	}
}

func TestBoard_MoveTicket(t *testing.T) {
	t.Parallel()

	engine := workflow.NewEngine()

	t.Run("cross column move with clamped index", func(t *testing.T) {
		t.Parallel()
		b := newBoard(t)
		_, _ = b.AddTicket("t1", "open", workitem.StatusOpen, manager, now)
		_, _ = b.AddTicket("t2", "in_progress", workitem.StatusInProgress, manager, now)

		mv, err := b.MoveTicket(engine, dev, "t1", "open", "in_progress", 99, now)
		if err != nil {
			t.Fatalf("MoveTicket() = %v", err)
		}
		if !mv.StatusChanged() || mv.ToStatus != workitem.StatusInProgress || mv.Position != 2 {
			t.Errorf("Move = %+v", mv)
		}
		col, _ := b.Column("in_progress")
		if got := fmt.Sprint(positions(col)); got != "[1:t2 2:t1]" {
			t.Errorf("positions = %s", got)
		}
		if col.Tickets[1].MovedBy != "dev" {
			t.Errorf("MovedBy = %q, want dev", col.Tickets[1].MovedBy)
		}
		requireDense(t, b)
	})

	t.Run("insert at head", func(t *testing.T) {
		t.Parallel()
		b := newBoard(t)
		_, _ = b.AddTicket("t1", "open", workitem.StatusOpen, manager, now)
		_, _ = b.AddTicket("t2", "in_progress", workitem.StatusInProgress, manager, now)

		if _, err := b.MoveTicket(engine, manager, "t1", "open", "in_progress", -3, now); err != nil {
			t.Fatalf("MoveTicket() = %v", err)
		}
		col, _ := b.Column("in_progress")
		if got := fmt.Sprint(positions(col)); got != "[1:t1 2:t2]" {
			t.Errorf("positions = %s", got)
		}
	})

	t.Run("ticket not in source column", func(t *testing.T) {
		t.Parallel()
		b := newBoard(t)
		_, _ = b.AddTicket("t1", "open", workitem.StatusOpen, manager, now)

		_, err := b.MoveTicket(engine, manager, "t1", "testing", "done", 0, now)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("MoveTicket() = %v, want ErrNotFound", err)
		}
	})

	t.Run("role denial leaves board untouched", func(t *testing.T) {
		t.Parallel()
		b := newBoard(t)
		_, _ = b.AddTicket("t1", "open", workitem.StatusOpen, manager, now)

		_, err := b.MoveTicket(engine, dev, "t1", "open", "done", 0, now)
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("MoveTicket() = %v, want ErrInvalidTransition", err)
		}
		col, _ := b.Column("open")
		if len(col.Tickets) != 1 {
			t.Errorf("open column has %d tickets, want 1", len(col.Tickets))
		}
	})

	t.Run("reorder inside a full column", func(t *testing.T) {
		t.Parallel()
		b := newBoard(t)
		b.Columns[0].WIPLimit = 2
		_, _ = b.AddTicket("t1", "open", workitem.StatusOpen, manager, now)
		_, _ = b.AddTicket("t2", "open", workitem.StatusOpen, manager, now)

		if _, err := b.MoveTicket(engine, dev, "t2", "open", "open", 0, now); err != nil {
			t.Fatalf("MoveTicket(reorder) = %v", err)
		}
		col, _ := b.Column("open")
		if got := fmt.Sprint(positions(col)); got != "[1:t2 2:t1]" {
			t.Errorf("positions = %s", got)
		}
	})
}

func TestBoard_WIPInvariantHoldsAcrossMoves(t *testing.T) {
	t.Parallel()

	engine := workflow.NewEngine()
	b := newBoard(t)
	for i := range b.Columns {
		b.Columns[i].WIPLimit = 2
	}
	for i := 1; i <= 2; i++ {
		for _, s := range []workitem.Status{workitem.StatusOpen, workitem.StatusInProgress} {
			id := fmt.Sprintf("%s-%d", s, i)
			if _, err := b.AddTicket(id, string(s), s, manager, now); err != nil {
				t.Fatal(err)
			}
		}
	}

	moves := []struct{ ticket, from, to string }{
		{"open-1", "open", "in_progress"},
		{"in_progress-1", "in_progress", "code_review"},
		{"open-1", "open", "in_progress"},
		{"open-2", "open", "code_review"},
		{"open-2", "code_review", "testing"},
		{"in_progress-2", "in_progress", "testing"},
		{"in_progress-1", "code_review", "done"},
	}
	for _, m := range moves {
		_, err := b.MoveTicket(engine, manager, m.ticket, m.from, m.to, 0, now)
		if err != nil && !errors.Is(err, domain.ErrCapacityExceeded) {
			t.Fatalf("MoveTicket(%s %s->%s) = %v", m.ticket, m.from, m.to, err)
		}
		for _, c := range b.Columns {
			if c.WIPLimit > 0 && len(c.Tickets) > c.WIPLimit {
				t.Fatalf("column %s holds %d, limit %d", c.ID, len(c.Tickets), c.WIPLimit)
			}
		}
		requireDense(t, b)
	}
}

func TestBoard_Place(t *testing.T) {
	t.Parallel()

	t.Run("moves to first mapped column", func(t *testing.T) {
		t.Parallel()
		b := newBoard(t)
		_, _ = b.AddTicket("t1", "in_progress", workitem.StatusInProgress, dev, now)

		mv, p, err := b.Place("t1", workitem.StatusDone, now)
		if err != nil || p != kanban.PlacementMoved {
			t.Fatalf("Place() = %v, %v", p, err)
		}
		if mv.FromColumn != "in_progress" || mv.ToColumn != "done" {
			t.Errorf("Move = %+v", mv)
		}
		col, _ := b.Column("done")
		if col.Tickets[0].MovedBy != domain.SystemActor.ID {
			t.Errorf("MovedBy = %q, want system", col.Tickets[0].MovedBy)
		}
	})

	t.Run("no mapped column leaves ticket", func(t *testing.T) {
		t.Parallel()
		b := &kanban.Board{ID: "b", Columns: []kanban.Column{
			{ID: "a", StatusMapping: workitem.StatusOpen},
			{ID: "b", StatusMapping: workitem.StatusInProgress},
		}}
		_, _ = b.AddTicket("t1", "b", workitem.StatusInProgress, dev, now)

		_, p, err := b.Place("t1", workitem.StatusDone, now)
		if err != nil || p != kanban.PlacementUnchanged {
			t.Errorf("Place() = %v, %v, want unchanged", p, err)
		}
	})

	t.Run("current column already maps", func(t *testing.T) {
		t.Parallel()
		b := &kanban.Board{ID: "b", Columns: []kanban.Column{
			{ID: "qa-1", StatusMapping: workitem.StatusTesting},
			{ID: "qa-2", StatusMapping: workitem.StatusTesting},
		}}
		_, _ = b.AddTicket("t1", "qa-2", workitem.StatusTesting, dev, now)

		_, p, _ := b.Place("t1", workitem.StatusTesting, now)
		if p != kanban.PlacementUnchanged {
			t.Errorf("Place() = %v, want unchanged", p)
		}
	})

	t.Run("absent ticket", func(t *testing.T) {
		t.Parallel()
		b := newBoard(t)

		_, p, err := b.Place("t9", workitem.StatusDone, now)
		if err != nil || p != kanban.PlacementAbsent {
			t.Errorf("Place() = %v, %v, want absent", p, err)
		}
	})

	t.Run("full destination is not overfilled", func(t *testing.T) {
		t.Parallel()
		b := newBoard(t)
		_, _ = b.AddTicket("t1", "open", workitem.StatusOpen, dev, now)
		_, _ = b.AddTicket("t2", "done", workitem.StatusDone, dev, now)
		done, _ := b.Column("done")
		done.WIPLimit = 1

		_, _, err := b.Place("t1", workitem.StatusDone, now)
		if !errors.Is(err, domain.ErrCapacityExceeded) {
			t.Fatalf("Place() = %v, want ErrCapacityExceeded", err)
		}
		if len(done.Tickets) != 1 {
			t.Errorf("done holds %d, want 1", len(done.Tickets))
		}
	})
}

func TestBoard_UpdateColumn(t *testing.T) {
	t.Parallel()

	b := newBoard(t)
	_, _ = b.AddTicket("t1", "open", workitem.StatusOpen, dev, now)
	_, _ = b.AddTicket("t2", "open", workitem.StatusOpen, dev, now)

	one := 1
	if _, err := b.UpdateColumn("open", kanban.ColumnUpdate{WIPLimit: &one}, now); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("UpdateColumn(limit below occupancy) = %v, want ErrValidation", err)
	}

	three := 3
	name := "Backlog"
	col, err := b.UpdateColumn("open", kanban.ColumnUpdate{Name: &name, WIPLimit: &three}, now)
	if err != nil {
		t.Fatalf("UpdateColumn() = %v", err)
	}
	if col.Name != "Backlog" || col.WIPLimit != 3 {
		t.Errorf("column = %+v", col)
	}

	if _, err := b.UpdateColumn("missing", kanban.ColumnUpdate{}, now); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdateColumn(missing) = %v, want ErrNotFound", err)
	}
}

func TestBoard_RecordActivity_DropsOldest(t *testing.T) {
	t.Parallel()

	b := newBoard(t)
	for i := range 5 {
		b.RecordActivity(kanban.Activity{TicketID: fmt.Sprint(i)}, 3)
	}

	if len(b.RecentActivity) != 3 {
		t.Fatalf("len(RecentActivity) = %d, want 3", len(b.RecentActivity))
	}
	if b.RecentActivity[0].TicketID != "2" || b.RecentActivity[2].TicketID != "4" {
		t.Errorf("RecentActivity = %+v", b.RecentActivity)
	}
}

func TestBoard_CanManage(t *testing.T) {
	t.Parallel()

	b := &kanban.Board{OwnerID: "dev"}
	if !b.CanManage(dev) {
		t.Error("owner CanManage = false")
	}
	if !b.CanManage(manager) {
		t.Error("manager CanManage = false")
	}
	if b.CanManage(domain.Actor{ID: "qa", Role: domain.RoleTester}) {
		t.Error("stranger CanManage = true")
	}
	if b.CanManage(domain.Actor{ID: "dev", Role: domain.RoleViewer}) {
		t.Error("viewer owner CanManage = true")
	}
}
