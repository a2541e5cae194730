package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/kanban"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

// --- CreateBoard ---

func TestBoardService_CreateBoard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	b := f.board(t, "Team", false)
	if len(b.Columns) != len(workitem.Statuses) {
		t.Fatalf("default columns = %d, want %d", len(b.Columns), len(workitem.Statuses))
	}
	if b.OwnerID != manager.ID || b.Version != 1 {
		t.Errorf("OwnerID, Version = %q, %d, want %q, 1", b.OwnerID, b.Version, manager.ID)
	}

	tests := []struct {
		name    string
		actor   domain.Actor
		board   kanban.Board
		wantErr error
	}{
		{name: "developer is forbidden", actor: dev, board: kanban.Board{ProjectID: f.project.ID, Name: "x"}, wantErr: domain.ErrForbidden},
		{name: "unknown project", actor: manager, board: kanban.Board{ProjectID: "nope", Name: "x"}, wantErr: domain.ErrNotFound},
		{
			name:  "duplicate column ids",
			actor: manager,
			board: kanban.Board{ProjectID: f.project.ID, Name: "x", Columns: []kanban.Column{
				{ID: "a", StatusMapping: workitem.StatusOpen},
				{ID: "a", StatusMapping: workitem.StatusDone},
			}},
			wantErr: domain.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Boards.CreateBoard(ctx, tt.actor, &tt.board)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateBoard() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	boards, err := f.svc.Boards.ListBoards(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("ListBoards() error = %v", err)
	}
	if len(boards) != 1 || boards[0].ID != b.ID {
		t.Errorf("ListBoards() = %d boards, want only %s", len(boards), b.ID)
	}
}

// --- AddTicket / RemoveTicket ---

func TestBoardService_AddTicket(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	w := f.item(t, "T1")
	f.setStatus(t, w.ID, workitem.StatusCodeReview)
	b := f.board(t, "B1", false)

	got, err := f.svc.Boards.AddTicket(ctx, dev, b.ID, w.ID, "")
	if err != nil {
		t.Fatalf("AddTicket() error = %v", err)
	}
	if col := columnOf(got, w.ID); col != string(workitem.StatusCodeReview) {
		t.Errorf("default column = %q, want code_review", col)
	}

	if _, err := f.svc.Boards.AddTicket(ctx, dev, b.ID, w.ID, ""); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("AddTicket(again) error = %v, want ErrAlreadyExists", err)
	}
	if _, err := f.svc.Boards.AddTicket(ctx, viewer, b.ID, w.ID, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("AddTicket(viewer) error = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Boards.AddTicket(ctx, dev, b.ID, "missing", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("AddTicket(missing ticket) error = %v, want ErrNotFound", err)
	}

	got, err = f.svc.Boards.RemoveTicket(ctx, dev, b.ID, w.ID)
	if err != nil {
		t.Fatalf("RemoveTicket() error = %v", err)
	}
	if col := columnOf(got, w.ID); col != "" {
		t.Errorf("ticket still in column %q after RemoveTicket", col)
	}
	if _, err := f.svc.Boards.RemoveTicket(ctx, dev, b.ID, w.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("RemoveTicket(absent) error = %v, want ErrNotFound", err)
	}
}

func TestBoardService_AddTicket_RespectsWIPLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	b := f.board(t, "B1", false,
		kanban.Column{ID: "todo", StatusMapping: workitem.StatusOpen, WIPLimit: 1},
	)
	f.addTicket(t, b.ID, f.item(t, "T1").ID, "")

	_, err := f.svc.Boards.AddTicket(context.Background(), dev, b.ID, f.item(t, "T2").ID, "")
	var capErr *domain.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("AddTicket(full column) error = %v, want *CapacityError", err)
	}
	if capErr.Limit != 1 || capErr.Occupancy != 1 {
		t.Errorf("CapacityError = %+v, want limit 1 occupancy 1", capErr)
	}
}

// --- MoveTicket ---

func TestBoardService_MoveTicket_Rules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		actor    domain.Actor
		from, to string
		wantErr  error
	}{
		{name: "developer open to in_progress", actor: dev, from: "open", to: "in_progress"},
		{name: "developer open to done", actor: dev, from: "open", to: "done", wantErr: domain.ErrInvalidTransition},
		{name: "tester open to testing", actor: qa, from: "open", to: "testing", wantErr: domain.ErrInvalidTransition},
		{name: "viewer reorder", actor: viewer, from: "open", to: "open", wantErr: domain.ErrInvalidTransition},
		{name: "manager open to done", actor: manager, from: "open", to: "done"},
		{name: "wrong source column", actor: dev, from: "testing", to: "in_progress", wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			w := f.item(t, "T1")
			b := f.board(t, "B1", false)
			f.addTicket(t, b.ID, w.ID, "")

			_, err := f.svc.Boards.MoveTicket(context.Background(), tt.actor, ports.MoveRequest{
				BoardID: b.ID, TicketID: w.ID, FromColumn: tt.from, ToColumn: tt.to,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("MoveTicket() error = %v, want %v", err, tt.wantErr)
			}

			want := "open"
			if tt.wantErr == nil {
				want = tt.to
			}
			if got := columnOf(f.getBoard(t, b.ID), w.ID); got != want {
				t.Errorf("column = %q, want %q", got, want)
			}
		})
	}
}

func TestBoardService_MoveTicket_WIPLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	b := f.board(t, "B1", false,
		kanban.Column{ID: "todo", StatusMapping: workitem.StatusOpen},
		kanban.Column{ID: "doing", StatusMapping: workitem.StatusInProgress, WIPLimit: 1},
	)
	t1, t2 := f.item(t, "T1"), f.item(t, "T2")
	f.addTicket(t, b.ID, t1.ID, "todo")
	f.addTicket(t, b.ID, t2.ID, "todo")

	move := func(id, from, to string, idx int) error {
		_, err := f.svc.Boards.MoveTicket(ctx, dev, ports.MoveRequest{
			BoardID: b.ID, TicketID: id, FromColumn: from, ToColumn: to, TargetIndex: idx,
		})
		return err
	}

	if err := move(t1.ID, "todo", "doing", 0); err != nil {
		t.Fatalf("first move error = %v", err)
	}
	if err := move(t2.ID, "todo", "doing", 0); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("second move error = %v, want ErrCapacityExceeded", err)
	}
	// Reordering inside a full column is exempt.
	if err := move(t1.ID, "doing", "doing", 5); err != nil {
		t.Errorf("same-column reorder error = %v, want nil", err)
	}

	got := f.getBoard(t, b.ID)
	doing, _ := got.Column("doing")
	if len(doing.Tickets) > doing.WIPLimit {
		t.Errorf("doing holds %d cards, limit %d", len(doing.Tickets), doing.WIPLimit)
	}
	assertDense(t, got)
}

func TestBoardService_MoveTicket_ReordersDensely(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	b := f.board(t, "B1", false)
	ids := make([]string, 4)
	for i := range ids {
		ids[i] = f.item(t, "T").ID
		f.addTicket(t, b.ID, ids[i], "")
	}

	got, err := f.svc.Boards.MoveTicket(context.Background(), dev, ports.MoveRequest{
		BoardID: b.ID, TicketID: ids[3], FromColumn: "open", ToColumn: "open", TargetIndex: 0,
	})
	if err != nil {
		t.Fatalf("MoveTicket() error = %v", err)
	}

	open, _ := got.Column("open")
	wantOrder := []string{ids[3], ids[0], ids[1], ids[2]}
	for i, r := range open.Tickets {
		if r.TicketID != wantOrder[i] {
			t.Errorf("position %d = %s, want %s", i+1, r.TicketID, wantOrder[i])
		}
	}
	assertDense(t, got)
	if n := len(got.RecentActivity); n == 0 || got.RecentActivity[n-1].Action != domain.ActionTicketMoved {
		t.Errorf("RecentActivity does not end with a move: %+v", got.RecentActivity)
	}
}

func TestBoardService_MoveTicket_AutoMove(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		autoMove   bool
		wantStatus workitem.Status
		wantOther  string
	}{
		{name: "propagates to item and other boards", autoMove: true, wantStatus: workitem.StatusInProgress, wantOther: "in_progress"},
		{name: "projection only", autoMove: false, wantStatus: workitem.StatusOpen, wantOther: "open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			w := f.item(t, "T1")
			b1 := f.board(t, "B1", tt.autoMove)
			b2 := f.board(t, "B2", false)
			f.addTicket(t, b1.ID, w.ID, "")
			f.addTicket(t, b2.ID, w.ID, "")

			_, err := f.svc.Boards.MoveTicket(context.Background(), dev, ports.MoveRequest{
				BoardID: b1.ID, TicketID: w.ID, FromColumn: "open", ToColumn: "in_progress",
			})
			if err != nil {
				t.Fatalf("MoveTicket() error = %v", err)
			}

			if got := f.getItem(t, w.ID).Status; got != tt.wantStatus {
				t.Errorf("item status = %q, want %q", got, tt.wantStatus)
			}
			if got := columnOf(f.getBoard(t, b2.ID), w.ID); got != tt.wantOther {
				t.Errorf("B2 column = %q, want %q", got, tt.wantOther)
			}
		})
	}
}

func TestBoardService_ConcurrentMovesOfDifferentTickets(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(d *Deps) { d.Workflow.MaxConflictRetries = 10 })
	b := f.board(t, "B1", false)
	t1, t2 := f.item(t, "T1"), f.item(t, "T2")
	f.addTicket(t, b.ID, t1.ID, "")
	f.addTicket(t, b.ID, t2.ID, "")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{t1.ID, t2.ID} {
		wg.Go(func() {
			_, errs[i] = f.svc.Boards.MoveTicket(context.Background(), dev, ports.MoveRequest{
				BoardID: b.ID, TicketID: id, FromColumn: "open", ToColumn: "in_progress",
			})
		})
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("move %d error = %v", i, err)
		}
	}
	got := f.getBoard(t, b.ID)
	doing, _ := got.Column("in_progress")
	if len(doing.Tickets) != 2 {
		t.Errorf("in_progress holds %d cards, want 2", len(doing.Tickets))
	}
	assertDense(t, got)
}

// --- UpdateColumn ---

func TestBoardService_UpdateColumn(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	b := f.board(t, "B1", false)
	f.addTicket(t, b.ID, f.item(t, "T1").ID, "")
	f.addTicket(t, b.ID, f.item(t, "T2").ID, "")

	tests := []struct {
		name    string
		actor   domain.Actor
		column  string
		update  kanban.ColumnUpdate
		wantErr error
	}{
		{name: "developer is not the owner", actor: dev, column: "open", update: kanban.ColumnUpdate{WIPLimit: ptr(3)}, wantErr: domain.ErrForbidden},
		{name: "limit below occupancy", actor: manager, column: "open", update: kanban.ColumnUpdate{WIPLimit: ptr(1)}, wantErr: domain.ErrValidation},
		{name: "unknown column", actor: manager, column: "nope", update: kanban.ColumnUpdate{Name: ptr("x")}, wantErr: domain.ErrNotFound},
		{name: "owner sets limit", actor: manager, column: "open", update: kanban.ColumnUpdate{WIPLimit: ptr(2), Name: ptr("Backlog")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Boards.UpdateColumn(ctx, tt.actor, b.ID, tt.column, tt.update)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("UpdateColumn() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			col, _ := got.Column("open")
			if col.WIPLimit != 2 || col.Name != "Backlog" {
				t.Errorf("column = %q limit %d, want Backlog limit 2", col.Name, col.WIPLimit)
			}
		})
	}
}
