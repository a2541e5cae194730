package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/kanban"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

// BoardService implements ports.BoardService.
type BoardService struct {
	*core
	status *statusWriter
}

var _ ports.BoardService = (*BoardService)(nil)

// NewBoardService creates a BoardService.
func NewBoardService(d Deps) *BoardService {
	c := newCore(d)
	return newBoardService(c, newStatusWriter(c, newReconciler(c)))
}

func newBoardService(c *core, w *statusWriter) *BoardService {
	return &BoardService{core: c, status: w}
}

// CreateBoard stores a new empty board. A board without columns gets one
// column per work item status.
func (s *BoardService) CreateBoard(ctx context.Context, actor domain.Actor, b *kanban.Board) (*kanban.Board, error) {
	s.logger.InfoContext(ctx, "creating board",
		slog.String("project_id", b.ProjectID),
		slog.String("name", b.Name),
	)
	if err := requirePrivileged(actor, "create boards"); err != nil {
		return nil, s.fail(ctx, "CreateBoard", err)
	}
	if _, err := s.store.GetProject(ctx, b.ProjectID); err != nil {
		return nil, s.fail(ctx, "CreateBoard", err)
	}

	now := s.now()
	created := *b
	if created.ID == "" {
		created.ID = newID()
	}
	if created.OwnerID == "" {
		created.OwnerID = actor.ID
	}
	if len(created.Columns) == 0 {
		created.Columns = kanban.DefaultColumns()
	} else {
		created.Columns = make([]kanban.Column, len(b.Columns))
		for i, col := range b.Columns {
			col.Tickets = nil
			created.Columns[i] = col
		}
	}
	created.RecentActivity = nil
	created.CreatedAt = now
	created.UpdatedAt = now

	if err := created.Validate(); err != nil {
		return nil, s.fail(ctx, "CreateBoard", err)
	}
	if err := s.store.CreateBoard(ctx, &created); err != nil {
		return nil, s.fail(ctx, "CreateBoard", err)
	}

	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityBoard,
		EntityID:   created.ID,
		ProjectID:  created.ProjectID,
		ActorID:    actor.ID,
		Action:     domain.ActionCreated,
		NewValue:   created.Name,
	})
	return &created, nil
}

// GetBoard returns the board.
func (s *BoardService) GetBoard(ctx context.Context, id string) (*kanban.Board, error) {
	b, err := s.store.GetBoard(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "GetBoard", err)
	}
	return b, nil
}

// ListBoards returns the project's boards, oldest first.
func (s *BoardService) ListBoards(ctx context.Context, projectID string) ([]kanban.Board, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, s.fail(ctx, "ListBoards", err)
	}
	boards, err := s.store.ListBoards(ctx, projectID)
	if err != nil {
		return nil, s.fail(ctx, "ListBoards", err)
	}
	return boards, nil
}

// AddTicket puts a card for the ticket on the board. An empty columnID
// selects the column mapped to the ticket's status.
func (s *BoardService) AddTicket(ctx context.Context, actor domain.Actor, boardID, ticketID, columnID string) (*kanban.Board, error) {
	if err := requireContributor(actor, "arrange boards"); err != nil {
		return nil, s.fail(ctx, "AddTicket", err)
	}
	item, err := s.liveItem(ctx, ticketID)
	if err != nil {
		return nil, s.fail(ctx, "AddTicket", err)
	}

	var col *kanban.Column
	b, err := s.updateBoard(ctx, boardID, func(b *kanban.Board, now time.Time) error {
		if b.ProjectID != item.ProjectID {
			return &domain.ValidationError{Fields: map[string]string{
				"ticket_id": fmt.Sprintf("ticket %s belongs to project %s, board to %s", item.ID, item.ProjectID, b.ProjectID),
			}}
		}
		var err error
		col, err = b.AddTicket(ticketID, columnID, item.Status, actor, now)
		if err != nil {
			return err
		}
		b.RecordActivity(kanban.Activity{
			TicketID: ticketID,
			Action:   domain.ActionTicketAdded,
			ToColumn: col.ID,
			ActorID:  actor.ID,
			At:       now,
		}, s.activityCap)
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "AddTicket", err)
	}

	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityBoard,
		EntityID:   b.ID,
		ProjectID:  b.ProjectID,
		ActorID:    actor.ID,
		Action:     domain.ActionTicketAdded,
		NewValue:   ticketID + "@" + col.ID,
	})
	return b, nil
}

// RemoveTicket takes the ticket's card off the board and drops any
// reconciliation flag for the pair.
func (s *BoardService) RemoveTicket(ctx context.Context, actor domain.Actor, boardID, ticketID string) (*kanban.Board, error) {
	if err := requireContributor(actor, "arrange boards"); err != nil {
		return nil, s.fail(ctx, "RemoveTicket", err)
	}

	var col *kanban.Column
	b, err := s.updateBoard(ctx, boardID, func(b *kanban.Board, now time.Time) error {
		var err error
		col, err = b.RemoveTicket(ticketID, now)
		if err != nil {
			return err
		}
		b.RecordActivity(kanban.Activity{
			TicketID:   ticketID,
			Action:     domain.ActionTicketRemoved,
			FromColumn: col.ID,
			ActorID:    actor.ID,
			At:         now,
		}, s.activityCap)
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "RemoveTicket", err)
	}

	if err := s.store.ClearFlag(ctx, ticketID, boardID); err != nil {
		s.sideEffectFailed(ctx, "reconcile", err, slog.String("board_id", boardID))
	}
	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityBoard,
		EntityID:   b.ID,
		ProjectID:  b.ProjectID,
		ActorID:    actor.ID,
		Action:     domain.ActionTicketRemoved,
		OldValue:   ticketID + "@" + col.ID,
	})
	return b, nil
}

// MoveTicket moves a card between or within columns after the rule engine
// has allowed the move for the actor's role. On a board with
// AutoMoveOnStatusChange, a card landing in a column whose mapping differs
// from the ticket's status writes that status back to the ticket, which
// then reconciles the ticket's other boards. A failed write-back leaves the
// move in place.
func (s *BoardService) MoveTicket(ctx context.Context, actor domain.Actor, req ports.MoveRequest) (*kanban.Board, error) {
	s.logger.InfoContext(ctx, "moving ticket",
		slog.String("board_id", req.BoardID),
		slog.String("ticket_id", req.TicketID),
		slog.String("from", req.FromColumn),
		slog.String("to", req.ToColumn),
	)

	var move kanban.Move
	b, err := s.updateBoard(ctx, req.BoardID, func(b *kanban.Board, now time.Time) error {
		var err error
		move, err = b.MoveTicket(s.engine, actor, req.TicketID, req.FromColumn, req.ToColumn, req.TargetIndex, now)
		if err != nil {
			return err
		}
		b.RecordActivity(kanban.Activity{
			TicketID:   req.TicketID,
			Action:     domain.ActionTicketMoved,
			FromColumn: move.FromColumn,
			ToColumn:   move.ToColumn,
			ActorID:    actor.ID,
			At:         now,
		}, s.activityCap)
		return nil
	})
	if err != nil {
		if isRuleDenial(err) {
			s.metrics.RecordTransition(ctx, domain.EntityBoard, false)
		}
		return nil, s.fail(ctx, "MoveTicket", err)
	}
	s.metrics.RecordTransition(ctx, domain.EntityBoard, true)

	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityBoard,
		EntityID:   b.ID,
		ProjectID:  b.ProjectID,
		ActorID:    actor.ID,
		Action:     domain.ActionTicketMoved,
		OldValue:   move.FromColumn,
		NewValue:   move.ToColumn,
	})

	item, err := s.store.GetWorkItem(ctx, req.TicketID)
	if err != nil {
		s.sideEffectFailed(ctx, "board_propagation", err, slog.String("ticket_id", req.TicketID))
		return b, nil
	}
	s.publish(ctx, actor, domain.Event{
		TargetUserIDs: item.Audience(),
		ProjectID:     b.ProjectID,
		Type:          domain.EventTicketMoved,
		Payload: map[string]any{
			"board_id":    b.ID,
			"item_id":     item.ID,
			"from_column": move.FromColumn,
			"to_column":   move.ToColumn,
			"position":    move.Position,
		},
	})

	if !b.AutoMoveOnStatusChange || item.Removed || move.ToStatus == item.Status {
		return b, nil
	}
	ch := statusChange{actor: actor, to: move.ToStatus}
	if _, _, err := s.status.write(ctx, item.ID, ch); err != nil {
		s.sideEffectFailed(ctx, "board_propagation", err,
			slog.String("ticket_id", item.ID),
			slog.String("board_id", b.ID),
		)
	}
	return b, nil
}

// UpdateColumn changes a column's name or WIP limit. Only the board owner
// or a privileged role may do so.
func (s *BoardService) UpdateColumn(ctx context.Context, actor domain.Actor, boardID, columnID string, u kanban.ColumnUpdate) (*kanban.Board, error) {
	b, err := s.updateBoard(ctx, boardID, func(b *kanban.Board, now time.Time) error {
		if !b.CanManage(actor) {
			return forbidden(actor, "configure board "+b.ID)
		}
		_, err := b.UpdateColumn(columnID, u, now)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "UpdateColumn", err)
	}

	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityBoard,
		EntityID:   b.ID,
		ProjectID:  b.ProjectID,
		ActorID:    actor.ID,
		Action:     domain.ActionColumnUpdated,
		NewValue:   columnID,
	})
	return b, nil
}

// updateBoard runs fn on a fresh copy of the board and saves it, retrying on
// conflict.
func (s *BoardService) updateBoard(ctx context.Context, id string, fn func(*kanban.Board, time.Time) error) (*kanban.Board, error) {
	var b *kanban.Board
	err := s.retryOnConflict(ctx, domain.EntityBoard, func() error {
		var err error
		b, err = s.store.GetBoard(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(b, s.now()); err != nil {
			return err
		}
		return s.store.SaveBoard(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func isRuleDenial(err error) bool {
	return errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrCapacityExceeded)
}
