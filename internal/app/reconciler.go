package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen11/trackflow/internal/app/fanout"
	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/kanban"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

// Reconcile outcomes, also used as metric labels.
const (
	outcomeMoved     = "moved"
	outcomeUnchanged = "unchanged"
	outcomeFlagged   = "flagged"
)

// Reconciler re-projects a ticket's canonical status onto every board that
// holds it. It never writes the ticket itself.
type Reconciler struct {
	*core
}

// NewReconciler creates a Reconciler.
func NewReconciler(d Deps) *Reconciler {
	return &Reconciler{core: newCore(d)}
}

func newReconciler(c *core) *Reconciler {
	return &Reconciler{core: c}
}

type boardOutcome struct {
	result string
	flag   *domain.ReconcileFlag
}

// ReconcileTicket reads the ticket's current status and places its card on
// each board in the column mapped to that status, with bounded concurrency.
// A board that cannot be brought in line is flagged; a board that is in
// line has its flag cleared. Only failing to load the ticket or its boards
// is returned as an error.
func (r *Reconciler) ReconcileTicket(ctx context.Context, ticketID string) (*ports.ReconcileReport, error) {
	item, err := r.store.GetWorkItem(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("loading ticket %s: %w", ticketID, err)
	}
	boards, err := r.store.ListBoardsForTicket(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("listing boards for ticket %s: %w", ticketID, err)
	}

	report := &ports.ReconcileReport{TicketID: ticketID, Status: item.Status}
	if len(boards) == 0 {
		return report, nil
	}

	ids := make([]string, len(boards))
	for i := range boards {
		ids[i] = boards[i].ID
	}

	results := fanout.Run(ctx, r.workers, ids, func(ctx context.Context, boardID string) (boardOutcome, error) {
		return r.reconcileBoard(ctx, boardID, item.ID)
	})

	for i, res := range results {
		out := res.Value
		if res.Err != nil {
			out = r.flag(ctx, ticketID, ids[i], res.Err)
		}
		r.metrics.RecordReconcile(ctx, out.result)
		switch out.result {
		case outcomeMoved:
			report.Moved = append(report.Moved, ids[i])
		case outcomeUnchanged:
			report.Unchanged = append(report.Unchanged, ids[i])
		case outcomeFlagged:
			report.Flagged = append(report.Flagged, *out.flag)
		}
	}

	r.logger.DebugContext(ctx, "reconciled ticket",
		slog.String("ticket_id", ticketID),
		slog.String("status", item.Status.String()),
		slog.Int("moved", len(report.Moved)),
		slog.Int("flagged", len(report.Flagged)),
	)
	return report, nil
}

// ReconcileFlagged replays every ticket that has an outstanding flag, one
// ticket at a time. Tickets that cannot be loaded are skipped and their
// errors joined into the returned error; the reports of the others are
// still returned.
func (r *Reconciler) ReconcileFlagged(ctx context.Context) ([]ports.ReconcileReport, error) {
	flags, err := r.store.ListFlags(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing flags: %w", err)
	}

	seen := make(map[string]bool, len(flags))
	var (
		reports []ports.ReconcileReport
		errs    []error
	)
	for _, f := range flags {
		if seen[f.TicketID] {
			continue
		}
		seen[f.TicketID] = true

		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report, err := r.ReconcileTicket(ctx, f.TicketID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reports = append(reports, *report)
	}

	r.logger.InfoContext(ctx, "reconciled flagged tickets",
		slog.Int("tickets", len(seen)),
		slog.Int("failed", len(errs)),
	)
	return reports, errors.Join(errs...)
}

// reconcileBoard re-reads the board and the ticket on every attempt so that
// a retry after a conflict places the card for the latest status.
func (r *Reconciler) reconcileBoard(ctx context.Context, boardID, ticketID string) (boardOutcome, error) {
	var (
		move      kanban.Move
		placement kanban.Placement
		projectID string
	)
	err := r.retryOnConflict(ctx, domain.EntityBoard, func() error {
		item, err := r.store.GetWorkItem(ctx, ticketID)
		if err != nil {
			return err
		}
		b, err := r.store.GetBoard(ctx, boardID)
		if err != nil {
			return err
		}

		projectID = b.ProjectID
		now := r.now()
		move, placement, err = b.Place(ticketID, item.Status, now)
		if err != nil || placement != kanban.PlacementMoved {
			return err
		}
		b.RecordActivity(kanban.Activity{
			TicketID:   ticketID,
			Action:     domain.ActionTicketReconciled,
			FromColumn: move.FromColumn,
			ToColumn:   move.ToColumn,
			ActorID:    domain.SystemActor.ID,
			At:         now,
		}, r.activityCap)
		return r.store.SaveBoard(ctx, b)
	})

	var capErr *domain.CapacityError
	if errors.As(err, &capErr) {
		return r.flag(ctx, ticketID, boardID, err), nil
	}
	if err != nil {
		return boardOutcome{}, err
	}

	if cerr := r.store.ClearFlag(ctx, ticketID, boardID); cerr != nil {
		r.sideEffectFailed(ctx, "reconcile", cerr, slog.String("board_id", boardID))
	}
	if placement != kanban.PlacementMoved {
		return boardOutcome{result: outcomeUnchanged}, nil
	}

	r.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityBoard,
		EntityID:   boardID,
		ProjectID:  projectID,
		ActorID:    domain.SystemActor.ID,
		Action:     domain.ActionTicketReconciled,
		OldValue:   move.FromColumn,
		NewValue:   move.ToColumn,
	})
	return boardOutcome{result: outcomeMoved}, nil
}

func (r *Reconciler) flag(ctx context.Context, ticketID, boardID string, cause error) boardOutcome {
	f := domain.ReconcileFlag{
		TicketID:  ticketID,
		BoardID:   boardID,
		Reason:    cause.Error(),
		FlaggedAt: r.now(),
	}
	if err := r.store.FlagBoard(ctx, f); err != nil {
		r.sideEffectFailed(ctx, "reconcile", err, slog.String("board_id", boardID))
	}
	r.logger.WarnContext(ctx, "board flagged for reconciliation",
		slog.String("ticket_id", ticketID),
		slog.String("board_id", boardID),
		slog.String("reason", f.Reason),
	)
	return boardOutcome{result: outcomeFlagged, flag: &f}
}
