package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/bug"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
)

// Bridge applies the side effects of bug transitions to the linked ticket.
// Nothing it does can fail the bug write that triggered it.
type Bridge struct {
	*core
	status *statusWriter
}

func newBridge(c *core, w *statusWriter) *Bridge {
	return &Bridge{core: c, status: w}
}

// Apply runs the side effect for the bug's new status, if it has one.
//
// RESOLVED writes the configured status to the ticket together with exactly
// one system comment, then reconciles the ticket's boards. ASSIGNED leaves
// the ticket's status alone and makes the reporter a watcher of the ticket.
func (b *Bridge) Apply(ctx context.Context, bg *bug.Bug) {
	var err error
	switch bg.Status {
	case bug.StatusResolved:
		_, _, err = b.status.write(ctx, bg.TicketID, statusChange{
			actor:   domain.SystemActor,
			to:      b.resolvedInto,
			comment: resolvedComment(bg, b.resolvedInto),
		})
	case bug.StatusAssigned:
		_, err = b.updateItem(ctx, bg.TicketID, func(w *workitem.WorkItem) error {
			if w.AddWatcher(bg.ReporterID) {
				w.UpdatedAt = b.now()
			}
			return nil
		})
	default:
		return
	}

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		b.logger.WarnContext(ctx, "linked ticket not found, skipping bug side effect",
			slog.String("bug_id", bg.ID),
			slog.String("ticket_id", bg.TicketID),
			slog.String("bug_status", string(bg.Status)),
		)
	default:
		b.sideEffectFailed(ctx, "bug_bridge", err,
			slog.String("bug_id", bg.ID),
			slog.String("ticket_id", bg.TicketID),
		)
	}
}

func resolvedComment(bg *bug.Bug, to workitem.Status) string {
	return fmt.Sprintf("Bug %q (%s) was resolved; ticket set to %s for verification.", bg.Title, bg.ID, to)
}
