package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/workflow"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
)

// statusChange describes one write of a ticket's canonical status.
type statusChange struct {
	actor domain.Actor
	to    workitem.Status
	// authorize runs the actor's role through the rule engine first. Forced
	// writes (bug bridge, sprint lifecycle, board auto-move) skip it.
	authorize bool
	// comment, when set, is appended as a system comment in the same write.
	comment string
	// when, if set, must hold for the freshly read item or nothing is
	// written.
	when func(*workitem.WorkItem) bool
}

// statusWriter is the single path through which a ticket's status changes.
// Every change it commits is recorded, announced and then reconciled onto
// the ticket's boards.
type statusWriter struct {
	*core
	reconciler *Reconciler
}

func newStatusWriter(c *core, r *Reconciler) *statusWriter {
	return &statusWriter{core: c, reconciler: r}
}

// write applies ch to the ticket and reports whether the status changed.
func (w *statusWriter) write(ctx context.Context, ticketID string, ch statusChange) (*workitem.WorkItem, bool, error) {
	var (
		item      *workitem.WorkItem
		from      workitem.Status
		changed   bool
		commented bool
	)
	err := w.retryOnConflict(ctx, domain.EntityWorkItem, func() error {
		p, fresh, err := w.itemForWrite(ctx, ticketID)
		if err != nil {
			return err
		}
		item = fresh
		from = item.Status
		changed, commented = false, false

		if ch.when != nil && !ch.when(item) {
			return nil
		}
		if ch.authorize {
			if err := w.engine.Authorize(ch.actor.Role, from, ch.to, workflow.Context{}); err != nil {
				w.metrics.RecordTransition(ctx, domain.EntityWorkItem, false)
				return err
			}
		}

		now := w.now()
		changed = item.SetStatus(ch.to, now)
		if ch.comment != "" {
			err := item.AddComment(workitem.Comment{
				ID:        newID(),
				AuthorID:  domain.SystemActor.ID,
				Body:      ch.comment,
				System:    true,
				CreatedAt: now,
			})
			if err != nil {
				return err
			}
			commented = true
		}
		if !changed && !commented {
			return nil
		}

		return w.store.SaveWorkItem(ctx, p, item)
	})
	if err != nil {
		return nil, false, err
	}

	// A commented write emits its own record ahead of status_changed, whose
	// NewValue must stay the status for replay.
	if commented {
		w.recorder.Record(ctx, domain.ActivityRecord{
			EntityType: domain.EntityWorkItem,
			EntityID:   item.ID,
			ProjectID:  item.ProjectID,
			ActorID:    domain.SystemActor.ID,
			Action:     domain.ActionCommented,
			NewValue:   ch.comment,
		})
	}
	if changed {
		w.statusChanged(ctx, ch.actor, item, from)
	}
	return item, changed, nil
}

func (w *statusWriter) statusChanged(ctx context.Context, actor domain.Actor, item *workitem.WorkItem, from workitem.Status) {
	w.metrics.RecordTransition(ctx, domain.EntityWorkItem, true)
	w.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityWorkItem,
		EntityID:   item.ID,
		ProjectID:  item.ProjectID,
		ActorID:    actor.ID,
		Action:     domain.ActionStatusChanged,
		OldValue:   from.String(),
		NewValue:   item.Status.String(),
	})
	w.publish(ctx, actor, domain.Event{
		TargetUserIDs: item.Audience(),
		ProjectID:     item.ProjectID,
		Type:          domain.EventWorkItemStatusChanged,
		Payload: map[string]any{
			"item_id": item.ID,
			"key":     item.Key,
			"from":    from.String(),
			"to":      item.Status.String(),
		},
	})

	if _, err := w.reconciler.ReconcileTicket(ctx, item.ID); err != nil {
		w.sideEffectFailed(ctx, "reconcile", err, slog.String("ticket_id", item.ID))
	}
}
