package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/bug"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

// BugService implements ports.BugService.
type BugService struct {
	*core
	bridge *Bridge
}

var _ ports.BugService = (*BugService)(nil)

// NewBugService creates a BugService.
func NewBugService(d Deps) *BugService {
	c := newCore(d)
	return newBugService(c, newBridge(c, newStatusWriter(c, newReconciler(c))))
}

func newBugService(c *core, b *Bridge) *BugService {
	return &BugService{core: c, bridge: b}
}

// CreateBug files a bug against a ticket of the same project. The reporter
// defaults to the actor and watches the bug from the start.
func (s *BugService) CreateBug(ctx context.Context, actor domain.Actor, in *bug.Bug) (*bug.Bug, error) {
	s.logger.InfoContext(ctx, "creating bug",
		slog.String("project_id", in.ProjectID),
		slog.String("ticket_id", in.TicketID),
	)
	if err := requireContributor(actor, "file bugs"); err != nil {
		return nil, s.fail(ctx, "CreateBug", err)
	}

	draft := *in
	draft.Watchers = nil
	if draft.ReporterID == "" {
		draft.ReporterID = actor.ID
	}
	if draft.ID == "" {
		draft.ID = newID()
	}

	b, err := bug.New(draft, s.now())
	if err != nil {
		return nil, s.fail(ctx, "CreateBug", err)
	}
	item, err := s.liveItem(ctx, b.TicketID)
	if err != nil {
		return nil, s.fail(ctx, "CreateBug", err)
	}
	if item.ProjectID != b.ProjectID {
		err := &domain.ValidationError{Fields: map[string]string{
			"ticket_id": fmt.Sprintf("ticket %s belongs to project %s, not %s", item.ID, item.ProjectID, b.ProjectID),
		}}
		return nil, s.fail(ctx, "CreateBug", err)
	}
	if err := s.store.CreateBug(ctx, b); err != nil {
		return nil, s.fail(ctx, "CreateBug", err)
	}

	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityBug,
		EntityID:   b.ID,
		ProjectID:  b.ProjectID,
		ActorID:    actor.ID,
		Action:     domain.ActionCreated,
		NewValue:   string(b.Status),
	})
	s.publish(ctx, actor, domain.Event{
		TargetUserIDs: item.Audience(),
		ProjectID:     b.ProjectID,
		Type:          domain.EventBugCreated,
		Payload:       map[string]any{"bug_id": b.ID, "item_id": item.ID, "severity": string(b.Severity)},
	})
	return b, nil
}

// GetBug returns the bug with its status history.
func (s *BugService) GetBug(ctx context.Context, id string) (*bug.Bug, error) {
	b, err := s.store.GetBug(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "GetBug", err)
	}
	return b, nil
}

// ListBugsForTicket returns the bugs filed against a ticket.
func (s *BugService) ListBugsForTicket(ctx context.Context, ticketID string) ([]bug.Bug, error) {
	bugs, err := s.store.ListBugsForTicket(ctx, ticketID)
	if err != nil {
		return nil, s.fail(ctx, "ListBugsForTicket", err)
	}
	return bugs, nil
}

// TransitionBug moves the bug through its status machine, appending the
// history entry in the same write, and then applies the linked ticket side
// effects. A failing side effect does not fail the transition.
func (s *BugService) TransitionBug(ctx context.Context, actor domain.Actor, id string, t ports.BugTransition) (*bug.Bug, error) {
	s.logger.InfoContext(ctx, "transitioning bug",
		slog.String("bug_id", id),
		slog.String("to", string(t.To)),
	)
	if err := requireContributor(actor, "change bug status"); err != nil {
		return nil, s.fail(ctx, "TransitionBug", err)
	}

	var (
		b    *bug.Bug
		from bug.Status
	)
	err := s.retryOnConflict(ctx, domain.EntityBug, func() error {
		var err error
		b, err = s.store.GetBug(ctx, id)
		if err != nil {
			return err
		}
		from = b.Status
		if err := b.Transition(t.To, actor.ID, t.Reason, s.now()); err != nil {
			return err
		}
		if t.To == bug.StatusAssigned {
			if t.AssigneeID != "" {
				b.AssigneeID = t.AssigneeID
			}
			b.AddWatcher(b.ReporterID)
			b.AddWatcher(b.AssigneeID)
		}
		return s.store.SaveBug(ctx, b)
	})
	if err != nil {
		if isRuleDenial(err) {
			s.metrics.RecordTransition(ctx, domain.EntityBug, false)
		}
		return nil, s.fail(ctx, "TransitionBug", err)
	}

	s.metrics.RecordTransition(ctx, domain.EntityBug, true)
	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityBug,
		EntityID:   b.ID,
		ProjectID:  b.ProjectID,
		ActorID:    actor.ID,
		Action:     domain.ActionStatusChanged,
		OldValue:   string(from),
		NewValue:   string(b.Status),
	})
	s.publish(ctx, actor, domain.Event{
		TargetUserIDs: b.Watchers,
		ProjectID:     b.ProjectID,
		Type:          domain.EventBugStatusChanged,
		Payload:       map[string]any{"bug_id": b.ID, "from": string(from), "to": string(b.Status)},
	})

	s.bridge.Apply(ctx, b)
	return b, nil
}
