package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

// WorkItemService implements ports.WorkItemService.
type WorkItemService struct {
	*core
	status     *statusWriter
	reconciler *Reconciler
}

var _ ports.WorkItemService = (*WorkItemService)(nil)

// NewWorkItemService creates a WorkItemService.
func NewWorkItemService(d Deps) *WorkItemService {
	c := newCore(d)
	r := newReconciler(c)
	return newWorkItemService(c, newStatusWriter(c, r), r)
}

func newWorkItemService(c *core, w *statusWriter, r *Reconciler) *WorkItemService {
	return &WorkItemService{core: c, status: w, reconciler: r}
}

// CreateWorkItem allocates the next display number of the project and
// stores the item in status open.
func (s *WorkItemService) CreateWorkItem(ctx context.Context, actor domain.Actor, in ports.NewWorkItem) (*workitem.WorkItem, error) {
	s.logger.InfoContext(ctx, "creating work item",
		slog.String("project_id", in.ProjectID),
		slog.String("module_id", in.ModuleID),
	)
	if err := requirePrivileged(actor, "create work items"); err != nil {
		return nil, s.fail(ctx, "CreateWorkItem", err)
	}

	var item *workitem.WorkItem
	err := s.retryOnConflict(ctx, domain.EntityProject, func() error {
		p, err := s.store.GetProject(ctx, in.ProjectID)
		if err != nil {
			return err
		}
		if _, ok := p.Module(in.ModuleID); !ok {
			return domain.NotFoundf("module %q in project %s", in.ModuleID, p.ID)
		}

		now := s.now()
		number := p.AllocateNumber()
		item = &workitem.WorkItem{
			ID:          newID(),
			ProjectID:   p.ID,
			ModuleID:    in.ModuleID,
			Number:      number,
			Key:         p.DisplayKey(number),
			Title:       in.Title,
			Description: in.Description,
			Status:      workitem.StatusOpen,
			AssigneeID:  in.AssigneeID,
			TesterID:    in.TesterID,
			StoryPoints: in.StoryPoints,
			CreatedBy:   actor.ID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := item.Validate(); err != nil {
			return err
		}
		p.UpdatedAt = now
		return s.store.SaveWorkItem(ctx, p, item)
	})
	if err != nil {
		return nil, s.fail(ctx, "CreateWorkItem", err)
	}

	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityWorkItem,
		EntityID:   item.ID,
		ProjectID:  item.ProjectID,
		ActorID:    actor.ID,
		Action:     domain.ActionCreated,
		NewValue:   item.Status.String(),
	})
	s.publish(ctx, actor, domain.Event{
		TargetUserIDs: item.Audience(),
		ProjectID:     item.ProjectID,
		Type:          domain.EventWorkItemCreated,
		Payload:       map[string]any{"item_id": item.ID, "key": item.Key, "title": item.Title},
	})
	return item, nil
}

// GetWorkItem returns the item, including a removed one.
func (s *WorkItemService) GetWorkItem(ctx context.Context, id string) (*workitem.WorkItem, error) {
	item, err := s.store.GetWorkItem(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "GetWorkItem", err)
	}
	return item, nil
}

// ListWorkItems lists the project's items ordered by number.
func (s *WorkItemService) ListWorkItems(ctx context.Context, projectID string, filter workitem.Filter) ([]workitem.WorkItem, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, s.fail(ctx, "ListWorkItems", err)
	}
	items, err := s.store.ListWorkItems(ctx, projectID, filter)
	if err != nil {
		return nil, s.fail(ctx, "ListWorkItems", err)
	}
	return items, nil
}

// UpdateWorkItem edits the non-status fields.
func (s *WorkItemService) UpdateWorkItem(ctx context.Context, actor domain.Actor, id string, u workitem.Update) (*workitem.WorkItem, error) {
	if err := requireContributor(actor, "edit work items"); err != nil {
		return nil, s.fail(ctx, "UpdateWorkItem", err)
	}

	item, err := s.updateItem(ctx, id, func(w *workitem.WorkItem) error {
		w.Apply(u, s.now())
		return w.Validate()
	})
	if err != nil {
		return nil, s.fail(ctx, "UpdateWorkItem", err)
	}

	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityWorkItem,
		EntityID:   item.ID,
		ProjectID:  item.ProjectID,
		ActorID:    actor.ID,
		Action:     domain.ActionUpdated,
	})
	return item, nil
}

// ChangeStatus writes the status the actor asked for after the rule engine
// has allowed it, then reconciles every board holding the item.
func (s *WorkItemService) ChangeStatus(ctx context.Context, actor domain.Actor, id string, to workitem.Status) (*workitem.WorkItem, error) {
	s.logger.InfoContext(ctx, "changing work item status",
		slog.String("item_id", id),
		slog.String("to", to.String()),
	)
	if !to.IsValid() {
		err := &domain.ValidationError{Fields: map[string]string{
			"status": fmt.Sprintf("must be one of %v, got %q", workitem.Statuses, to),
		}}
		return nil, s.fail(ctx, "ChangeStatus", err)
	}

	item, _, err := s.status.write(ctx, id, statusChange{actor: actor, to: to, authorize: true})
	if err != nil {
		return nil, s.fail(ctx, "ChangeStatus", err)
	}
	return item, nil
}

// AddComment appends a user comment.
func (s *WorkItemService) AddComment(ctx context.Context, actor domain.Actor, id, body string) (*workitem.WorkItem, error) {
	if err := requireContributor(actor, "comment"); err != nil {
		return nil, s.fail(ctx, "AddComment", err)
	}

	item, err := s.updateItem(ctx, id, func(w *workitem.WorkItem) error {
		return w.AddComment(workitem.Comment{
			ID:        newID(),
			AuthorID:  actor.ID,
			Body:      body,
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		return nil, s.fail(ctx, "AddComment", err)
	}

	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityWorkItem,
		EntityID:   item.ID,
		ProjectID:  item.ProjectID,
		ActorID:    actor.ID,
		Action:     domain.ActionCommented,
		NewValue:   body,
	})
	s.publish(ctx, actor, domain.Event{
		TargetUserIDs: item.Audience(),
		ProjectID:     item.ProjectID,
		Type:          domain.EventWorkItemCommented,
		Payload:       map[string]any{"item_id": item.ID, "key": item.Key, "author_id": actor.ID},
	})
	return item, nil
}

// RemoveWorkItem marks the item removed and takes its card off every board.
// The display number stays allocated.
func (s *WorkItemService) RemoveWorkItem(ctx context.Context, actor domain.Actor, id string) error {
	s.logger.InfoContext(ctx, "removing work item", slog.String("item_id", id))
	if err := requirePrivileged(actor, "remove work items"); err != nil {
		return s.fail(ctx, "RemoveWorkItem", err)
	}

	item, err := s.updateItem(ctx, id, func(w *workitem.WorkItem) error {
		w.Removed = true
		w.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return s.fail(ctx, "RemoveWorkItem", err)
	}

	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityWorkItem,
		EntityID:   item.ID,
		ProjectID:  item.ProjectID,
		ActorID:    actor.ID,
		Action:     domain.ActionRemoved,
	})

	boards, err := s.store.ListBoardsForTicket(ctx, id)
	if err != nil {
		s.sideEffectFailed(ctx, "board_cleanup", err, slog.String("ticket_id", id))
		return nil
	}
	for i := range boards {
		if err := s.takeOffBoard(ctx, actor, boards[i].ID, id); err != nil {
			s.sideEffectFailed(ctx, "board_cleanup", err,
				slog.String("ticket_id", id),
				slog.String("board_id", boards[i].ID),
			)
		}
	}
	return nil
}

func (s *WorkItemService) takeOffBoard(ctx context.Context, actor domain.Actor, boardID, ticketID string) error {
	var projectID string
	err := s.retryOnConflict(ctx, domain.EntityBoard, func() error {
		b, err := s.store.GetBoard(ctx, boardID)
		if err != nil {
			return err
		}
		projectID = b.ProjectID
		if _, err := b.RemoveTicket(ticketID, s.now()); err != nil {
			return err
		}
		return s.store.SaveBoard(ctx, b)
	})
	if err != nil {
		return err
	}
	if err := s.store.ClearFlag(ctx, ticketID, boardID); err != nil {
		return err
	}
	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityBoard,
		EntityID:   boardID,
		ProjectID:  projectID,
		ActorID:    actor.ID,
		Action:     domain.ActionTicketRemoved,
		OldValue:   ticketID,
	})
	return nil
}

// Reconcile re-projects the item's current status onto its boards.
func (s *WorkItemService) Reconcile(ctx context.Context, id string) (*ports.ReconcileReport, error) {
	s.logger.InfoContext(ctx, "reconciling work item", slog.String("item_id", id))
	report, err := s.reconciler.ReconcileTicket(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "Reconcile", err)
	}
	return report, nil
}

// ListFlags returns outstanding reconciliation flags, for one ticket or all.
func (s *WorkItemService) ListFlags(ctx context.Context, ticketID string) ([]domain.ReconcileFlag, error) {
	flags, err := s.store.ListFlags(ctx, ticketID)
	if err != nil {
		return nil, s.fail(ctx, "ListFlags", err)
	}
	return flags, nil
}

// Activity returns the item's audit trail in recorded order.
func (s *WorkItemService) Activity(ctx context.Context, id string) ([]domain.ActivityRecord, error) {
	if _, err := s.store.GetWorkItem(ctx, id); err != nil {
		return nil, s.fail(ctx, "Activity", err)
	}
	records, err := s.recorder.Activity(ctx, domain.EntityWorkItem, id)
	if err != nil {
		return nil, s.fail(ctx, "Activity", err)
	}
	return records, nil
}
