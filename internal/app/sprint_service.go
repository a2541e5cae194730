package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/sprint"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

// SprintService implements ports.SprintService.
type SprintService struct {
	*core
	status *statusWriter
}

var _ ports.SprintService = (*SprintService)(nil)

// NewSprintService creates a SprintService.
func NewSprintService(d Deps) *SprintService {
	c := newCore(d)
	return newSprintService(c, newStatusWriter(c, newReconciler(c)))
}

func newSprintService(c *core, w *statusWriter) *SprintService {
	return &SprintService{core: c, status: w}
}

// CreateSprint stores a planned sprint with no assignments.
func (s *SprintService) CreateSprint(ctx context.Context, actor domain.Actor, sp *sprint.Sprint) (*sprint.Sprint, error) {
	s.logger.InfoContext(ctx, "creating sprint",
		slog.String("project_id", sp.ProjectID),
		slog.String("name", sp.Name),
	)
	if err := requirePrivileged(actor, "create sprints"); err != nil {
		return nil, s.fail(ctx, "CreateSprint", err)
	}
	if _, err := s.store.GetProject(ctx, sp.ProjectID); err != nil {
		return nil, s.fail(ctx, "CreateSprint", err)
	}

	now := s.now()
	created := *sp
	if created.ID == "" {
		created.ID = newID()
	}
	created.Status = sprint.StatusPlanned
	created.Assignments = nil
	created.Metrics = sprint.Metrics{}
	created.CreatedBy = actor.ID
	created.CreatedAt = now
	created.UpdatedAt = now

	if err := created.Validate(); err != nil {
		return nil, s.fail(ctx, "CreateSprint", err)
	}
	if err := s.store.CreateSprint(ctx, &created); err != nil {
		return nil, s.fail(ctx, "CreateSprint", err)
	}

	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntitySprint,
		EntityID:   created.ID,
		ProjectID:  created.ProjectID,
		ActorID:    actor.ID,
		Action:     domain.ActionCreated,
		NewValue:   string(created.Status),
	})
	return &created, nil
}

// GetSprint returns the sprint with its assignment ledger.
func (s *SprintService) GetSprint(ctx context.Context, id string) (*sprint.Sprint, error) {
	sp, err := s.store.GetSprint(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "GetSprint", err)
	}
	return sp, nil
}

// StartSprint moves a planned sprint to active.
func (s *SprintService) StartSprint(ctx context.Context, actor domain.Actor, id string) (*sprint.Sprint, error) {
	sp, _, err := s.lifecycle(ctx, actor, id, sprint.StatusActive, domain.ActionSprintStarted)
	if err != nil {
		return nil, s.fail(ctx, "StartSprint", err)
	}
	return sp, nil
}

// CompleteSprint closes the sprint and archives its assignments. Tickets
// whose assignment was completed are written to done; every other ticket
// goes back to the backlog.
func (s *SprintService) CompleteSprint(ctx context.Context, actor domain.Actor, id string) (*sprint.Sprint, error) {
	sp, live, err := s.lifecycle(ctx, actor, id, sprint.StatusCompleted, domain.ActionSprintCompleted)
	if err != nil {
		return nil, s.fail(ctx, "CompleteSprint", err)
	}

	for _, a := range live {
		if a.Status == sprint.AssignmentCompleted {
			s.forceDone(ctx, a.TicketID)
			continue
		}
		s.returnToBacklog(ctx, sp.ID, a.TicketID)
	}
	return sp, nil
}

// CancelSprint closes the sprint and archives its assignments. Ticket
// status is left alone.
func (s *SprintService) CancelSprint(ctx context.Context, actor domain.Actor, id string) (*sprint.Sprint, error) {
	sp, _, err := s.lifecycle(ctx, actor, id, sprint.StatusCancelled, domain.ActionSprintCancelled)
	if err != nil {
		return nil, s.fail(ctx, "CancelSprint", err)
	}
	return sp, nil
}

// lifecycle transitions the sprint and returns it together with the
// assignments that were live before the transition.
func (s *SprintService) lifecycle(ctx context.Context, actor domain.Actor, id string, to sprint.Status, action string) (*sprint.Sprint, []sprint.Assignment, error) {
	s.logger.InfoContext(ctx, "changing sprint status",
		slog.String("sprint_id", id),
		slog.String("to", string(to)),
	)
	if err := requirePrivileged(actor, "change sprint status"); err != nil {
		return nil, nil, err
	}

	var (
		from sprint.Status
		live []sprint.Assignment
	)
	sp, err := s.updateSprint(ctx, id, func(sp *sprint.Sprint) error {
		from = sp.Status
		live = live[:0]
		for _, a := range sp.Assignments {
			if a.Active() {
				live = append(live, a)
			}
		}
		return sp.TransitionTo(to, s.now())
	})
	if err != nil {
		return nil, nil, err
	}

	s.metrics.RecordTransition(ctx, domain.EntitySprint, true)
	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntitySprint,
		EntityID:   sp.ID,
		ProjectID:  sp.ProjectID,
		ActorID:    actor.ID,
		Action:     action,
		OldValue:   string(from),
		NewValue:   string(sp.Status),
	})

	audience := make([]string, 0, len(live))
	for _, a := range live {
		audience = append(audience, a.AssigneeID)
	}
	s.publish(ctx, actor, domain.Event{
		TargetUserIDs: audience,
		ProjectID:     sp.ProjectID,
		Type:          domain.EventSprintStatusChanged,
		Payload:       map[string]any{"sprint_id": sp.ID, "from": string(from), "to": string(sp.Status)},
	})
	return sp, live, nil
}

func (s *SprintService) forceDone(ctx context.Context, ticketID string) {
	ch := statusChange{actor: domain.SystemActor, to: workitem.StatusDone}
	if _, _, err := s.status.write(ctx, ticketID, ch); err != nil {
		s.sideEffectFailed(ctx, "sprint_ticket", err, slog.String("ticket_id", ticketID))
	}
}

func (s *SprintService) returnToBacklog(ctx context.Context, sprintID, ticketID string) {
	_, err := s.updateItem(ctx, ticketID, func(w *workitem.WorkItem) error {
		if w.SprintID == sprintID {
			w.SprintID = ""
			w.UpdatedAt = s.now()
		}
		return nil
	})
	if err != nil {
		s.sideEffectFailed(ctx, "sprint_ticket", err, slog.String("ticket_id", ticketID))
	}
}

// Assign adds a ticket to the sprint's ledger and points the ticket at the
// sprint. The ticket update is best-effort.
func (s *SprintService) Assign(ctx context.Context, actor domain.Actor, req ports.AssignRequest) (*sprint.Assignment, error) {
	s.logger.InfoContext(ctx, "assigning ticket",
		slog.String("sprint_id", req.SprintID),
		slog.String("ticket_id", req.TicketID),
		slog.String("assignee_id", req.AssigneeID),
	)
	if err := requirePrivileged(actor, "assign tickets"); err != nil {
		return nil, s.fail(ctx, "Assign", err)
	}
	item, err := s.liveItem(ctx, req.TicketID)
	if err != nil {
		return nil, s.fail(ctx, "Assign", err)
	}

	var a sprint.Assignment
	sp, err := s.updateSprint(ctx, req.SprintID, func(sp *sprint.Sprint) error {
		if sp.ProjectID != item.ProjectID {
			return &domain.ValidationError{Fields: map[string]string{
				"ticket_id": fmt.Sprintf("ticket %s belongs to project %s, sprint to %s", item.ID, item.ProjectID, sp.ProjectID),
			}}
		}
		now := s.now()
		a = sprint.Assignment{
			ID:         newID(),
			TicketID:   req.TicketID,
			AssigneeID: req.AssigneeID,
			Role:       req.Role,
			Estimate:   req.Estimate,
			Status:     sprint.AssignmentAssigned,
			Notes:      req.Notes,
			AssignedBy: actor.ID,
			AssignedAt: now,
			UpdatedAt:  now,
		}
		return sp.Assign(a)
	})
	if err != nil {
		return nil, s.fail(ctx, "Assign", err)
	}

	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityAssignment,
		EntityID:   a.ID,
		ProjectID:  sp.ProjectID,
		ActorID:    actor.ID,
		Action:     domain.ActionAssigned,
		NewValue:   a.AssigneeID,
	})

	_, err = s.updateItem(ctx, req.TicketID, func(w *workitem.WorkItem) error {
		w.SprintID = sp.ID
		w.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		s.sideEffectFailed(ctx, "sprint_ticket", err, slog.String("ticket_id", req.TicketID))
	}

	s.publish(ctx, actor, domain.Event{
		TargetUserIDs: []string{a.AssigneeID},
		ProjectID:     sp.ProjectID,
		Type:          domain.EventAssignmentCreated,
		Payload:       map[string]any{"sprint_id": sp.ID, "assignment_id": a.ID, "item_id": a.TicketID},
	})

	out, _ := sp.Assignment(a.ID)
	return out, nil
}

// UpdateAssignmentStatus moves an assignment through its lifecycle. Only
// the assignee or a privileged role may do so. An assignment entering
// in_progress while its ticket is still open starts the ticket too.
func (s *SprintService) UpdateAssignmentStatus(ctx context.Context, actor domain.Actor, sprintID, assignmentID string, to sprint.AssignmentStatus) (*sprint.Assignment, error) {
	s.logger.InfoContext(ctx, "updating assignment status",
		slog.String("sprint_id", sprintID),
		slog.String("assignment_id", assignmentID),
		slog.String("to", string(to)),
	)
	if !to.IsValid() {
		err := &domain.ValidationError{Fields: map[string]string{"status": fmt.Sprintf("invalid assignment status %q", to)}}
		return nil, s.fail(ctx, "UpdateAssignmentStatus", err)
	}

	var (
		from    sprint.AssignmentStatus
		changed bool
	)
	sp, err := s.updateSprint(ctx, sprintID, func(sp *sprint.Sprint) error {
		a, ok := sp.Assignment(assignmentID)
		if !ok {
			return domain.NotFoundf("assignment %q in sprint %s", assignmentID, sp.ID)
		}
		if !a.CanUpdate(actor) {
			return forbidden(actor, "update assignment "+assignmentID)
		}
		from = a.Status
		now := s.now()
		var err error
		changed, err = a.TransitionTo(to, now)
		if err != nil || !changed {
			return err
		}
		sp.RecomputeMetrics()
		sp.UpdatedAt = now
		return nil
	}, func() bool { return changed })
	if err != nil {
		if isRuleDenial(err) {
			s.metrics.RecordTransition(ctx, domain.EntityAssignment, false)
		}
		return nil, s.fail(ctx, "UpdateAssignmentStatus", err)
	}

	a, _ := sp.Assignment(assignmentID)
	if !changed {
		return a, nil
	}

	s.metrics.RecordTransition(ctx, domain.EntityAssignment, true)
	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityAssignment,
		EntityID:   a.ID,
		ProjectID:  sp.ProjectID,
		ActorID:    actor.ID,
		Action:     domain.ActionStatusChanged,
		OldValue:   string(from),
		NewValue:   string(a.Status),
	})
	s.publish(ctx, actor, domain.Event{
		TargetUserIDs: []string{a.AssigneeID, a.AssignedBy},
		ProjectID:     sp.ProjectID,
		Type:          domain.EventAssignmentUpdated,
		Payload: map[string]any{
			"sprint_id":     sp.ID,
			"assignment_id": a.ID,
			"from":          string(from),
			"to":            string(a.Status),
		},
	})

	if a.Status == sprint.AssignmentInProgress {
		ch := statusChange{
			actor: domain.SystemActor,
			to:    workitem.StatusInProgress,
			when:  func(w *workitem.WorkItem) bool { return w.Status == workitem.StatusOpen },
		}
		if _, _, err := s.status.write(ctx, a.TicketID, ch); err != nil {
			s.sideEffectFailed(ctx, "sprint_ticket", err, slog.String("ticket_id", a.TicketID))
		}
	}
	return a, nil
}

// updateSprint runs fn on a fresh copy of the sprint and saves it, retrying
// on conflict. The optional save predicate skips the write when it reports
// false.
func (s *SprintService) updateSprint(ctx context.Context, id string, fn func(*sprint.Sprint) error, save ...func() bool) (*sprint.Sprint, error) {
	var sp *sprint.Sprint
	err := s.retryOnConflict(ctx, domain.EntitySprint, func() error {
		var err error
		sp, err = s.store.GetSprint(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(sp); err != nil {
			return err
		}
		for _, ok := range save {
			if !ok() {
				return nil
			}
		}
		return s.store.SaveSprint(ctx, sp)
	})
	if err != nil {
		return nil, err
	}
	return sp, nil
}
