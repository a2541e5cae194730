package sprint

import (
	"slices"
	"strings"
	"time"

	"github.com/jsamuelsen11/trackflow/internal/domain"
)

// AssignmentStatus is the lifecycle state of a sprint assignment.
type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "assigned"
	AssignmentAccepted   AssignmentStatus = "accepted"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentRejected   AssignmentStatus = "rejected"
	AssignmentBlocked    AssignmentStatus = "blocked"
)

// IsValid returns true if the status is a recognized assignment status.
func (s AssignmentStatus) IsValid() bool {
	_, ok := assignmentTransitions[s]
	return ok
}

// rejected is terminal.
var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentAssigned:   {AssignmentAccepted, AssignmentRejected, AssignmentInProgress, AssignmentBlocked},
	AssignmentAccepted:   {AssignmentInProgress, AssignmentBlocked, AssignmentRejected},
	AssignmentInProgress: {AssignmentCompleted, AssignmentBlocked},
	AssignmentBlocked:    {AssignmentInProgress, AssignmentAccepted},
	AssignmentCompleted:  {AssignmentInProgress},
	AssignmentRejected:   nil,
}

// NextAssignmentStatuses returns the statuses reachable from s.
func NextAssignmentStatuses(s AssignmentStatus) []AssignmentStatus {
	return slices.Clone(assignmentTransitions[s])
}

// Assignment binds one ticket to one assignee within a sprint.
type Assignment struct {
	ID         string
	TicketID   string
	AssigneeID string
	Role       domain.Role
	Estimate   int
	Status     AssignmentStatus
	Notes      string
	AssignedBy string
	AssignedAt time.Time
	// The lifecycle timestamps below are set on first entry only.
	AcceptedAt  *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Archived    bool
	ArchivedAt  *time.Time
	UpdatedAt   time.Time
}

// Validate checks business rules for the Assignment entity.
func (a *Assignment) Validate() error {
	fields := make(map[string]string)

	if a.TicketID == "" {
		fields["ticket_id"] = domain.MsgRequired
	}
	if strings.TrimSpace(a.AssigneeID) == "" {
		fields["assignee_id"] = domain.MsgRequired
	}
	if a.Estimate < 0 {
		fields["estimate"] = "must not be negative"
	}
	if a.Status != "" && !a.Status.IsValid() {
		fields["status"] = "invalid assignment status " + string(a.Status)
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// Active reports whether the assignment counts toward the sprint.
func (a *Assignment) Active() bool {
	return !a.Archived && a.Status != AssignmentRejected
}

// CanUpdate reports whether actor may change the assignment's status.
func (a *Assignment) CanUpdate(actor domain.Actor) bool {
	return actor.Role.IsPrivileged() || actor.IsSystem() || (actor.ID != "" && actor.ID == a.AssigneeID)
}

// TransitionTo moves the assignment to status to. It reports whether
// anything changed: repeating the current status is a no-op.
func (a *Assignment) TransitionTo(to AssignmentStatus, now time.Time) (bool, error) {
	if a.Status == to {
		return false, nil
	}
	if a.Archived {
		return false, &domain.TransitionError{
			Entity: domain.EntityAssignment,
			From:   string(a.Status),
			To:     string(to),
			Reason: "assignment is archived",
		}
	}
	if !slices.Contains(assignmentTransitions[a.Status], to) {
		next := assignmentTransitions[a.Status]
		allowed := make([]string, len(next))
		for i, s := range next {
			allowed[i] = string(s)
		}
		return false, &domain.TransitionError{
			Entity:  domain.EntityAssignment,
			From:    string(a.Status),
			To:      string(to),
			Allowed: allowed,
		}
	}

	a.Status = to
	a.UpdatedAt = now
	stamp := func(p **time.Time) {
		if *p == nil {
			t := now
			*p = &t
		}
	}
	switch to {
	case AssignmentAccepted:
		stamp(&a.AcceptedAt)
	case AssignmentInProgress:
		stamp(&a.StartedAt)
	case AssignmentCompleted:
		stamp(&a.CompletedAt)
	}
	return true, nil
}

// Archive retires the assignment. It is idempotent.
func (a *Assignment) Archive(now time.Time) {
	if a.Archived {
		return
	}
	a.Archived = true
	t := now
	a.ArchivedAt = &t
	a.UpdatedAt = now
}
