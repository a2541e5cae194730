package domain

import "time"

// Entity types carried by ActivityRecord.EntityType.
const (
	EntityProject    = "project"
	EntityWorkItem   = "work_item"
	EntityBoard      = "kanban_board"
	EntitySprint     = "sprint"
	EntityAssignment = "sprint_assignment"
	EntityBug        = "bug"
)

// Actions carried by ActivityRecord.Action.
const (
	ActionCreated          = "created"
	ActionUpdated          = "updated"
	ActionStatusChanged    = "status_changed"
	ActionCommented        = "commented"
	ActionRemoved          = "removed"
	ActionModuleAdded      = "module_added"
	ActionTicketAdded      = "ticket_added"
	ActionTicketRemoved    = "ticket_removed"
	ActionTicketMoved      = "ticket_moved"
	ActionTicketReconciled = "ticket_reconciled"
	ActionColumnUpdated    = "column_updated"
	ActionAssigned         = "assigned"
	ActionSprintStarted    = "sprint_started"
	ActionSprintCompleted  = "sprint_completed"
	ActionSprintCancelled  = "sprint_cancelled"
)

// ActivityRecord is an append-only fact describing one committed mutation.
// It is consumed only by audit and reporting.
type ActivityRecord struct {
	ID         string
	EntityType string
	EntityID   string
	ProjectID  string
	ActorID    string
	Action     string
	OldValue   string
	NewValue   string
	Timestamp  time.Time
}

// ReplayStatus folds status_changed records for one entity, in order, and
// returns the resulting status. initial is the status at creation. Records
// for other actions are ignored.
func ReplayStatus(initial string, records []ActivityRecord) string {
	status := initial
	for i := range records {
		if records[i].Action == ActionStatusChanged {
			status = records[i].NewValue
		}
	}
	return status
}

// Notification event types.
const (
	EventWorkItemCreated       = "work_item.created"
	EventWorkItemStatusChanged = "work_item.status_changed"
	EventWorkItemCommented     = "work_item.commented"
	EventTicketMoved           = "board.ticket_moved"
	EventAssignmentCreated     = "sprint.assignment_created"
	EventAssignmentUpdated     = "sprint.assignment_updated"
	EventSprintStatusChanged   = "sprint.status_changed"
	EventBugCreated            = "bug.created"
	EventBugStatusChanged      = "bug.status_changed"
)

// Event is a change notification for the notification bus. Delivery is
// asynchronous, at-most-once and unordered.
type Event struct {
	TargetUserIDs []string
	ProjectID     string
	Type          string
	Payload       map[string]any
}

// ReconcileFlag records a board whose projection of a ticket could not be
// brought in line with the ticket's status. It is cleared by the next
// successful reconciliation of that pair.
type ReconcileFlag struct {
	TicketID  string
	BoardID   string
	Reason    string
	FlaggedAt time.Time
}
