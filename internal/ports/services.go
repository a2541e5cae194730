package ports

import (
	"context"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/bug"
	"github.com/jsamuelsen11/trackflow/internal/domain/kanban"
	"github.com/jsamuelsen11/trackflow/internal/domain/project"
	"github.com/jsamuelsen11/trackflow/internal/domain/sprint"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
)

// Every mutating service method takes the acting domain.Actor. Rule denials
// surface as domain.ErrForbidden, *domain.TransitionError or
// *domain.CapacityError; a read-modify-write that keeps losing the version
// race surfaces as domain.ErrConflict.

// ProjectService manages projects and their modules.
type ProjectService interface {
	// CreateProject requires a privileged actor.
	CreateProject(ctx context.Context, actor domain.Actor, p *project.Project) (*project.Project, error)
	GetProject(ctx context.Context, id string) (*project.Project, error)
	AddModule(ctx context.Context, actor domain.Actor, projectID, name string) (*project.Module, error)
}

// NewWorkItem is the input for WorkItemService.CreateWorkItem.
type NewWorkItem struct {
	ProjectID   string
	ModuleID    string
	Title       string
	Description string
	AssigneeID  string
	TesterID    string
	StoryPoints int
}

// ReconcileReport describes one reconciliation pass over a ticket's boards.
type ReconcileReport struct {
	TicketID  string
	Status    workitem.Status
	Moved     []string
	Unchanged []string
	Flagged   []domain.ReconcileFlag
}

// WorkItemService owns the canonical work item status and the replay hook
// for board projections.
type WorkItemService interface {
	CreateWorkItem(ctx context.Context, actor domain.Actor, in NewWorkItem) (*workitem.WorkItem, error)
	GetWorkItem(ctx context.Context, id string) (*workitem.WorkItem, error)
	ListWorkItems(ctx context.Context, projectID string, filter workitem.Filter) ([]workitem.WorkItem, error)
	UpdateWorkItem(ctx context.Context, actor domain.Actor, id string, u workitem.Update) (*workitem.WorkItem, error)
	// ChangeStatus is the direct status write. It is authorized by the rule
	// engine and followed by reconciliation of every board holding the item.
	ChangeStatus(ctx context.Context, actor domain.Actor, id string, to workitem.Status) (*workitem.WorkItem, error)
	AddComment(ctx context.Context, actor domain.Actor, id, body string) (*workitem.WorkItem, error)
	// RemoveWorkItem soft-removes the item and takes it off every board.
	RemoveWorkItem(ctx context.Context, actor domain.Actor, id string) error
	// Reconcile re-projects the item's current status onto its boards.
	Reconcile(ctx context.Context, id string) (*ReconcileReport, error)
	ListFlags(ctx context.Context, ticketID string) ([]domain.ReconcileFlag, error)
	// Activity returns the audit trail of the item when the configured sink
	// can be read back; domain.ErrUnavailable otherwise.
	Activity(ctx context.Context, id string) ([]domain.ActivityRecord, error)
}

// MoveRequest is the input for BoardService.MoveTicket. TargetIndex is the
// 0-based insertion index in the destination column.
type MoveRequest struct {
	BoardID     string
	TicketID    string
	FromColumn  string
	ToColumn    string
	TargetIndex int
}

// BoardService manages the Kanban projection.
type BoardService interface {
	CreateBoard(ctx context.Context, actor domain.Actor, b *kanban.Board) (*kanban.Board, error)
	GetBoard(ctx context.Context, id string) (*kanban.Board, error)
	ListBoards(ctx context.Context, projectID string) ([]kanban.Board, error)
	AddTicket(ctx context.Context, actor domain.Actor, boardID, ticketID, columnID string) (*kanban.Board, error)
	RemoveTicket(ctx context.Context, actor domain.Actor, boardID, ticketID string) (*kanban.Board, error)
	MoveTicket(ctx context.Context, actor domain.Actor, req MoveRequest) (*kanban.Board, error)
	UpdateColumn(ctx context.Context, actor domain.Actor, boardID, columnID string, u kanban.ColumnUpdate) (*kanban.Board, error)
}

// AssignRequest is the input for SprintService.Assign.
type AssignRequest struct {
	SprintID   string
	TicketID   string
	AssigneeID string
	Role       domain.Role
	Estimate   int
	Notes      string
}

// SprintService manages sprints and the assignment ledger.
type SprintService interface {
	CreateSprint(ctx context.Context, actor domain.Actor, s *sprint.Sprint) (*sprint.Sprint, error)
	GetSprint(ctx context.Context, id string) (*sprint.Sprint, error)
	StartSprint(ctx context.Context, actor domain.Actor, id string) (*sprint.Sprint, error)
	CompleteSprint(ctx context.Context, actor domain.Actor, id string) (*sprint.Sprint, error)
	CancelSprint(ctx context.Context, actor domain.Actor, id string) (*sprint.Sprint, error)
	Assign(ctx context.Context, actor domain.Actor, req AssignRequest) (*sprint.Assignment, error)
	UpdateAssignmentStatus(ctx context.Context, actor domain.Actor, sprintID, assignmentID string, to sprint.AssignmentStatus) (*sprint.Assignment, error)
}

// BugTransition is the input for BugService.TransitionBug. AssigneeID is
// applied when moving to ASSIGNED.
type BugTransition struct {
	To         bug.Status
	Reason     string
	AssigneeID string
}

// BugService manages bugs and applies their side effects to linked tickets.
type BugService interface {
	CreateBug(ctx context.Context, actor domain.Actor, b *bug.Bug) (*bug.Bug, error)
	GetBug(ctx context.Context, id string) (*bug.Bug, error)
	ListBugsForTicket(ctx context.Context, ticketID string) ([]bug.Bug, error)
	TransitionBug(ctx context.Context, actor domain.Actor, id string, t BugTransition) (*bug.Bug, error)
}
