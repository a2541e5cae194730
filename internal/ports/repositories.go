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

// Every Save method below follows the same optimistic-concurrency contract:
// the entity's Version must equal the stored version, otherwise the call
// returns domain.ErrConflict and stores nothing. On success the stored
// version and the entity's Version are both incremented. Create methods set
// Version to 1 and return domain.ErrAlreadyExists for a duplicate ID.
// Returned entities are copies; mutating them never affects the store.

// ProjectRepository persists Project aggregates.
type ProjectRepository interface {
	CreateProject(ctx context.Context, p *project.Project) error
	// GetProject returns domain.ErrNotFound if the project does not exist.
	GetProject(ctx context.Context, id string) (*project.Project, error)
	SaveProject(ctx context.Context, p *project.Project) error
}

// WorkItemRepository persists work items. Items are stored flat by ID with a
// (ProjectID, ModuleID) back-reference; the owning project is the unit of
// concurrency control.
type WorkItemRepository interface {
	// GetWorkItem returns domain.ErrNotFound if the item does not exist.
	GetWorkItem(ctx context.Context, id string) (*workitem.WorkItem, error)
	ListWorkItems(ctx context.Context, projectID string, filter workitem.Filter) ([]workitem.WorkItem, error)
	// SaveWorkItem inserts or updates item and saves p in one atomic step,
	// checking and bumping p.Version. item.ProjectID must equal p.ID.
	SaveWorkItem(ctx context.Context, p *project.Project, item *workitem.WorkItem) error
}

// BoardRepository persists Kanban boards and maintains the ticket-to-board
// index used by reconciliation.
type BoardRepository interface {
	CreateBoard(ctx context.Context, b *kanban.Board) error
	// GetBoard returns domain.ErrNotFound if the board does not exist.
	GetBoard(ctx context.Context, id string) (*kanban.Board, error)
	SaveBoard(ctx context.Context, b *kanban.Board) error
	ListBoards(ctx context.Context, projectID string) ([]kanban.Board, error)
	// ListBoardsForTicket returns every board with a column holding ticketID.
	ListBoardsForTicket(ctx context.Context, ticketID string) ([]kanban.Board, error)
}

// SprintRepository persists Sprint aggregates with their assignments.
type SprintRepository interface {
	CreateSprint(ctx context.Context, s *sprint.Sprint) error
	// GetSprint returns domain.ErrNotFound if the sprint does not exist.
	GetSprint(ctx context.Context, id string) (*sprint.Sprint, error)
	SaveSprint(ctx context.Context, s *sprint.Sprint) error
}

// BugRepository persists Bug aggregates with their status history.
type BugRepository interface {
	CreateBug(ctx context.Context, b *bug.Bug) error
	// GetBug returns domain.ErrNotFound if the bug does not exist.
	GetBug(ctx context.Context, id string) (*bug.Bug, error)
	SaveBug(ctx context.Context, b *bug.Bug) error
	ListBugsForTicket(ctx context.Context, ticketID string) ([]bug.Bug, error)
}

// FlagRepository records boards that could not be reconciled.
type FlagRepository interface {
	// FlagBoard upserts the flag for (TicketID, BoardID).
	FlagBoard(ctx context.Context, f domain.ReconcileFlag) error
	// ClearFlag removes the flag for the pair; clearing an absent flag is not
	// an error.
	ClearFlag(ctx context.Context, ticketID, boardID string) error
	// ListFlags returns the flags for ticketID, or every flag when ticketID
	// is empty, oldest first.
	ListFlags(ctx context.Context, ticketID string) ([]domain.ReconcileFlag, error)
}

// Store is the full persistence port. Adapters also implement
// HealthChecker so readiness reflects the backing database.
type Store interface {
	ProjectRepository
	WorkItemRepository
	BoardRepository
	SprintRepository
	BugRepository
	FlagRepository
	HealthChecker
	Close() error
}
