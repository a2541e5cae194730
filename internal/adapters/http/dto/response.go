// Package dto provides HTTP request/response data transfer objects and
// RFC 9457 Problem Details error responses for the inbound HTTP adapter layer.
package dto

import (
	"time"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/bug"
	"github.com/jsamuelsen11/trackflow/internal/domain/kanban"
	"github.com/jsamuelsen11/trackflow/internal/domain/project"
	"github.com/jsamuelsen11/trackflow/internal/domain/sprint"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// ModuleResponse represents a project module in HTTP responses.
type ModuleResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// ToModuleResponse converts a domain Module to an HTTP response DTO.
func ToModuleResponse(m *project.Module) ModuleResponse {
	return ModuleResponse{ID: m.ID, Name: m.Name, CreatedAt: formatTime(m.CreatedAt)}
}

// ProjectResponse represents a single project in HTTP responses.
type ProjectResponse struct {
	ID          string           `json:"id"`
	Key         string           `json:"key"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Modules     []ModuleResponse `json:"modules"`
	Version     int64            `json:"version"`
	CreatedBy   string           `json:"created_by"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

// ToProjectResponse converts a domain Project entity to an HTTP response DTO.
func ToProjectResponse(p *project.Project) ProjectResponse {
	modules := make([]ModuleResponse, len(p.Modules))
	for i := range p.Modules {
		modules[i] = ToModuleResponse(&p.Modules[i])
	}
	return ProjectResponse{
		ID:          p.ID,
		Key:         p.Key,
		Name:        p.Name,
		Description: p.Description,
		Modules:     modules,
		Version:     p.Version,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

// CommentResponse represents one work item comment.
type CommentResponse struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	Body      string `json:"body"`
	System    bool   `json:"system"`
	CreatedAt string `json:"created_at"`
}

// WorkItemResponse represents a single work item in HTTP responses.
type WorkItemResponse struct {
	ID          string            `json:"id"`
	Key         string            `json:"key"`
	Number      int               `json:"number"`
	ProjectID   string            `json:"project_id"`
	ModuleID    string            `json:"module_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      string            `json:"status"`
	AssigneeID  string            `json:"assignee_id,omitempty"`
	TesterID    string            `json:"tester_id,omitempty"`
	SprintID    string            `json:"sprint_id,omitempty"`
	StoryPoints int               `json:"story_points"`
	Watchers    []string          `json:"watchers"`
	Comments    []CommentResponse `json:"comments"`
	Removed     bool              `json:"removed,omitempty"`
	CreatedBy   string            `json:"created_by"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
	StartedAt   string            `json:"started_at,omitempty"`
	CompletedAt string            `json:"completed_at,omitempty"`
}

// ToWorkItemResponse converts a domain WorkItem entity to an HTTP response DTO.
func ToWorkItemResponse(w *workitem.WorkItem) WorkItemResponse {
	comments := make([]CommentResponse, len(w.Comments))
	for i, c := range w.Comments {
		comments[i] = CommentResponse{
			ID:        c.ID,
			AuthorID:  c.AuthorID,
			Body:      c.Body,
			System:    c.System,
			CreatedAt: formatTime(c.CreatedAt),
		}
	}
	watchers := w.Watchers
	if watchers == nil {
		watchers = []string{}
	}
	return WorkItemResponse{
		ID:          w.ID,
		Key:         w.Key,
		Number:      w.Number,
		ProjectID:   w.ProjectID,
		ModuleID:    w.ModuleID,
		Title:       w.Title,
		Description: w.Description,
		Status:      w.Status.String(),
		AssigneeID:  w.AssigneeID,
		TesterID:    w.TesterID,
		SprintID:    w.SprintID,
		StoryPoints: w.StoryPoints,
		Watchers:    watchers,
		Comments:    comments,
		Removed:     w.Removed,
		CreatedBy:   w.CreatedBy,
		CreatedAt:   formatTime(w.CreatedAt),
		UpdatedAt:   formatTime(w.UpdatedAt),
		StartedAt:   formatTimePtr(w.StartedAt),
		CompletedAt: formatTimePtr(w.CompletedAt),
	}
}

// WorkItemListResponse represents a list of work items in HTTP responses.
type WorkItemListResponse struct {
	Items []WorkItemResponse `json:"items"`
	Count int                `json:"count"`
}

// ToWorkItemListResponse converts a slice of work items to an HTTP list
// response DTO.
func ToWorkItemListResponse(items []workitem.WorkItem) WorkItemListResponse {
	out := make([]WorkItemResponse, len(items))
	for i := range items {
		out[i] = ToWorkItemResponse(&items[i])
	}
	return WorkItemListResponse{Items: out, Count: len(out)}
}

// TicketRefResponse places one card in a column.
type TicketRefResponse struct {
	TicketID string `json:"ticket_id"`
	Position int    `json:"position"`
	MovedAt  string `json:"moved_at"`
	MovedBy  string `json:"moved_by"`
}

// ColumnResponse represents a board column.
type ColumnResponse struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	StatusMapping string              `json:"status_mapping"`
	WIPLimit      int                 `json:"wip_limit"`
	Tickets       []TicketRefResponse `json:"tickets"`
}

// BoardActivityResponse is one entry of the board's recent activity.
type BoardActivityResponse struct {
	TicketID   string `json:"ticket_id"`
	Action     string `json:"action"`
	FromColumn string `json:"from_column,omitempty"`
	ToColumn   string `json:"to_column,omitempty"`
	ActorID    string `json:"actor_id"`
	At         string `json:"at"`
}

// BoardResponse represents a Kanban board in HTTP responses.
type BoardResponse struct {
	ID                     string                  `json:"id"`
	ProjectID              string                  `json:"project_id"`
	SprintID               string                  `json:"sprint_id,omitempty"`
	UserID                 string                  `json:"user_id,omitempty"`
	OwnerID                string                  `json:"owner_id"`
	Name                   string                  `json:"name"`
	Description            string                  `json:"description"`
	AutoMoveOnStatusChange bool                    `json:"auto_move_on_status_change"`
	Columns                []ColumnResponse        `json:"columns"`
	RecentActivity         []BoardActivityResponse `json:"recent_activity"`
	Version                int64                   `json:"version"`
	CreatedAt              string                  `json:"created_at"`
	UpdatedAt              string                  `json:"updated_at"`
}

// ToBoardResponse converts a domain Board aggregate to an HTTP response DTO.
func ToBoardResponse(b *kanban.Board) BoardResponse {
	cols := make([]ColumnResponse, len(b.Columns))
	for i := range b.Columns {
		c := &b.Columns[i]
		tickets := make([]TicketRefResponse, len(c.Tickets))
		for j, r := range c.Tickets {
			tickets[j] = TicketRefResponse{
				TicketID: r.TicketID,
				Position: r.Position,
				MovedAt:  formatTime(r.MovedAt),
				MovedBy:  r.MovedBy,
			}
		}
		cols[i] = ColumnResponse{
			ID:            c.ID,
			Name:          c.Name,
			StatusMapping: c.StatusMapping.String(),
			WIPLimit:      c.WIPLimit,
			Tickets:       tickets,
		}
	}
	activity := make([]BoardActivityResponse, len(b.RecentActivity))
	for i, a := range b.RecentActivity {
		activity[i] = BoardActivityResponse{
			TicketID:   a.TicketID,
			Action:     a.Action,
			FromColumn: a.FromColumn,
			ToColumn:   a.ToColumn,
			ActorID:    a.ActorID,
			At:         formatTime(a.At),
		}
	}
	return BoardResponse{
		ID:                     b.ID,
		ProjectID:              b.ProjectID,
		SprintID:               b.SprintID,
		UserID:                 b.UserID,
		OwnerID:                b.OwnerID,
		Name:                   b.Name,
		Description:            b.Description,
		AutoMoveOnStatusChange: b.AutoMoveOnStatusChange,
		Columns:                cols,
		RecentActivity:         activity,
		Version:                b.Version,
		CreatedAt:              formatTime(b.CreatedAt),
		UpdatedAt:              formatTime(b.UpdatedAt),
	}
}

// BoardListResponse represents a list of boards in HTTP responses.
type BoardListResponse struct {
	Boards []BoardResponse `json:"boards"`
	Count  int             `json:"count"`
}

// ToBoardListResponse converts a slice of boards to an HTTP list response DTO.
func ToBoardListResponse(boards []kanban.Board) BoardListResponse {
	out := make([]BoardResponse, len(boards))
	for i := range boards {
		out[i] = ToBoardResponse(&boards[i])
	}
	return BoardListResponse{Boards: out, Count: len(out)}
}

// AssignmentResponse represents a sprint assignment in HTTP responses.
type AssignmentResponse struct {
	ID          string `json:"id"`
	TicketID    string `json:"ticket_id"`
	AssigneeID  string `json:"assignee_id"`
	Role        string `json:"role,omitempty"`
	Estimate    int    `json:"estimate"`
	Status      string `json:"status"`
	Notes       string `json:"notes,omitempty"`
	AssignedBy  string `json:"assigned_by"`
	AssignedAt  string `json:"assigned_at"`
	AcceptedAt  string `json:"accepted_at,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	Archived    bool   `json:"archived"`
	ArchivedAt  string `json:"archived_at,omitempty"`
	UpdatedAt   string `json:"updated_at"`
}

// ToAssignmentResponse converts a domain Assignment to an HTTP response DTO.
func ToAssignmentResponse(a *sprint.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:          a.ID,
		TicketID:    a.TicketID,
		AssigneeID:  a.AssigneeID,
		Role:        a.Role.String(),
		Estimate:    a.Estimate,
		Status:      string(a.Status),
		Notes:       a.Notes,
		AssignedBy:  a.AssignedBy,
		AssignedAt:  formatTime(a.AssignedAt),
		AcceptedAt:  formatTimePtr(a.AcceptedAt),
		StartedAt:   formatTimePtr(a.StartedAt),
		CompletedAt: formatTimePtr(a.CompletedAt),
		Archived:    a.Archived,
		ArchivedAt:  formatTimePtr(a.ArchivedAt),
		UpdatedAt:   formatTime(a.UpdatedAt),
	}
}

// MetricsResponse summarises a sprint's live assignments.
type MetricsResponse struct {
	Total           int `json:"total"`
	Completed       int `json:"completed"`
	InProgress      int `json:"in_progress"`
	Blocked         int `json:"blocked"`
	TotalPoints     int `json:"total_points"`
	CompletedPoints int `json:"completed_points"`
}

// SprintResponse represents a sprint in HTTP responses.
type SprintResponse struct {
	ID          string               `json:"id"`
	ProjectID   string               `json:"project_id"`
	Name        string               `json:"name"`
	Goal        string               `json:"goal,omitempty"`
	Status      string               `json:"status"`
	StartDate   string               `json:"start_date,omitempty"`
	EndDate     string               `json:"end_date,omitempty"`
	Assignments []AssignmentResponse `json:"assignments"`
	Metrics     MetricsResponse      `json:"metrics"`
	Version     int64                `json:"version"`
	CreatedBy   string               `json:"created_by"`
	CreatedAt   string               `json:"created_at"`
	UpdatedAt   string               `json:"updated_at"`
}

// ToSprintResponse converts a domain Sprint aggregate to an HTTP response DTO.
func ToSprintResponse(s *sprint.Sprint) SprintResponse {
	assignments := make([]AssignmentResponse, len(s.Assignments))
	for i := range s.Assignments {
		assignments[i] = ToAssignmentResponse(&s.Assignments[i])
	}
	return SprintResponse{
		ID:          s.ID,
		ProjectID:   s.ProjectID,
		Name:        s.Name,
		Goal:        s.Goal,
		Status:      string(s.Status),
		StartDate:   formatTime(s.StartDate),
		EndDate:     formatTime(s.EndDate),
		Assignments: assignments,
		Metrics:     MetricsResponse(s.Metrics),
		Version:     s.Version,
		CreatedBy:   s.CreatedBy,
		CreatedAt:   formatTime(s.CreatedAt),
		UpdatedAt:   formatTime(s.UpdatedAt),
	}
}

// StatusChangeResponse is one entry of a bug's status history.
type StatusChangeResponse struct {
	Status    string `json:"status"`
	ActorID   string `json:"actor_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// BugResponse represents a bug in HTTP responses.
type BugResponse struct {
	ID            string                 `json:"id"`
	ProjectID     string                 `json:"project_id"`
	TicketID      string                 `json:"ticket_id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Severity      string                 `json:"severity"`
	ReporterID    string                 `json:"reporter_id"`
	AssigneeID    string                 `json:"assignee_id,omitempty"`
	Watchers      []string               `json:"watchers"`
	Status        string                 `json:"status"`
	StatusHistory []StatusChangeResponse `json:"status_history"`
	Version       int64                  `json:"version"`
	CreatedAt     string                 `json:"created_at"`
	UpdatedAt     string                 `json:"updated_at"`
}

// ToBugResponse converts a domain Bug aggregate to an HTTP response DTO.
func ToBugResponse(b *bug.Bug) BugResponse {
	history := make([]StatusChangeResponse, len(b.StatusHistory))
	for i, h := range b.StatusHistory {
		history[i] = StatusChangeResponse{
			Status:    string(h.Status),
			ActorID:   h.ActorID,
			Reason:    h.Reason,
			Timestamp: formatTime(h.Timestamp),
		}
	}
	watchers := b.Watchers
	if watchers == nil {
		watchers = []string{}
	}
	return BugResponse{
		ID:            b.ID,
		ProjectID:     b.ProjectID,
		TicketID:      b.TicketID,
		Title:         b.Title,
		Description:   b.Description,
		Severity:      string(b.Severity),
		ReporterID:    b.ReporterID,
		AssigneeID:    b.AssigneeID,
		Watchers:      watchers,
		Status:        string(b.Status),
		StatusHistory: history,
		Version:       b.Version,
		CreatedAt:     formatTime(b.CreatedAt),
		UpdatedAt:     formatTime(b.UpdatedAt),
	}
}

// BugListResponse represents a list of bugs in HTTP responses.
type BugListResponse struct {
	Bugs  []BugResponse `json:"bugs"`
	Count int           `json:"count"`
}

// ToBugListResponse converts a slice of bugs to an HTTP list response DTO.
func ToBugListResponse(bugs []bug.Bug) BugListResponse {
	out := make([]BugResponse, len(bugs))
	for i := range bugs {
		out[i] = ToBugResponse(&bugs[i])
	}
	return BugListResponse{Bugs: out, Count: len(out)}
}

// FlagResponse is one outstanding reconciliation flag.
type FlagResponse struct {
	TicketID  string `json:"ticket_id"`
	BoardID   string `json:"board_id"`
	Reason    string `json:"reason"`
	FlaggedAt string `json:"flagged_at"`
}

// FlagListResponse represents outstanding reconciliation flags.
type FlagListResponse struct {
	Flags []FlagResponse `json:"flags"`
	Count int            `json:"count"`
}

func toFlagResponses(flags []domain.ReconcileFlag) []FlagResponse {
	out := make([]FlagResponse, len(flags))
	for i, f := range flags {
		out[i] = FlagResponse{
			TicketID:  f.TicketID,
			BoardID:   f.BoardID,
			Reason:    f.Reason,
			FlaggedAt: formatTime(f.FlaggedAt),
		}
	}
	return out
}

// ToFlagListResponse converts reconciliation flags to an HTTP list response DTO.
func ToFlagListResponse(flags []domain.ReconcileFlag) FlagListResponse {
	out := toFlagResponses(flags)
	return FlagListResponse{Flags: out, Count: len(out)}
}

// ReconcileResponse reports the outcome of one reconciliation pass.
type ReconcileResponse struct {
	TicketID  string         `json:"ticket_id"`
	Status    string         `json:"status"`
	Moved     []string       `json:"moved"`
	Unchanged []string       `json:"unchanged"`
	Flagged   []FlagResponse `json:"flagged"`
}

// ToReconcileResponse converts a reconciliation report to an HTTP response DTO.
func ToReconcileResponse(r *ports.ReconcileReport) ReconcileResponse {
	resp := ReconcileResponse{
		TicketID:  r.TicketID,
		Status:    r.Status.String(),
		Moved:     r.Moved,
		Unchanged: r.Unchanged,
		Flagged:   toFlagResponses(r.Flagged),
	}
	if resp.Moved == nil {
		resp.Moved = []string{}
	}
	if resp.Unchanged == nil {
		resp.Unchanged = []string{}
	}
	return resp
}

// ActivityResponse is one audit record.
type ActivityResponse struct {
	ID         string `json:"id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	ProjectID  string `json:"project_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Action     string `json:"action"`
	OldValue   string `json:"old_value,omitempty"`
	NewValue   string `json:"new_value,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// ActivityListResponse represents an entity's audit trail.
type ActivityListResponse struct {
	Activity []ActivityResponse `json:"activity"`
	Count    int                `json:"count"`
}

// ToActivityListResponse converts audit records to an HTTP list response DTO.
func ToActivityListResponse(records []domain.ActivityRecord) ActivityListResponse {
	out := make([]ActivityResponse, len(records))
	for i, r := range records {
		out[i] = ActivityResponse{
			ID:         r.ID,
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			ProjectID:  r.ProjectID,
			ActorID:    r.ActorID,
			Action:     r.Action,
			OldValue:   r.OldValue,
			NewValue:   r.NewValue,
			Timestamp:  formatTime(r.Timestamp),
		}
	}
	return ActivityListResponse{Activity: out, Count: len(out)}
}
