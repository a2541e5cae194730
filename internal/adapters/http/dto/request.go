package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/bug"
	"github.com/jsamuelsen11/trackflow/internal/domain/kanban"
	"github.com/jsamuelsen11/trackflow/internal/domain/sprint"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
)

const (
	msgRequired     = "is required"
	msgMustNotEmpty = "must not be empty"
	msgNotNegative  = "must not be negative"
)

func validationResult(fields map[string]string) error {
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func requireText(fields map[string]string, name, value string) {
	if strings.TrimSpace(value) == "" {
		fields[name] = msgRequired
	}
}

// CreateProjectRequest represents the JSON body for creating a new project.
type CreateProjectRequest struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate checks that required fields are present.
// Returns a *domain.ValidationError if any checks fail.
func (r *CreateProjectRequest) Validate() error {
	fields := make(map[string]string)
	requireText(fields, "key", r.Key)
	requireText(fields, "name", r.Name)
	return validationResult(fields)
}

// AddModuleRequest represents the JSON body for adding a module to a project.
type AddModuleRequest struct {
	Name string `json:"name"`
}

// Validate checks that the module name is present.
func (r *AddModuleRequest) Validate() error {
	fields := make(map[string]string)
	requireText(fields, "name", r.Name)
	return validationResult(fields)
}

// CreateWorkItemRequest represents the JSON body for creating a work item.
// The project and module come from the path.
type CreateWorkItemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssigneeID  string `json:"assignee_id,omitempty"`
	TesterID    string `json:"tester_id,omitempty"`
	StoryPoints int    `json:"story_points,omitempty"`
}

// Validate checks that required fields are present and optional fields have
// valid values. Returns a *domain.ValidationError if any checks fail.
func (r *CreateWorkItemRequest) Validate() error {
	fields := make(map[string]string)
	requireText(fields, "title", r.Title)
	if r.StoryPoints < 0 {
		fields["story_points"] = msgNotNegative
	}
	return validationResult(fields)
}

// UpdateWorkItemRequest represents the JSON body for editing a work item.
// All fields are optional; nil means "do not change this field.". Status is
// not editable here.
type UpdateWorkItemRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	TesterID    *string `json:"tester_id,omitempty"`
	StoryPoints *int    `json:"story_points,omitempty"`
}

// Validate checks that any provided fields have valid values.
// Returns a *domain.ValidationError if any checks fail.
func (r *UpdateWorkItemRequest) Validate() error {
	fields := make(map[string]string)
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		fields["title"] = msgMustNotEmpty
	}
	if r.StoryPoints != nil && *r.StoryPoints < 0 {
		fields["story_points"] = msgNotNegative
	}
	return validationResult(fields)
}

// ToUpdate converts the request to a domain partial update.
func (r *UpdateWorkItemRequest) ToUpdate() workitem.Update {
	return workitem.Update{
		Title:       r.Title,
		Description: r.Description,
		AssigneeID:  r.AssigneeID,
		TesterID:    r.TesterID,
		StoryPoints: r.StoryPoints,
	}
}

// ChangeStatusRequest represents the JSON body for a direct status write.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// Validate checks that the status is a known work item status.
func (r *ChangeStatusRequest) Validate() error {
	fields := make(map[string]string)
	switch {
	case r.Status == "":
		fields["status"] = msgRequired
	case !workitem.Status(r.Status).IsValid():
		fields["status"] = fmt.Sprintf("must be one of %v, got %q", workitem.Statuses, r.Status)
	}
	return validationResult(fields)
}

// AddCommentRequest represents the JSON body for commenting on a work item.
type AddCommentRequest struct {
	Body string `json:"body"`
}

// Validate checks that the comment body is present.
func (r *AddCommentRequest) Validate() error {
	fields := make(map[string]string)
	requireText(fields, "body", r.Body)
	return validationResult(fields)
}

// ColumnRequest describes one board column on creation.
type ColumnRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	StatusMapping string `json:"status_mapping"`
	WIPLimit      int    `json:"wip_limit,omitempty"`
}

// CreateBoardRequest represents the JSON body for creating a board. Without
// columns the board gets one unlimited column per work item status.
type CreateBoardRequest struct {
	ProjectID              string          `json:"project_id"`
	Name                   string          `json:"name"`
	Description            string          `json:"description,omitempty"`
	SprintID               string          `json:"sprint_id,omitempty"`
	UserID                 string          `json:"user_id,omitempty"`
	AutoMoveOnStatusChange bool            `json:"auto_move_on_status_change"`
	Columns                []ColumnRequest `json:"columns,omitempty"`
}

// Validate checks that required fields are present. Column rules are left to
// the board aggregate.
func (r *CreateBoardRequest) Validate() error {
	fields := make(map[string]string)
	requireText(fields, "project_id", r.ProjectID)
	requireText(fields, "name", r.Name)
	return validationResult(fields)
}

// ToBoard converts the request to a new board aggregate.
func (r *CreateBoardRequest) ToBoard() *kanban.Board {
	b := &kanban.Board{
		ProjectID:              r.ProjectID,
		SprintID:               r.SprintID,
		UserID:                 r.UserID,
		Name:                   r.Name,
		Description:            r.Description,
		AutoMoveOnStatusChange: r.AutoMoveOnStatusChange,
	}
	if len(r.Columns) > 0 {
		b.Columns = make([]kanban.Column, len(r.Columns))
		for i, c := range r.Columns {
			b.Columns[i] = kanban.Column{
				ID:            c.ID,
				Name:          c.Name,
				StatusMapping: workitem.Status(c.StatusMapping),
				WIPLimit:      c.WIPLimit,
			}
		}
	}
	return b
}

// AddTicketRequest represents the JSON body for placing a ticket on a board.
// An empty ColumnID selects the column mapped to the ticket's status.
type AddTicketRequest struct {
	TicketID string `json:"ticket_id"`
	ColumnID string `json:"column_id,omitempty"`
}

// Validate checks that the ticket is named.
func (r *AddTicketRequest) Validate() error {
	fields := make(map[string]string)
	requireText(fields, "ticket_id", r.TicketID)
	return validationResult(fields)
}

// MoveTicketRequest represents the JSON body for moving a card.
type MoveTicketRequest struct {
	TicketID    string `json:"ticket_id"`
	FromColumn  string `json:"from_column"`
	ToColumn    string `json:"to_column"`
	TargetIndex int    `json:"target_index"`
}

// Validate checks that the move is fully addressed.
func (r *MoveTicketRequest) Validate() error {
	fields := make(map[string]string)
	requireText(fields, "ticket_id", r.TicketID)
	requireText(fields, "from_column", r.FromColumn)
	requireText(fields, "to_column", r.ToColumn)
	if r.TargetIndex < 0 {
		fields["target_index"] = msgNotNegative
	}
	return validationResult(fields)
}

// UpdateColumnRequest represents the JSON body for column configuration.
type UpdateColumnRequest struct {
	Name     *string `json:"name,omitempty"`
	WIPLimit *int    `json:"wip_limit,omitempty"`
}

// Validate checks that any provided fields have valid values.
func (r *UpdateColumnRequest) Validate() error {
	fields := make(map[string]string)
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		fields["name"] = msgMustNotEmpty
	}
	if r.WIPLimit != nil && *r.WIPLimit < 0 {
		fields["wip_limit"] = msgNotNegative
	}
	return validationResult(fields)
}

// ToUpdate converts the request to a domain column update.
func (r *UpdateColumnRequest) ToUpdate() kanban.ColumnUpdate {
	return kanban.ColumnUpdate{Name: r.Name, WIPLimit: r.WIPLimit}
}

// CreateSprintRequest represents the JSON body for planning a sprint.
type CreateSprintRequest struct {
	ProjectID string     `json:"project_id"`
	Name      string     `json:"name"`
	Goal      string     `json:"goal,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Validate checks that required fields are present.
func (r *CreateSprintRequest) Validate() error {
	fields := make(map[string]string)
	requireText(fields, "project_id", r.ProjectID)
	requireText(fields, "name", r.Name)
	return validationResult(fields)
}

// ToSprint converts the request to a new sprint aggregate.
func (r *CreateSprintRequest) ToSprint() *sprint.Sprint {
	s := &sprint.Sprint{ProjectID: r.ProjectID, Name: r.Name, Goal: r.Goal}
	if r.StartDate != nil {
		s.StartDate = r.StartDate.UTC()
	}
	if r.EndDate != nil {
		s.EndDate = r.EndDate.UTC()
	}
	return s
}

// AssignRequest represents the JSON body for adding a sprint assignment.
type AssignRequest struct {
	TicketID   string `json:"ticket_id"`
	AssigneeID string `json:"assignee_id"`
	Role       string `json:"role,omitempty"`
	Estimate   int    `json:"estimate,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Validate checks that required fields are present.
func (r *AssignRequest) Validate() error {
	fields := make(map[string]string)
	requireText(fields, "ticket_id", r.TicketID)
	requireText(fields, "assignee_id", r.AssigneeID)
	if r.Role != "" && !domain.ParseRole(r.Role).IsValid() {
		fields["role"] = fmt.Sprintf("must be one of %v, got %q", domain.Roles, r.Role)
	}
	if r.Estimate < 0 {
		fields["estimate"] = msgNotNegative
	}
	return validationResult(fields)
}

// UpdateAssignmentRequest represents the JSON body for an assignment
// status change.
type UpdateAssignmentRequest struct {
	Status string `json:"status"`
}

// Validate checks that a status is present. Whether it is reachable is
// decided by the ledger.
func (r *UpdateAssignmentRequest) Validate() error {
	fields := make(map[string]string)
	requireText(fields, "status", r.Status)
	return validationResult(fields)
}

// CreateBugRequest represents the JSON body for filing a bug.
type CreateBugRequest struct {
	ProjectID   string `json:"project_id"`
	TicketID    string `json:"ticket_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// Validate checks that required fields are present.
func (r *CreateBugRequest) Validate() error {
	fields := make(map[string]string)
	requireText(fields, "project_id", r.ProjectID)
	requireText(fields, "ticket_id", r.TicketID)
	requireText(fields, "title", r.Title)
	if r.Severity != "" && !bug.Severity(r.Severity).IsValid() {
		fields["severity"] = fmt.Sprintf("invalid severity %q", r.Severity)
	}
	return validationResult(fields)
}

// ToBug converts the request to a bug draft.
func (r *CreateBugRequest) ToBug() *bug.Bug {
	return &bug.Bug{
		ProjectID:   r.ProjectID,
		TicketID:    r.TicketID,
		Title:       r.Title,
		Description: r.Description,
		Severity:    bug.Severity(r.Severity),
	}
}

// BugTransitionRequest represents the JSON body for a bug status change.
type BugTransitionRequest struct {
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	AssigneeID string `json:"assignee_id,omitempty"`
}

// Validate checks that the target is a known bug status.
func (r *BugTransitionRequest) Validate() error {
	fields := make(map[string]string)
	switch {
	case r.Status == "":
		fields["status"] = msgRequired
	case !bug.Status(r.Status).IsValid():
		fields["status"] = fmt.Sprintf("invalid bug status %q", r.Status)
	}
	return validationResult(fields)
}
