package dto_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jsamuelsen11/trackflow/internal/adapters/http/dto"
	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
)

func stringPtr(s string) *string { return &s }
func intPtr(i int) *int          { return &i }

// requireValidationField asserts err wraps ErrValidation and the resulting
// ValidationError contains the expected field key.
func requireValidationField(t *testing.T, err error, field string) {
	t.Helper()

	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("errors.Is(err, ErrValidation) = false, got %v", err)
	}

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("errors.As(err, *ValidationError) = false, got %T", err)
	}
	if _, ok := verr.Fields[field]; !ok {
		t.Errorf("ValidationError.Fields missing key %q, got %v", field, verr.Fields)
	}
}

type validator interface {
	Validate() error
}

func TestRequests_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		req       validator
		wantField string
	}{
		{name: "project ok", req: &dto.CreateProjectRequest{Key: "TRK", Name: "Tracker"}},
		{name: "project without key", req: &dto.CreateProjectRequest{Name: "Tracker"}, wantField: "key"},
		{name: "project blank name", req: &dto.CreateProjectRequest{Key: "TRK", Name: "  "}, wantField: "name"},
		{name: "module ok", req: &dto.AddModuleRequest{Name: "API"}},
		{name: "module without name", req: &dto.AddModuleRequest{}, wantField: "name"},

		{name: "item ok", req: &dto.CreateWorkItemRequest{Title: "Login page", StoryPoints: 3}},
		{name: "item without title", req: &dto.CreateWorkItemRequest{Description: "x"}, wantField: "title"},
		{name: "item negative points", req: &dto.CreateWorkItemRequest{Title: "x", StoryPoints: -1}, wantField: "story_points"},
		{name: "update empty", req: &dto.UpdateWorkItemRequest{}},
		{name: "update blank title", req: &dto.UpdateWorkItemRequest{Title: stringPtr(" ")}, wantField: "title"},
		{name: "update negative points", req: &dto.UpdateWorkItemRequest{StoryPoints: intPtr(-2)}, wantField: "story_points"},
		{name: "status ok", req: &dto.ChangeStatusRequest{Status: "code_review"}},
		{name: "status missing", req: &dto.ChangeStatusRequest{}, wantField: "status"},
		{name: "status unknown", req: &dto.ChangeStatusRequest{Status: "blocked"}, wantField: "status"},
		{name: "comment ok", req: &dto.AddCommentRequest{Body: "LGTM"}},
		{name: "comment blank", req: &dto.AddCommentRequest{Body: "\n"}, wantField: "body"},

		{name: "board ok", req: &dto.CreateBoardRequest{ProjectID: "p1", Name: "Team"}},
		{name: "board without project", req: &dto.CreateBoardRequest{Name: "Team"}, wantField: "project_id"},
		{name: "ticket ok", req: &dto.AddTicketRequest{TicketID: "w1"}},
		{name: "ticket missing", req: &dto.AddTicketRequest{ColumnID: "open"}, wantField: "ticket_id"},
		{name: "move ok", req: &dto.MoveTicketRequest{TicketID: "w1", FromColumn: "open", ToColumn: "in_progress"}},
		{name: "move without target", req: &dto.MoveTicketRequest{TicketID: "w1", FromColumn: "open"}, wantField: "to_column"},
		{name: "move negative index", req: &dto.MoveTicketRequest{TicketID: "w1", FromColumn: "a", ToColumn: "b", TargetIndex: -1}, wantField: "target_index"},
		{name: "column ok", req: &dto.UpdateColumnRequest{WIPLimit: intPtr(0)}},
		{name: "column negative limit", req: &dto.UpdateColumnRequest{WIPLimit: intPtr(-1)}, wantField: "wip_limit"},
		{name: "column blank name", req: &dto.UpdateColumnRequest{Name: stringPtr("")}, wantField: "name"},

		{name: "sprint ok", req: &dto.CreateSprintRequest{ProjectID: "p1", Name: "Sprint 1"}},
		{name: "sprint without name", req: &dto.CreateSprintRequest{ProjectID: "p1"}, wantField: "name"},
		{name: "assign ok", req: &dto.AssignRequest{TicketID: "w1", AssigneeID: "dev-1", Role: "Developer"}},
		{name: "assign without assignee", req: &dto.AssignRequest{TicketID: "w1"}, wantField: "assignee_id"},
		{name: "assign system role", req: &dto.AssignRequest{TicketID: "w1", AssigneeID: "a", Role: "system"}, wantField: "role"},
		{name: "assignment status missing", req: &dto.UpdateAssignmentRequest{}, wantField: "status"},

		{name: "bug ok", req: &dto.CreateBugRequest{ProjectID: "p1", TicketID: "w1", Title: "Crash", Severity: "high"}},
		{name: "bug without ticket", req: &dto.CreateBugRequest{ProjectID: "p1", Title: "Crash"}, wantField: "ticket_id"},
		{name: "bug bad severity", req: &dto.CreateBugRequest{ProjectID: "p1", TicketID: "w1", Title: "Crash", Severity: "meh"}, wantField: "severity"},
		{name: "transition ok", req: &dto.BugTransitionRequest{Status: "ASSIGNED"}},
		{name: "transition lowercase", req: &dto.BugTransitionRequest{Status: "assigned"}, wantField: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.req.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			requireValidationField(t, err, tt.wantField)
		})
	}
}

func TestCreateBoardRequest_ToBoard(t *testing.T) {
	t.Parallel()

	req := dto.CreateBoardRequest{
		ProjectID:              "p1",
		Name:                   "Team",
		AutoMoveOnStatusChange: true,
		Columns: []dto.ColumnRequest{
			{ID: "todo", Name: "To Do", StatusMapping: "open"},
			{ID: "doing", Name: "Doing", StatusMapping: "in_progress", WIPLimit: 3},
		},
	}

	b := req.ToBoard()
	if b.ProjectID != "p1" || !b.AutoMoveOnStatusChange {
		t.Errorf("board = %+v, want project p1 with auto-move", b)
	}
	if len(b.Columns) != 2 {
		t.Fatalf("len(Columns) = %d, want 2", len(b.Columns))
	}
	if b.Columns[1].StatusMapping != workitem.StatusInProgress || b.Columns[1].WIPLimit != 3 {
		t.Errorf("Columns[1] = %+v, want in_progress limited to 3", b.Columns[1])
	}

	if cols := (&dto.CreateBoardRequest{}).ToBoard().Columns; cols != nil {
		t.Errorf("Columns = %v, want nil so the service applies defaults", cols)
	}
}

func TestCreateSprintRequest_ToSprint(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	req := dto.CreateSprintRequest{ProjectID: "p1", Name: "Sprint 1", StartDate: &start}

	s := req.ToSprint()
	if !s.StartDate.Equal(start) || s.StartDate.Location() != time.UTC {
		t.Errorf("StartDate = %v, want %v in UTC", s.StartDate, start)
	}
	if !s.EndDate.IsZero() {
		t.Errorf("EndDate = %v, want zero", s.EndDate)
	}
}

func TestUpdateWorkItemRequest_ToUpdate(t *testing.T) {
	t.Parallel()

	req := dto.UpdateWorkItemRequest{AssigneeID: stringPtr(""), StoryPoints: intPtr(5)}
	u := req.ToUpdate()

	if u.Title != nil {
		t.Errorf("Title = %v, want nil", *u.Title)
	}
	if u.AssigneeID == nil || *u.AssigneeID != "" {
		t.Error("AssigneeID should be an explicit empty string to unassign")
	}
	if u.StoryPoints == nil || *u.StoryPoints != 5 {
		t.Errorf("StoryPoints = %v, want 5", u.StoryPoints)
	}
}
