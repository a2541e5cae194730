package workflow_test

import (
	"errors"
	"testing"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/workflow"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
)

const (
	open       = workitem.StatusOpen
	inProgress = workitem.StatusInProgress
	codeReview = workitem.StatusCodeReview
	inTesting  = workitem.StatusTesting
	done       = workitem.StatusDone
)

type edge struct{ from, to workitem.Status }

// allowedEdges is the literal truth table for status-changing moves
// (from != to). Every pair not listed is denied.
var allowedEdges = map[domain.Role]map[edge]bool{
	domain.RoleDeveloper: {
		{open, inProgress}:       true,
		{inProgress, codeReview}: true,
		{inProgress, inTesting}:   true,
		{codeReview, inProgress}: true,
		{codeReview, inTesting}:   true,
	},
	domain.RoleTester: {
		{inTesting, inProgress}: true,
		{inTesting, done}:       true,
		{done, inTesting}:       true,
	},
}

func TestEngine_CanTransition_TruthTable(t *testing.T) {
	t.Parallel()

	e := workflow.NewEngine()
	roles := []domain.Role{
		domain.RoleAdmin, domain.RoleManager, domain.RoleDeveloper,
		domain.RoleTester, domain.RoleViewer, domain.Role("intern"), domain.Role(""),
	}

	for _, role := range roles {
		for _, from := range workitem.Statuses {
			for _, to := range workitem.Statuses {
				if from == to {
					continue
				}
				var want bool
				switch role {
				case domain.RoleAdmin, domain.RoleManager:
					want = true
				default:
					want = allowedEdges[role][edge{from, to}]
				}

				got := e.CanTransition(role, from, to, workflow.Context{})
				if got.Allowed != want {
					t.Errorf("CanTransition(%q, %s, %s).Allowed = %v, want %v", role, from, to, got.Allowed, want)
				}
			}
		}
	}
}

func TestEngine_CanTransition_Capacity(t *testing.T) {
	t.Parallel()

	e := workflow.NewEngine()

	tests := []struct {
		name         string
		role         domain.Role
		from, to     workitem.Status
		ctx          workflow.Context
		wantAllowed  bool
		wantCapacity bool
	}{
		{
			name: "full column denies",
			role: domain.RoleManager, from: open, to: inProgress,
			ctx:          workflow.Context{WIPLimit: 2, Occupancy: 2},
			wantCapacity: true,
		},
		{
			name: "room left allows",
			role: domain.RoleManager, from: open, to: inProgress,
			ctx:         workflow.Context{WIPLimit: 2, Occupancy: 1},
			wantAllowed: true,
		},
		{
			name: "zero limit is unlimited",
			role: domain.RoleDeveloper, from: open, to: inProgress,
			ctx:         workflow.Context{WIPLimit: 0, Occupancy: 40},
			wantAllowed: true,
		},
		{
			name: "same column reorder is exempt",
			role: domain.RoleDeveloper, from: done, to: done,
			ctx:         workflow.Context{SameColumn: true, WIPLimit: 1, Occupancy: 3},
			wantAllowed: true,
		},
		{
			name: "same status across columns checks capacity only",
			role: domain.RoleDeveloper, from: done, to: done,
			ctx:          workflow.Context{WIPLimit: 1, Occupancy: 1},
			wantCapacity: true,
		},
		{
			name: "same status across columns with room",
			role: domain.RoleTester, from: open, to: open,
			ctx:         workflow.Context{WIPLimit: 3, Occupancy: 1},
			wantAllowed: true,
		},
		{
			name: "rule denial wins over capacity",
			role: domain.RoleDeveloper, from: open, to: done,
			ctx: workflow.Context{WIPLimit: 1, Occupancy: 1},
		},
		{
			name: "viewer cannot reorder",
			role: domain.RoleViewer, from: open, to: open,
			ctx: workflow.Context{SameColumn: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := e.CanTransition(tt.role, tt.from, tt.to, tt.ctx)
			if got.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v (reason %q)", got.Allowed, tt.wantAllowed, got.Reason)
			}
			if got.CapacityExceeded != tt.wantCapacity {
				t.Errorf("CapacityExceeded = %v, want %v", got.CapacityExceeded, tt.wantCapacity)
			}
		})
	}
}

func TestEngine_Authorize(t *testing.T) {
	t.Parallel()

	e := workflow.NewEngine()

	t.Run("transition error carries allowed targets", func(t *testing.T) {
		t.Parallel()

		err := e.Authorize(domain.RoleDeveloper, inProgress, done, workflow.Context{})

		var terr *domain.TransitionError
		if !errors.As(err, &terr) {
			t.Fatalf("Authorize() = %v, want *TransitionError", err)
		}
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("errors.Is(err, ErrInvalidTransition) = false")
		}
		want := []string{"code_review", "testing"}
		if len(terr.Allowed) != len(want) || terr.Allowed[0] != want[0] || terr.Allowed[1] != want[1] {
			t.Errorf("Allowed = %v, want %v", terr.Allowed, want)
		}
	})

	t.Run("capacity error names the column", func(t *testing.T) {
		t.Parallel()

		err := e.Authorize(domain.RoleAdmin, open, inTesting, workflow.Context{ColumnID: "col-qa", WIPLimit: 1, Occupancy: 1})

		var cerr *domain.CapacityError
		if !errors.As(err, &cerr) {
			t.Fatalf("Authorize() = %v, want *CapacityError", err)
		}
		if cerr.ColumnID != "col-qa" || cerr.Limit != 1 {
			t.Errorf("CapacityError = %+v", cerr)
		}
		if domain.IsRetryable(err) {
			t.Error("IsRetryable(capacity) = true, want false")
		}
	})

	t.Run("allowed returns nil", func(t *testing.T) {
		t.Parallel()

		if err := e.Authorize(domain.RoleTester, inTesting, done, workflow.Context{}); err != nil {
			t.Errorf("Authorize() = %v, want nil", err)
		}
	})
}

func TestEngine_AllowedTargets(t *testing.T) {
	t.Parallel()

	e := workflow.NewEngine()

	if got := e.AllowedTargets(domain.RoleViewer, open); len(got) != 0 {
		t.Errorf("AllowedTargets(viewer) = %v, want none", got)
	}
	if got := e.AllowedTargets(domain.RoleManager, open); len(got) != 4 {
		t.Errorf("AllowedTargets(manager, open) = %v, want 4 targets", got)
	}
	if got := e.AllowedTargets(domain.RoleTester, open); len(got) != 0 {
		t.Errorf("AllowedTargets(tester, open) = %v, want none", got)
	}
}
