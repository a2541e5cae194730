// Package workflow holds the role-based transition rules for work item
// statuses. The Engine is stateless: every decision depends only on the
// role, the two statuses and the capacity Context supplied by the caller.
package workflow

import (
	"slices"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
)

// Matrix maps a source status to the statuses a role may move it to.
type Matrix map[workitem.Status][]workitem.Status

// Context carries the board-side facts of a move. The zero value describes
// a direct status write with no capacity constraint.
type Context struct {
	// SameColumn is true when the card is reordered inside its own column.
	SameColumn bool
	// ColumnID is the destination column, for error reporting.
	ColumnID string
	// WIPLimit is the destination column's limit; 0 means unlimited.
	WIPLimit int
	// Occupancy is the destination column's card count before the move.
	Occupancy int
}

// Decision is the outcome of CanTransition.
type Decision struct {
	Allowed bool
	// CapacityExceeded is set when the status move was permitted but the
	// destination column is full.
	CapacityExceeded bool
	Reason           string
	// AllowedTargets lists the statuses the role may move to from the
	// source status, for client display.
	AllowedTargets []workitem.Status
}

// Engine evaluates transitions against static per-role matrices.
type Engine struct {
	matrices map[domain.Role]Matrix
	// open roles may move any status to any other.
	open map[domain.Role]bool
}

// DeveloperMatrix is the developer's adjacency.
func DeveloperMatrix() Matrix {
	return Matrix{
		workitem.StatusOpen:       {workitem.StatusInProgress},
		workitem.StatusInProgress: {workitem.StatusCodeReview, workitem.StatusTesting},
		workitem.StatusCodeReview: {workitem.StatusInProgress, workitem.StatusTesting},
	}
}

// TesterMatrix is the tester's adjacency.
func TesterMatrix() Matrix {
	return Matrix{
		workitem.StatusTesting: {workitem.StatusInProgress, workitem.StatusDone},
		workitem.StatusDone:    {workitem.StatusTesting},
	}
}

// NewEngine returns an Engine with the standard matrices. Managers, admins
// and the system actor may perform any transition; viewers and unknown
// roles may perform none.
func NewEngine() *Engine {
	return &Engine{
		matrices: map[domain.Role]Matrix{
			domain.RoleDeveloper: DeveloperMatrix(),
			domain.RoleTester:    TesterMatrix(),
		},
		open: map[domain.Role]bool{
			domain.RoleAdmin:   true,
			domain.RoleManager: true,
			domain.RoleSystem:  true,
		},
	}
}

// AllowedTargets returns the statuses role may move a card to from from.
func (e *Engine) AllowedTargets(role domain.Role, from workitem.Status) []workitem.Status {
	if e.open[role] {
		out := make([]workitem.Status, 0, len(workitem.Statuses)-1)
		for _, s := range workitem.Statuses {
			if s != from {
				out = append(out, s)
			}
		}
		return out
	}
	m, ok := e.matrices[role]
	if !ok {
		return nil
	}
	return slices.Clone(m[from])
}

func (e *Engine) knows(role domain.Role) bool {
	if e.open[role] {
		return true
	}
	_, ok := e.matrices[role]
	return ok
}

// CanTransition decides whether role may move a card from one status to
// another under ctx.
func (e *Engine) CanTransition(role domain.Role, from, to workitem.Status, ctx Context) Decision {
	targets := e.AllowedTargets(role, from)

	if !e.knows(role) {
		return Decision{Reason: "role " + role.String() + " may not change workflow state"}
	}
	if !from.IsValid() || !to.IsValid() {
		return Decision{Reason: "unknown status", AllowedTargets: targets}
	}

	if from == to && ctx.SameColumn {
		return Decision{Allowed: true, AllowedTargets: targets}
	}

	if from != to && !slices.Contains(targets, to) {
		return Decision{
			Reason:         role.String() + " may not move " + from.String() + " to " + to.String(),
			AllowedTargets: targets,
		}
	}

	if ctx.WIPLimit > 0 && ctx.Occupancy >= ctx.WIPLimit {
		return Decision{
			CapacityExceeded: true,
			Reason:           "destination column is at its WIP limit",
			AllowedTargets:   targets,
		}
	}

	return Decision{Allowed: true, AllowedTargets: targets}
}

// Authorize is CanTransition returning a typed error: *domain.CapacityError
// for a full column, *domain.TransitionError for any other denial.
func (e *Engine) Authorize(role domain.Role, from, to workitem.Status, ctx Context) error {
	d := e.CanTransition(role, from, to, ctx)
	switch {
	case d.Allowed:
		return nil
	case d.CapacityExceeded:
		return &domain.CapacityError{ColumnID: ctx.ColumnID, Limit: ctx.WIPLimit, Occupancy: ctx.Occupancy}
	default:
		allowed := make([]string, len(d.AllowedTargets))
		for i, s := range d.AllowedTargets {
			allowed[i] = s.String()
		}
		return &domain.TransitionError{
			Entity:  domain.EntityWorkItem,
			Role:    role,
			From:    from.String(),
			To:      to.String(),
			Allowed: allowed,
			Reason:  d.Reason,
		}
	}
}
