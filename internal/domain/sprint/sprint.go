// Package sprint defines the Sprint aggregate and its assignment ledger.
// Assignments have their own lifecycle, separate from the work item status;
// the two meet only through the side effects the application layer applies.
package sprint

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jsamuelsen11/trackflow/internal/domain"
)

// Status is the lifecycle state of a sprint.
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsValid returns true if the status is a recognized sprint status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPlanned, StatusActive, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsOpen reports whether assignments may still be added.
func (s Status) IsOpen() bool {
	return s == StatusPlanned || s == StatusActive
}

// Metrics summarise the live assignment list. They are recomputed from
// scratch on every mutation.
type Metrics struct {
	Total           int
	Completed       int
	InProgress      int
	Blocked         int
	TotalPoints     int
	CompletedPoints int
}

// Sprint is a time-boxed iteration within a project.
type Sprint struct {
	ID          string
	ProjectID   string
	Name        string
	Goal        string
	Status      Status
	StartDate   time.Time
	EndDate     time.Time
	Assignments []Assignment
	Metrics     Metrics
	Version     int64
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks business rules for the Sprint entity.
// Returns a *domain.ValidationError (wrapping domain.ErrValidation) with per-field details,
// or nil if all rules pass.
func (s *Sprint) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(s.Name) == "" {
		fields["name"] = domain.MsgRequired
	}
	if s.ProjectID == "" {
		fields["project_id"] = domain.MsgRequired
	}
	if !s.Status.IsValid() {
		fields["status"] = fmt.Sprintf("invalid sprint status %q", s.Status)
	}
	if !s.StartDate.IsZero() && !s.EndDate.IsZero() && s.EndDate.Before(s.StartDate) {
		fields["end_date"] = "must not be before start_date"
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// Assignment returns the assignment with the given ID.
func (s *Sprint) Assignment(id string) (*Assignment, bool) {
	for i := range s.Assignments {
		if s.Assignments[i].ID == id {
			return &s.Assignments[i], true
		}
	}
	return nil, false
}

// ActiveAssignment returns the live assignment for ticketID, if any.
func (s *Sprint) ActiveAssignment(ticketID string) (*Assignment, bool) {
	for i := range s.Assignments {
		if s.Assignments[i].TicketID == ticketID && s.Assignments[i].Active() {
			return &s.Assignments[i], true
		}
	}
	return nil, false
}

// Assign adds a new assignment. The sprint must be planned or active and
// the ticket must not already hold an active assignment.
func (s *Sprint) Assign(a Assignment) error {
	if !s.Status.IsOpen() {
		return &domain.TransitionError{
			Entity: domain.EntitySprint,
			From:   string(s.Status),
			To:     string(s.Status),
			Reason: "assignments can only be added to planned or active sprints",
		}
	}
	if err := a.Validate(); err != nil {
		return err
	}
	if _, ok := s.ActiveAssignment(a.TicketID); ok {
		return fmt.Errorf("assignment for ticket %q in sprint %s: %w", a.TicketID, s.ID, domain.ErrAlreadyExists)
	}
	if a.Status == "" {
		a.Status = AssignmentAssigned
	}
	s.Assignments = append(s.Assignments, a)
	s.RecomputeMetrics()
	s.UpdatedAt = a.AssignedAt
	return nil
}

// RecomputeMetrics rebuilds Metrics from the non-archived, non-rejected
// assignments.
func (s *Sprint) RecomputeMetrics() {
	var m Metrics
	for i := range s.Assignments {
		a := &s.Assignments[i]
		if !a.Active() {
			continue
		}
		m.Total++
		m.TotalPoints += a.Estimate
		switch a.Status {
		case AssignmentCompleted:
			m.Completed++
			m.CompletedPoints += a.Estimate
		case AssignmentInProgress:
			m.InProgress++
		case AssignmentBlocked:
			m.Blocked++
		}
	}
	s.Metrics = m
}

var sprintTransitions = map[Status][]Status{
	StatusPlanned: {StatusActive, StatusCancelled},
	StatusActive:  {StatusCompleted, StatusCancelled},
}

// TransitionTo moves the sprint through its lifecycle. Completing or
// cancelling archives every assignment.
func (s *Sprint) TransitionTo(to Status, now time.Time) error {
	if !slices.Contains(sprintTransitions[s.Status], to) {
		allowed := make([]string, 0, 2)
		for _, st := range sprintTransitions[s.Status] {
			allowed = append(allowed, string(st))
		}
		return &domain.TransitionError{
			Entity:  domain.EntitySprint,
			From:    string(s.Status),
			To:      string(to),
			Allowed: allowed,
		}
	}

	s.Status = to
	s.UpdatedAt = now
	switch to {
	case StatusActive:
		if s.StartDate.IsZero() {
			s.StartDate = now
		}
	case StatusCompleted, StatusCancelled:
		if s.EndDate.IsZero() || s.EndDate.After(now) {
			s.EndDate = now
		}
		for i := range s.Assignments {
			s.Assignments[i].Archive(now)
		}
	}
	s.RecomputeMetrics()
	return nil
}
