// Package bug defines the Bug aggregate and its status machine. Every
// transition appends to StatusHistory so that the current status can always
// be rebuilt from the history alone.
package bug

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jsamuelsen11/trackflow/internal/domain"
)

// Status is the lifecycle state of a bug.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
	StatusReopened   Status = "REOPENED"
)

var transitions = map[Status][]Status{
	StatusNew:        {StatusAssigned},
	StatusAssigned:   {StatusInProgress},
	StatusInProgress: {StatusResolved},
	StatusResolved:   {StatusClosed, StatusInProgress},
	StatusClosed:     {StatusReopened},
	StatusReopened:   {StatusInProgress},
}

// IsValid returns true if the status is a recognized bug status.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// Next returns the statuses reachable from s.
func (s Status) Next() []Status {
	return slices.Clone(transitions[s])
}

// Severity ranks a bug's impact.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid returns true if the severity is recognized.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// StatusChange is one entry of a bug's append-only status history.
type StatusChange struct {
	Status    Status
	ActorID   string
	Reason    string
	Timestamp time.Time
}

// Bug is a defect report linked to a single work item.
type Bug struct {
	ID          string
	ProjectID   string
	TicketID    string
	Title       string
	Description string
	Severity    Severity
	ReporterID  string
	AssigneeID  string
	Watchers    []string
	Status      Status
	// StatusHistory always ends with an entry for Status.
	StatusHistory []StatusChange
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New builds a bug in status NEW with its opening history entry. The
// reporter watches the bug from the start.
func New(b Bug, now time.Time) (*Bug, error) {
	b.Status = StatusNew
	if b.Severity == "" {
		b.Severity = SeverityMedium
	}
	b.CreatedAt = now
	b.UpdatedAt = now
	b.StatusHistory = []StatusChange{{Status: StatusNew, ActorID: b.ReporterID, Timestamp: now}}
	b.AddWatcher(b.ReporterID)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Validate checks business rules for the Bug entity.
// Returns a *domain.ValidationError (wrapping domain.ErrValidation) with per-field details,
// or nil if all rules pass.
func (b *Bug) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(b.Title) == "" {
		fields["title"] = domain.MsgRequired
	}
	if b.ProjectID == "" {
		fields["project_id"] = domain.MsgRequired
	}
	if b.TicketID == "" {
		fields["ticket_id"] = domain.MsgRequired
	}
	if b.ReporterID == "" {
		fields["reporter_id"] = domain.MsgRequired
	}
	if !b.Severity.IsValid() {
		fields["severity"] = fmt.Sprintf("invalid severity %q", b.Severity)
	}
	if !b.Status.IsValid() {
		fields["status"] = fmt.Sprintf("invalid bug status %q", b.Status)
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// Transition moves the bug to status to and appends the history entry. The
// caller persists both in one write.
func (b *Bug) Transition(to Status, actorID, reason string, now time.Time) error {
	if !slices.Contains(transitions[b.Status], to) {
		next := transitions[b.Status]
		allowed := make([]string, len(next))
		for i, s := range next {
			allowed[i] = string(s)
		}
		return &domain.TransitionError{
			Entity:  domain.EntityBug,
			From:    string(b.Status),
			To:      string(to),
			Allowed: allowed,
		}
	}

	b.Status = to
	b.UpdatedAt = now
	b.StatusHistory = append(b.StatusHistory, StatusChange{
		Status:    to,
		ActorID:   actorID,
		Reason:    reason,
		Timestamp: now,
	})
	return nil
}

// AddWatcher adds userID to the watcher list. It reports whether the list
// changed.
func (b *Bug) AddWatcher(userID string) bool {
	if userID == "" || slices.Contains(b.Watchers, userID) {
		return false
	}
	b.Watchers = append(b.Watchers, userID)
	return true
}

// ReplayStatus rebuilds the status from history. An empty history yields
// StatusNew.
func ReplayStatus(history []StatusChange) Status {
	if len(history) == 0 {
		return StatusNew
	}
	return history[len(history)-1].Status
}
