// Package workitem defines the WorkItem (ticket) entity. A work item is
// exclusively owned by one module of one project, and its Status is the
// single source of truth for every board, sprint and bug view of it.
package workitem

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jsamuelsen11/trackflow/internal/domain"
)

// Comment is one entry of the append-only comment log. System comments are
// written by the service itself, e.g. when a linked bug is resolved.
type Comment struct {
	ID        string
	AuthorID  string
	Body      string
	System    bool
	CreatedAt time.Time
}

// WorkItem is a unit of work with a workflow status.
type WorkItem struct {
	ID          string
	ProjectID   string
	ModuleID    string
	Number      int
	Key         string
	Title       string
	Description string
	Status      Status
	AssigneeID  string
	TesterID    string
	SprintID    string
	StoryPoints int
	Watchers    []string
	Comments    []Comment
	Removed     bool
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// StartedAt is set on the first entry into in_progress and never again.
	StartedAt *time.Time
	// CompletedAt is set on the first entry into done and never again.
	CompletedAt *time.Time
}

// Validate checks business rules for the WorkItem entity.
// Returns a *domain.ValidationError (wrapping domain.ErrValidation) with per-field details,
// or nil if all rules pass.
func (w *WorkItem) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(w.Title) == "" {
		fields["title"] = domain.MsgRequired
	}
	if w.ProjectID == "" {
		fields["project_id"] = domain.MsgRequired
	}
	if w.ModuleID == "" {
		fields["module_id"] = domain.MsgRequired
	}
	if !w.Status.IsValid() {
		fields["status"] = fmt.Sprintf("must be one of %v, got %q", Statuses, w.Status)
	}
	if w.StoryPoints < 0 {
		fields["story_points"] = "must not be negative"
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// SetStatus writes the canonical status and maintains the lifecycle
// timestamps. It reports whether the status changed. Authorization is the
// caller's concern.
func (w *WorkItem) SetStatus(to Status, now time.Time) bool {
	if w.Status == to {
		return false
	}
	w.Status = to
	w.UpdatedAt = now
	switch to {
	case StatusInProgress:
		if w.StartedAt == nil {
			t := now
			w.StartedAt = &t
		}
	case StatusDone:
		if w.CompletedAt == nil {
			t := now
			w.CompletedAt = &t
		}
	}
	return true
}

// AddComment appends to the comment log.
func (w *WorkItem) AddComment(c Comment) error {
	if strings.TrimSpace(c.Body) == "" {
		return &domain.ValidationError{Fields: map[string]string{"body": domain.MsgRequired}}
	}
	w.Comments = append(w.Comments, c)
	if c.CreatedAt.After(w.UpdatedAt) {
		w.UpdatedAt = c.CreatedAt
	}
	return nil
}

// AddWatcher adds userID to the watcher list. It reports whether the list
// changed.
func (w *WorkItem) AddWatcher(userID string) bool {
	if userID == "" || slices.Contains(w.Watchers, userID) {
		return false
	}
	w.Watchers = append(w.Watchers, userID)
	return true
}

// Audience returns the users interested in changes to this item: assignee,
// tester and watchers, deduplicated.
func (w *WorkItem) Audience() []string {
	out := make([]string, 0, len(w.Watchers)+2)
	for _, id := range append([]string{w.AssigneeID, w.TesterID}, w.Watchers...) {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// Update contains optional fields for a partial update. Status is not
// editable here; it changes only through a status write.
type Update struct {
	Title       *string
	Description *string
	AssigneeID  *string
	TesterID    *string
	StoryPoints *int
}

// Apply copies the non-nil fields of u onto w.
func (w *WorkItem) Apply(u Update, now time.Time) {
	if u.Title != nil {
		w.Title = *u.Title
	}
	if u.Description != nil {
		w.Description = *u.Description
	}
	if u.AssigneeID != nil {
		w.AssigneeID = *u.AssigneeID
	}
	if u.TesterID != nil {
		w.TesterID = *u.TesterID
	}
	if u.StoryPoints != nil {
		w.StoryPoints = *u.StoryPoints
	}
	w.UpdatedAt = now
}

// Filter narrows a project's work item listing. Zero values match all.
type Filter struct {
	ModuleID       string
	Status         Status
	AssigneeID     string
	SprintID       string
	IncludeRemoved bool
}

// Matches reports whether w passes the filter.
func (f Filter) Matches(w *WorkItem) bool {
	switch {
	case w.Removed && !f.IncludeRemoved:
		return false
	case f.ModuleID != "" && w.ModuleID != f.ModuleID:
		return false
	case f.Status != "" && w.Status != f.Status:
		return false
	case f.AssigneeID != "" && w.AssigneeID != f.AssigneeID:
		return false
	case f.SprintID != "" && w.SprintID != f.SprintID:
		return false
	default:
		return true
	}
}
