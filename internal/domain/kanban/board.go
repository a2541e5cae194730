// Package kanban defines the KanbanBoard aggregate: an independently
// versioned projection of work item statuses onto ordered columns.
//
// A ticket appears in at most one column per board, and positions inside a
// column are dense and 1-based. Every mutator below recomputes positions of
// the columns it touches.
package kanban

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/workflow"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
)

// DefaultActivityCap bounds RecentActivity when no cap is configured.
const DefaultActivityCap = 50

// TicketRef places one work item in a column.
type TicketRef struct {
	TicketID string
	Position int
	MovedAt  time.Time
	MovedBy  string
}

// Column is an ordered lane that maps to one work item status.
type Column struct {
	ID            string
	Name          string
	StatusMapping workitem.Status
	// WIPLimit caps the number of cards; 0 means unlimited.
	WIPLimit int
	Tickets  []TicketRef
}

// Full reports whether one more card would exceed the WIP limit.
func (c *Column) Full() bool {
	return c.WIPLimit > 0 && len(c.Tickets) >= c.WIPLimit
}

func (c *Column) indexOf(ticketID string) int {
	return slices.IndexFunc(c.Tickets, func(r TicketRef) bool { return r.TicketID == ticketID })
}

func (c *Column) renumber() {
	for i := range c.Tickets {
		c.Tickets[i].Position = i + 1
	}
}

// Activity is a board-local history entry, kept for display.
type Activity struct {
	TicketID   string
	Action     string
	FromColumn string
	ToColumn   string
	ActorID    string
	At         time.Time
}

// Board is the Kanban aggregate.
type Board struct {
	ID          string
	ProjectID   string
	SprintID    string
	UserID      string
	OwnerID     string
	Name        string
	Description string
	// AutoMoveOnStatusChange makes a successful move write the destination
	// column's status back to the work item.
	AutoMoveOnStatusChange bool
	Columns                []Column
	RecentActivity         []Activity
	Version                int64
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// DefaultColumns returns one unlimited column per work item status, in
// workflow order.
func DefaultColumns() []Column {
	names := map[workitem.Status]string{
		workitem.StatusOpen:       "To Do",
		workitem.StatusInProgress: "In Progress",
		workitem.StatusCodeReview: "Code Review",
		workitem.StatusTesting:    "Testing",
		workitem.StatusDone:       "Done",
	}
	cols := make([]Column, 0, len(workitem.Statuses))
	for _, s := range workitem.Statuses {
		cols = append(cols, Column{ID: string(s), Name: names[s], StatusMapping: s})
	}
	return cols
}

// Validate checks business rules for the Board entity.
// Returns a *domain.ValidationError (wrapping domain.ErrValidation) with per-field details,
// or nil if all rules pass.
func (b *Board) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(b.Name) == "" {
		fields["name"] = domain.MsgRequired
	}
	if b.ProjectID == "" {
		fields["project_id"] = domain.MsgRequired
	}
	if len(b.Columns) == 0 {
		fields["columns"] = "must contain at least one column"
	}

	ids := make(map[string]bool, len(b.Columns))
	seen := make(map[string]bool)
	for i := range b.Columns {
		c := &b.Columns[i]
		key := fmt.Sprintf("columns[%d]", i)
		switch {
		case c.ID == "":
			fields[key+".id"] = domain.MsgRequired
		case ids[c.ID]:
			fields[key+".id"] = fmt.Sprintf("duplicate column id %q", c.ID)
		}
		ids[c.ID] = true
		if !c.StatusMapping.IsValid() {
			fields[key+".status_mapping"] = fmt.Sprintf("must be one of %v, got %q", workitem.Statuses, c.StatusMapping)
		}
		if c.WIPLimit < 0 {
			fields[key+".wip_limit"] = "must not be negative"
		}
		for _, r := range c.Tickets {
			if seen[r.TicketID] {
				fields[key+".tickets"] = fmt.Sprintf("ticket %q appears more than once", r.TicketID)
			}
			seen[r.TicketID] = true
		}
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// Column returns the column with the given ID.
func (b *Board) Column(id string) (*Column, bool) {
	for i := range b.Columns {
		if b.Columns[i].ID == id {
			return &b.Columns[i], true
		}
	}
	return nil, false
}

// ColumnForStatus returns the first column mapped to status.
func (b *Board) ColumnForStatus(status workitem.Status) (*Column, bool) {
	for i := range b.Columns {
		if b.Columns[i].StatusMapping == status {
			return &b.Columns[i], true
		}
	}
	return nil, false
}

// FindTicket returns the column holding ticketID and the ref's index in it.
func (b *Board) FindTicket(ticketID string) (*Column, int, bool) {
	for i := range b.Columns {
		if idx := b.Columns[i].indexOf(ticketID); idx >= 0 {
			return &b.Columns[i], idx, true
		}
	}
	return nil, -1, false
}

// TicketIDs returns every ticket on the board in column order.
func (b *Board) TicketIDs() []string {
	var ids []string
	for i := range b.Columns {
		for _, r := range b.Columns[i].Tickets {
			ids = append(ids, r.TicketID)
		}
	}
	return ids
}

// AddTicket appends ticketID to the column. An empty columnID selects the
// first column mapped to status, falling back to the first column.
func (b *Board) AddTicket(ticketID, columnID string, status workitem.Status, actor domain.Actor, now time.Time) (*Column, error) {
	if _, _, ok := b.FindTicket(ticketID); ok {
		return nil, fmt.Errorf("ticket %q on board %s: %w", ticketID, b.ID, domain.ErrAlreadyExists)
	}

	var col *Column
	var ok bool
	switch {
	case columnID != "":
		col, ok = b.Column(columnID)
		if !ok {
			return nil, domain.NotFoundf("column %q on board %s", columnID, b.ID)
		}
	default:
		col, ok = b.ColumnForStatus(status)
		if !ok {
			if len(b.Columns) == 0 {
				return nil, &domain.ValidationError{Fields: map[string]string{"columns": "board has no columns"}}
			}
			col = &b.Columns[0]
		}
	}
	if col.Full() {
		return nil, &domain.CapacityError{ColumnID: col.ID, Limit: col.WIPLimit, Occupancy: len(col.Tickets)}
	}

	col.Tickets = append(col.Tickets, TicketRef{TicketID: ticketID, MovedAt: now, MovedBy: actor.ID})
	col.renumber()
	b.UpdatedAt = now
	return col, nil
}

// RemoveTicket drops ticketID from the board.
func (b *Board) RemoveTicket(ticketID string, now time.Time) (*Column, error) {
	col, idx, ok := b.FindTicket(ticketID)
	if !ok {
		return nil, domain.NotFoundf("ticket %q on board %s", ticketID, b.ID)
	}
	col.Tickets = slices.Delete(col.Tickets, idx, idx+1)
	col.renumber()
	b.UpdatedAt = now
	return col, nil
}

// Move describes a completed card move.
type Move struct {
	TicketID   string
	FromColumn string
	ToColumn   string
	FromStatus workitem.Status
	ToStatus   workitem.Status
	Position   int
}

// StatusChanged reports whether the card crossed into a column with a
// different status mapping.
func (m Move) StatusChanged() bool {
	return m.FromStatus != m.ToStatus
}

// MoveTicket moves ticketID from fromColumn to toColumn at targetIndex
// (0-based, clamped to the destination's bounds). The engine authorizes the
// move from the source column's mapping to the destination's, including the
// WIP limit.
func (b *Board) MoveTicket(engine *workflow.Engine, actor domain.Actor, ticketID, fromColumn, toColumn string, targetIndex int, now time.Time) (Move, error) {
	from, ok := b.Column(fromColumn)
	if !ok {
		return Move{}, domain.NotFoundf("column %q on board %s", fromColumn, b.ID)
	}
	to, ok := b.Column(toColumn)
	if !ok {
		return Move{}, domain.NotFoundf("column %q on board %s", toColumn, b.ID)
	}
	idx := from.indexOf(ticketID)
	if idx < 0 {
		return Move{}, domain.NotFoundf("ticket %q in column %q", ticketID, fromColumn)
	}

	same := from == to
	occupancy := len(to.Tickets)
	err := engine.Authorize(actor.Role, from.StatusMapping, to.StatusMapping, workflow.Context{
		SameColumn: same,
		ColumnID:   to.ID,
		WIPLimit:   to.WIPLimit,
		Occupancy:  occupancy,
	})
	if err != nil {
		return Move{}, err
	}

	ref := from.Tickets[idx]
	from.Tickets = slices.Delete(from.Tickets, idx, idx+1)
	ref.MovedAt = now
	ref.MovedBy = actor.ID

	targetIndex = max(0, min(targetIndex, len(to.Tickets)))
	to.Tickets = slices.Insert(to.Tickets, targetIndex, ref)
	from.renumber()
	to.renumber()
	b.UpdatedAt = now

	return Move{
		TicketID:   ticketID,
		FromColumn: from.ID,
		ToColumn:   to.ID,
		FromStatus: from.StatusMapping,
		ToStatus:   to.StatusMapping,
		Position:   targetIndex + 1,
	}, nil
}

// Placement is the outcome of Place.
type Placement int

const (
	// PlacementAbsent means the ticket is not on the board.
	PlacementAbsent Placement = iota
	// PlacementUnchanged means the ticket already sits in a column mapped to
	// the status, or no column maps to it.
	PlacementUnchanged
	// PlacementMoved means the card was moved to the mapped column.
	PlacementMoved
)

// Place moves ticketID to the first column mapped to status, appending it at
// the end. It is the reconciliation primitive and does not consult role
// rules: the status has already been written. A full destination yields a
// *domain.CapacityError and leaves the board untouched.
func (b *Board) Place(ticketID string, status workitem.Status, now time.Time) (Move, Placement, error) {
	from, idx, ok := b.FindTicket(ticketID)
	if !ok {
		return Move{}, PlacementAbsent, nil
	}
	if from.StatusMapping == status {
		return Move{}, PlacementUnchanged, nil
	}
	to, ok := b.ColumnForStatus(status)
	if !ok {
		return Move{}, PlacementUnchanged, nil
	}
	if to.Full() {
		return Move{}, PlacementUnchanged, &domain.CapacityError{ColumnID: to.ID, Limit: to.WIPLimit, Occupancy: len(to.Tickets)}
	}

	ref := from.Tickets[idx]
	from.Tickets = slices.Delete(from.Tickets, idx, idx+1)
	ref.MovedAt = now
	ref.MovedBy = domain.SystemActor.ID
	to.Tickets = append(to.Tickets, ref)
	from.renumber()
	to.renumber()
	b.UpdatedAt = now

	return Move{
		TicketID:   ticketID,
		FromColumn: from.ID,
		ToColumn:   to.ID,
		FromStatus: from.StatusMapping,
		ToStatus:   to.StatusMapping,
		Position:   len(to.Tickets),
	}, PlacementMoved, nil
}

// ColumnUpdate contains optional fields for a column configuration change.
type ColumnUpdate struct {
	Name     *string
	WIPLimit *int
}

// UpdateColumn applies u to the column. A WIP limit below the column's
// current occupancy is rejected.
func (b *Board) UpdateColumn(columnID string, u ColumnUpdate, now time.Time) (*Column, error) {
	col, ok := b.Column(columnID)
	if !ok {
		return nil, domain.NotFoundf("column %q on board %s", columnID, b.ID)
	}

	fields := make(map[string]string)
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		fields["name"] = domain.MsgRequired
	}
	if u.WIPLimit != nil {
		switch {
		case *u.WIPLimit < 0:
			fields["wip_limit"] = "must not be negative"
		case *u.WIPLimit > 0 && *u.WIPLimit < len(col.Tickets):
			fields["wip_limit"] = fmt.Sprintf("must be at least current occupancy %d", len(col.Tickets))
		}
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	if u.Name != nil {
		col.Name = *u.Name
	}
	if u.WIPLimit != nil {
		col.WIPLimit = *u.WIPLimit
	}
	b.UpdatedAt = now
	return col, nil
}

// RecordActivity appends a, dropping the oldest entries beyond limit.
// A non-positive limit uses DefaultActivityCap.
func (b *Board) RecordActivity(a Activity, limit int) {
	if limit <= 0 {
		limit = DefaultActivityCap
	}
	b.RecentActivity = append(b.RecentActivity, a)
	if over := len(b.RecentActivity) - limit; over > 0 {
		b.RecentActivity = slices.Delete(b.RecentActivity, 0, over)
	}
}

// CanManage reports whether actor may change the board's configuration.
func (b *Board) CanManage(actor domain.Actor) bool {
	return actor.Role.IsPrivileged() || (actor.ID != "" && actor.ID == b.OwnerID && actor.Role.CanContribute())
}
