// Package memory implements ports.Store in process memory. Aggregates are
// held as encoded documents, so every read decodes a fresh copy and no
// caller can mutate stored state. It backs the default profile and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/bug"
	"github.com/jsamuelsen11/trackflow/internal/domain/kanban"
	"github.com/jsamuelsen11/trackflow/internal/domain/project"
	"github.com/jsamuelsen11/trackflow/internal/domain/sprint"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
	"github.com/jsamuelsen11/trackflow/internal/platform/codec"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

var _ ports.Store = (*Store)(nil)

type document struct {
	version int64
	data    []byte
}

type flagKey struct {
	ticketID string
	boardID  string
}

// Store is an in-memory ports.Store. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	closed   bool
	projects map[string]document
	items    map[string]document
	boards   map[string]document
	sprints  map[string]document
	bugs     map[string]document
	// ticketBoards indexes ticket ID -> set of board IDs holding it.
	ticketBoards map[string]map[string]struct{}
	flags        map[flagKey]domain.ReconcileFlag
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		projects:     make(map[string]document),
		items:        make(map[string]document),
		boards:       make(map[string]document),
		sprints:      make(map[string]document),
		bugs:         make(map[string]document),
		ticketBoards: make(map[string]map[string]struct{}),
		flags:        make(map[flagKey]domain.ReconcileFlag),
	}
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "store" }

// HealthCheck reports ErrUnavailable once the store is closed.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("memory store closed: %w", domain.ErrUnavailable)
	}
	return nil
}

// Close marks the store closed. Subsequent calls fail with ErrUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ready must be called with s.mu held.
func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return fmt.Errorf("memory store closed: %w", domain.ErrUnavailable)
	}
	return nil
}

func encode(v any) ([]byte, error) {
	data, err := codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	return data, nil
}

func decode[T any](doc document) (*T, error) {
	out := new(T)
	if err := codec.Unmarshal(doc.data, out); err != nil {
		return nil, fmt.Errorf("decoding %T: %w", out, err)
	}
	return out, nil
}

// create inserts a new versioned document, setting *version to 1.
func create(table map[string]document, kind, id string, version *int64, v any) error {
	if _, ok := table[id]; ok {
		return fmt.Errorf("%s %q: %w", kind, id, domain.ErrAlreadyExists)
	}
	prev := *version
	*version = 1
	data, err := encode(v)
	if err != nil {
		*version = prev
		return err
	}
	table[id] = document{version: 1, data: data}
	return nil
}

// checkVersion returns ErrNotFound or ErrConflict when v cannot replace the
// stored document.
func checkVersion(table map[string]document, kind, id string, version int64) error {
	cur, ok := table[id]
	if !ok {
		return domain.NotFoundf("%s %q", kind, id)
	}
	if cur.version != version {
		return fmt.Errorf("%s %q: stored version %d, have %d: %w", kind, id, cur.version, version, domain.ErrConflict)
	}
	return nil
}

// save replaces a versioned document after checking and bumping *version.
func save(table map[string]document, kind, id string, version *int64, v any) error {
	if err := checkVersion(table, kind, id, *version); err != nil {
		return err
	}
	*version++
	data, err := encode(v)
	if err != nil {
		*version--
		return err
	}
	table[id] = document{version: *version, data: data}
	return nil
}

func get[T any](table map[string]document, kind, id string) (*T, error) {
	doc, ok := table[id]
	if !ok {
		return nil, domain.NotFoundf("%s %q", kind, id)
	}
	return decode[T](doc)
}

// --- projects ---

// CreateProject implements ports.ProjectRepository.
func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	return create(s.projects, domain.EntityProject, p.ID, &p.Version, p)
}

// GetProject implements ports.ProjectRepository.
func (s *Store) GetProject(ctx context.Context, id string) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return get[project.Project](s.projects, domain.EntityProject, id)
}

// SaveProject implements ports.ProjectRepository.
func (s *Store) SaveProject(ctx context.Context, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	return save(s.projects, domain.EntityProject, p.ID, &p.Version, p)
}

// --- work items ---

// GetWorkItem implements ports.WorkItemRepository.
func (s *Store) GetWorkItem(ctx context.Context, id string) (*workitem.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return get[workitem.WorkItem](s.items, domain.EntityWorkItem, id)
}

// ListWorkItems implements ports.WorkItemRepository. Items are ordered by
// display number.
func (s *Store) ListWorkItems(ctx context.Context, projectID string, filter workitem.Filter) ([]workitem.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var out []workitem.WorkItem
	for _, doc := range s.items {
		item, err := decode[workitem.WorkItem](doc)
		if err != nil {
			return nil, err
		}
		if item.ProjectID == projectID && filter.Matches(item) {
			out = append(out, *item)
		}
	}
	slices.SortFunc(out, func(a, b workitem.WorkItem) int { return cmp.Compare(a.Number, b.Number) })
	return out, nil
}

// SaveWorkItem implements ports.WorkItemRepository. The project version check,
// the project write and the item write happen under one lock.
func (s *Store) SaveWorkItem(ctx context.Context, p *project.Project, item *workitem.WorkItem) error {
	if item.ProjectID != p.ID {
		return &domain.ValidationError{Fields: map[string]string{
			"project_id": fmt.Sprintf("item belongs to %q, not %q", item.ProjectID, p.ID),
		}}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}

	if err := checkVersion(s.projects, domain.EntityProject, p.ID, p.Version); err != nil {
		return err
	}
	itemData, err := encode(item)
	if err != nil {
		return err
	}
	p.Version++
	projectData, err := encode(p)
	if err != nil {
		p.Version--
		return err
	}

	s.projects[p.ID] = document{version: p.Version, data: projectData}
	s.items[item.ID] = document{data: itemData}
	return nil
}

// --- boards ---

// CreateBoard implements ports.BoardRepository.
func (s *Store) CreateBoard(ctx context.Context, b *kanban.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := create(s.boards, domain.EntityBoard, b.ID, &b.Version, b); err != nil {
		return err
	}
	s.indexBoard(b)
	return nil
}

// GetBoard implements ports.BoardRepository.
func (s *Store) GetBoard(ctx context.Context, id string) (*kanban.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return get[kanban.Board](s.boards, domain.EntityBoard, id)
}

// SaveBoard implements ports.BoardRepository.
func (s *Store) SaveBoard(ctx context.Context, b *kanban.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := save(s.boards, domain.EntityBoard, b.ID, &b.Version, b); err != nil {
		return err
	}
	s.indexBoard(b)
	return nil
}

// ListBoards implements ports.BoardRepository, oldest board first.
func (s *Store) ListBoards(ctx context.Context, projectID string) ([]kanban.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var out []kanban.Board
	for _, doc := range s.boards {
		b, err := decode[kanban.Board](doc)
		if err != nil {
			return nil, err
		}
		if b.ProjectID == projectID {
			out = append(out, *b)
		}
	}
	sortBoards(out)
	return out, nil
}

// ListBoardsForTicket implements ports.BoardRepository.
func (s *Store) ListBoardsForTicket(ctx context.Context, ticketID string) ([]kanban.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	out := make([]kanban.Board, 0, len(s.ticketBoards[ticketID]))
	for boardID := range s.ticketBoards[ticketID] {
		b, err := get[kanban.Board](s.boards, domain.EntityBoard, boardID)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	sortBoards(out)
	return out, nil
}

// indexBoard rewrites the ticket index entries for b. Must hold s.mu.
func (s *Store) indexBoard(b *kanban.Board) {
	for ticketID, boards := range s.ticketBoards {
		delete(boards, b.ID)
		if len(boards) == 0 {
			delete(s.ticketBoards, ticketID)
		}
	}
	for _, ticketID := range b.TicketIDs() {
		boards, ok := s.ticketBoards[ticketID]
		if !ok {
			boards = make(map[string]struct{})
			s.ticketBoards[ticketID] = boards
		}
		boards[b.ID] = struct{}{}
	}
}

func sortBoards(boards []kanban.Board) {
	slices.SortFunc(boards, func(a, b kanban.Board) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// --- sprints ---

// CreateSprint implements ports.SprintRepository.
func (s *Store) CreateSprint(ctx context.Context, sp *sprint.Sprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	return create(s.sprints, domain.EntitySprint, sp.ID, &sp.Version, sp)
}

// GetSprint implements ports.SprintRepository.
func (s *Store) GetSprint(ctx context.Context, id string) (*sprint.Sprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return get[sprint.Sprint](s.sprints, domain.EntitySprint, id)
}

// SaveSprint implements ports.SprintRepository.
func (s *Store) SaveSprint(ctx context.Context, sp *sprint.Sprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	return save(s.sprints, domain.EntitySprint, sp.ID, &sp.Version, sp)
}

// --- bugs ---

// CreateBug implements ports.BugRepository.
func (s *Store) CreateBug(ctx context.Context, b *bug.Bug) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	return create(s.bugs, domain.EntityBug, b.ID, &b.Version, b)
}

// GetBug implements ports.BugRepository.
func (s *Store) GetBug(ctx context.Context, id string) (*bug.Bug, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return get[bug.Bug](s.bugs, domain.EntityBug, id)
}

// SaveBug implements ports.BugRepository.
func (s *Store) SaveBug(ctx context.Context, b *bug.Bug) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	return save(s.bugs, domain.EntityBug, b.ID, &b.Version, b)
}

// ListBugsForTicket implements ports.BugRepository, oldest bug first.
func (s *Store) ListBugsForTicket(ctx context.Context, ticketID string) ([]bug.Bug, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var out []bug.Bug
	for _, doc := range s.bugs {
		b, err := decode[bug.Bug](doc)
		if err != nil {
			return nil, err
		}
		if b.TicketID == ticketID {
			out = append(out, *b)
		}
	}
	slices.SortFunc(out, func(a, b bug.Bug) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// --- reconcile flags ---

// FlagBoard implements ports.FlagRepository.
func (s *Store) FlagBoard(ctx context.Context, f domain.ReconcileFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	s.flags[flagKey{ticketID: f.TicketID, boardID: f.BoardID}] = f
	return nil
}

// ClearFlag implements ports.FlagRepository.
func (s *Store) ClearFlag(ctx context.Context, ticketID, boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return err
	}
	delete(s.flags, flagKey{ticketID: ticketID, boardID: boardID})
	return nil
}

// ListFlags implements ports.FlagRepository.
func (s *Store) ListFlags(ctx context.Context, ticketID string) ([]domain.ReconcileFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var out []domain.ReconcileFlag
	for k, f := range s.flags {
		if ticketID == "" || k.ticketID == ticketID {
			out = append(out, f)
		}
	}
	slices.SortFunc(out, func(a, b domain.ReconcileFlag) int {
		if c := a.FlaggedAt.Compare(b.FlaggedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(a.TicketID, b.TicketID); c != 0 {
			return c
		}
		return cmp.Compare(a.BoardID, b.BoardID)
	})
	return out, nil
}
