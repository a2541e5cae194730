// Package sqlstore implements ports.Store on database/sql, backed by
// embedded SQLite (modernc.org/sqlite) or Postgres (pgx). Aggregates are
// stored as CBOR documents in one table keyed by (kind, id) with a version
// column; optimistic concurrency is a conditional UPDATE on that column.
// Board membership is mirrored into board_tickets for reconciliation
// lookups.
package sqlstore

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/bug"
	"github.com/jsamuelsen11/trackflow/internal/domain/kanban"
	"github.com/jsamuelsen11/trackflow/internal/domain/project"
	"github.com/jsamuelsen11/trackflow/internal/domain/sprint"
	"github.com/jsamuelsen11/trackflow/internal/domain/workitem"
	"github.com/jsamuelsen11/trackflow/internal/platform/codec"
	"github.com/jsamuelsen11/trackflow/internal/platform/config"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

var _ ports.Store = (*Store)(nil)

// Store is a SQL-backed ports.Store.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the database selected by cfg and applies the schema.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	var (
		d   dialect
		dsn string
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		d, dsn = sqliteDialect, sqliteDSN(cfg.DSN)
	case config.DriverPostgres:
		d, dsn = postgresDialect, cfg.DSN
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", cfg.Driver, err)
	}

	switch {
	case d.driver == driverSQLite:
		// SQLite allows one writer; a single connection avoids lock
		// upgrades failing with SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: migrate: %w", err)
		}
	}
	return nil
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "store" }

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store ping: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// meta carries the indexed columns stored next to a document body.
type meta struct {
	kind      string
	id        string
	projectID string
	ticketID  string
}

func (s *Store) insert(ctx context.Context, m meta, version *int64, v any) error {
	prev := *version
	*version = 1
	body, err := codec.Marshal(v)
	if err != nil {
		*version = prev
		return fmt.Errorf("encoding %s: %w", m.kind, err)
	}

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO documents (kind, id, project_id, ticket_id, version, body)
		 VALUES (?, ?, ?, ?, 1, ?) ON CONFLICT (kind, id) DO NOTHING`),
		m.kind, m.id, m.projectID, m.ticketID, body)
	if err != nil {
		*version = prev
		return fmt.Errorf("inserting %s %q: %w", m.kind, m.id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		*version = prev
		return fmt.Errorf("%s %q: %w", m.kind, m.id, domain.ErrAlreadyExists)
	}
	return nil
}

// update replaces the document if its stored version still equals *version,
// then bumps *version.
func (s *Store) update(ctx context.Context, ex execer, m meta, version *int64, v any) error {
	expected := *version
	*version = expected + 1
	body, err := codec.Marshal(v)
	if err != nil {
		*version = expected
		return fmt.Errorf("encoding %s: %w", m.kind, err)
	}

	res, err := ex.ExecContext(ctx, s.dialect.rebind(
		`UPDATE documents SET version = ?, body = ?, project_id = ?, ticket_id = ?
		 WHERE kind = ? AND id = ? AND version = ?`),
		expected+1, body, m.projectID, m.ticketID, m.kind, m.id, expected)
	if err != nil {
		*version = expected
		return fmt.Errorf("updating %s %q: %w", m.kind, m.id, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	*version = expected
	return s.classifyMiss(ctx, ex, m, expected)
}

// classifyMiss explains why a conditional update touched no rows.
func (s *Store) classifyMiss(ctx context.Context, ex execer, m meta, expected int64) error {
	var stored int64
	err := ex.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT version FROM documents WHERE kind = ? AND id = ?`), m.kind, m.id).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.NotFoundf("%s %q", m.kind, m.id)
	case err != nil:
		return fmt.Errorf("reading %s %q version: %w", m.kind, m.id, err)
	default:
		return fmt.Errorf("%s %q: stored version %d, have %d: %w", m.kind, m.id, stored, expected, domain.ErrConflict)
	}
}

func getDoc[T any](ctx context.Context, s *Store, kind, id string) (*T, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT body FROM documents WHERE kind = ? AND id = ?`), kind, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("%s %q", kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s %q: %w", kind, id, err)
	}
	out := new(T)
	if err := codec.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("decoding %s %q: %w", kind, id, err)
	}
	return out, nil
}

func queryDocs[T any](ctx context.Context, s *Store, query string, args ...any) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []T
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		var v T
		if err := codec.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("decoding %T: %w", v, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return out, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- projects ---

func projectMeta(p *project.Project) meta {
	return meta{kind: domain.EntityProject, id: p.ID, projectID: p.ID}
}

// CreateProject implements ports.ProjectRepository.
func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	return s.insert(ctx, projectMeta(p), &p.Version, p)
}

// GetProject implements ports.ProjectRepository.
func (s *Store) GetProject(ctx context.Context, id string) (*project.Project, error) {
	return getDoc[project.Project](ctx, s, domain.EntityProject, id)
}

// SaveProject implements ports.ProjectRepository.
func (s *Store) SaveProject(ctx context.Context, p *project.Project) error {
	return s.update(ctx, s.db, projectMeta(p), &p.Version, p)
}

// --- work items ---

// GetWorkItem implements ports.WorkItemRepository.
func (s *Store) GetWorkItem(ctx context.Context, id string) (*workitem.WorkItem, error) {
	return getDoc[workitem.WorkItem](ctx, s, domain.EntityWorkItem, id)
}

// ListWorkItems implements ports.WorkItemRepository. Items are ordered by
// display number.
func (s *Store) ListWorkItems(ctx context.Context, projectID string, filter workitem.Filter) ([]workitem.WorkItem, error) {
	items, err := queryDocs[workitem.WorkItem](ctx, s,
		`SELECT body FROM documents WHERE kind = ? AND project_id = ?`, domain.EntityWorkItem, projectID)
	if err != nil {
		return nil, err
	}
	items = slices.DeleteFunc(items, func(w workitem.WorkItem) bool { return !filter.Matches(&w) })
	slices.SortFunc(items, func(a, b workitem.WorkItem) int { return cmp.Compare(a.Number, b.Number) })
	return items, nil
}

// SaveWorkItem implements ports.WorkItemRepository. The project update and
// the item upsert commit in one transaction.
func (s *Store) SaveWorkItem(ctx context.Context, p *project.Project, item *workitem.WorkItem) error {
	if item.ProjectID != p.ID {
		return &domain.ValidationError{Fields: map[string]string{
			"project_id": fmt.Sprintf("item belongs to %q, not %q", item.ProjectID, p.ID),
		}}
	}
	body, err := codec.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding work item: %w", err)
	}

	before := p.Version
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.update(ctx, tx, projectMeta(p), &p.Version, p); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.dialect.rebind(
			`INSERT INTO documents (kind, id, project_id, ticket_id, version, body)
			 VALUES (?, ?, ?, '', 0, ?)
			 ON CONFLICT (kind, id) DO UPDATE SET body = excluded.body, project_id = excluded.project_id`),
			domain.EntityWorkItem, item.ID, item.ProjectID, body)
		if err != nil {
			return fmt.Errorf("writing work item %q: %w", item.ID, err)
		}
		return nil
	})
	if err != nil {
		p.Version = before
		return err
	}
	return nil
}

// --- boards ---

func boardMeta(b *kanban.Board) meta {
	return meta{kind: domain.EntityBoard, id: b.ID, projectID: b.ProjectID}
}

// CreateBoard implements ports.BoardRepository.
func (s *Store) CreateBoard(ctx context.Context, b *kanban.Board) error {
	if err := s.insert(ctx, boardMeta(b), &b.Version, b); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error { return s.indexBoard(ctx, tx, b) })
}

// GetBoard implements ports.BoardRepository.
func (s *Store) GetBoard(ctx context.Context, id string) (*kanban.Board, error) {
	return getDoc[kanban.Board](ctx, s, domain.EntityBoard, id)
}

// SaveBoard implements ports.BoardRepository.
func (s *Store) SaveBoard(ctx context.Context, b *kanban.Board) error {
	before := b.Version
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.update(ctx, tx, boardMeta(b), &b.Version, b); err != nil {
			return err
		}
		return s.indexBoard(ctx, tx, b)
	})
	if err != nil {
		b.Version = before
		return err
	}
	return nil
}

func (s *Store) indexBoard(ctx context.Context, tx *sql.Tx, b *kanban.Board) error {
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(
		`DELETE FROM board_tickets WHERE board_id = ?`), b.ID); err != nil {
		return fmt.Errorf("clearing board %q index: %w", b.ID, err)
	}
	for _, ticketID := range b.TicketIDs() {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(
			`INSERT INTO board_tickets (board_id, ticket_id) VALUES (?, ?)`), b.ID, ticketID); err != nil {
			return fmt.Errorf("indexing ticket %q on board %q: %w", ticketID, b.ID, err)
		}
	}
	return nil
}

// ListBoards implements ports.BoardRepository, oldest board first.
func (s *Store) ListBoards(ctx context.Context, projectID string) ([]kanban.Board, error) {
	boards, err := queryDocs[kanban.Board](ctx, s,
		`SELECT body FROM documents WHERE kind = ? AND project_id = ?`, domain.EntityBoard, projectID)
	if err != nil {
		return nil, err
	}
	sortBoards(boards)
	return boards, nil
}

// ListBoardsForTicket implements ports.BoardRepository.
func (s *Store) ListBoardsForTicket(ctx context.Context, ticketID string) ([]kanban.Board, error) {
	boards, err := queryDocs[kanban.Board](ctx, s,
		`SELECT d.body FROM documents d
		 JOIN board_tickets bt ON bt.board_id = d.id
		 WHERE d.kind = ? AND bt.ticket_id = ?`, domain.EntityBoard, ticketID)
	if err != nil {
		return nil, err
	}
	sortBoards(boards)
	return boards, nil
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

func sprintMeta(sp *sprint.Sprint) meta {
	return meta{kind: domain.EntitySprint, id: sp.ID, projectID: sp.ProjectID}
}

// CreateSprint implements ports.SprintRepository.
func (s *Store) CreateSprint(ctx context.Context, sp *sprint.Sprint) error {
	return s.insert(ctx, sprintMeta(sp), &sp.Version, sp)
}

// GetSprint implements ports.SprintRepository.
func (s *Store) GetSprint(ctx context.Context, id string) (*sprint.Sprint, error) {
	return getDoc[sprint.Sprint](ctx, s, domain.EntitySprint, id)
}

// SaveSprint implements ports.SprintRepository.
func (s *Store) SaveSprint(ctx context.Context, sp *sprint.Sprint) error {
	return s.update(ctx, s.db, sprintMeta(sp), &sp.Version, sp)
}

// --- bugs ---

func bugMeta(b *bug.Bug) meta {
	return meta{kind: domain.EntityBug, id: b.ID, projectID: b.ProjectID, ticketID: b.TicketID}
}

// CreateBug implements ports.BugRepository.
func (s *Store) CreateBug(ctx context.Context, b *bug.Bug) error {
	return s.insert(ctx, bugMeta(b), &b.Version, b)
}

// GetBug implements ports.BugRepository.
func (s *Store) GetBug(ctx context.Context, id string) (*bug.Bug, error) {
	return getDoc[bug.Bug](ctx, s, domain.EntityBug, id)
}

// SaveBug implements ports.BugRepository.
func (s *Store) SaveBug(ctx context.Context, b *bug.Bug) error {
	return s.update(ctx, s.db, bugMeta(b), &b.Version, b)
}

// ListBugsForTicket implements ports.BugRepository, oldest bug first.
func (s *Store) ListBugsForTicket(ctx context.Context, ticketID string) ([]bug.Bug, error) {
	bugs, err := queryDocs[bug.Bug](ctx, s,
		`SELECT body FROM documents WHERE kind = ? AND ticket_id = ?`, domain.EntityBug, ticketID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(bugs, func(a, b bug.Bug) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return bugs, nil
}

// --- reconcile flags ---

// FlagBoard implements ports.FlagRepository.
func (s *Store) FlagBoard(ctx context.Context, f domain.ReconcileFlag) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO reconcile_flags (ticket_id, board_id, reason, flagged_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (ticket_id, board_id) DO UPDATE SET reason = excluded.reason, flagged_at = excluded.flagged_at`),
		f.TicketID, f.BoardID, f.Reason, f.FlaggedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("flagging board %q for ticket %q: %w", f.BoardID, f.TicketID, err)
	}
	return nil
}

// ClearFlag implements ports.FlagRepository.
func (s *Store) ClearFlag(ctx context.Context, ticketID, boardID string) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`DELETE FROM reconcile_flags WHERE ticket_id = ? AND board_id = ?`), ticketID, boardID)
	if err != nil {
		return fmt.Errorf("clearing flag for board %q ticket %q: %w", boardID, ticketID, err)
	}
	return nil
}

// ListFlags implements ports.FlagRepository.
func (s *Store) ListFlags(ctx context.Context, ticketID string) ([]domain.ReconcileFlag, error) {
	query := `SELECT ticket_id, board_id, reason, flagged_at FROM reconcile_flags`
	var args []any
	if ticketID != "" {
		query += ` WHERE ticket_id = ?`
		args = append(args, ticketID)
	}
	query += ` ORDER BY flagged_at, ticket_id, board_id`

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing flags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.ReconcileFlag
	for rows.Next() {
		var (
			f     domain.ReconcileFlag
			nanos int64
		)
		if err := rows.Scan(&f.TicketID, &f.BoardID, &f.Reason, &nanos); err != nil {
			return nil, fmt.Errorf("scanning flag: %w", err)
		}
		f.FlaggedAt = time.Unix(0, nanos).UTC()
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating flags: %w", err)
	}
	return out, nil
}
