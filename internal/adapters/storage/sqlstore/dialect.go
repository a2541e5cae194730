package sqlstore

import (
	"strconv"
	"strings"
)

// database/sql driver names registered by modernc.org/sqlite and pgx/v5/stdlib.
const (
	driverSQLite = "sqlite"
	driverPgx    = "pgx"
)

type dialect struct {
	driver string
	blob   string
}

var (
	sqliteDialect   = dialect{driver: driverSQLite, blob: "BLOB"}
	postgresDialect = dialect{driver: driverPgx, blob: "BYTEA"}
)

// rebind rewrites ? placeholders as $1, $2, ... for Postgres. Queries in
// this package never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if d.driver != driverPgx {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS documents (
	kind       TEXT NOT NULL,
	id         TEXT NOT NULL,
	project_id TEXT NOT NULL DEFAULT '',
	ticket_id  TEXT NOT NULL DEFAULT '',
	version    BIGINT NOT NULL DEFAULT 0,
	body       ` + d.blob + ` NOT NULL,
	PRIMARY KEY (kind, id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_project ON documents (kind, project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_ticket ON documents (kind, ticket_id)`,
		`CREATE TABLE IF NOT EXISTS board_tickets (
	board_id  TEXT NOT NULL,
	ticket_id TEXT NOT NULL,
	PRIMARY KEY (board_id, ticket_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_board_tickets_ticket ON board_tickets (ticket_id)`,
		`CREATE TABLE IF NOT EXISTS reconcile_flags (
	ticket_id  TEXT NOT NULL,
	board_id   TEXT NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	flagged_at BIGINT NOT NULL,
	PRIMARY KEY (ticket_id, board_id)
)`,
	}
}
