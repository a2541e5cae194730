package sqlstore

import "testing"

func TestDialect_Rebind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect dialect
		query   string
		want    string
	}{
		{
			name:    "sqlite untouched",
			dialect: sqliteDialect,
			query:   "UPDATE documents SET body = ? WHERE id = ?",
			want:    "UPDATE documents SET body = ? WHERE id = ?",
		},
		{
			name:    "postgres numbered",
			dialect: postgresDialect,
			query:   "UPDATE documents SET body = ? WHERE id = ? AND version = ?",
			want:    "UPDATE documents SET body = $1 WHERE id = $2 AND version = $3",
		},
		{
			name:    "no placeholders",
			dialect: postgresDialect,
			query:   "SELECT 1",
			want:    "SELECT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.dialect.rebind(tt.query); got != tt.want {
				t.Errorf("rebind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dsn  string
		want string
	}{
		{dsn: "trackflow.db", want: "trackflow.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"},
		{dsn: "file:test.db?mode=ro", want: "file:test.db?mode=ro"},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			t.Parallel()

			if got := sqliteDSN(tt.dsn); got != tt.want {
				t.Errorf("sqliteDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
			}
		})
	}
}
