// Package postgres persists metric artifacts to Postgres with the same table
// shape as the SQLite backend. Artifact tables are prefixed with the run name
// so many runs can share one database.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"cdrflux/internal/artifact"
	"cdrflux/pkg/table"
)

var _ artifact.Store = (*Store)(nil)

const defaultDSN = "postgres://localhost/cdrflux?sslmode=disable"

// Store writes artifacts into Postgres tables named <prefix>_<artifact>.
type Store struct {
	db     *sql.DB
	prefix string
}

// NewStore opens a Postgres-backed artifact store. prefix is typically the
// run name; it becomes part of every artifact table name.
func NewStore(dsn, prefix string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db, prefix: sanitize(prefix)}, nil
}

// SaveTable replaces the prefixed artifact table with the contents of t.
func (s *Store) SaveTable(ctx context.Context, name string, t *table.Table) error {
	full := sanitize(name)
	if s.prefix != "" {
		full = s.prefix + "_" + full
	}
	cols := t.Names()
	if len(cols) == 0 {
		return fmt.Errorf("artifact %s: empty table", name)
	}
	defs := make([]string, len(cols))
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		typ := "DOUBLE PRECISION"
		if t.Column(c).Kind == table.Text {
			typ = "TEXT"
		}
		defs[i] = fmt.Sprintf("%q %s", c, typ)
		quoted[i] = fmt.Sprintf("%q", c)
		marks[i] = fmt.Sprintf("$%d", i+1)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", full)); err != nil {
		return fmt.Errorf("drop %s: %w", full, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %q (%s)", full, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", full, err)
	}
	insert := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)", full, strings.Join(quoted, ","), strings.Join(marks, ","))
	for row := 0; row < t.Len(); row++ {
		args := make([]any, len(cols))
		for i, c := range cols {
			col := t.Column(c)
			if col.Kind == table.Text {
				args[i] = col.Strings[row]
			} else {
				args[i] = col.Floats[row]
			}
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", full, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", full, err)
	}
	committed = true
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// sanitize maps arbitrary run/metric names onto the identifier alphabet used
// for Postgres table names.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
