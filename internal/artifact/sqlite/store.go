// Package sqlite persists metric artifacts to a per-run SQLite database, one
// SQL table per artifact. Numeric columns are stored as REAL (float64) and
// label columns as TEXT, preserving numeric precision without a bespoke
// binary format.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"cdrflux/internal/artifact"
	"cdrflux/pkg/table"
)

// Compile-time contract assertion.
var _ artifact.Store = (*Store)(nil)

// Store writes artifacts into a single SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the SQLite database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "cdrflux.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// SaveTable replaces the named artifact table with the contents of t.
func (s *Store) SaveTable(ctx context.Context, name string, t *table.Table) error {
	if err := validIdent(name); err != nil {
		return err
	}
	cols := t.Names()
	if len(cols) == 0 {
		return fmt.Errorf("artifact %s: empty table", name)
	}
	defs := make([]string, len(cols))
	for i, c := range cols {
		if err := validIdent(c); err != nil {
			return fmt.Errorf("artifact %s: %w", name, err)
		}
		typ := "REAL"
		if t.Column(c).Kind == table.Text {
			typ = "TEXT"
		}
		defs[i] = fmt.Sprintf("%q %s", c, typ)
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

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", name)); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	ddl := fmt.Sprintf("CREATE TABLE %q (%s)", name, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf("%q", c)
		marks[i] = "?"
	}
	insert := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)", name, strings.Join(quoted, ","), strings.Join(marks, ","))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", name, err)
	}
	defer func() { _ = stmt.Close() }()

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
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	committed = true
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// DB exposes the underlying sql.DB for test verification.
func (s *Store) DB() *sql.DB { return s.db }

// validIdent restricts table and column names to a safe identifier alphabet;
// names come from metric code and parsed file headers, not user SQL.
func validIdent(name string) error {
	if name == "" {
		return fmt.Errorf("empty identifier")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '+':
		default:
			return fmt.Errorf("invalid identifier %q", name)
		}
	}
	return nil
}
