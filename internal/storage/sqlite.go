package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (creating if needed) the database file at path
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return db, nil
}

// SQLite stores one Table as a SQL table with one TEXT column per header
// name. The autoincrement id n maps to row n+1.
type SQLite struct {
	db      *sql.DB
	name    string
	columns []string
}

// NewSQLite ensures the table exists and returns a Table over it
func NewSQLite(ctx context.Context, db *sql.DB, name string, columns []string) (*SQLite, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s: no columns", name)
	}

	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, "id INTEGER PRIMARY KEY AUTOINCREMENT")
	for _, c := range columns {
		defs = append(defs, quoteIdent(c)+" TEXT NOT NULL DEFAULT ''")
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("create table %s: %w", name, err)
	}

	return &SQLite{
		db:      db,
		name:    name,
		columns: append([]string(nil), columns...),
	}, nil
}

func (s *SQLite) Header(ctx context.Context) ([]string, error) {
	return append([]string(nil), s.columns...), nil
}

func (s *SQLite) Rows(ctx context.Context) ([]Row, error) {
	cols := make([]string, len(s.columns))
	for i, c := range s.columns {
		cols[i] = quoteIdent(c)
	}
	query := fmt.Sprintf("SELECT id, %s FROM %s ORDER BY id", strings.Join(cols, ", "), quoteIdent(s.name))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.name, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var id int
		values := make([]string, len(s.columns))
		dest := make([]any, 0, len(values)+1)
		dest = append(dest, &id)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.name, err)
		}
		out = append(out, Row{Index: id + 1, Fields: rowFields(s.columns, values)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.name, err)
	}
	return out, nil
}

func (s *SQLite) AppendRow(ctx context.Context, values []string) error {
	if len(values) > len(s.columns) {
		return fmt.Errorf("%w: %d values for %d columns", ErrOutOfRange, len(values), len(s.columns))
	}

	cols := make([]string, len(values))
	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		cols[i] = quoteIdent(s.columns[i])
		marks[i] = "?"
		args[i] = v
	}

	var stmt string
	if len(values) == 0 {
		stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quoteIdent(s.name))
	} else {
		stmt = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(s.name), strings.Join(cols, ", "), strings.Join(marks, ", "))
	}
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", s.name, err)
	}
	return nil
}

func (s *SQLite) UpdateCell(ctx context.Context, row, col int, value string) error {
	if row < 2 || col < 1 || col > len(s.columns) {
		return fmt.Errorf("%w: row %d col %d", ErrOutOfRange, row, col)
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ?", quoteIdent(s.name), quoteIdent(s.columns[col-1]))
	res, err := s.db.ExecContext(ctx, stmt, value, row-1)
	if err != nil {
		return fmt.Errorf("update %s: %w", s.name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: row %d col %d", ErrOutOfRange, row, col)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
