// Package sqlstore implements the rowguard.Store contract over a SQL
// database, with dialects for PostgreSQL and SQLite.
//
// Each relation is mapped to a table, an ID column, and the set of columns
// exposed as row fields. Lookups are single-row point queries by ID; the
// package never scans. Because the store works against the minimal Querier
// interface, it can wrap *sql.DB, *sql.Tx, or *sql.Conn, letting a decision
// and the mutation it guards share one transaction.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/rowguard/rowguard"
)

// Querier executes queries against the database.
// Implemented by *sql.DB, *sql.Tx, and *sql.Conn.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Execer extends Querier with ExecContext for writes. Only required by
// Insert; pure decision evaluation needs Querier alone.
type Execer interface {
	Querier
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Dialect selects placeholder style and error mapping.
type Dialect int

const (
	// Postgres uses $n placeholders and SQLSTATE error codes.
	Postgres Dialect = iota
	// SQLite uses ? placeholders and message-based error detection.
	SQLite
)

// Table maps one relation to its backing table.
type Table struct {
	Name     string
	IDColumn string
	// Columns are exposed as row fields. Only columns referenced by
	// relationship paths or needed by callers must be listed.
	Columns []string
}

// TableMap declares the relation -> table mapping for a store.
type TableMap map[rowguard.Relation]Table

// Store reads and writes rows through a SQL handle.
// Stores are lightweight; create one per transaction when decisions must
// see uncommitted writes.
type Store struct {
	q       Querier
	tables  TableMap
	dialect Dialect
}

// New creates a store over the given handle.
func New(q Querier, tables TableMap, dialect Dialect) *Store {
	return &Store{q: q, tables: tables, dialect: dialect}
}

// OpenPostgres opens a PostgreSQL database via the pgx stdlib driver.
func OpenPostgres(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// OpenSQLite opens a SQLite database via the modernc driver, with foreign
// keys enforced.
func OpenSQLite(path string) (*sql.DB, error) {
	return sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)")
}

// Lookup implements rowguard.Store with a keyed point lookup by ID.
func (s *Store) Lookup(ctx context.Context, relation rowguard.Relation, id string) (rowguard.Row, bool, error) {
	t, ok := s.tables[relation]
	if !ok {
		return rowguard.Row{}, false, fmt.Errorf("sqlstore: relation %q not mapped", relation)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		strings.Join(t.Columns, ", "), t.Name, t.IDColumn, s.placeholder(1))

	vals := make([]sql.NullString, len(t.Columns))
	dest := make([]any, len(t.Columns))
	for i := range vals {
		dest[i] = &vals[i]
	}

	err := s.q.QueryRowContext(ctx, query, id).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return rowguard.Row{}, false, nil
	}
	if err != nil {
		return rowguard.Row{}, false, s.mapError("lookup "+t.Name, err)
	}

	fields := make(map[string]string, len(t.Columns))
	for i, col := range t.Columns {
		if vals[i].Valid {
			fields[col] = vals[i].String
		}
	}
	return rowguard.Row{Relation: relation, ID: id, Fields: fields}, true, nil
}

// Insert writes a row's mapped columns. The handle must implement Execer
// (*sql.DB, *sql.Tx, and *sql.Conn all do). Constraint failures map to the
// rowguard error taxonomy, so unique-key collisions from business-key
// generation surface as rowguard.ErrConstraintViolation.
func (s *Store) Insert(ctx context.Context, row rowguard.Row) error {
	ex, ok := s.q.(Execer)
	if !ok {
		return fmt.Errorf("sqlstore: handle %T does not support writes", s.q)
	}
	t, ok := s.tables[row.Relation]
	if !ok {
		return fmt.Errorf("sqlstore: relation %q not mapped", row.Relation)
	}

	cols := []string{t.IDColumn}
	args := []any{row.ID}
	for _, col := range t.Columns {
		if col == t.IDColumn {
			continue
		}
		if v, ok := row.Fields[col]; ok {
			cols = append(cols, col)
			args = append(args, v)
		}
	}

	marks := make([]string, len(cols))
	for i := range marks {
		marks[i] = s.placeholder(i + 1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(cols, ", "), strings.Join(marks, ", "))

	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		return s.mapError("insert "+t.Name, err)
	}
	return nil
}

// WithinTx runs fn with a transaction-scoped store, committing on nil and
// rolling back otherwise. A decision engine built over the inner store sees
// the transaction's uncommitted writes and nothing newer.
func WithinTx(ctx context.Context, db *sql.DB, tables TableMap, dialect Dialect, fn func(*Store) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(New(tx, tables, dialect)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) placeholder(i int) string {
	if s.dialect == Postgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// PostgreSQL error codes mapped into the rowguard taxonomy.
const (
	pgUniqueViolation     = "23505" // unique_violation
	pgForeignKeyViolation = "23503" // foreign_key_violation
	pgCheckViolation      = "23514" // check_violation
)

// mapError classifies driver errors into the rowguard taxonomy.
func (s *Store) mapError(operation string, err error) error {
	switch s.dialect {
	case Postgres:
		switch sqlState(err) {
		case pgUniqueViolation, pgCheckViolation:
			return fmt.Errorf("%w: %v", rowguard.ErrConstraintViolation, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %v", rowguard.ErrReferentialIntegrity, err)
		}
	case SQLite:
		msg := err.Error()
		if strings.Contains(msg, "FOREIGN KEY constraint failed") {
			return fmt.Errorf("%w: %v", rowguard.ErrReferentialIntegrity, err)
		}
		if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "CHECK constraint failed") {
			return fmt.Errorf("%w: %v", rowguard.ErrConstraintViolation, err)
		}
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// sqlState extracts the SQLSTATE code from a PostgreSQL error.
// Works with multiple drivers via interface detection:
//   - pgx/pgconn: SQLState() string
//   - lib/pq: Code field (via error interface)
//
// Returns empty string if the error doesn't carry a SQLSTATE.
func sqlState(err error) string {
	type sqlStateErr interface{ SQLState() string }
	var se sqlStateErr
	if errors.As(err, &se) {
		return se.SQLState()
	}

	type codeErr interface{ Code() string }
	var ce codeErr
	if errors.As(err, &ce) {
		return ce.Code()
	}

	// Fallback: extract from "... (SQLSTATE 23505)" style messages.
	errStr := err.Error()
	for _, prefix := range []string{"SQLSTATE ", "SQLSTATE: "} {
		if idx := strings.Index(errStr, prefix); idx >= 0 {
			start := idx + len(prefix)
			if start+5 <= len(errStr) {
				return errStr[start : start+5]
			}
		}
	}
	return ""
}

// Ensure Store implements the engine's store contract.
var _ rowguard.Store = (*Store)(nil)
