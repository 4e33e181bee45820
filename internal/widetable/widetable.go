// Package widetable implements the self-evolving capture table: one table per
// source whose text columns grow as new flattened field names are observed.
package widetable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/loykin/logparsely/internal/metrics"
	"github.com/loykin/logparsely/internal/retry"
	"github.com/loykin/logparsely/internal/storage"
)

// RawUnparsableColumn receives the verbatim text of lines that could not be
// parsed as a JSON object. It exists in every capture table from creation.
const RawUnparsableColumn = "raw_unparsable_line"

const (
	maxWriteAttempts  = 3
	defaultRetryDelay = time.Second
)

// Error kinds for callers to discriminate with errors.Is. Lock acquisition
// failures surface as storage.ErrLock.
var (
	// ErrSQL marks table creation or catalog introspection failures.
	ErrSQL = errors.New("sql error")
	// ErrSchema marks a column migration that exhausted its retry budget.
	ErrSchema = errors.New("schema migration failed")
	// ErrInsert marks a row insert that exhausted its retry budget.
	ErrInsert = errors.New("record insertion failed")
)

// Table tracks the known column set of one capture table. It holds no
// connection of its own; the shared handle is passed on every call.
type Table struct {
	name       string
	cols       map[string]struct{}
	retryDelay time.Duration
}

// TableName derives a safe table identifier from a raw source command.
// Shell- and filesystem-significant characters are substituted, and anything
// left outside [A-Za-z0-9_] is folded to underscore. The same command always
// maps to the same identifier.
func TableName(cmd string) string {
	replaced := strings.NewReplacer(
		" ", "_",
		".", "_",
		"-", "_",
		"/", "_",
		"\\", "_",
		"~", "HOME",
	).Replace(cmd)
	var b strings.Builder
	b.Grow(len(replaced))
	for _, r := range replaced {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// quoteIdent wraps an identifier in double quotes so column names derived
// from arbitrary JSON key paths (dots, brackets) stay valid SQL.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Open ensures the capture table named name exists (creating it with the
// fallback column when absent) and loads its current column catalog.
func Open(ctx context.Context, name string, conn *storage.Conn) (*Table, error) {
	db, release, err := conn.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	createStmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s TEXT)",
		quoteIdent(name), quoteIdent(RawUnparsableColumn))
	if _, err := db.ExecContext(ctx, createStmt); err != nil {
		return nil, fmt.Errorf("%w: create table %s: %v", ErrSQL, name, err)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(name)))
	if err != nil {
		return nil, fmt.Errorf("%w: introspect table %s: %v", ErrSQL, name, err)
	}
	defer func() { _ = rows.Close() }()

	cols := make(map[string]struct{})
	for rows.Next() {
		var (
			cid       int
			colName   string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("%w: read column catalog of %s: %v", ErrSQL, name, err)
		}
		cols[strings.Trim(colName, "`\"")] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read column catalog of %s: %v", ErrSQL, name, err)
	}

	return &Table{name: name, cols: cols, retryDelay: defaultRetryDelay}, nil
}

// Name returns the table identifier.
func (t *Table) Name() string { return t.name }

// Columns returns a snapshot of the known column set.
func (t *Table) Columns() []string {
	out := make([]string, 0, len(t.cols))
	for c := range t.cols {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Insert writes one flattened record. Columns not yet known are first added
// in a single transaction; both the migration and the insert run with bounded
// retry to ride out transient contention on the shared handle. Columns absent
// from the record are left NULL for the row.
func (t *Table) Insert(ctx context.Context, conn *storage.Conn, rec map[string]string) error {
	var newCols []string
	for k := range rec {
		if _, known := t.cols[k]; !known {
			newCols = append(newCols, k)
		}
	}
	sort.Strings(newCols)

	// Held across migration and insert so the two are not interleaved with
	// another source's statements.
	db, release, err := conn.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if len(newCols) > 0 {
		err := retry.Do("schema migration", maxWriteAttempts, t.retryDelay, func() error {
			return t.addColumns(ctx, db, newCols)
		})
		if err != nil {
			return fmt.Errorf("%w: table %s: %v", ErrSchema, t.name, err)
		}
		for _, c := range newCols {
			t.cols[c] = struct{}{}
		}
		metrics.AddMigratedColumns(t.name, len(newCols))
	}

	cols := make([]string, 0, len(rec))
	for c := range t.cols {
		if _, ok := rec[c]; ok {
			cols = append(cols, c)
		}
	}
	sort.Strings(cols)

	stmt, args := buildInsert(t.name, cols, rec)
	err = retry.Do("record insert", maxWriteAttempts, t.retryDelay, func() error {
		_, execErr := db.ExecContext(ctx, stmt, args...)
		return execErr
	})
	if err != nil {
		metrics.IncInsertFailure(t.name)
		return fmt.Errorf("%w: table %s: %v", ErrInsert, t.name, err)
	}
	metrics.IncInsert(t.name)
	return nil
}

// addColumns applies all pending ALTERs inside one transaction so a partial
// migration never lands.
func (t *Table) addColumns(ctx context.Context, db *sql.DB, cols []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, c := range cols {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", quoteIdent(t.name), quoteIdent(c))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func buildInsert(table string, cols []string, rec map[string]string) (string, []any) {
	if len(cols) == 0 {
		// Empty records (e.g. a flattened "{}") still produce a row.
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quoteIdent(table)), nil
	}
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		marks[i] = "?"
		args[i] = rec[c]
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ","), strings.Join(marks, ","))
	return stmt, args
}
