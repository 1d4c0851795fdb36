package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hpungsan/tabshelf/internal/errors"
)

// Querier is satisfied by both *sql.DB and *sql.Tx so row helpers can run
// standalone or as part of a larger transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn in a single transaction. fn's error is returned unchanged and
// rolls everything back; begin and commit failures become TRANSACTION errors.
func WithTx(ctx context.Context, database *sql.DB, fn func(tx *sql.Tx) error) error {
	return withTx(ctx, database, nil, fn)
}

// WithReadTx runs fn in a read-only transaction. It begins deferred rather
// than immediate, so it never holds the write lock; every read in fn sees the
// same WAL snapshot.
func WithReadTx(ctx context.Context, database *sql.DB, fn func(tx *sql.Tx) error) error {
	return withTx(ctx, database, &sql.TxOptions{ReadOnly: true}, fn)
}

func withTx(ctx context.Context, database *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := database.BeginTx(ctx, opts)
	if err != nil {
		return errors.NewTransaction(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewTransaction(err)
	}
	return nil
}

// uniquePrefix precedes the column list in SQLite unique violations, e.g.
// "UNIQUE constraint failed: tabs.group_id, tabs.position (2067)".
const uniquePrefix = "UNIQUE constraint failed: "

// uniqueViolation reports the columns named by a UNIQUE constraint failure.
func uniqueViolation(err error) ([]string, bool) {
	if err == nil {
		return nil, false
	}
	msg := err.Error()
	idx := strings.Index(msg, uniquePrefix)
	if idx < 0 {
		return nil, false
	}
	rest := msg[idx+len(uniquePrefix):]
	if cut := strings.Index(rest, " ("); cut >= 0 {
		rest = rest[:cut]
	}
	cols := strings.Split(rest, ", ")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return cols, true
}

// isPositionViolation reports whether cols name the (parent, position) index.
func isPositionViolation(cols []string, table, parentCol string) bool {
	return len(cols) == 2 && cols[0] == table+"."+parentCol && cols[1] == table+".position"
}

// positionRef names a slot for NOT_FOUND messages, e.g. "w1@3".
func positionRef(parentID string, position int) string {
	return fmt.Sprintf("%s@%d", parentID, position)
}

// escapeLike escapes LIKE wildcards so the needle matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func fromNullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
