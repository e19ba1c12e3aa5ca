// Package store persists the catalog in Postgres.
//
// Each entity lives in its own table; cross references (song artists, album
// songs, playlist songs) are stored as text[] columns holding raw identifiers.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"spotifiuby/internal/ids"
)

var (
	// ErrNotFound signals that no row matched the requested identifier.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateID indicates an identifier collision on insert.
	ErrDuplicateID = errors.New("duplicate identifier")
)

// Store provides persistence backed by Postgres.
type Store struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// New sets up a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: ids.New,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// updateSet accumulates "column = $n" assignments for partial updates.
// The first placeholder is reserved for the row identifier.
type updateSet struct {
	clauses []string
	args    []any
}

func newUpdateSet(id string) *updateSet {
	return &updateSet{args: []any{id}}
}

func (u *updateSet) add(column string, value any) {
	u.args = append(u.args, value)
	u.clauses = append(u.clauses, fmt.Sprintf("%s = $%d", column, len(u.args)))
}

func (u *updateSet) empty() bool {
	return len(u.clauses) == 0
}

func (u *updateSet) String() string {
	return strings.Join(u.clauses, ", ")
}

// whereBuilder collects filter clauses with positional arguments.
type whereBuilder struct {
	clauses []string
	args    []any
}

// arg registers a value and returns its placeholder.
func (w *whereBuilder) arg(value any) string {
	w.args = append(w.args, value)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) add(clause string) {
	w.clauses = append(w.clauses, clause)
}

func (w *whereBuilder) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// likePattern turns free text into a case-insensitive substring pattern,
// escaping LIKE metacharacters so user input matches literally.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// effectiveLevelExpr computes the highest subscription level among the
// artists referenced by the given text[] column.
func effectiveLevelExpr(column string) string {
	return fmt.Sprintf("COALESCE((SELECT MAX(a.subscription_level) FROM artists a WHERE a.id = ANY(%s)), 0)", column)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func rowsAffected(res sql.Result, what string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s rows affected: %w", what, err)
	}
	return n > 0, nil
}
