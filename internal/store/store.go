// internal/store/store.go
//
// Data-access collaborator.
//
// Context
// -------
// Controllers never speak SQL.  They hold a Store, which exposes table-scoped
// select, insert, update, delete, and two batch helpers the admin screens
// need:
//
//   - Reorder: persist a whole new display order in one write.
//   - Upsert: write the single row of a singleton table keyed by a constant,
//     so two concurrent saves can never produce two rows.
//
// Two implementations ship: SQLStore (sqlx over MySQL, PostgreSQL, or
// SQLite) and MemoryStore (tests, demos).  Both assign row ids on insert;
// callers never choose them.
//
// Notes
// -----
//   - Every table and column name is checked with record.ValidIdent before
//     it reaches a query string.
//   - Filters are equality-only.  The admin screens need nothing richer.
//   - Oxford commas, two spaces after periods.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/yanizio/storefront/internal/record"
)

// Sentinel errors shared by every implementation.
var (
	ErrNotFound     = errors.New("store: no matching row")
	ErrMultipleRows = errors.New("store: more than one matching row")
	ErrBadName      = errors.New("store: invalid table or column name")
)

// SingletonKeyColumn holds the constant key that keeps singleton tables at
// one row.  It is unique at the schema level.
const SingletonKeyColumn = "singleton_key"

// Filter is a set of column = value conditions joined with AND.
type Filter map[string]any

// ByID is shorthand for the most common filter.
func ByID(id string) Filter { return Filter{record.KeyID: id} }

// Order is one ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a select.  Zero value selects every column and row.
// Limit caps the row count when positive.
type Query struct {
	Columns []string
	Filter  Filter
	Order   []Order
	Limit   int
}

// Assignment pins one row to a list position.
type Assignment struct {
	ID       string
	Position int
}

// Store is the data-access collaborator used by every controller.
type Store interface {
	Select(ctx context.Context, table string, q Query) ([]record.Record, error)
	// SelectOne returns ErrNotFound for zero rows and ErrMultipleRows for more
	// than one.
	SelectOne(ctx context.Context, table string, q Query) (record.Record, error)
	// Insert stores each row under a fresh id and returns the rows as written.
	Insert(ctx context.Context, table string, rows ...record.Record) ([]record.Record, error)
	// Update returns the number of matched rows.
	Update(ctx context.Context, table string, fields record.Record, f Filter) (int64, error)
	// Delete returns the number of removed rows.  An empty filter removes all.
	Delete(ctx context.Context, table string, f Filter) (int64, error)
	// Reorder writes every assignment or none of them.
	Reorder(ctx context.Context, table string, assignments []Assignment) error
	// Upsert inserts or updates the row identified by key in a singleton
	// table.  id and created_at are kept on update.
	Upsert(ctx context.Context, table, key string, fields record.Record) (record.Record, error)
}

func checkNames(table string, cols ...string) error {
	if !record.ValidIdent(table) {
		return fmt.Errorf("%w: %q", ErrBadName, table)
	}
	for _, c := range cols {
		if !record.ValidIdent(c) {
			return fmt.Errorf("%w: %q", ErrBadName, c)
		}
	}
	return nil
}

func filterCols(f Filter) []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	return out
}

func orderCols(o []Order) []string {
	out := make([]string, 0, len(o))
	for _, t := range o {
		out = append(out, t.Column)
	}
	return out
}
