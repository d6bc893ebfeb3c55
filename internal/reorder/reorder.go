// internal/reorder/reorder.go
//
// Persist a new display order for an ordered collection.
//
// Context
// -------
// The drag collaborator hands the controller the ids of a collection in
// their new top-to-bottom order.  Plan turns that sequence into 0-based
// display_order assignments; a Strategy writes them.
//
//   - Batch       all assignments in one store write (store.Store.Reorder).
//     A failure leaves every row at its old position.
//   - Sequential  one update per id, in order, stopping at the first
//     failure.  Rows before the failure keep their new position and rows
//     after it keep their old one.  There is no rollback.
//
// Batch is the configured default (config `reorder.strategy`).  Sequential
// stays available for stores without a batch path.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.
package reorder

import (
	"context"
	"errors"
	"fmt"

	"github.com/yanizio/storefront/internal/metrics"
	"github.com/yanizio/storefront/internal/record"
	"github.com/yanizio/storefront/internal/store"
)

// Strategy names accepted by New.
const (
	NameBatch      = "batch"
	NameSequential = "sequential"
)

var (
	ErrDuplicateID = errors.New("reorder: duplicate id in sequence")
	ErrEmptyID     = errors.New("reorder: empty id in sequence")
)

// Writer is the slice of store.Store a strategy needs.
type Writer interface {
	Update(ctx context.Context, table string, fields record.Record, f store.Filter) (int64, error)
	Reorder(ctx context.Context, table string, as []store.Assignment) error
}

// Strategy writes a planned order.
type Strategy interface {
	Name() string
	Persist(ctx context.Context, table string, as []store.Assignment) error
}

// New returns the strategy called name.  An empty name selects Batch.
func New(name string, w Writer) (Strategy, error) {
	switch name {
	case "", NameBatch:
		return Batch{W: w}, nil
	case NameSequential:
		return Sequential{W: w}, nil
	}
	return nil, fmt.Errorf("reorder: unknown strategy %q", name)
}

// Plan assigns display_order = index to every id.
func Plan(ids []string) ([]store.Assignment, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]store.Assignment, 0, len(ids))
	for i, id := range ids {
		if id == "" {
			return nil, ErrEmptyID
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
		out = append(out, store.Assignment{ID: id, Position: i})
	}
	return out, nil
}

// Batch writes all positions at once.
type Batch struct{ W Writer }

func (Batch) Name() string { return NameBatch }

func (b Batch) Persist(ctx context.Context, table string, as []store.Assignment) error {
	err := b.W.Reorder(ctx, table, as)
	metrics.ReorderWritesTotal.WithLabelValues(NameBatch, metrics.Outcome(err)).Inc()
	return err
}

// Sequential writes one row at a time and halts on the first failure.
type Sequential struct{ W Writer }

func (Sequential) Name() string { return NameSequential }

func (s Sequential) Persist(ctx context.Context, table string, as []store.Assignment) error {
	for i, a := range as {
		n, err := s.W.Update(ctx, table, record.Record{record.KeyDisplayOrder: a.Position}, store.ByID(a.ID))
		if err == nil && n == 0 {
			err = store.ErrNotFound
		}
		metrics.ReorderWritesTotal.WithLabelValues(NameSequential, metrics.Outcome(err)).Inc()
		if err != nil {
			return &PartialError{Written: i, Total: len(as), ID: a.ID, Err: err}
		}
	}
	return nil
}

// PartialError reports how far a sequential reorder got before failing.
type PartialError struct {
	Written int
	Total   int
	ID      string
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("reorder stopped at %s after %d of %d rows: %v", e.ID, e.Written, e.Total, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }
