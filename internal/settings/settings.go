// internal/settings/settings.go
//
// Singleton-settings controller.
//
// Context
// -------
// website_settings and settings each hold at most one row.  The row is
// written through store.Store.Upsert under a constant key, and the column
// behind that key is unique in the schema (internal/database), so two saves
// racing on an empty table still end with one row.
//
// The same controller carries the two whole-site maintenance operations
// from the settings screen: ResetAll (typed confirmation, then every known
// table is emptied) and ExportAll (every known table read into a single
// snapshot).
//
// Workflow
// --------
//  1. Load returns the stored row, or the schema defaults when there is no
//     row yet.  Absence is not an error.
//  2. Save re-reads the stored row, normalizes and validates against it, and
//     upserts.
//  3. ResetAll compares the typed text with ResetPhrase before any delete.
//  4. ExportAll decodes rows through each table's schema so the JSON
//     carries strings and lists, never raw driver bytes.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/metrics"
	"github.com/yanizio/storefront/internal/notify"
	"github.com/yanizio/storefront/internal/record"
	"github.com/yanizio/storefront/internal/store"
)

// SingletonKey is the constant stored in store.SingletonKeyColumn.
const SingletonKey = "default"

// ResetPhrase must be typed exactly to run ResetAll.
const ResetPhrase = "DELETE ALL DATA"

var (
	ErrConfirmationMismatch = errors.New("settings: confirmation text does not match")
	ErrBusy                 = errors.New("settings: another change is in progress")
)

// Options wires a Controller.  Schema and Store are required.  Tables lists
// every resource the reset and export operations cover.
type Options struct {
	Schema   *record.Schema
	Store    store.Store
	Tables   []*record.Schema
	Notifier notify.Sink
	Logger   *zap.SugaredLogger
	Clock    func() time.Time
}

// Controller manages one singleton resource.
type Controller struct {
	schema *record.Schema
	store  store.Store
	tables []*record.Schema
	notify notify.Sink
	log    *zap.SugaredLogger
	now    func() time.Time

	busy atomic.Bool

	mu      sync.Mutex
	current record.Record
	exists  bool
}

// New validates opts and fills in defaults.
func New(opts Options) (*Controller, error) {
	if opts.Schema == nil || opts.Store == nil {
		return nil, errors.New("settings: schema and store are required")
	}
	if opts.Schema.Kind != record.KindSingleton {
		return nil, fmt.Errorf("settings: %s is not a singleton resource", opts.Schema.Resource)
	}
	c := &Controller{
		schema: opts.Schema,
		store:  opts.Store,
		tables: opts.Tables,
		notify: opts.Notifier,
		log:    opts.Logger,
		now:    opts.Clock,
	}
	if c.notify == nil {
		c.notify = notify.Default()
	}
	if c.log == nil {
		c.log = zap.S()
	}
	c.log = c.log.With("resource", opts.Schema.Resource)
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Resource returns the table name.
func (c *Controller) Resource() string { return c.schema.Resource }

// Schema returns the field schema.
func (c *Controller) Schema() *record.Schema { return c.schema }

// Load returns the settings row or the schema defaults.
func (c *Controller) Load(ctx context.Context) (record.Record, error) {
	rec, exists, err := c.read(ctx)
	if err != nil {
		c.fail("load", err)
		return nil, err
	}
	c.set(rec, exists)
	return rec.Clone(), nil
}

// read fetches the stored row.  A missing row yields the defaults and
// exists == false.
func (c *Controller) read(ctx context.Context) (rec record.Record, exists bool, err error) {
	raw, err := c.store.SelectOne(ctx, c.schema.Resource, store.Query{
		Filter: store.Filter{store.SingletonKeyColumn: SingletonKey},
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.schema.Defaults(), false, nil
	case err != nil:
		return nil, false, err
	}
	return c.decode(c.schema, raw), true, nil
}

// Current returns the last loaded or saved row and whether it is stored.
func (c *Controller) Current() (record.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Clone(), c.exists
}

// Invalidate drops the cached row so the next read sees defaults until
// Load runs.  Called after the tables are emptied.
func (c *Controller) Invalidate() {
	c.set(c.schema.Defaults(), false)
}

// Save writes fields into the single row, creating it on first save.  The
// base is always the stored row, never the cached one, so values removed by
// a reset or another process are not written back.
func (c *Controller) Save(ctx context.Context, in map[string]any) (record.Record, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)

	base, exists, err := c.read(ctx)
	if err != nil {
		c.fail("save", err)
		return nil, err
	}

	var fields record.Record
	if exists {
		fields, err = c.schema.Prepare(base, in, record.ModeUpdate)
	} else {
		// First save: defaults count as submitted values.
		sub := make(map[string]any, len(base)+len(in))
		for k, v := range base {
			sub[k] = v
		}
		for k, v := range in {
			sub[k] = v
		}
		fields, err = c.schema.Prepare(nil, sub, record.ModeCreate)
	}
	if err != nil {
		c.fail("save", err)
		return nil, err
	}

	row := base.Clone()
	delete(row, record.KeyID)
	for k, v := range fields {
		row[k] = v
	}
	now := c.now().UTC()
	row[record.KeyUpdatedAt] = now
	if row.CreatedAt().IsZero() {
		row[record.KeyCreatedAt] = now
	}

	raw, err := c.store.Upsert(ctx, c.schema.Resource, SingletonKey, row)
	if err != nil {
		c.fail("save", err)
		return nil, err
	}
	rec := c.decode(c.schema, raw)
	c.set(rec, true)

	metrics.MutationsTotal.WithLabelValues(c.schema.Resource, "save", "ok").Inc()
	c.log.Infow("saved", "op", "save", "id", rec.ID())
	c.notify.Show(notify.KindSuccess, c.schema.Singular+" saved.", 0)
	return rec.Clone(), nil
}

func (c *Controller) set(rec record.Record, exists bool) {
	c.mu.Lock()
	c.current = rec
	c.exists = exists
	c.mu.Unlock()
}

func (c *Controller) decode(s *record.Schema, raw record.Record) record.Record {
	rec := s.Decode(raw)
	delete(rec, store.SingletonKeyColumn)
	return rec
}

func (c *Controller) fail(op string, err error) {
	metrics.MutationsTotal.WithLabelValues(c.schema.Resource, op, "error").Inc()
	var ve *record.ValidationError
	if errors.As(err, &ve) {
		c.log.Infow("validation failed", "op", op, "field", ve.Field, "reason", ve.Message)
		c.notify.Show(notify.KindError, ve.Message, 0)
		return
	}
	c.log.Errorw("store call failed", "op", op, "err", err)
	c.notify.Show(notify.KindError, err.Error(), 0)
}
