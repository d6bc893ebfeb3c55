// internal/collection/controller.go
//
// Ordered-collection admin controller.
//
// Context
// -------
// FAQs, products, and testimonials share one admin workflow: list the rows
// in display order, create and edit through a single form, flip the
// storefront visibility flag, delete, and drag to reorder.  One Controller
// per resource implements that workflow against a record.Schema and a
// store.Store; nothing here renders HTML.  Callers read View() and draw it
// however they like (internal/admin turns it into JSON).
//
// Workflow
// --------
//  1. Load fetches every row ordered by display_order, then created_at, then
//     id.  A failed load keeps the previous list.
//  2. Create and Update normalize and validate first (fail-fast, first error
//     only).  Nothing is written when validation fails.  Update validates
//     against the stored row, not the loaded list.  A new row without a
//     position goes after the highest stored one.  Success closes the form
//     and reloads from the store.
//  3. ToggleActive and Delete only stage a PendingConfirmation.  Confirm
//     performs the write and reloads; Dismiss drops it.
//  4. Reorder plans 0-based positions and hands them to the configured
//     reorder.Strategy.
//
// Every failure is logged, counted, shown through the notify.Sink, and
// returned.  One mutation may be in flight per controller; a second one
// gets ErrBusy.  Concurrent loads share a single store query.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/storefront/internal/metrics"
	"github.com/yanizio/storefront/internal/notify"
	"github.com/yanizio/storefront/internal/record"
	"github.com/yanizio/storefront/internal/reorder"
	"github.com/yanizio/storefront/internal/store"
)

// Placeholder is shown instead of an empty list.
const Placeholder = "No records yet."

var (
	ErrBusy      = errors.New("collection: another change is in progress")
	ErrNoPending = errors.New("collection: nothing awaiting confirmation")
	ErrFormOpen  = errors.New("collection: a form is already open")
)

// Options wires a Controller.  Schema and Store are required.
type Options struct {
	Resource  string // defaults to Schema.Resource
	Schema    *record.Schema
	Store     store.Store
	Notifier  notify.Sink
	Reorderer reorder.Strategy
	Logger    *zap.SugaredLogger
	Clock     func() time.Time
}

// Controller runs the admin workflow for one ordered resource.
type Controller struct {
	resource string
	schema   *record.Schema
	store    store.Store
	notify   notify.Sink
	reorder  reorder.Strategy
	log      *zap.SugaredLogger
	now      func() time.Time

	busy  atomic.Bool
	loads singleflight.Group

	mu         sync.Mutex
	items      []record.Record
	loaded     bool
	form       Form
	pending    *Pending
	orderDirty bool
}

// New validates opts and fills in defaults.
func New(opts Options) (*Controller, error) {
	if opts.Schema == nil || opts.Store == nil {
		return nil, errors.New("collection: schema and store are required")
	}
	if opts.Schema.Kind != record.KindOrdered {
		return nil, fmt.Errorf("collection: %s is not an ordered resource", opts.Schema.Resource)
	}
	c := &Controller{
		resource: opts.Resource,
		schema:   opts.Schema,
		store:    opts.Store,
		notify:   opts.Notifier,
		reorder:  opts.Reorderer,
		log:      opts.Logger,
		now:      opts.Clock,
	}
	if c.resource == "" {
		c.resource = opts.Schema.Resource
	}
	if c.notify == nil {
		c.notify = notify.Default()
	}
	if c.reorder == nil {
		c.reorder = reorder.Batch{W: opts.Store}
	}
	if c.log == nil {
		c.log = zap.S()
	}
	c.log = c.log.With("resource", c.resource)
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Resource returns the table name.
func (c *Controller) Resource() string { return c.resource }

// Schema returns the field schema.
func (c *Controller) Schema() *record.Schema { return c.schema }

/*──────────────────────────── reads ────────────────────────────*/

// Load replaces the in-memory list with the store's current rows.
func (c *Controller) Load(ctx context.Context) ([]record.Record, error) {
	v, err, _ := c.loads.Do("load", func() (any, error) {
		rows, err := c.store.Select(ctx, c.resource, store.Query{Order: []store.Order{
			{Column: record.KeyDisplayOrder},
			{Column: record.KeyCreatedAt},
			{Column: record.KeyID},
		}})
		if err != nil {
			return nil, err
		}
		out := make([]record.Record, 0, len(rows))
		for _, r := range rows {
			out = append(out, c.schema.Decode(r))
		}
		c.mu.Lock()
		c.items = out
		c.loaded = true
		c.mu.Unlock()
		return out, nil
	})
	if err != nil {
		c.fail("load", err)
		return nil, err
	}
	return cloneAll(v.([]record.Record)), nil
}

// Items returns the last successfully loaded list.
func (c *Controller) Items() []record.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAll(c.items)
}

// View is the render-ready state of the controller.
type View struct {
	Resource    string          `json:"resource"`
	Items       []record.Record `json:"items"`
	Empty       bool            `json:"empty"`
	Placeholder string          `json:"placeholder,omitempty"`
	Form        Form            `json:"form"`
	Pending     *Pending        `json:"pending,omitempty"`
	OrderDirty  bool            `json:"order_dirty"`
}

// View snapshots the controller state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		Resource:   c.resource,
		Items:      cloneAll(c.items),
		Form:       c.form.clone(),
		OrderDirty: c.orderDirty,
	}
	if v.Items == nil {
		v.Items = []record.Record{}
	}
	if c.loaded && len(c.items) == 0 {
		v.Empty = true
		v.Placeholder = Placeholder
	}
	if c.pending != nil {
		p := *c.pending
		v.Pending = &p
	}
	return v
}

// Get returns one row, from the loaded list when possible.
func (c *Controller) Get(ctx context.Context, id string) (record.Record, error) {
	c.mu.Lock()
	for _, r := range c.items {
		if r.ID() == id {
			c.mu.Unlock()
			return r.Clone(), nil
		}
	}
	c.mu.Unlock()
	return c.stored(ctx, id)
}

// stored reads one row from the store, bypassing the loaded list.  Writes
// validate against it.
func (c *Controller) stored(ctx context.Context, id string) (record.Record, error) {
	raw, err := c.store.SelectOne(ctx, c.resource, store.Query{Filter: store.ByID(id)})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%s %s: %w", c.schema.Singular, id, store.ErrNotFound)
		}
		return nil, err
	}
	return c.schema.Decode(raw), nil
}

/*──────────────────────────── writes ───────────────────────────*/

// Create validates fields and inserts a new row.
func (c *Controller) Create(ctx context.Context, in map[string]any) (record.Record, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)

	fields, err := c.schema.Prepare(nil, in, record.ModeCreate)
	if err != nil {
		c.fail("create", err)
		return nil, err
	}

	row := c.schema.Defaults()
	for k, v := range fields {
		row[k] = v
	}
	if _, ok := row[record.KeyIsActive]; !ok {
		row[record.KeyIsActive] = true
	}
	if _, ok := row[record.KeyDisplayOrder]; !ok {
		next, err := c.nextPosition(ctx)
		if err != nil {
			c.fail("create", err)
			return nil, err
		}
		row[record.KeyDisplayOrder] = next
	}
	now := c.now().UTC()
	row[record.KeyCreatedAt] = now
	row[record.KeyUpdatedAt] = now

	out, err := c.store.Insert(ctx, c.resource, row)
	if err != nil {
		c.fail("create", err)
		return nil, err
	}
	c.succeed(ctx, "create", c.schema.Singular+" created.")
	return c.schema.Decode(out[0]), nil
}

// Update validates fields against the stored row and writes them.  id and
// created_at are never changed.
func (c *Controller) Update(ctx context.Context, id string, in map[string]any) (record.Record, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)

	base, err := c.stored(ctx, id)
	if err != nil {
		c.fail("update", err)
		return nil, err
	}
	fields, err := c.schema.Prepare(base, in, record.ModeUpdate)
	if err != nil {
		c.fail("update", err)
		return nil, err
	}

	fields[record.KeyUpdatedAt] = c.now().UTC()
	n, err := c.store.Update(ctx, c.resource, fields, store.ByID(id))
	if err == nil && n == 0 {
		err = fmt.Errorf("%s %s: %w", c.schema.Singular, id, store.ErrNotFound)
	}
	if err != nil {
		c.fail("update", err)
		return nil, err
	}

	merged := base.Clone()
	for k, v := range fields {
		merged[k] = v
	}
	c.succeed(ctx, "update", c.schema.Singular+" updated.")
	return merged, nil
}

/*──────────────────────────── confirmation ─────────────────────*/

// ToggleActive stages a visibility change for confirmation.
func (c *Controller) ToggleActive(ctx context.Context, id string, active bool) (Pending, error) {
	rec, err := c.Get(ctx, id)
	if err != nil {
		c.fail("toggle", err)
		return Pending{}, err
	}
	label := c.schema.Label(rec)
	p := Pending{Action: ActionToggleActive, ID: id, Label: label, Active: active}
	if active {
		p.Prompt = fmt.Sprintf("Show %q on the storefront?", label)
	} else {
		p.Prompt = fmt.Sprintf("Hide %q from the storefront?", label)
	}
	c.stage(p)
	return p, nil
}

// Delete stages a permanent delete for confirmation.
func (c *Controller) Delete(ctx context.Context, id string) (Pending, error) {
	rec, err := c.Get(ctx, id)
	if err != nil {
		c.fail("delete", err)
		return Pending{}, err
	}
	label := c.schema.Label(rec)
	p := Pending{
		Action: ActionDelete,
		ID:     id,
		Label:  label,
		Prompt: fmt.Sprintf("Delete %q? This cannot be undone.", label),
	}
	c.stage(p)
	return p, nil
}

// Confirm performs the staged action.
func (c *Controller) Confirm(ctx context.Context) error {
	c.mu.Lock()
	p := c.pending
	c.pending = nil
	c.mu.Unlock()
	if p == nil {
		return ErrNoPending
	}
	if !c.busy.CompareAndSwap(false, true) {
		c.stage(*p)
		return ErrBusy
	}
	defer c.busy.Store(false)

	var (
		n   int64
		err error
		op  string
		msg string
	)
	switch p.Action {
	case ActionToggleActive:
		op = "toggle"
		n, err = c.store.Update(ctx, c.resource, record.Record{record.KeyIsActive: p.Active}, store.ByID(p.ID))
		msg = fmt.Sprintf("%q is now hidden.", p.Label)
		if p.Active {
			msg = fmt.Sprintf("%q is now visible.", p.Label)
		}
	case ActionDelete:
		op = "delete"
		n, err = c.store.Delete(ctx, c.resource, store.ByID(p.ID))
		msg = fmt.Sprintf("%q deleted.", p.Label)
	default:
		return fmt.Errorf("collection: unknown action %q", p.Action)
	}
	if err == nil && n == 0 {
		err = fmt.Errorf("%s %s: %w", c.schema.Singular, p.ID, store.ErrNotFound)
	}
	if err != nil {
		c.fail(op, err)
		return err
	}
	c.succeed(ctx, op, msg)
	return nil
}

// Dismiss drops the staged action.  It reports whether one was staged.
func (c *Controller) Dismiss() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	had := c.pending != nil
	c.pending = nil
	return had
}

// PendingAction returns the staged action, if any.
func (c *Controller) PendingAction() (Pending, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Pending{}, false
	}
	return *c.pending, true
}

func (c *Controller) stage(p Pending) {
	c.mu.Lock()
	c.pending = &p
	c.mu.Unlock()
}

/*──────────────────────────── reorder ──────────────────────────*/

// Reorder persists ids as the new top-to-bottom order.
func (c *Controller) Reorder(ctx context.Context, ids []string) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	c.orderDirty = true
	c.mu.Unlock()

	as, err := reorder.Plan(ids)
	if err == nil {
		err = c.reorder.Persist(ctx, c.resource, as)
	}
	if err != nil {
		c.fail("reorder", err)
		return err
	}

	c.mu.Lock()
	c.orderDirty = false
	c.mu.Unlock()
	c.succeed(ctx, "reorder", "Order saved.")
	return nil
}

// OrderDirty reports whether the "save order" affordance should show.
func (c *Controller) OrderDirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orderDirty
}

/*──────────────────────────── helpers ──────────────────────────*/

// nextPosition returns one past the highest stored display_order, or 0 for
// an empty table.
func (c *Controller) nextPosition(ctx context.Context) (int, error) {
	rows, err := c.store.Select(ctx, c.resource, store.Query{
		Columns: []string{record.KeyDisplayOrder},
		Order:   []store.Order{{Column: record.KeyDisplayOrder, Desc: true}},
		Limit:   1,
	})
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	return c.schema.Decode(rows[0]).DisplayOrder() + 1, nil
}

func (c *Controller) fail(op string, err error) {
	metrics.MutationsTotal.WithLabelValues(c.resource, op, "error").Inc()
	var ve *record.ValidationError
	if errors.As(err, &ve) {
		c.log.Infow("validation failed", "op", op, "field", ve.Field, "reason", ve.Message)
		c.notify.Show(notify.KindError, ve.Message, 0)
		return
	}
	c.log.Errorw("store call failed", "op", op, "err", err)
	c.notify.Show(notify.KindError, err.Error(), 0)
}

// succeed notifies, closes the form, and reloads.  A failed reload has
// already been reported by Load.
func (c *Controller) succeed(ctx context.Context, op, msg string) {
	metrics.MutationsTotal.WithLabelValues(c.resource, op, "ok").Inc()
	c.log.Infow("saved", "op", op)
	c.notify.Show(notify.KindSuccess, msg, 0)
	c.mu.Lock()
	c.form = Form{Mode: FormClosed}
	c.mu.Unlock()
	_, _ = c.Load(ctx)
}

func cloneAll(rs []record.Record) []record.Record {
	if rs == nil {
		return nil
	}
	out := make([]record.Record, len(rs))
	for i, r := range rs {
		out[i] = r.Clone()
	}
	return out
}
