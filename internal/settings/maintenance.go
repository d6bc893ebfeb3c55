package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/yanizio/storefront/internal/metrics"
	"github.com/yanizio/storefront/internal/notify"
	"github.com/yanizio/storefront/internal/record"
	"github.com/yanizio/storefront/internal/store"
)

// ResetResult reports what ResetAll removed.
type ResetResult struct {
	Deleted         map[string]int64 `json:"deleted"`
	ReloadScheduled bool             `json:"reload_scheduled"`
}

// ResetAll empties every known table.  typed must equal ResetPhrase.  A
// failing table does not stop the others; the failures are joined into the
// returned error.
func (c *Controller) ResetAll(ctx context.Context, typed string) (ResetResult, error) {
	if typed != ResetPhrase {
		err := fmt.Errorf("%w: type %q to confirm", ErrConfirmationMismatch, ResetPhrase)
		c.fail("reset", err)
		return ResetResult{}, err
	}
	if !c.busy.CompareAndSwap(false, true) {
		return ResetResult{}, ErrBusy
	}
	defer c.busy.Store(false)

	res := ResetResult{Deleted: make(map[string]int64, len(c.tables))}
	var errs []error
	for _, s := range c.tables {
		n, err := c.store.Delete(ctx, s.Resource, nil)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res.Deleted[s.Resource] = n
	}
	c.log.Warnw("all data reset", "deleted", res.Deleted, "failures", len(errs))

	if err := errors.Join(errs...); err != nil {
		c.fail("reset", err)
		return res, err
	}
	c.Invalidate()
	res.ReloadScheduled = true
	metrics.MutationsTotal.WithLabelValues(c.schema.Resource, "reset", "ok").Inc()
	c.notify.Show(notify.KindSuccess, "All data deleted.  Reloading.", 0)
	return res, nil
}

// Snapshot is a point-in-time copy of every known table.
type Snapshot struct {
	ExportedAt time.Time                  `json:"exported_at"`
	Tables     map[string][]record.Record `json:"tables"`
}

// ExportAll reads every known table in full.  Any failing table aborts the
// export so a snapshot is never partial.
func (c *Controller) ExportAll(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{
		ExportedAt: c.now().UTC(),
		Tables:     make(map[string][]record.Record, len(c.tables)),
	}
	for _, s := range c.tables {
		rows, err := c.store.Select(ctx, s.Resource, store.Query{Order: exportOrder(s)})
		if err != nil {
			c.fail("export", err)
			return Snapshot{}, err
		}
		out := make([]record.Record, 0, len(rows))
		for _, r := range rows {
			out = append(out, c.decode(s, r))
		}
		snap.Tables[s.Resource] = out
	}
	c.log.Infow("exported", "tables", len(snap.Tables))
	c.notify.Show(notify.KindSuccess, "Export ready.", 0)
	return snap, nil
}

func exportOrder(s *record.Schema) []store.Order {
	if s.Kind == record.KindOrdered {
		return []store.Order{{Column: record.KeyDisplayOrder}, {Column: record.KeyCreatedAt}, {Column: record.KeyID}}
	}
	return []store.Order{{Column: record.KeyCreatedAt}, {Column: record.KeyID}}
}

// Filename is the suggested download name.
func (s Snapshot) Filename() string {
	return "storefront-backup-" + s.ExportedAt.Format("2006-01-02") + ".json"
}

// WriteJSON writes the snapshot as indented JSON.
func (s Snapshot) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
