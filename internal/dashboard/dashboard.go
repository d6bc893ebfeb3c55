// internal/dashboard/dashboard.go
//
// Admin dashboard statistics.
//
// Context
// -------
// The dashboard landing page shows four things, all computed from the same
// store.Store the controllers use:
//
//   - total and active row counts for every ordered collection, plus the
//     order total,
//   - orders grouped by status (and the pending count on its own),
//   - products grouped by product_type, folded into "Lifetime" and
//     "Digital",
//   - a recent-activity feed that merges the latest product edits with the
//     latest orders.
//
// Workflow
// --------
//  1. Compute reads each table once with only the columns it needs.
//  2. Recent asks each source for RecentPerSource rows, merges them newest
//     first, and keeps RecentLimit.  An empty feed carries EmptyActivity.
//
// Notes
// -----
//   - Missing tables are skipped; a failing read aborts with the error.
//   - Oxford commas, two spaces after periods.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/record"
	"github.com/yanizio/storefront/internal/store"
)

// Well-known tables.
const (
	Products = "products"
	Orders   = "orders"
)

// OrderPending is the order status counted as pending.
const OrderPending = "pending"

const (
	RecentPerSource = 5
	RecentLimit     = 10
	EmptyActivity   = "No recent activity."
)

// Count is a total with the storefront-visible subset.
type Count struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// Activity is one line of the recent-activity feed.
type Activity struct {
	At     time.Time `json:"at"`
	Text   string    `json:"text"`
	Actor  string    `json:"actor"`
	Status string    `json:"status"`
}

// Stats is the full dashboard payload.
type Stats struct {
	Counts         map[string]Count `json:"counts"`
	Orders         int              `json:"orders"`
	PendingOrders  int              `json:"pending_orders"`
	OrdersByStatus map[string]int   `json:"orders_by_status"`
	ProductsByType map[string]int   `json:"products_by_type"`
	Recent         []Activity       `json:"recent"`
	Placeholder    string           `json:"placeholder,omitempty"`
}

// Service computes Stats over a store.
type Service struct {
	store   store.Store
	ordered []*record.Schema
	tables  map[string]bool
	log     *zap.SugaredLogger
}

// New builds a Service for the given schemas.  Only ordered collections are
// counted; orders and products feed the grouped views when present.
func New(st store.Store, schemas []*record.Schema, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.S()
	}
	s := &Service{store: st, tables: make(map[string]bool, len(schemas)), log: log}
	for _, sc := range schemas {
		s.tables[sc.Resource] = true
		if sc.Kind == record.KindOrdered {
			s.ordered = append(s.ordered, sc)
		}
	}
	return s
}

// Compute gathers every dashboard figure.
func (s *Service) Compute(ctx context.Context) (Stats, error) {
	st := Stats{
		Counts:         make(map[string]Count, len(s.ordered)),
		OrdersByStatus: map[string]int{},
		ProductsByType: map[string]int{},
	}

	for _, sc := range s.ordered {
		rows, err := s.store.Select(ctx, sc.Resource, store.Query{Columns: []string{record.KeyID, record.KeyIsActive}})
		if err != nil {
			return Stats{}, err
		}
		c := Count{Total: len(rows)}
		for _, r := range rows {
			if sc.Decode(r).IsActive() {
				c.Active++
			}
		}
		st.Counts[sc.Resource] = c
	}

	if s.tables[Orders] {
		rows, err := s.store.Select(ctx, Orders, store.Query{Columns: []string{record.KeyID, "status"}})
		if err != nil {
			return Stats{}, err
		}
		st.Orders = len(rows)
		for _, r := range rows {
			status := text(r["status"])
			st.OrdersByStatus[status]++
			if status == OrderPending {
				st.PendingOrders++
			}
		}
	}

	if s.tables[Products] {
		rows, err := s.store.Select(ctx, Products, store.Query{Columns: []string{record.KeyID, "product_type"}})
		if err != nil {
			return Stats{}, err
		}
		for _, r := range rows {
			st.ProductsByType[productType(text(r["product_type"]))]++
		}
	}

	recent, err := s.Recent(ctx, RecentLimit)
	if err != nil {
		return Stats{}, err
	}
	st.Recent = recent
	if len(recent) == 0 {
		st.Placeholder = EmptyActivity
	}
	s.log.Debugw("dashboard computed", "orders", st.Orders, "recent", len(recent))
	return st, nil
}

// Recent merges the latest product edits and the latest orders, newest
// first, and returns at most limit entries.
func (s *Service) Recent(ctx context.Context, limit int) ([]Activity, error) {
	out := []Activity{}

	if s.tables[Products] {
		rows, err := s.store.Select(ctx, Products, store.Query{
			Columns: []string{"name", record.KeyUpdatedAt},
			Order:   []store.Order{{Column: record.KeyUpdatedAt, Desc: true}},
			Limit:   RecentPerSource,
		})
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, Activity{
				At:     stamp(r[record.KeyUpdatedAt]),
				Text:   fmt.Sprintf("Product %q updated", text(r["name"])),
				Actor:  "Admin",
				Status: "updated",
			})
		}
	}

	if s.tables[Orders] {
		rows, err := s.store.Select(ctx, Orders, store.Query{
			Columns: []string{"customer_email", "status", record.KeyCreatedAt},
			Order:   []store.Order{{Column: record.KeyCreatedAt, Desc: true}},
			Limit:   RecentPerSource,
		})
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, Activity{
				At:     stamp(r[record.KeyCreatedAt]),
				Text:   "New order from " + text(r["customer_email"]),
				Actor:  "Customer",
				Status: text(r["status"]),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func productType(t string) string {
	if t == "lifetime" {
		return "Lifetime"
	}
	return "Digital"
}

// text reads a string column; drivers may hand back []byte.
func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// stamp reads a timestamp column.  SQLite without a declared type returns
// text.
func stamp(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case []byte:
		return stamp(string(x))
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, x); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
