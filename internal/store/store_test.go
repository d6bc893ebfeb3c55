package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/yanizio/storefront/internal/record"
	"github.com/yanizio/storefront/internal/store"
)

var faqSchema = func() *record.Schema {
	s, err := record.ParseSchema([]byte(`
resource: faqs
label_field: question
fields:
  - key: question
    required: true
  - key: tags
    type: list
`))
	if err != nil {
		panic(err)
	}
	return s
}()

const sqliteDDL = `
CREATE TABLE faqs (
	id TEXT PRIMARY KEY,
	display_order INTEGER NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	question TEXT,
	tags TEXT,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE site_settings (
	id TEXT PRIMARY KEY,
	singleton_key TEXT NOT NULL UNIQUE,
	site_name TEXT,
	created_at DATETIME,
	updated_at DATETIME
);`

func newFAQ(q string, order int, at time.Time) record.Record {
	return record.Record{
		"question":      q,
		"tags":          []string{"a", "b"},
		"display_order": order,
		"is_active":     true,
		"created_at":    at,
		"updated_at":    at,
	}
}

// runStoreTests runs a common test suite against any Store implementation.
func runStoreTests(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	var first record.Record

	t.Run("Select empty", func(t *testing.T) {
		rows, err := s.Select(ctx, "faqs", store.Query{})
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 0 {
			t.Fatalf("expected 0 rows, got %d", len(rows))
		}
	})

	t.Run("Insert assigns ids", func(t *testing.T) {
		out, err := s.Insert(ctx, "faqs",
			newFAQ("one", 0, base),
			newFAQ("two", 1, base.Add(time.Second)),
			newFAQ("three", 2, base.Add(2*time.Second)),
		)
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != 3 || out[0].ID() == "" || out[0].ID() == out[1].ID() {
			t.Fatalf("bad ids: %v", out)
		}
		first = out[0]
	})

	t.Run("SelectOne by id", func(t *testing.T) {
		raw, err := s.SelectOne(ctx, "faqs", store.Query{Filter: store.ByID(first.ID())})
		if err != nil {
			t.Fatal(err)
		}
		got := faqSchema.Decode(raw)
		if got["question"] != "one" || !got.IsActive() {
			t.Fatalf("unexpected row: %#v", got)
		}
		if tags, _ := got["tags"].([]string); len(tags) != 2 || tags[0] != "a" {
			t.Fatalf("tags = %#v", got["tags"])
		}
	})

	t.Run("SelectOne missing", func(t *testing.T) {
		_, err := s.SelectOne(ctx, "faqs", store.Query{Filter: store.ByID("nope")})
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Update counts matches", func(t *testing.T) {
		n, err := s.Update(ctx, "faqs", record.Record{"is_active": false}, store.ByID(first.ID()))
		if err != nil || n != 1 {
			t.Fatalf("update = %d, %v", n, err)
		}
		n, err = s.Update(ctx, "faqs", record.Record{"is_active": false}, store.ByID("nope"))
		if err != nil || n != 0 {
			t.Fatalf("update missing = %d, %v", n, err)
		}
	})

	t.Run("Reorder", func(t *testing.T) {
		rows, err := s.Select(ctx, "faqs", store.Query{Order: []store.Order{{Column: "display_order"}}})
		if err != nil {
			t.Fatal(err)
		}
		ids := []string{faqSchema.Decode(rows[2]).ID(), faqSchema.Decode(rows[0]).ID(), faqSchema.Decode(rows[1]).ID()}
		var as []store.Assignment
		for i, id := range ids {
			as = append(as, store.Assignment{ID: id, Position: i})
		}
		if err := s.Reorder(ctx, "faqs", as); err != nil {
			t.Fatal(err)
		}
		rows, err = s.Select(ctx, "faqs", store.Query{Order: []store.Order{{Column: "display_order"}}})
		if err != nil {
			t.Fatal(err)
		}
		for i, r := range rows {
			if got := faqSchema.Decode(r).ID(); got != ids[i] {
				t.Fatalf("position %d = %s, want %s", i, got, ids[i])
			}
		}
	})

	t.Run("Reorder unknown id moves nothing", func(t *testing.T) {
		order := []store.Order{{Column: "display_order"}}
		before, err := s.Select(ctx, "faqs", store.Query{Order: order})
		if err != nil {
			t.Fatal(err)
		}
		a, b := faqSchema.Decode(before[0]), faqSchema.Decode(before[1])
		err = s.Reorder(ctx, "faqs", []store.Assignment{
			{ID: b.ID(), Position: 0},
			{ID: "missing", Position: 1},
			{ID: a.ID(), Position: 2},
		})
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		after, err := s.Select(ctx, "faqs", store.Query{Order: order})
		if err != nil {
			t.Fatal(err)
		}
		for i := range before {
			x, y := faqSchema.Decode(before[i]), faqSchema.Decode(after[i])
			if x.ID() != y.ID() || x.DisplayOrder() != y.DisplayOrder() {
				t.Fatalf("row %d moved: %s@%d -> %s@%d", i, x.ID(), x.DisplayOrder(), y.ID(), y.DisplayOrder())
			}
		}
	})

	t.Run("Select limit", func(t *testing.T) {
		rows, err := s.Select(ctx, "faqs", store.Query{
			Order: []store.Order{{Column: "display_order", Desc: true}},
			Limit: 1,
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 || faqSchema.Decode(rows[0]).DisplayOrder() != 2 {
			t.Fatalf("limit rows = %#v", rows)
		}
	})

	t.Run("Delete then delete again", func(t *testing.T) {
		n, err := s.Delete(ctx, "faqs", store.ByID(first.ID()))
		if err != nil || n != 1 {
			t.Fatalf("delete = %d, %v", n, err)
		}
		n, err = s.Delete(ctx, "faqs", store.ByID(first.ID()))
		if err != nil || n != 0 {
			t.Fatalf("second delete = %d, %v", n, err)
		}
	})

	t.Run("Upsert keeps one row", func(t *testing.T) {
		a, err := s.Upsert(ctx, "site_settings", "default", record.Record{
			"site_name": "Shop", "created_at": base, "updated_at": base,
		})
		if err != nil {
			t.Fatal(err)
		}
		later := base.Add(time.Hour)
		b, err := s.Upsert(ctx, "site_settings", "default", record.Record{
			"site_name": "Shop 2", "created_at": later, "updated_at": later,
		})
		if err != nil {
			t.Fatal(err)
		}
		rows, err := s.Select(ctx, "site_settings", store.Query{})
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 row, got %d", len(rows))
		}
		a, b = faqSchema.Decode(a), faqSchema.Decode(b)
		if a.ID() != b.ID() {
			t.Fatalf("id changed: %s -> %s", a.ID(), b.ID())
		}
		if b["site_name"] != "Shop 2" {
			t.Fatalf("site_name = %v", b["site_name"])
		}
		if !b.CreatedAt().Equal(base) {
			t.Fatalf("created_at changed: %v", b.CreatedAt())
		}
	})

	t.Run("Bad names rejected", func(t *testing.T) {
		_, err := s.Select(ctx, "faqs; DROP TABLE faqs", store.Query{})
		if !errors.Is(err, store.ErrBadName) {
			t.Fatalf("expected ErrBadName, got %v", err)
		}
		_, err = s.Update(ctx, "faqs", record.Record{"Question": "x"}, nil)
		if !errors.Is(err, store.ErrBadName) {
			t.Fatalf("expected ErrBadName, got %v", err)
		}
	})

	t.Run("Delete all", func(t *testing.T) {
		if _, err := s.Delete(ctx, "faqs", nil); err != nil {
			t.Fatal(err)
		}
		rows, err := s.Select(ctx, "faqs", store.Query{})
		if err != nil || len(rows) != 0 {
			t.Fatalf("rows = %d, %v", len(rows), err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, store.NewMemoryStore())
}

func TestSQLStore_SQLite(t *testing.T) {
	db, err := sqlx.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(sqliteDDL); err != nil {
		t.Fatal(err)
	}
	runStoreTests(t, store.NewSQLStore(db))
}

func TestMemoryStore_ReorderUnknownLeavesRowsUntouched(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	out, err := s.Insert(ctx, "faqs", newFAQ("one", 5, time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	err = s.Reorder(ctx, "faqs", []store.Assignment{
		{ID: out[0].ID(), Position: 0},
		{ID: "missing", Position: 1},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, _ := s.SelectOne(ctx, "faqs", store.Query{Filter: store.ByID(out[0].ID())})
	if got.DisplayOrder() != 5 {
		t.Fatalf("display_order = %d, want 5", got.DisplayOrder())
	}
}

func TestMemoryStore_OrderTies(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	at := time.Now()
	_, err := s.Insert(ctx, "faqs",
		newFAQ("late", 0, at.Add(time.Minute)),
		newFAQ("early", 0, at),
	)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := s.Select(ctx, "faqs", store.Query{Order: []store.Order{
		{Column: "display_order"}, {Column: "created_at"}, {Column: "id"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if rows[0]["question"] != "early" {
		t.Fatalf("tie not broken by created_at: %v", rows[0]["question"])
	}
}
