package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/notify"
	"github.com/yanizio/storefront/internal/record"
	"github.com/yanizio/storefront/internal/store"
)

const siteYAML = `
resource: website_settings
singular: Website settings
kind: singleton
fields:
  - key: site_name
    required: true
    default: My Shop
  - key: primary_color
    format: hexcolor
    default: "#336699"
  - key: badges
    type: list
  - key: dark_mode
    type: bool
    default: false
`

const faqYAML = `
resource: faqs
label_field: question
fields:
  - key: question
`

func mustParse(t *testing.T, doc string) *record.Schema {
	t.Helper()
	s, err := record.ParseSchema([]byte(doc))
	require.NoError(t, err)
	return s
}

type failingDelete struct {
	*store.MemoryStore
	table string
}

func (f failingDelete) Delete(ctx context.Context, table string, flt store.Filter) (int64, error) {
	if table == f.table {
		return 0, errors.New("permission denied")
	}
	return f.MemoryStore.Delete(ctx, table, flt)
}

func newController(t *testing.T, st store.Store) (*Controller, *notify.Recorder, []*record.Schema) {
	t.Helper()
	site := mustParse(t, siteYAML)
	faqs := mustParse(t, faqYAML)
	sink := &notify.Recorder{}
	tick := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	c, err := New(Options{
		Schema:   site,
		Store:    st,
		Tables:   []*record.Schema{faqs, site},
		Notifier: sink,
		Logger:   zap.NewNop().Sugar(),
		Clock: func() time.Time {
			tick = tick.Add(time.Minute)
			return tick
		},
	})
	require.NoError(t, err)
	return c, sink, []*record.Schema{faqs, site}
}

func TestLoad_MissingRowYieldsDefaults(t *testing.T) {
	c, sink, _ := newController(t, store.NewMemoryStore())
	rec, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "My Shop", rec["site_name"])
	assert.Equal(t, false, rec["dark_mode"])
	_, exists := c.Current()
	assert.False(t, exists)
	assert.Empty(t, sink.Banners, "absence is not an error")
}

func TestSave_SingleRowAcrossSaves(t *testing.T) {
	ms := store.NewMemoryStore()
	c, sink, _ := newController(t, ms)
	ctx := context.Background()

	_, err := c.Load(ctx)
	require.NoError(t, err)
	first, err := c.Save(ctx, map[string]any{"site_name": "Acme", "badges": []any{"Free shipping", "Eco"}})
	require.NoError(t, err)
	assert.Equal(t, 1, ms.Count("website_settings"))

	second, err := c.Save(ctx, map[string]any{"primary_color": "#ff0000"})
	require.NoError(t, err)
	assert.Equal(t, 1, ms.Count("website_settings"))
	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, first.CreatedAt(), second.CreatedAt())
	assert.True(t, second.UpdatedAt().After(first.UpdatedAt()))
	assert.Equal(t, "Acme", second["site_name"])
	assert.Equal(t, []string{"Free shipping", "Eco"}, second["badges"])
	assert.NotContains(t, second, store.SingletonKeyColumn)

	b, _ := sink.Last()
	assert.Equal(t, "Website settings saved.", b.Text)
}

func TestSave_ConcurrentFirstSavesKeepOneRow(t *testing.T) {
	ms := store.NewMemoryStore()
	a, _, _ := newController(t, ms)
	b, _, _ := newController(t, ms)
	ctx := context.Background()

	done := make(chan error, 2)
	go func() { _, err := a.Save(ctx, map[string]any{"site_name": "A"}); done <- err }()
	go func() { _, err := b.Save(ctx, map[string]any{"site_name": "B"}); done <- err }()
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	assert.Equal(t, 1, ms.Count("website_settings"))
}

func TestSave_ValidationNoWrite(t *testing.T) {
	ms := store.NewMemoryStore()
	c, sink, _ := newController(t, ms)

	_, err := c.Save(context.Background(), map[string]any{"primary_color": "blue-ish"})
	var ve *record.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "primary_color", ve.Field)
	assert.Equal(t, 0, ms.Count("website_settings"))

	bn, _ := sink.Last()
	assert.Equal(t, notify.KindError, bn.Kind)
}

func TestResetAll_RequiresTypedPhrase(t *testing.T) {
	ms := store.NewMemoryStore()
	c, _, _ := newController(t, ms)
	ctx := context.Background()
	_, err := ms.Insert(ctx, "faqs", record.Record{"question": "q"})
	require.NoError(t, err)

	_, err = c.ResetAll(ctx, "delete all data")
	assert.ErrorIs(t, err, ErrConfirmationMismatch)
	assert.Equal(t, 1, ms.Count("faqs"))

	res, err := c.ResetAll(ctx, ResetPhrase)
	require.NoError(t, err)
	assert.True(t, res.ReloadScheduled)
	assert.Equal(t, int64(1), res.Deleted["faqs"])
	assert.Equal(t, 0, ms.Count("faqs"))
}

func TestResetAll_ContinuesPastFailingTable(t *testing.T) {
	ms := store.NewMemoryStore()
	c, _, _ := newController(t, failingDelete{MemoryStore: ms, table: "faqs"})
	ctx := context.Background()
	_, err := c.Save(ctx, map[string]any{"site_name": "Acme"})
	require.NoError(t, err)

	res, err := c.ResetAll(ctx, ResetPhrase)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.False(t, res.ReloadScheduled)
	assert.Equal(t, 0, ms.Count("website_settings"), "other tables still emptied")
}

func TestExportAll(t *testing.T) {
	ms := store.NewMemoryStore()
	c, _, _ := newController(t, ms)
	ctx := context.Background()
	_, err := ms.Insert(ctx, "faqs",
		record.Record{"question": "second", "display_order": 1},
		record.Record{"question": "first", "display_order": 0},
	)
	require.NoError(t, err)
	_, err = c.Save(ctx, map[string]any{"site_name": "Acme"})
	require.NoError(t, err)

	snap, err := c.ExportAll(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Tables["faqs"], 2)
	assert.Equal(t, "first", snap.Tables["faqs"][0]["question"])
	require.Len(t, snap.Tables["website_settings"], 1)
	assert.True(t, strings.HasPrefix(snap.Filename(), "storefront-backup-2025-06-01"))

	var buf bytes.Buffer
	require.NoError(t, snap.WriteJSON(&buf))
	var decoded struct {
		ExportedAt time.Time                   `json:"exported_at"`
		Tables     map[string][]map[string]any `json:"tables"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "Acme", decoded.Tables["website_settings"][0]["site_name"])
	assert.False(t, decoded.ExportedAt.IsZero())
}

func TestNewRejectsOrdered(t *testing.T) {
	_, err := New(Options{Schema: mustParse(t, faqYAML), Store: store.NewMemoryStore()})
	assert.Error(t, err)
}

const maintYAML = `
resource: settings
kind: singleton
fields:
  - key: maintenance_message
    default: Back soon.
`

func TestSave_AfterResetByOtherControllerStartsFromDefaults(t *testing.T) {
	ms := store.NewMemoryStore()
	site, _, tables := newController(t, ms)
	maint, err := New(Options{
		Schema:   mustParse(t, maintYAML),
		Store:    ms,
		Tables:   append(tables, mustParse(t, maintYAML)),
		Notifier: &notify.Recorder{},
		Logger:   zap.NewNop().Sugar(),
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = site.Save(ctx, map[string]any{"site_name": "Old name", "badges": []any{"Legacy"}})
	require.NoError(t, err)
	_, stored := site.Current()
	require.True(t, stored)

	_, err = maint.ResetAll(ctx, ResetPhrase)
	require.NoError(t, err)
	require.Equal(t, 0, ms.Count("website_settings"))

	rec, err := site.Save(ctx, map[string]any{"primary_color": "#ff0000"})
	require.NoError(t, err)
	assert.Equal(t, "My Shop", rec["site_name"])
	assert.NotContains(t, rec, "badges")
	assert.Equal(t, "#ff0000", rec["primary_color"])
	assert.Equal(t, 1, ms.Count("website_settings"))
}

func TestSave_ReadsRowWrittenElsewhere(t *testing.T) {
	ms := store.NewMemoryStore()
	a, _, _ := newController(t, ms)
	b, _, _ := newController(t, ms)
	ctx := context.Background()

	_, err := a.Load(ctx)
	require.NoError(t, err)
	_, err = b.Save(ctx, map[string]any{"site_name": "From B"})
	require.NoError(t, err)

	rec, err := a.Save(ctx, map[string]any{"dark_mode": true})
	require.NoError(t, err)
	assert.Equal(t, "From B", rec["site_name"])
	assert.Equal(t, true, rec["dark_mode"])
}

func TestInvalidateResetsCachedRow(t *testing.T) {
	c, _, _ := newController(t, store.NewMemoryStore())
	_, err := c.Save(context.Background(), map[string]any{"site_name": "Acme"})
	require.NoError(t, err)

	c.Invalidate()
	rec, stored := c.Current()
	assert.False(t, stored)
	assert.Equal(t, "My Shop", rec["site_name"])
}
