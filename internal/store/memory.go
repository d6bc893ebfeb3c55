package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yanizio/storefront/internal/ident"
	"github.com/yanizio/storefront/internal/record"
)

// MemoryStore keeps every table in memory.  Data is lost on restart.  Safe
// for concurrent use.  Rows keep insertion order, which is the tie-breaker
// for equal sort keys.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]record.Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]record.Record)}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Select(_ context.Context, table string, q Query) ([]record.Record, error) {
	if err := checkNames(table, append(filterCols(q.Filter), orderCols(q.Order)...)...); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []record.Record
	for _, r := range m.tables[table] {
		if matches(r, q.Filter) {
			out = append(out, project(r, q.Columns))
		}
	}
	if len(q.Order) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range q.Order {
				c := compare(out[i][o.Column], out[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryStore) SelectOne(ctx context.Context, table string, q Query) (record.Record, error) {
	rows, err := m.Select(ctx, table, q)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return rows[0], nil
	}
	return nil, ErrMultipleRows
}

func (m *MemoryStore) Insert(_ context.Context, table string, rows ...record.Record) ([]record.Record, error) {
	for _, r := range rows {
		if err := checkNames(table, keys(r)...); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		row := r.Clone()
		row[record.KeyID] = ident.NewRecordID()
		m.tables[table] = append(m.tables[table], row)
		out = append(out, row.Clone())
	}
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, table string, fields record.Record, f Filter) (int64, error) {
	if err := checkNames(table, append(keys(fields), filterCols(f)...)...); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, r := range m.tables[table] {
		if !matches(r, f) {
			continue
		}
		for k, v := range fields {
			if k == record.KeyID {
				continue
			}
			r[k] = cloneValue(v)
		}
		n++
	}
	return n, nil
}

func (m *MemoryStore) Delete(_ context.Context, table string, f Filter) (int64, error) {
	if err := checkNames(table, filterCols(f)...); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.tables[table][:0]
	var n int64
	for _, r := range m.tables[table] {
		if matches(r, f) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.tables[table] = kept
	return n, nil
}

func (m *MemoryStore) Reorder(_ context.Context, table string, as []Assignment) error {
	if err := checkNames(table); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	index := make(map[string]record.Record, len(m.tables[table]))
	for _, r := range m.tables[table] {
		index[r.ID()] = r
	}
	// Validate first so a bad id leaves every row untouched.
	for _, a := range as {
		if _, ok := index[a.ID]; !ok {
			return fmt.Errorf("reorder %s: id %s: %w", table, a.ID, ErrNotFound)
		}
	}
	for _, a := range as {
		index[a.ID][record.KeyDisplayOrder] = a.Position
	}
	return nil
}

func (m *MemoryStore) Upsert(_ context.Context, table, key string, fields record.Record) (record.Record, error) {
	if err := checkNames(table, keys(fields)...); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.tables[table] {
		if r[SingletonKeyColumn] != key {
			continue
		}
		for k, v := range fields {
			if k == record.KeyID || k == record.KeyCreatedAt {
				continue
			}
			r[k] = cloneValue(v)
		}
		return r.Clone(), nil
	}
	row := fields.Clone()
	row[record.KeyID] = ident.NewRecordID()
	row[SingletonKeyColumn] = key
	m.tables[table] = append(m.tables[table], row)
	return row.Clone(), nil
}

// Count returns the number of rows in table.  Test helper.
func (m *MemoryStore) Count(table string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables[table])
}

func matches(r record.Record, f Filter) bool {
	for k, want := range f {
		if compare(r[k], want) != 0 {
			return false
		}
	}
	return true
}

func project(r record.Record, cols []string) record.Record {
	if len(cols) == 0 {
		return r.Clone()
	}
	out := make(record.Record, len(cols))
	for _, c := range cols {
		if v, ok := r[c]; ok {
			out[c] = cloneValue(v)
		}
	}
	return out
}

func keys(r record.Record) []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	return out
}

func cloneValue(v any) any {
	if l, ok := v.([]string); ok {
		return append([]string(nil), l...)
	}
	return v
}

// compare orders the kinds a record may hold.  Mismatched kinds compare by
// their printed form so sorting stays total.
func compare(a, b any) int {
	switch x := a.(type) {
	case int:
		if y, ok := toFloat(b); ok {
			return cmpFloat(float64(x), y)
		}
	case float64:
		if y, ok := toFloat(b); ok {
			return cmpFloat(x, y)
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case nil:
		if b == nil {
			return 0
		}
		return -1
	}
	if b == nil {
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
