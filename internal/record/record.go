// internal/record/record.go
//
// Generic resource row.
//
// Context
// -------
// Every admin resource (FAQs, products, testimonials, both settings tables)
// stores its rows as a Record: a map of column name to value.  Values are
// normalised to a small set of Go kinds so controllers, stores, and the JSON
// layer agree on shape:
//
//   - string
//   - float64 (every number)
//   - bool
//   - []string (ordered list, e.g. the hero badge list)
//   - time.Time (timestamps only)
//
// Five keys are reserved and carry the bookkeeping every resource shares.
// The store assigns `id`; the controller assigns the timestamps.
//
// Notes
// -----
//   - Accessors never panic on a missing or mistyped key; they return the
//     zero value so callers can treat partial rows uniformly.
//   - Oxford commas, two spaces after periods.
package record

import (
	"strconv"
	"time"
)

// Reserved column names.
const (
	KeyID           = "id"
	KeyDisplayOrder = "display_order"
	KeyIsActive     = "is_active"
	KeyCreatedAt    = "created_at"
	KeyUpdatedAt    = "updated_at"
)

// Record is one row of a resource collection.
type Record map[string]any

// ID returns the store-assigned identifier or "".
func (r Record) ID() string {
	switch v := r[KeyID].(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return ""
}

// DisplayOrder returns the list position, defaulting to 0.
func (r Record) DisplayOrder() int {
	switch v := r[KeyDisplayOrder].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// IsActive reports the storefront visibility flag.
func (r Record) IsActive() bool {
	b, _ := r[KeyIsActive].(bool)
	return b
}

// CreatedAt returns the creation timestamp or the zero time.
func (r Record) CreatedAt() time.Time { return r.timeAt(KeyCreatedAt) }

// UpdatedAt returns the last-write timestamp or the zero time.
func (r Record) UpdatedAt() time.Time { return r.timeAt(KeyUpdatedAt) }

func (r Record) timeAt(key string) time.Time {
	t, _ := r[key].(time.Time)
	return t
}

// String returns the value at key when it is a string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Clone returns a copy that shares no list storage with r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		if l, ok := v.([]string); ok {
			v = append([]string(nil), l...)
		}
		out[k] = v
	}
	return out
}
