// internal/record/schema.go
//
// Field schemas for admin resources.
//
// Context
// -------
// A Schema is the ordered list of editable fields for one resource plus the
// names of any cross-field rules.  Schemas are declared in YAML (see
// internal/resource/schemas) the same way form definitions are, so the shape
// of a resource lives in one place and the controllers stay generic.
//
// Workflow
// --------
//  1. `ParseSchema` unmarshals one YAML document and checks structure.
//  2. Controllers call `Prepare` (validate.go) on submitted fields.  It
//     coerces raw JSON values into the record kinds (float64, bool,
//     []string, string) and runs the fail-fast rule chain in one pass.
//  3. `Normalize` and `Validate` expose the two halves separately.
//  4. `Defaults` supplies values for a singleton that has no row yet.
//
// Notes
// -----
//   - Reserved keys (id, display_order, is_active, timestamps) are never
//     declared in YAML; the schema adds them implicitly for ordered
//     resources.
//   - Oxford commas, two spaces after periods.
package record

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldType enumerates the value kinds a field may hold.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeText   FieldType = "text"
	TypeNumber FieldType = "number"
	TypeBool   FieldType = "bool"
	TypeList   FieldType = "list"
)

// Kind distinguishes ordered collections from singletons.
type Kind string

const (
	KindOrdered   Kind = "ordered"
	KindSingleton Kind = "singleton"
	KindReadOnly  Kind = "readonly"
)

// Field describes one editable column.
type Field struct {
	Key         string    `yaml:"key"`
	Label       string    `yaml:"label"`
	Type        FieldType `yaml:"type"`
	Required    bool      `yaml:"required"`
	NonNegative bool      `yaml:"non_negative"`
	MaxLength   int       `yaml:"maxlength"`
	Default     any       `yaml:"default"`
	// Format is a go-playground/validator tag applied to non-empty strings,
	// e.g. "email", "hexcolor", or "url".
	Format string `yaml:"format"`
	// Options, when set, lists the only accepted non-empty string values.
	Options []string `yaml:"options"`
}

// Schema is the complete field list for one resource.
type Schema struct {
	Resource   string   `yaml:"resource"`
	Singular   string   `yaml:"singular"`
	Kind       Kind     `yaml:"kind"`
	LabelField string   `yaml:"label_field"`
	Fields     []Field  `yaml:"fields"`
	Rules      []string `yaml:"rules"`
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidIdent reports whether s is safe to use as a table or column name.
func ValidIdent(s string) bool { return identRe.MatchString(s) }

// ParseSchema reads one YAML schema document and checks its structure.
func ParseSchema(raw []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schema) check() error {
	if !ValidIdent(s.Resource) {
		return fmt.Errorf("schema: invalid resource name %q", s.Resource)
	}
	switch s.Kind {
	case KindOrdered, KindSingleton, KindReadOnly:
	case "":
		s.Kind = KindOrdered
	default:
		return fmt.Errorf("schema %s: unknown kind %q", s.Resource, s.Kind)
	}

	if s.Singular == "" {
		s.Singular = humanize(strings.TrimSuffix(s.Resource, "s"))
	}

	seen := make(map[string]struct{}, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if !ValidIdent(f.Key) {
			return fmt.Errorf("schema %s: invalid field key %q", s.Resource, f.Key)
		}
		if isReserved(f.Key) {
			return fmt.Errorf("schema %s: field %q is reserved", s.Resource, f.Key)
		}
		if _, dup := seen[f.Key]; dup {
			return fmt.Errorf("schema %s: duplicate field %q", s.Resource, f.Key)
		}
		seen[f.Key] = struct{}{}
		if f.Type == "" {
			f.Type = TypeString
		}
		switch f.Type {
		case TypeString, TypeText, TypeNumber, TypeBool, TypeList:
		default:
			return fmt.Errorf("schema %s: field %q has unknown type %q", s.Resource, f.Key, f.Type)
		}
		if f.Label == "" {
			f.Label = humanize(f.Key)
		}
		if len(f.Options) > 0 && f.Type != TypeString {
			return fmt.Errorf("schema %s: field %q has options but type %q", s.Resource, f.Key, f.Type)
		}
	}
	if s.LabelField != "" {
		if _, ok := seen[s.LabelField]; !ok {
			return fmt.Errorf("schema %s: label_field %q is not a field", s.Resource, s.LabelField)
		}
	}
	return nil
}

// Field returns the field definition for key.
func (s *Schema) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Columns lists every stored column, reserved ones included.
func (s *Schema) Columns() []string {
	cols := []string{KeyID}
	if s.Kind == KindOrdered {
		cols = append(cols, KeyDisplayOrder, KeyIsActive)
	}
	for _, f := range s.Fields {
		cols = append(cols, f.Key)
	}
	return append(cols, KeyCreatedAt, KeyUpdatedAt)
}

// Label returns the human-readable name of rec, used in confirmation prompts.
func (s *Schema) Label(rec Record) string {
	if s.LabelField != "" {
		if v := strings.TrimSpace(rec.String(s.LabelField)); v != "" {
			return v
		}
	}
	return rec.ID()
}

// Defaults returns a record populated with every declared default.
func (s *Schema) Defaults() Record {
	out := make(Record, len(s.Fields))
	for _, f := range s.Fields {
		if f.Default == nil {
			continue
		}
		if v, err := coerce(f, f.Default); err == nil {
			out[f.Key] = v
		}
	}
	return out
}

// Normalize keeps only declared fields (plus is_active and display_order for
// ordered resources) and coerces their values to record kinds.  Unknown keys
// are dropped silently.  Fields are visited in schema order, then the
// reserved keys, so the same input always reports the same error.
func (s *Schema) Normalize(in map[string]any) (Record, error) {
	out := make(Record, len(in))
	for _, f := range s.Fields {
		v, ok := in[f.Key]
		if !ok {
			continue
		}
		cv, err := coerce(f, v)
		if err != nil {
			return nil, err
		}
		out[f.Key] = cv
	}
	if err := s.normalizeReserved(in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeReserved copies is_active and display_order from in, in that
// order, for ordered resources.
func (s *Schema) normalizeReserved(in map[string]any, out Record) error {
	if s.Kind != KindOrdered {
		return nil
	}
	for _, k := range []string{KeyIsActive, KeyDisplayOrder} {
		v, ok := in[k]
		if !ok {
			continue
		}
		cv, err := reservedValue(k, v)
		if err != nil {
			return err
		}
		out[k] = cv
	}
	return nil
}

// Decode converts a raw store row into record kinds.  Stores hand back
// driver-specific shapes ([]byte, int64, JSON text for lists).
func (s *Schema) Decode(row Record) Record {
	out := make(Record, len(row))
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		switch k {
		case KeyID:
			out[k] = Record{KeyID: v}.ID()
			continue
		case KeyCreatedAt, KeyUpdatedAt:
			out[k] = v
			continue
		case KeyDisplayOrder, KeyIsActive:
			if cv, err := reservedValue(k, v); err == nil {
				out[k] = cv
				continue
			}
		}
		f, ok := s.Field(k)
		if !ok {
			out[k] = v
			continue
		}
		if cv, err := coerce(f, v); err == nil {
			out[k] = cv
		} else {
			out[k] = v
		}
	}
	return out
}

// reservedValue coerces is_active to bool and display_order to a
// non-negative int.
func reservedValue(key string, v any) (any, error) {
	if key == KeyIsActive {
		return coerce(Field{Key: key, Label: "Active", Type: TypeBool}, v)
	}
	n, err := coerce(Field{Key: key, Label: "Display order", Type: TypeNumber}, v)
	if err != nil || n == nil {
		return n, err
	}
	f := n.(float64)
	if f < 0 || f != float64(int(f)) {
		return nil, &ValidationError{Field: key, Message: "Display order must be a non-negative whole number."}
	}
	return int(f), nil
}

func isReserved(key string) bool {
	switch key {
	case KeyID, KeyDisplayOrder, KeyIsActive, KeyCreatedAt, KeyUpdatedAt:
		return true
	}
	return false
}

// coerce converts v into the Go kind for f.Type.
func coerce(f Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case TypeString, TypeText:
		switch x := v.(type) {
		case string:
			return x, nil
		case float64, int, int64, bool:
			return fmt.Sprint(x), nil
		}
	case TypeNumber:
		switch x := v.(type) {
		case float64:
			return finite(f, x, nil)
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case json.Number:
			n, err := x.Float64()
			return finite(f, n, err)
		case string:
			t := strings.TrimSpace(x)
			if t == "" {
				return nil, nil
			}
			n, err := strconv.ParseFloat(t, 64)
			return finite(f, n, err)
		}
	case TypeBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case float64:
			return x != 0, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err != nil {
				return nil, &ValidationError{Field: f.Key, Message: f.Label + " must be true or false."}
			}
			return b, nil
		}
	case TypeList:
		switch x := v.(type) {
		case []string:
			return append([]string(nil), x...), nil
		case []any:
			out := make([]string, 0, len(x))
			for _, e := range x {
				out = append(out, fmt.Sprint(e))
			}
			return out, nil
		case string:
			// Stores persist lists as JSON text.
			var out []string
			if err := json.Unmarshal([]byte(x), &out); err != nil {
				return nil, &ValidationError{Field: f.Key, Message: f.Label + " must be a list."}
			}
			return out, nil
		}
	}
	return nil, &ValidationError{Field: f.Key, Message: fmt.Sprintf("%s has an unsupported value.", f.Label)}
}

// finite rejects parse failures, NaN, and the infinities.
func finite(f Field, n float64, err error) (any, error) {
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, &ValidationError{Field: f.Key, Message: f.Label + " must be a number."}
	}
	return n, nil
}

// humanize turns "original_price" into "Original price".
func humanize(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
