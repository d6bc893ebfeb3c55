// internal/record/validate.go
//
// Fail-fast field validation.
//
// Context
// -------
// Controllers validate submitted fields before any write.  The chain stops at
// the first failing rule and reports exactly one ValidationError, so the
// operator sees a single, specific message and the store sees no traffic.
//
// Order of checks
// ---------------
//  1. Per field, in schema order: type, required, number sign, length,
//     options, format.
//  2. Reserved keys: is_active, then display_order.
//  3. Cross-field rules, in the order the schema lists them.
//
// Format checks delegate to go-playground/validator tags (`email`,
// `hexcolor`, `url`, ...) so we do not maintain our own regexes.
package record

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// ValidationError is a user-correctable input error tied to one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// IsValidationError reports whether err (or anything it wraps) is a
// *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Rule is a named cross-field predicate.  It receives the merged record
// (existing values overlaid with the submission) and returns nil on success.
type Rule func(Record) *ValidationError

var (
	rulesMu sync.RWMutex
	rules   = map[string]Rule{}
)

// RegisterRule makes a cross-field rule available to schemas by name.
func RegisterRule(name string, r Rule) {
	rulesMu.Lock()
	rules[name] = r
	rulesMu.Unlock()
}

func lookupRule(name string) (Rule, bool) {
	rulesMu.RLock()
	defer rulesMu.RUnlock()
	r, ok := rules[name]
	return r, ok
}

var formats = validator.New()

// Mode selects how missing fields are treated.
type Mode int

const (
	// ModeCreate treats every required field as mandatory.
	ModeCreate Mode = iota
	// ModeUpdate checks only the fields present in the submission.
	ModeUpdate
)

// Prepare coerces and validates a raw submission in one pass and returns
// the normalized fields.  base is the stored row for updates (nil for
// creates); rules see base overlaid with the result.
func (s *Schema) Prepare(base Record, in map[string]any, mode Mode) (Record, error) {
	out := make(Record, len(in))
	for _, f := range s.Fields {
		raw, present := in[f.Key]
		if !present && mode == ModeUpdate {
			continue
		}
		v, err := coerce(f, raw)
		if err != nil {
			return nil, err
		}
		if err := checkField(f, v); err != nil {
			return nil, err
		}
		if present {
			out[f.Key] = v
		}
	}
	if err := s.normalizeReserved(in, out); err != nil {
		return nil, err
	}
	if err := s.checkRules(base, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks already-normalized fields and returns the first failure.
// base is the stored row for updates (nil for creates); rules see base
// overlaid with fields.
func (s *Schema) Validate(base, fields Record, mode Mode) error {
	for _, f := range s.Fields {
		v, present := fields[f.Key]
		if !present && mode == ModeUpdate {
			continue
		}
		if err := checkField(f, v); err != nil {
			return err
		}
	}
	return s.checkRules(base, fields)
}

func (s *Schema) checkRules(base, fields Record) error {
	merged := make(Record, len(base)+len(fields))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	for _, name := range s.Rules {
		r, ok := lookupRule(name)
		if !ok {
			return fmt.Errorf("schema %s: unknown rule %q", s.Resource, name)
		}
		if ve := r(merged); ve != nil {
			return ve
		}
	}
	return nil
}

func checkField(f Field, v any) error {
	if f.Required && isEmpty(v) {
		return &ValidationError{Field: f.Key, Message: f.Label + " is required."}
	}
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return &ValidationError{Field: f.Key, Message: f.Label + " must be a number."}
		}
		if f.NonNegative && x < 0 {
			return &ValidationError{Field: f.Key, Message: f.Label + " must not be negative."}
		}
	case string:
		t := strings.TrimSpace(x)
		if f.MaxLength > 0 && utf8.RuneCountInString(t) > f.MaxLength {
			return &ValidationError{
				Field:   f.Key,
				Message: fmt.Sprintf("%s must be at most %d characters.", f.Label, f.MaxLength),
			}
		}
		if len(f.Options) > 0 && t != "" && !slices.Contains(f.Options, t) {
			return &ValidationError{
				Field:   f.Key,
				Message: fmt.Sprintf("%s must be one of: %s.", f.Label, strings.Join(f.Options, ", ")),
			}
		}
		if f.Format != "" && t != "" {
			if err := formats.Var(t, f.Format); err != nil {
				return &ValidationError{Field: f.Key, Message: f.Label + " is not a valid " + f.Format + "."}
			}
		}
	}
	return nil
}

// isEmpty treats nil, whitespace-only strings, and empty lists as missing.
func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []string:
		return len(x) == 0
	}
	return false
}
