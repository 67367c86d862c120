// Package validation implements the schema-driven input validation used by
// the post mutation handlers and by incremental (per-field) form checks.
//
// A Schema is an ordered list of fields. Each field normalizes its raw value
// (trimming strings, coercing numbers) and then runs its rules in order; the
// first failing rule decides the field's message. Every field is always
// evaluated so callers receive the complete set of problems at once.
package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Errors maps a field name to the first message produced for that field.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldError is returned by ValidateField for a single failing field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Rule is a single check against a normalized value.
type Rule struct {
	message string
	check   func(v any) bool
}

// Message returns the text reported when the rule fails.
func (r Rule) Message() string { return r.message }

// Required fails on a missing value or an empty string.
func Required(message string) Rule {
	return Rule{message: message, check: func(v any) bool {
		if v == nil {
			return false
		}
		if s, ok := v.(string); ok && s == "" {
			return false
		}
		return true
	}}
}

// MinLength fails when a string value has fewer than n code points.
// Non-string values are left to other rules.
func MinLength(n int, message string) Rule {
	return Rule{message: message, check: func(v any) bool {
		s, ok := v.(string)
		return !ok || utf8.RuneCountInString(s) >= n
	}}
}

// MaxLength fails when a string value has more than n code points.
func MaxLength(n int, message string) Rule {
	return Rule{message: message, check: func(v any) bool {
		s, ok := v.(string)
		return !ok || utf8.RuneCountInString(s) <= n
	}}
}

// PositiveInteger fails unless the value is a whole number greater than zero.
func PositiveInteger(message string) Rule {
	return Rule{message: message, check: func(v any) bool {
		f, ok := v.(float64)
		if !ok {
			return false
		}
		return f > 0 && f == math.Trunc(f) && f <= math.MaxInt32
	}}
}

// Normalizer converts a raw decoded value into the form rules operate on.
type Normalizer func(v any) any

// TrimString trims surrounding whitespace. Numbers are rendered as strings;
// any other non-string value normalizes to nil (treated as missing).
func TrimString(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return nil
	}
}

// Number coerces numeric input to float64. Numeric strings are parsed;
// blank strings normalize to "" so Required reports them as missing.
// Unparseable strings are returned unchanged and fail numeric rules.
func Number(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return ""
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return s
		}
		return f
	default:
		return t
	}
}

// Field describes one named input and its ordered rules.
type Field struct {
	Name      string
	Normalize Normalizer
	Rules     []Rule
}

// String declares a trimmed string field.
func String(name string, rules ...Rule) Field {
	return Field{Name: name, Normalize: TrimString, Rules: rules}
}

// Integer declares a numeric field.
func Integer(name string, rules ...Rule) Field {
	return Field{Name: name, Normalize: Number, Rules: rules}
}

// check returns the normalized value and the first failing message, if any.
func (f Field) check(raw map[string]any) (any, string, bool) {
	v := raw[f.Name]
	if f.Normalize != nil {
		v = f.Normalize(v)
	}
	for _, r := range f.Rules {
		if !r.check(v) {
			return v, r.message, false
		}
	}
	return v, "", true
}

// Values holds the normalized values of a successfully validated input.
type Values map[string]any

func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

func (v Values) Int(name string) int {
	f, _ := v[name].(float64)
	return int(f)
}

// Schema validates raw input and builds a typed value from it.
type Schema[T any] struct {
	fields []Field
	build  func(Values) T
}

// NewSchema returns a schema over the given fields. Field order is the order
// in which problems are collected.
func NewSchema[T any](build func(Values) T, fields ...Field) *Schema[T] {
	return &Schema[T]{fields: fields, build: build}
}

// Fields lists the field names the schema knows about.
func (s *Schema[T]) Fields() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Validate runs every field of the schema. On success it returns the built
// value and a nil error; otherwise it returns the zero value and Errors.
func (s *Schema[T]) Validate(raw map[string]any) (T, error) {
	var zero T

	values := make(Values, len(s.fields))
	errs := Errors{}
	for _, f := range s.fields {
		v, msg, ok := f.check(raw)
		if !ok {
			if _, seen := errs[f.Name]; !seen {
				errs[f.Name] = msg
			}
			continue
		}
		values[f.Name] = v
	}

	if len(errs) > 0 {
		return zero, errs
	}
	return s.build(values), nil
}

// ValidateField applies the schema's rules for a single field of candidate.
func (s *Schema[T]) ValidateField(name string, candidate map[string]any) error {
	for _, f := range s.fields {
		if f.Name != name {
			continue
		}
		if _, msg, ok := f.check(candidate); !ok {
			return &FieldError{Field: name, Message: msg}
		}
		return nil
	}
	return fmt.Errorf("validation: unknown field %q", name)
}
