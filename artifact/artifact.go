// Package artifact implements the structured working-memory container a guided
// conversation progressively fills in. The artifact's schema (field names,
// types, descriptions) is fixed at construction and compiled into a validator
// table; field values are only ever mutated through validated updates proposed
// by the reasoning step. A field that has not been filled yet renders as the
// Unanswered sentinel.
package artifact

import (
	"fmt"
	"strconv"
	"strings"
)

// Unanswered is the sentinel shown for fields that have no value yet.
const Unanswered = "Unanswered"

// FieldType is the closed set of types an artifact field can declare.
type FieldType string

const (
	// FieldString holds free text.
	FieldString FieldType = "string"
	// FieldNumber holds a float64.
	FieldNumber FieldType = "number"
	// FieldBool holds a boolean.
	FieldBool FieldType = "boolean"
	// FieldStringList holds an ordered sequence of strings.
	FieldStringList FieldType = "string_list"
	// FieldEnum holds one value from a declared set of choices.
	FieldEnum FieldType = "enum"
)

// FieldSpec describes one artifact field. Specs never change after the schema
// is compiled.
type FieldSpec struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Description string    `json:"description" yaml:"description"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Choices     []string  `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// Schema is the ordered list of field specs an artifact is built from.
type Schema []FieldSpec

// Validate checks the schema is well formed: at least one field, unique
// non-empty names, known types, choices present exactly for enum fields.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("artifact schema must declare at least one field")
	}
	seen := make(map[string]bool, len(s))
	for _, f := range s {
		if f.Name == "" {
			return fmt.Errorf("artifact field with empty name")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate artifact field %q", f.Name)
		}
		seen[f.Name] = true
		switch f.Type {
		case FieldString, FieldNumber, FieldBool, FieldStringList:
			if len(f.Choices) > 0 {
				return fmt.Errorf("artifact field %q: choices only allowed on enum fields", f.Name)
			}
		case FieldEnum:
			if len(f.Choices) == 0 {
				return fmt.Errorf("artifact field %q: enum field requires choices", f.Name)
			}
		default:
			return fmt.Errorf("artifact field %q: unknown type %q", f.Name, f.Type)
		}
	}
	return nil
}

// ValidationError reports a rejected field update: the field, the type its
// schema declares and the value that was offered. The store is unchanged when
// this error is returned.
type ValidationError struct {
	Field    string    `json:"field"`
	Expected FieldType `json:"expected"`
	Received any       `json:"received"`
}

func (e *ValidationError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("unknown artifact field %q", e.Field)
	}
	return fmt.Sprintf("artifact field %q expects %s, got %T (%v)", e.Field, e.Expected, e.Received, e.Received)
}

// Store holds the compiled schema and the current field values. It is owned by
// a single session and accessed sequentially; no locking is required.
type Store struct {
	schema Schema
	byName map[string]FieldSpec
	values map[string]Value
}

// NewStore compiles the schema and returns an empty store (every field
// Unanswered).
func NewStore(schema Schema) (*Store, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	byName := make(map[string]FieldSpec, len(schema))
	for _, f := range schema {
		byName[f.Name] = f
	}
	return &Store{schema: schema, byName: byName, values: make(map[string]Value)}, nil
}

// Schema returns the field specs in declaration order.
func (s *Store) Schema() Schema { return s.schema }

// Get returns the current value for a field and whether it has been answered.
func (s *Store) Get(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// ApplyUpdate validates raw (a JSON-decoded value proposed by the reasoning
// step) against the declared type of field and stores it. On any mismatch a
// *ValidationError is returned and the store is left exactly as it was. Each
// call is atomic at field granularity; callers applying several updates in one
// turn invoke ApplyUpdate once per field.
func (s *Store) ApplyUpdate(field string, raw any) error {
	spec, ok := s.byName[field]
	if !ok {
		return &ValidationError{Field: field, Expected: "", Received: raw}
	}
	v, err := coerce(spec, raw)
	if err != nil {
		return err
	}
	s.values[field] = v
	return nil
}

// Values returns a copy of the answered field values, keyed by field name.
// Used by session snapshots.
func (s *Store) Values() map[string]Value {
	out := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// RestoreValues replaces the current values from a snapshot, validating each
// against the schema.
func (s *Store) RestoreValues(values map[string]Value) error {
	restored := make(map[string]Value, len(values))
	for name, v := range values {
		spec, ok := s.byName[name]
		if !ok {
			return &ValidationError{Field: name, Expected: "", Received: v.Render()}
		}
		if v.kind != spec.Type {
			return &ValidationError{Field: name, Expected: spec.Type, Received: v.Render()}
		}
		restored[name] = v
	}
	s.values = restored
	return nil
}

// RenderForPrompt produces the deterministic field listing included in every
// reasoning request: one "name: value" line per field in schema order, with
// Unanswered shown verbatim for unfilled fields.
func (s *Store) RenderForPrompt() string {
	var b strings.Builder
	for i, f := range s.schema {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		if v, ok := s.values[f.Name]; ok {
			b.WriteString(v.Render())
		} else {
			b.WriteString(Unanswered)
		}
	}
	return b.String()
}

// RenderSchemaForPrompt describes the fields to the model: name, type,
// description and enum choices where declared.
func (s *Store) RenderSchemaForPrompt() string {
	var b strings.Builder
	for i, f := range s.schema {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s (%s): %s", f.Name, f.Type, f.Description)
		if f.Type == FieldEnum {
			fmt.Fprintf(&b, " [one of: %s]", strings.Join(f.Choices, ", "))
		}
	}
	return b.String()
}

// coerce converts a JSON-decoded value into a typed Value for spec, or returns
// a *ValidationError describing the mismatch.
func coerce(spec FieldSpec, raw any) (Value, error) {
	mismatch := func() (Value, error) {
		return Value{}, &ValidationError{Field: spec.Name, Expected: spec.Type, Received: raw}
	}
	switch spec.Type {
	case FieldString:
		s, ok := raw.(string)
		if !ok {
			return mismatch()
		}
		return String(s), nil
	case FieldNumber:
		switch n := raw.(type) {
		case float64:
			return Number(n), nil
		case int:
			return Number(float64(n)), nil
		}
		return mismatch()
	case FieldBool:
		b, ok := raw.(bool)
		if !ok {
			return mismatch()
		}
		return Bool(b), nil
	case FieldStringList:
		switch list := raw.(type) {
		case []string:
			return StringList(list), nil
		case []any:
			out := make([]string, len(list))
			for i, item := range list {
				s, ok := item.(string)
				if !ok {
					return mismatch()
				}
				out[i] = s
			}
			return StringList(out), nil
		}
		return mismatch()
	case FieldEnum:
		s, ok := raw.(string)
		if !ok {
			return mismatch()
		}
		for _, c := range spec.Choices {
			if s == c {
				return Enum(s), nil
			}
		}
		return mismatch()
	}
	return mismatch()
}

// formatNumber renders a number without a trailing ".000000" for integral values.
func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
