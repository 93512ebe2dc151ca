package artifact

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Value is the tagged union holding one artifact field value. The zero Value
// is invalid; construct through String, Number, Bool, StringList or Enum.
// Absence (Unanswered) is modeled by the field simply not being present in the
// store, never by a Value variant.
type Value struct {
	kind    FieldType
	str     string
	num     float64
	boolean bool
	list    []string
}

// String wraps free text.
func String(s string) Value { return Value{kind: FieldString, str: s} }

// Number wraps a float64.
func Number(n float64) Value { return Value{kind: FieldNumber, num: n} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: FieldBool, boolean: b} }

// StringList wraps an ordered sequence of strings. The slice is copied.
func StringList(items []string) Value {
	out := make([]string, len(items))
	copy(out, items)
	return Value{kind: FieldStringList, list: out}
}

// Enum wraps a choice from an enum field's declared set. Membership is checked
// by Store.ApplyUpdate, not here.
func Enum(choice string) Value { return Value{kind: FieldEnum, str: choice} }

// Kind returns the variant tag.
func (v Value) Kind() FieldType { return v.kind }

// AsString returns the text payload of a string or enum value.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == FieldString || v.kind == FieldEnum
}

// AsNumber returns the numeric payload.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == FieldNumber }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.boolean, v.kind == FieldBool }

// AsStringList returns a copy of the list payload.
func (v Value) AsStringList() ([]string, bool) {
	if v.kind != FieldStringList {
		return nil, false
	}
	out := make([]string, len(v.list))
	copy(out, v.list)
	return out, true
}

// Render produces the deterministic textual form used in prompt construction.
func (v Value) Render() string {
	switch v.kind {
	case FieldString, FieldEnum:
		return v.str
	case FieldNumber:
		return formatNumber(v.num)
	case FieldBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case FieldStringList:
		return "[" + strings.Join(v.list, "; ") + "]"
	}
	return ""
}

// valueJSON is the wire form for Value: the variant tag plus its payload.
type valueJSON struct {
	Type   FieldType `json:"type"`
	String *string   `json:"string,omitempty"`
	Number *float64  `json:"number,omitempty"`
	Bool   *bool     `json:"bool,omitempty"`
	List   []string  `json:"list,omitempty"`
}

// MarshalJSON implements json.Marshaler so snapshots round-trip typed values.
func (v Value) MarshalJSON() ([]byte, error) {
	w := valueJSON{Type: v.kind}
	switch v.kind {
	case FieldString, FieldEnum:
		w.String = &v.str
	case FieldNumber:
		w.Number = &v.num
	case FieldBool:
		w.Bool = &v.boolean
	case FieldStringList:
		w.List = v.list
		if w.List == nil {
			w.List = []string{}
		}
	default:
		return nil, fmt.Errorf("cannot marshal zero artifact value")
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w valueJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Type {
	case FieldString, FieldEnum:
		if w.String == nil {
			return fmt.Errorf("artifact value of type %s missing string payload", w.Type)
		}
		*v = Value{kind: w.Type, str: *w.String}
	case FieldNumber:
		if w.Number == nil {
			return fmt.Errorf("artifact value of type number missing payload")
		}
		*v = Number(*w.Number)
	case FieldBool:
		if w.Bool == nil {
			return fmt.Errorf("artifact value of type boolean missing payload")
		}
		*v = Bool(*w.Bool)
	case FieldStringList:
		*v = StringList(w.List)
	default:
		return fmt.Errorf("unknown artifact value type %q", w.Type)
	}
	return nil
}
