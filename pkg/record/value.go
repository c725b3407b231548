// Package record models the loosely-typed records that flow through the
// platform's data sources. Field values are a closed tagged union so that
// diff equality and display formatting are exhaustively matchable instead
// of relying on runtime duck-typing.
package record

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind is the runtime type tag of a field value.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindNull    Kind = "null"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
)

// Value is a single field value. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	obj  map[string]Value
	arr  []Value
}

// String returns a string-kinded value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a number-kinded value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean-kinded value.
func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Object returns an object-kinded value.
func Object(m map[string]Value) Value { return Value{kind: KindObject, obj: m} }

// Array returns an array-kinded value.
func Array(vs []Value) Value { return Value{kind: KindArray, arr: vs} }

// Kind returns the type tag of the value.
func (v Value) Kind() Kind {
	if v.kind == "" {
		return KindNull
	}
	return v.kind
}

// IsEmpty reports whether the value is the empty sentinel: null or the
// empty string. Diffing treats all empty sentinels as equal.
func (v Value) IsEmpty() bool {
	switch v.Kind() {
	case KindNull:
		return true
	case KindString:
		return v.str == ""
	}
	return false
}

// Canonical returns the canonical string representation used for equality.
// Numbers use the shortest representation that round-trips (so 5.0 and 5
// canonicalize identically); objects and arrays use compact JSON with
// sorted keys.
func (v Value) Canonical() string {
	switch v.Kind() {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindNull:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// Display returns the human-facing rendering of the value used in
// field-change output. Empty sentinels render as "(empty)".
func (v Value) Display() string {
	if v.IsEmpty() {
		return "(empty)"
	}
	return v.Canonical()
}

// Equal reports whether two values are equal under the diff rules:
// both empty sentinels, or numerically equal numbers, or matching
// canonical string representations.
func Equal(a, b Value) bool {
	if a.IsEmpty() && b.IsEmpty() {
		return true
	}
	if a.Kind() == KindNumber && b.Kind() == KindNumber {
		return a.num == b.num
	}
	return a.Canonical() == b.Canonical()
}

// FromAny converts a decoded JSON value (as produced by encoding/json
// into any) to a Value.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case float64:
		return Number(t)
	case bool:
		return Bool(t)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = FromAny(e)
		}
		return Object(m)
	case []any:
		vs := make([]Value, len(t))
		for i, e := range t {
			vs[i] = FromAny(e)
		}
		return Array(vs)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind() {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBoolean:
		return json.Marshal(v.b)
	case KindNull:
		return []byte("null"), nil
	case KindObject:
		// Emit keys in sorted order for a deterministic encoding.
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, _ := json.Marshal(k)
			vb, err := json.Marshal(v.obj[k])
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			buf = append(buf, vb...)
		}
		return append(buf, '}'), nil
	case KindArray:
		buf := []byte{'['}
		for i, e := range v.arr {
			if i > 0 {
				buf = append(buf, ',')
			}
			eb, err := json.Marshal(e)
			if err != nil {
				return nil, err
			}
			buf = append(buf, eb...)
		}
		return append(buf, ']'), nil
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}
