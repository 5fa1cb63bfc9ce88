// Package payload models free-form event data as an ordered structured value
// with a single deterministic JSON encoding.
package payload

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/tidwall/gjson"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a JSON-compatible value. Numbers keep their literal text so that
// decoding and re-encoding a stored payload reproduces the same bytes.
// The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	s    string // string contents or number literal
	obj  *Object
	list []Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int wraps an integer.
func Int(n int64) Value { return Value{kind: KindNumber, s: strconv.FormatInt(n, 10)} }

// Float wraps a float. NaN and infinities have no JSON form and become null.
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	b, _ := json.Marshal(f)
	return Value{kind: KindNumber, s: string(b)}
}

// Number wraps a JSON number literal such as "12", "-0.5" or "1e9".
func Number(literal string) (Value, error) {
	if !gjson.Valid(literal) || gjson.Parse(literal).Type != gjson.Number {
		return Value{}, &InvalidNumberError{Literal: literal}
	}
	return Value{kind: KindNumber, s: literal}, nil
}

// ObjectValue wraps an object. A nil object is treated as empty.
func ObjectValue(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

// List wraps a sequence of values.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string contents when v is a string.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Boolean returns the boolean when v is a bool.
func (v Value) Boolean() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Literal returns the number literal when v is a number.
func (v Value) Literal() (string, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return v.s, true
}

// Object returns the object when v is an object.
func (v Value) Object() (*Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// Items returns the elements when v is a list.
func (v Value) Items() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// String returns the canonical JSON text of v.
func (v Value) String() string {
	return string(Canonical(v))
}

// Equal reports whether v and other have the same canonical encoding.
func (v Value) Equal(other Value) bool {
	return string(Canonical(v)) == string(Canonical(other))
}

// Interface converts v to plain Go values: nil, bool, json.Number, string,
// map[string]any and []any. Object order is lost.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return json.Number(v.s)
	case KindString:
		return v.s
	case KindObject:
		m := make(map[string]any, v.obj.Len())
		for _, mb := range v.obj.members {
			m[mb.Key] = mb.Value.Interface()
		}
		return m
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes v canonically.
func (v Value) MarshalJSON() ([]byte, error) {
	return Canonical(v), nil
}

// UnmarshalJSON decodes data preserving object member order.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// InvalidNumberError reports a malformed number literal.
type InvalidNumberError struct {
	Literal string
}

func (e *InvalidNumberError) Error() string {
	return "payload: invalid number literal " + strconv.Quote(e.Literal)
}
