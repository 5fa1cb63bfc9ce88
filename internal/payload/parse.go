package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"
)

var (
	ErrInvalidJSON = errors.New("payload: invalid json")
	ErrNotObject   = errors.New("payload: not a json object")
	ErrNonFinite   = errors.New("payload: non-finite number")
)

// Parse decodes JSON text. Object members keep their document order and
// numbers keep their literal text.
func Parse(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return Value{}, ErrInvalidJSON
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// ParseObject decodes JSON text that must be an object.
func ParseObject(data []byte) (*Object, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	o, ok := v.Object()
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrNotObject, v.Kind())
	}
	return o, nil
}

func fromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		return Value{kind: KindNumber, s: r.Raw}
	case gjson.String:
		return String(r.Str)
	case gjson.JSON:
		if r.IsArray() {
			items := []Value{}
			r.ForEach(func(_, item gjson.Result) bool {
				items = append(items, fromResult(item))
				return true
			})
			return List(items...)
		}
		o := NewObject()
		r.ForEach(func(key, item gjson.Result) bool {
			o.Set(key.Str, fromResult(item))
			return true
		})
		return ObjectValue(o)
	default:
		return Null()
	}
}

// FromAny converts a Go value. Keys of Go maps are sorted because maps carry
// no order; use Object to control member order. Types not handled directly
// go through encoding/json, so structs keep their field order.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Object:
		return ObjectValue(t), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Value{kind: KindNumber, s: strconv.FormatUint(uint64(t), 10)}, nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Value{kind: KindNumber, s: strconv.FormatUint(t, 10)}, nil
	case float32:
		return fromFloat(float64(t))
	case float64:
		return fromFloat(t)
	case json.Number:
		return Number(t.String())
	case json.RawMessage:
		return Parse(t)
	case map[string]any:
		o := NewObject()
		for _, k := range sortedKeys(t) {
			v, err := FromAny(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			o.Set(k, v)
		}
		return ObjectValue(o), nil
	case map[string]string:
		o := NewObject()
		for _, k := range sortedKeys(t) {
			o.Set(k, String(t[k]))
		}
		return ObjectValue(o), nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, v)
		}
		return List(items...), nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return List(items...), nil
	}

	if rv := reflect.ValueOf(x); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return Null(), nil
	}

	b, err := json.Marshal(x)
	if err != nil {
		return Value{}, fmt.Errorf("payload.FromAny: %w", err)
	}
	return Parse(b)
}

// ObjectFromMap converts a Go map into an object with sorted keys.
func ObjectFromMap(m map[string]any) (*Object, error) {
	v, err := FromAny(m)
	if err != nil {
		return nil, err
	}
	o, _ := v.Object()
	return o, nil
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, ErrNonFinite
	}
	return Float(f), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
