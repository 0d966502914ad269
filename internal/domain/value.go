package domain

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// Kind tags the dynamic type carried by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindString
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single provider result: a scalar, an ordered list, or an object
// whose fields keep insertion order. The zero Value is null.
type Value struct {
	items  []Value
	fields []Field
	s      string
	i      int64
	kind   Kind
	b      bool
}

// Field is one key of an object Value.
type Field struct {
	Key   string
	Value Value
}

// F is shorthand for building object fields.
func F(key string, v Value) Field {
	return Field{Key: key, Value: v}
}

func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Int(n int64) Value { return Value{kind: KindInt, i: n} }

func String(s string) Value { return Value{kind: KindString, s: s} }

// List builds a list value; an empty call yields an empty list, not null.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, items: cp}
}

// Ints builds a list of integers.
func Ints(ns []int) Value {
	items := make([]Value, len(ns))
	for i, n := range ns {
		items[i] = Int(int64(n))
	}
	return Value{kind: KindList, items: items}
}

// Object builds an object value. A repeated key overwrites the earlier field in place.
func Object(fields ...Field) Value {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		replaced := false
		for i := range out {
			if out[i].Key == f.Key {
				out[i].Value = f.Value
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, f)
		}
	}
	return Value{kind: KindObject, fields: out}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload and whether v is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer payload and whether v is an int.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsString returns the string payload and whether v is a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// Len reports the number of list items or object fields.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.items)
	case KindObject:
		return len(v.fields)
	default:
		return 0
	}
}

// Index returns the i-th list item, or null when out of range.
func (v Value) Index(i int) Value {
	if v.kind != KindList || i < 0 || i >= len(v.items) {
		return Null()
	}
	return v.items[i]
}

// Lookup returns the named object field.
func (v Value) Lookup(key string) (Value, bool) {
	if v.kind != KindObject {
		return Null(), false
	}
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Null(), false
}

// Keys returns object keys in insertion order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, len(v.fields))
	for i, f := range v.fields {
		keys[i] = f.Key
	}
	return keys
}

// Interface converts v into plain Go values (nil, bool, int64, string, []any, map[string]any).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.fields))
		for _, f := range v.fields {
			out[f.Key] = f.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes v, keeping object fields in insertion order.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.appendJSON(make([]byte, 0, 64))
}

func (v Value) appendJSON(buf []byte) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(buf, "null"...), nil
	case KindBool:
		return strconv.AppendBool(buf, v.b), nil
	case KindInt:
		return strconv.AppendInt(buf, v.i, 10), nil
	case KindString:
		return appendJSONString(buf, v.s)
	case KindList:
		buf = append(buf, '[')
		for i, it := range v.items {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			if buf, err = it.appendJSON(buf); err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	case KindObject:
		return appendJSONObject(buf, v.fields)
	default:
		return nil, fmt.Errorf("encode value: unsupported %s", v.kind)
	}
}

func appendJSONObject(buf []byte, fields []Field) ([]byte, error) {
	buf = append(buf, '{')
	for i, f := range fields {
		if i > 0 {
			buf = append(buf, ',')
		}
		var err error
		if buf, err = appendJSONString(buf, f.Key); err != nil {
			return nil, err
		}
		buf = append(buf, ':')
		if buf, err = f.Value.appendJSON(buf); err != nil {
			return nil, err
		}
	}
	return append(buf, '}'), nil
}

func appendJSONString(buf []byte, s string) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return append(buf, b...), nil
}
