package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a decoded JSON document. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	n    json.Number
	s    string
	arr  []Value
	obj  map[string]Value
}

var errTrailingData = errors.New("value: trailing data after document")

// EmptyObject returns an object with no members.
func EmptyObject() Value {
	return Value{kind: Object, obj: map[string]Value{}}
}

// Parse decodes exactly one JSON document from data.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, errTrailingData
	}
	return fromDecoded(raw), nil
}

// ParseOrEmpty decodes data and falls back to an empty object when data is
// empty or not valid JSON.
func ParseOrEmpty(data []byte) Value {
	v, err := Parse(data)
	if err != nil {
		return EmptyObject()
	}
	return v
}

// Of converts a Go value into a Value. Values that cannot be represented as
// JSON become Null.
func Of(x any) Value {
	switch t := x.(type) {
	case nil:
		return Value{}
	case Value:
		return t
	case *Value:
		if t == nil {
			return Value{}
		}
		return *t
	case bool:
		return Value{kind: Bool, b: t}
	case string:
		return Value{kind: String, s: t}
	case json.Number:
		return Value{kind: Number, n: t}
	case int:
		return numberOf(strconv.FormatInt(int64(t), 10))
	case int32:
		return numberOf(strconv.FormatInt(int64(t), 10))
	case int64:
		return numberOf(strconv.FormatInt(t, 10))
	case uint:
		return numberOf(strconv.FormatUint(uint64(t), 10))
	case uint64:
		return numberOf(strconv.FormatUint(t, 10))
	case float32:
		return floatOf(float64(t), 32)
	case float64:
		return floatOf(t, 64)
	case []any:
		out := make([]Value, 0, len(t))
		for _, e := range t {
			out = append(out, Of(e))
		}
		return Value{kind: Array, arr: out}
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			out[k] = Of(e)
		}
		return Value{kind: Object, obj: out}
	case map[string]string:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			out[k] = Value{kind: String, s: e}
		}
		return Value{kind: Object, obj: out}
	case json.RawMessage:
		v, err := Parse(t)
		if err != nil {
			return Value{}
		}
		return v
	}
	// structs, typed maps and slices go through their JSON form
	b, err := json.Marshal(x)
	if err != nil {
		return Value{}
	}
	v, err := Parse(b)
	if err != nil {
		return Value{}
	}
	return v
}

// floatOf maps NaN and the infinities to Null; JSON has no literal for them.
func floatOf(f float64, bits int) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return numberOf(strconv.FormatFloat(f, 'g', -1, bits))
}

func numberOf(s string) Value {
	return Value{kind: Number, n: json.Number(s)}
}

func fromDecoded(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Value{}
	case bool:
		return Value{kind: Bool, b: t}
	case json.Number:
		return Value{kind: Number, n: t}
	case string:
		return Value{kind: String, s: t}
	case []any:
		out := make([]Value, 0, len(t))
		for _, e := range t {
			out = append(out, fromDecoded(e))
		}
		return Value{kind: Array, arr: out}
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			out[k] = fromDecoded(e)
		}
		return Value{kind: Object, obj: out}
	}
	return Value{}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsObject() bool  { return v.kind == Object }
func (v Value) Bool() bool      { return v.kind == Bool && v.b }
func (v Value) Str() string     { return v.s }
func (v Value) Items() []Value  { return v.arr }
func (v Value) Number() float64 { f, _ := v.n.Float64(); return f }

// Len reports the number of members of an object or elements of an array.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.arr)
	case Object:
		return len(v.obj)
	}
	return 0
}

// Get returns the member named key of an object.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	m, ok := v.obj[key]
	return m, ok
}

// Keys returns object member names in sorted order.
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Interface converts v back into plain Go values the way encoding/json
// decodes into an empty interface (numbers become float64).
func (v Value) Interface() any {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		return v.Number()
	case String:
		return v.s
	case Array:
		out := make([]any, 0, len(v.arr))
		for _, e := range v.arr {
			out = append(out, e.Interface())
		}
		return out
	case Object:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.Interface()
		}
		return out
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Null:
		return []byte("null"), nil
	case Bool:
		return strconv.AppendBool(nil, v.b), nil
	case Number:
		if v.n == "" {
			return []byte("0"), nil
		}
		return []byte(v.n), nil
	case String:
		return json.Marshal(v.s)
	case Array:
		if v.arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.arr)
	case Object:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.obj)
	}
	return nil, fmt.Errorf("value: unknown kind %d", v.kind)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
