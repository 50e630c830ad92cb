package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies the JSON type held by a Value
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
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
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Object is an ordered mapping of keys to values
type Object = orderedmap.OrderedMap[string, Value]

// Value is a single decoded JSON value.
// The zero Value is null.
type Value struct {
	kind Kind
	text string // string contents or number literal
	b    bool
	obj  *Object
	arr  []Value
}

// Pair is one entry of a telemetry message, shown as one card.
type Pair struct {
	Label string
	Value Value
}

func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func String(s string) Value { return Value{kind: KindString, text: s} }

// Number builds a number from its JSON literal. The literal is kept as is,
// including literals beyond the float64 range.
func Number(literal string) (Value, error) {
	if _, err := strconv.ParseFloat(literal, 64); err != nil && !errors.Is(err, strconv.ErrRange) {
		return Value{}, fmt.Errorf("invalid number %q: %w", literal, err)
	}
	return Value{kind: KindNumber, text: literal}, nil
}

// NewObject wraps an ordered map. A nil map yields an empty object.
func NewObject(om *Object) Value {
	if om == nil {
		om = orderedmap.New[string, Value]()
	}
	return Value{kind: KindObject, obj: om}
}

func NewArray(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, arr: items}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool reports the boolean held by v; false for any other kind.
func (v Value) Bool() bool { return v.kind == KindBool && v.b }

// Object returns the ordered map held by v, or nil.
func (v Value) Object() *Object {
	if v.kind != KindObject {
		return nil
	}
	return v.obj
}

// Array returns the items held by v, or nil.
func (v Value) Array() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// String returns the text a card shows for v.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber, KindString:
		return v.text
	default:
		data, err := v.MarshalJSON()
		if err != nil {
			return fmt.Sprintf("<%s: %v>", v.kind, err)
		}
		return string(data)
	}
}

// MarshalJSON encodes v compactly, keeping object key order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(v.text)
	case KindString:
		data, err := json.Marshal(v.text)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindObject:
		buf.WriteByte('{')
		if v.obj != nil {
			first := true
			for p := v.obj.Oldest(); p != nil; p = p.Next() {
				if !first {
					buf.WriteByte(',')
				}
				first = false
				key, err := json.Marshal(p.Key)
				if err != nil {
					return err
				}
				buf.Write(key)
				buf.WriteByte(':')
				if err := p.Value.encode(buf); err != nil {
					return err
				}
			}
		}
		buf.WriteByte('}')
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("cannot encode %s", v.kind)
	}
	return nil
}

// UnmarshalJSON decodes any JSON value into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
