package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"
	"unicode/utf16"

	"github.com/shopspring/decimal"
)

// Kind identifies the concrete type behind a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindBool
	KindDecimal
	KindTime
	KindBytes
	KindList
	KindObject
)

var kindNames = [...]string{
	KindNull:    "null",
	KindString:  "string",
	KindInt:     "int",
	KindBool:    "bool",
	KindDecimal: "decimal",
	KindTime:    "time",
	KindBytes:   "bytes",
	KindList:    "list",
	KindObject:  "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return KindNull, fmt.Errorf("unknown value kind %q", s)
}

// Value is a sealed interface over the literal types that entity fields and
// predicate operands may hold. There is deliberately no float kind: money and
// ratios are carried as Decimal so that equality and hashing stay exact.
type Value interface {
	Kind() Kind
	value()
}

// Null is the absent value of an optional field.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) value()     {}

// String is a text value.
type String string

func (String) Kind() Kind { return KindString }
func (String) value()     {}

// Int is a 64-bit integer value.
type Int int64

func (Int) Kind() Kind { return KindInt }
func (Int) value()     {}

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) value()     {}

// Decimal is an exact fixed-point value.
type Decimal struct {
	decimal.Decimal
}

func (Decimal) Kind() Kind { return KindDecimal }
func (Decimal) value()     {}

// NewDecimal wraps d.
func NewDecimal(d decimal.Decimal) Decimal {
	return Decimal{Decimal: d}
}

// Time is an instant, always held in UTC.
type Time struct {
	time.Time
}

func (Time) Kind() Kind { return KindTime }
func (Time) value()     {}

// NewTime normalises t to UTC.
func NewTime(t time.Time) Time {
	return Time{Time: t.UTC()}
}

// Bytes is an opaque binary value such as a picture.
type Bytes []byte

func (Bytes) Kind() Kind { return KindBytes }
func (Bytes) value()     {}

// List is an ordered sequence of values.
type List []Value

func (List) Kind() Kind { return KindList }
func (List) value()     {}

// Object maps string keys to values. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) Kind() Kind { return KindObject }
func (Object) value()     {}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's native string order compares UTF-8 bytes and differs for characters
// outside the BMP.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// UnmarshalValue decodes JSON loosely: integers become Int, numbers with a
// fraction or exponent become Decimal, and every string stays a String.
// Callers that know the target kind narrow the result with Coerce.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromAny(raw)
}

// FromAny converts a decoded JSON tree (decoded with UseNumber) into a Value.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return Int(n), nil
		}
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return nil, fmt.Errorf("number %s: %w", val, err)
		}
		return NewDecimal(d), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			item, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = item
		}
		return list, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			item, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = item
		}
		return obj, nil
	case float32, float64:
		return nil, fmt.Errorf("float %v is not a value; decode with UseNumber", val)
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
