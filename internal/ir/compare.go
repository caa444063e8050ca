package ir

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrIncomparable is returned by Compare when two values have no order.
var ErrIncomparable = errors.New("values are not comparable")

// Compare orders two scalar values of the same kind. Int and Decimal compare
// numerically with each other. Null, List and Object have no order.
func Compare(a, b Value) (int, error) {
	switch x := a.(type) {
	case String:
		if y, ok := b.(String); ok {
			return strings.Compare(string(x), string(y)), nil
		}
	case Int:
		switch y := b.(type) {
		case Int:
			return cmpInt(int64(x), int64(y)), nil
		case Decimal:
			return decimal.NewFromInt(int64(x)).Cmp(y.Decimal), nil
		}
	case Decimal:
		switch y := b.(type) {
		case Decimal:
			return x.Cmp(y.Decimal), nil
		case Int:
			return x.Cmp(decimal.NewFromInt(int64(y))), nil
		}
	case Bool:
		if y, ok := b.(Bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !bool(x):
				return -1, nil
			}
			return 1, nil
		}
	case Time:
		if y, ok := b.(Time); ok {
			return x.Time.Compare(y.Time), nil
		}
	case Bytes:
		if y, ok := b.(Bytes); ok {
			return bytes.Compare(x, y), nil
		}
	}
	return 0, fmt.Errorf("%w: %s and %s", ErrIncomparable, kindOf(a), kindOf(b))
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func kindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

// Equal reports deep equality. Null equals only Null, and Int(2) equals a
// Decimal of 2.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch x := a.(type) {
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Object:
		y, ok := b.(Object)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	}
	c, err := Compare(a, b)
	return err == nil && c == 0
}

// Coerce narrows a loosely decoded value to kind k. Strings are parsed into
// decimals, times and bytes; integers widen to decimals; integral decimals
// narrow to ints. Null passes through unchanged.
func Coerce(v Value, k Kind) (Value, error) {
	if IsNull(v) {
		return Null{}, nil
	}
	if v.Kind() == k {
		return v, nil
	}
	switch k {
	case KindDecimal:
		switch x := v.(type) {
		case Int:
			return NewDecimal(decimal.NewFromInt(int64(x))), nil
		case String:
			d, err := decimal.NewFromString(string(x))
			if err != nil {
				return nil, fmt.Errorf("parse decimal %q: %w", string(x), err)
			}
			return NewDecimal(d), nil
		}
	case KindInt:
		if x, ok := v.(Decimal); ok && x.IsInteger() {
			return Int(x.IntPart()), nil
		}
	case KindTime:
		if x, ok := v.(String); ok {
			t, err := time.Parse(TimeLayout, string(x))
			if err != nil {
				return nil, fmt.Errorf("parse time %q: %w", string(x), err)
			}
			return NewTime(t), nil
		}
	case KindBytes:
		if x, ok := v.(String); ok {
			b, err := base64.StdEncoding.DecodeString(string(x))
			if err != nil {
				return nil, fmt.Errorf("decode bytes: %w", err)
			}
			return Bytes(b), nil
		}
	}
	return nil, fmt.Errorf("cannot use %s value as %s", v.Kind(), k)
}
