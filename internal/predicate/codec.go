package predicate

import (
	"fmt"

	"github.com/roach88/northwind/internal/ir"
)

// ToValue renders p as a tagged object tree:
//
//	{"op":"eq","field":"northwind.Product.name","value":"Chai"}
//	{"op":"and","predicates":[...]}
//
// Literal values keep their canonical encoding, so a decimal literal is a
// string and is narrowed back to a decimal when the predicate is bound.
func ToValue(p Predicate) (ir.Object, error) {
	switch n := p.(type) {
	case Compare:
		if !n.Op.Valid() {
			return nil, fmt.Errorf("unknown operator %q", string(n.Op))
		}
		return ir.Object{"op": ir.String(n.Op), "field": ir.String(n.Field), "value": orNull(n.Value)}, nil
	case *Compare:
		return ToValue(*n)
	case In:
		values := make(ir.List, len(n.Values))
		for i, v := range n.Values {
			values[i] = orNull(v)
		}
		return ir.Object{"op": ir.String("in"), "field": ir.String(n.Field), "values": values}, nil
	case *In:
		return ToValue(*n)
	case IsNull:
		return ir.Object{"op": ir.String("isNull"), "field": ir.String(n.Field)}, nil
	case *IsNull:
		return ToValue(*n)
	case Contains:
		return ir.Object{"op": ir.String("contains"), "field": ir.String(n.Field), "substring": ir.String(n.Substring)}, nil
	case *Contains:
		return ToValue(*n)
	case And:
		return group("and", n.Predicates)
	case *And:
		return group("and", n.Predicates)
	case Or:
		return group("or", n.Predicates)
	case *Or:
		return group("or", n.Predicates)
	case Not:
		inner, err := ToValue(n.Predicate)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		return ir.Object{"op": ir.String("not"), "predicate": inner}, nil
	case *Not:
		return ToValue(*n)
	case nil:
		return nil, fmt.Errorf("nil predicate")
	}
	return nil, fmt.Errorf("unsupported predicate type: %T", p)
}

func orNull(v ir.Value) ir.Value {
	if v == nil {
		return ir.Null{}
	}
	return v
}

func group(op string, ps []Predicate) (ir.Object, error) {
	list := make(ir.List, len(ps))
	for i, p := range ps {
		v, err := ToValue(p)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", op, i, err)
		}
		list[i] = v
	}
	return ir.Object{"op": ir.String(op), "predicates": list}, nil
}

// Marshal encodes p as canonical JSON.
func Marshal(p Predicate) ([]byte, error) {
	v, err := ToValue(p)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(v)
}

// Unmarshal decodes a predicate produced by Marshal.
func Unmarshal(data []byte) (Predicate, error) {
	v, err := ir.UnmarshalValue(data)
	if err != nil {
		return nil, fmt.Errorf("decode predicate: %w", err)
	}
	return FromValue(v)
}

// FromValue is the inverse of ToValue.
func FromValue(v ir.Value) (Predicate, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("predicate must be an object, got %s", v.Kind())
	}
	op, err := stringField(obj, "op")
	if err != nil {
		return nil, err
	}

	switch op {
	case "in":
		field, err := stringField(obj, "field")
		if err != nil {
			return nil, err
		}
		list, ok := obj["values"].(ir.List)
		if !ok {
			return nil, fmt.Errorf("in: values must be a list")
		}
		return In{Field: field, Values: []ir.Value(list)}, nil
	case "isNull":
		field, err := stringField(obj, "field")
		if err != nil {
			return nil, err
		}
		return IsNull{Field: field}, nil
	case "contains":
		field, err := stringField(obj, "field")
		if err != nil {
			return nil, err
		}
		sub, err := stringField(obj, "substring")
		if err != nil {
			return nil, err
		}
		return Contains{Field: field, Substring: sub}, nil
	case "and", "or":
		list, ok := obj["predicates"].(ir.List)
		if !ok {
			return nil, fmt.Errorf("%s: predicates must be a list", op)
		}
		kids := make([]Predicate, len(list))
		for i, item := range list {
			if kids[i], err = FromValue(item); err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", op, i, err)
			}
		}
		if op == "and" {
			return And{Predicates: kids}, nil
		}
		return Or{Predicates: kids}, nil
	case "not":
		inner, ok := obj["predicate"]
		if !ok {
			return nil, fmt.Errorf("not: missing predicate")
		}
		p, err := FromValue(inner)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		return Not{Predicate: p}, nil
	}

	if !Op(op).Valid() {
		return nil, fmt.Errorf("unknown predicate op %q", op)
	}
	field, err := stringField(obj, "field")
	if err != nil {
		return nil, err
	}
	value, ok := obj["value"]
	if !ok {
		return nil, fmt.Errorf("%s: missing value", op)
	}
	return Compare{Field: field, Op: Op(op), Value: value}, nil
}

func stringField(obj ir.Object, key string) (string, error) {
	s, ok := obj[key].(ir.String)
	if !ok {
		return "", fmt.Errorf("predicate %q must be a string", key)
	}
	return string(s), nil
}
