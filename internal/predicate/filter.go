package predicate

import (
	"fmt"

	"github.com/roach88/northwind/internal/ir"
	"github.com/roach88/northwind/internal/schema"
)

// Filter is a named, saved predicate over one entity type.
type Filter struct {
	Name      string
	Entity    schema.EntityType
	Predicate Predicate
}

func (f Filter) value() (ir.Object, error) {
	p, err := ToValue(f.Predicate)
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", f.Name, err)
	}
	return ir.Object{
		"name":      ir.String(f.Name),
		"entity":    ir.String(string(f.Entity)),
		"predicate": p,
	}, nil
}

// MarshalFilter encodes f as canonical JSON.
func MarshalFilter(f Filter) ([]byte, error) {
	v, err := f.value()
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(v)
}

// UnmarshalFilter decodes a filter produced by MarshalFilter.
func UnmarshalFilter(data []byte) (Filter, error) {
	v, err := ir.UnmarshalValue(data)
	if err != nil {
		return Filter{}, fmt.Errorf("decode filter: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return Filter{}, fmt.Errorf("filter must be an object")
	}
	name, err := stringField(obj, "name")
	if err != nil {
		return Filter{}, err
	}
	entity, err := stringField(obj, "entity")
	if err != nil {
		return Filter{}, err
	}
	raw, ok := obj["predicate"]
	if !ok {
		return Filter{}, fmt.Errorf("filter %q: missing predicate", name)
	}
	p, err := FromValue(raw)
	if err != nil {
		return Filter{}, fmt.Errorf("filter %q: %w", name, err)
	}
	return Filter{Name: name, Entity: schema.EntityType(entity), Predicate: p}, nil
}

// Fingerprint identifies the filter's content. Two filters with the same
// name, entity and predicate tree share a fingerprint regardless of how
// their JSON was formatted.
func (f Filter) Fingerprint() (string, error) {
	v, err := f.value()
	if err != nil {
		return "", err
	}
	return ir.Fingerprint(ir.DomainFilter, v)
}
