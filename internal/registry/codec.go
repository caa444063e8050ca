package registry

import (
	"fmt"

	"github.com/roach88/northwind/internal/ir"
	"github.com/roach88/northwind/internal/model"
)

// Encode renders the attributes of e as an object keyed by storage column.
// Absent optional attributes are omitted.
func (r *Registry) Encode(e model.Entity) (ir.Object, error) {
	set, err := r.Accessors(e.EntityType())
	if err != nil {
		return nil, err
	}
	obj := make(ir.Object, len(set.Accessors))
	for _, a := range set.Accessors {
		v, err := a.Read(e)
		if err != nil {
			return nil, err
		}
		if ir.IsNull(v) {
			continue
		}
		obj[a.Column] = v
	}
	return obj, nil
}

// Decode fills the attributes of e from an object produced by Encode. Values
// are coerced to each attribute's kind, so an object decoded loosely from
// JSON round-trips.
func (r *Registry) Decode(e model.Entity, obj ir.Object) error {
	set, err := r.Accessors(e.EntityType())
	if err != nil {
		return err
	}
	for _, a := range set.Accessors {
		v, ok := obj[a.Column]
		if !ok {
			v = ir.Null{}
		}
		if err := a.Write(e, v); err != nil {
			return fmt.Errorf("decode %s: %w", e.EntityType(), err)
		}
	}
	return nil
}
