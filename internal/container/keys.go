package container

import (
	"fmt"
	"maps"

	"github.com/roach88/northwind/internal/ir"
	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/registry"
	"github.com/roach88/northwind/internal/schema"
)

// keyIndex maps each natural key value, in canonical form, to the entity
// holding it.
type keyIndex struct {
	byType map[schema.EntityType]map[string]model.ID
}

func newKeyIndex() *keyIndex {
	return &keyIndex{byType: make(map[schema.EntityType]map[string]model.ID)}
}

func (k *keyIndex) clone() *keyIndex {
	c := newKeyIndex()
	for t, m := range k.byType {
		c.byType[t] = maps.Clone(m)
	}
	return c
}

// naturalKey returns the canonical natural key of e. ok is false when the
// type has no natural key or the value is null.
func naturalKey(reg *registry.Registry, e model.Entity) (acc *registry.Accessor, key string, ok bool, err error) {
	acc, has, err := reg.NaturalKey(e.EntityType())
	if err != nil || !has {
		return nil, "", false, err
	}
	v, err := acc.Read(e)
	if err != nil || ir.IsNull(v) {
		return nil, "", false, err
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return nil, "", false, fmt.Errorf("%s: %w", acc.Key, err)
	}
	return acc, string(data), true, nil
}

// check fails when another entity already holds e's natural key.
func (k *keyIndex) check(reg *registry.Registry, e model.Entity) error {
	acc, key, ok, err := naturalKey(reg, e)
	if err != nil || !ok {
		return err
	}
	if holder, taken := k.byType[e.EntityType()][key]; taken && holder != e.Identity() {
		return &DuplicateKeyError{Entity: e.EntityType(), Field: acc.Name, Value: key, Existing: holder}
	}
	return nil
}

func (k *keyIndex) add(reg *registry.Registry, e model.Entity) error {
	if err := k.check(reg, e); err != nil {
		return err
	}
	_, key, ok, err := naturalKey(reg, e)
	if err != nil || !ok {
		return err
	}
	m := k.byType[e.EntityType()]
	if m == nil {
		m = make(map[string]model.ID)
		k.byType[e.EntityType()] = m
	}
	m[key] = e.Identity()
	return nil
}

func (k *keyIndex) remove(reg *registry.Registry, e model.Entity) {
	_, key, ok, err := naturalKey(reg, e)
	if err != nil || !ok {
		return
	}
	if k.byType[e.EntityType()][key] == e.Identity() {
		delete(k.byType[e.EntityType()], key)
	}
}

func (k *keyIndex) lookup(t schema.EntityType, v ir.Value) (model.ID, bool, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", false, err
	}
	id, ok := k.byType[t][string(data)]
	return id, ok, nil
}
