package container

import (
	"fmt"
	"slices"

	"github.com/roach88/northwind/internal/ir"
	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/predicate"
	"github.com/roach88/northwind/internal/schema"
)

// Get returns a copy of the entity with the given identity.
func (c *Container) Get(id model.ID) (model.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cur.objects[id]
	if !ok {
		return nil, notFound(id)
	}
	return model.Clone(e), nil
}

// Lookup returns a typed copy of the entity with the given identity.
func Lookup[T model.Entity](c *Container, id model.ID) (T, error) {
	var zero T
	e, err := c.Get(id)
	if err != nil {
		return zero, err
	}
	t, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %s", ErrWrongType, id, e.EntityType())
	}
	return t, nil
}

// ids returns the identities of type t in order. Callers hold c.mu.
func (c *Container) ids(t schema.EntityType) []model.ID {
	var ids []model.ID
	for id, e := range c.cur.objects {
		if e.EntityType() == t {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// List returns copies of every entity of type t, ordered by identity.
func (c *Container) List(t schema.EntityType) []model.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.ids(t)
	out := make([]model.Entity, len(ids))
	for i, id := range ids {
		out[i] = model.Clone(c.cur.objects[id])
	}
	return out
}

// Count returns the number of entities of type t.
func (c *Container) Count(t schema.EntityType) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.cur.objects {
		if e.EntityType() == t {
			n++
		}
	}
	return n
}

// Related returns copies of the targets of the named edge, ordered by
// identity.
func (c *Container) Related(id model.ID, edge string) ([]model.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.cur.links.Edge(id, edge); err != nil {
		return nil, err
	}
	targets := c.cur.links.Targets(id, edge)
	out := make([]model.Entity, len(targets))
	for i, t := range targets {
		out[i] = model.Clone(c.cur.objects[t])
	}
	return out, nil
}

// RelatedOne returns the target of a to-one edge. ok is false when the edge
// is empty.
func (c *Container) RelatedOne(id model.ID, edge string) (e model.Entity, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.cur.links.Edge(id, edge); err != nil {
		return nil, false, err
	}
	target, ok := c.cur.links.Target(id, edge)
	if !ok {
		return nil, false, nil
	}
	return model.Clone(c.cur.objects[target]), true, nil
}

// RelatedIDs returns the target identities of the named edge, ordered.
func (c *Container) RelatedIDs(id model.ID, edge string) ([]model.ID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.cur.links.Edge(id, edge); err != nil {
		return nil, err
	}
	return c.cur.links.Targets(id, edge), nil
}

// Fetch returns copies of the entities of type t matching p, ordered by
// identity. Field names in p are resolved through the registry, so an
// unknown name fails with a registry.UnknownFieldError.
func (c *Container) Fetch(t schema.EntityType, p predicate.Predicate) ([]model.Entity, error) {
	bound, err := predicate.Bind(c.reg, t, p)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", t, err)
	}
	return c.FetchBound(bound)
}

// FetchBound is Fetch for an already bound predicate.
func (c *Container) FetchBound(b *predicate.Bound) ([]model.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []model.Entity
	for _, id := range c.ids(b.Entity) {
		e := c.cur.objects[id]
		ok, err := b.Match(e)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", b.Entity, err)
		}
		if ok {
			out = append(out, model.Clone(e))
		}
	}
	return out, nil
}

// ByNaturalKey finds the entity of type t whose natural key equals v. The
// value is coerced to the key's kind, so a string works for any key.
func (c *Container) ByNaturalKey(t schema.EntityType, v ir.Value) (model.Entity, error) {
	acc, ok, err := c.reg.NaturalKey(t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s has no natural key", t)
	}
	key, err := ir.Coerce(v, acc.Kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", acc.Key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id, found, err := c.cur.keys.lookup(t, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s with %s %v", ErrNotFound, t, acc.Name, key)
	}
	return model.Clone(c.cur.objects[id]), nil
}
