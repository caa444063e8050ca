package container

import (
	"fmt"

	"github.com/roach88/northwind/internal/graph"
	"github.com/roach88/northwind/internal/model"
)

// Insert adds a copy of e and returns its identity. An entity without an
// identity is given a fresh one, which is also written back to e.
func (c *Container) Insert(e model.Entity) (model.ID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readOnly {
		return "", ErrReadOnly
	}
	id := e.Identity()
	if id == "" {
		id = c.opts.NewID()
	}
	if _, taken := c.cur.objects[id]; taken || c.cur.links.Has(id) {
		return "", fmt.Errorf("insert %s: %w: %s", e.EntityType(), ErrIdentityInUse, id)
	}

	stored := model.Clone(e)
	model.AssignID(stored, id)
	if err := c.cur.keys.add(c.reg, stored); err != nil {
		return "", fmt.Errorf("insert %s: %w", e.EntityType(), err)
	}
	model.AssignID(e, id)

	c.cur.objects[id] = stored
	c.cur.links.AddNode(id, stored.EntityType())
	c.pending.inserted.add(id)
	c.pending.edited.add(id)
	c.pending.dirty.add(id)
	c.log.Debug("entity inserted", "entity", string(stored.EntityType()), "id", string(id))
	return id, nil
}

// Update applies fn to a copy of the entity and stores the result. Nothing
// changes when fn returns an error or the edit would duplicate a natural key.
// fn cannot change the entity's identity.
func (c *Container) Update(id model.ID, fn func(model.Entity) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readOnly {
		return ErrReadOnly
	}
	old, ok := c.cur.objects[id]
	if !ok {
		return notFound(id)
	}
	next := model.Clone(old)
	if err := fn(next); err != nil {
		return fmt.Errorf("update %s: %w", id, err)
	}
	model.AssignID(next, id)

	c.cur.keys.remove(c.reg, old)
	if err := c.cur.keys.add(c.reg, next); err != nil {
		// Restore the old key; it was valid a moment ago.
		_ = c.cur.keys.add(c.reg, old)
		return fmt.Errorf("update %s: %w", id, err)
	}
	c.cur.objects[id] = next
	c.pending.edited.add(id)
	c.pending.dirty.add(id)
	return nil
}

// Edit is Update with a typed mutator.
func Edit[T model.Entity](c *Container, id model.ID, fn func(T) error) error {
	return c.Update(id, func(e model.Entity) error {
		t, ok := e.(T)
		if !ok {
			return fmt.Errorf("%w: %s is %s", ErrWrongType, id, e.EntityType())
		}
		return fn(t)
	})
}

// Relate links src to dst over the named edge. The inverse side is updated
// automatically, and a to-one side that pointed elsewhere is moved. Relating
// an already linked pair is a no-op. Acyclic edges such as reportsTo reject
// links that would close a loop with a *graph.CycleError.
func (c *Container) Relate(src model.ID, edge string, dst model.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readOnly {
		return ErrReadOnly
	}
	if err := graph.CheckAcyclic(c.cur.links, src, edge, dst); err != nil {
		return fmt.Errorf("relate: %w", err)
	}
	touched, err := c.cur.links.Link(src, edge, dst)
	if err != nil {
		return fmt.Errorf("relate: %w", err)
	}
	c.relinked(touched, src, dst)
	return nil
}

// Unrelate removes the link between src and dst over the named edge and its
// inverse. Removing an absent link is a no-op.
func (c *Container) Unrelate(src model.ID, edge string, dst model.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readOnly {
		return ErrReadOnly
	}
	touched, err := c.cur.links.Unlink(src, edge, dst)
	if err != nil {
		return fmt.Errorf("unrelate: %w", err)
	}
	c.relinked(touched, src, dst)
	return nil
}

// ClearRelation removes every target of the named edge of src.
func (c *Container) ClearRelation(src model.ID, edge string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readOnly {
		return ErrReadOnly
	}
	touched, err := c.cur.links.Clear(src, edge)
	if err != nil {
		return fmt.Errorf("clear relation: %w", err)
	}
	c.relinked(touched, touched...)
	return nil
}

// relinked records link changes. The named endpoints count as edited by the
// caller; other touched nodes only lost a displaced link.
func (c *Container) relinked(touched []model.ID, endpoints ...model.ID) {
	if len(touched) == 0 {
		return
	}
	c.pending.relinked.add(touched...)
	c.pending.edited.add(endpoints...)
}

// Delete removes the entity and applies every delete rule reachable from it:
// cascade targets are deleted too, nullify targets lose their link, and any
// deny target that survives fails the whole delete with a
// *graph.DeleteDeniedError before anything changes.
func (c *Container) Delete(id model.ID) (graph.Plan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readOnly {
		return graph.Plan{}, ErrReadOnly
	}
	plan, err := graph.PlanDelete(c.cur.links, id)
	if err != nil {
		return graph.Plan{}, fmt.Errorf("delete %s: %w", id, err)
	}
	graph.Apply(c.cur.links, plan)

	for _, ref := range plan.Deleted {
		e := c.cur.objects[ref.ID]
		c.cur.keys.remove(c.reg, e)
		delete(c.cur.objects, ref.ID)

		if _, fresh := c.pending.inserted[ref.ID]; fresh {
			delete(c.pending.inserted, ref.ID)
		} else {
			c.pending.deleted.add(ref.ID)
		}
		delete(c.pending.edited, ref.ID)
		delete(c.pending.dirty, ref.ID)
		delete(c.pending.relinked, ref.ID)
	}
	for _, ref := range plan.Nullified {
		c.pending.relinked.add(ref.ID)
	}

	c.log.Debug("entity deleted",
		"root", plan.Root.String(),
		"deleted", len(plan.Deleted),
		"nullified", len(plan.Nullified),
	)
	return plan, nil
}
