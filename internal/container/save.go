package container

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/northwind/internal/metrics"
	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/store"
)

// HasChanges reports whether anything changed since the last save.
func (c *Container) HasChanges() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.pending.empty()
}

// Save checks required relationships and writes every change since the last
// save to the store in one transaction. On failure nothing is written and the
// changes stay pending.
//
// Only entities inserted or edited by a caller are checked. An entity whose
// required link was cleared by a nullify delete elsewhere is saved as is.
func (c *Container) Save(ctx context.Context) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readOnly {
		return ErrReadOnly
	}
	if c.pending.empty() {
		return nil
	}
	defer metrics.Since(ctx, c.opts.Metrics, "container.save", time.Now(), &err)

	if err := c.validate(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if c.store != nil {
		cs, err := c.changeSet()
		if err != nil {
			return fmt.Errorf("save: %w", err)
		}
		if err := c.store.Apply(ctx, cs); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}

	c.log.Info("container saved",
		"inserted", len(c.pending.inserted),
		"updated", len(c.pending.dirty)-len(c.pending.inserted),
		"deleted", len(c.pending.deleted),
		"relinked", len(c.pending.relinked),
	)
	c.saved = c.cur.clone()
	c.pending = newChanges()
	return nil
}

// validate collects every empty required edge on edited entities.
func (c *Container) validate() error {
	var missing []MissingLink
	for _, id := range c.pending.edited.sorted() {
		ref, ok := c.cur.links.Ref(id)
		if !ok {
			continue
		}
		for _, e := range c.opts.Graph.EdgesOf(ref.Type) {
			if e.Required && c.cur.links.Count(id, e.Name) == 0 {
				missing = append(missing, MissingLink{Ref: ref, Edge: e.Name})
			}
		}
	}
	if len(missing) > 0 {
		return &RequiredRelationshipError{Missing: missing}
	}
	return nil
}

// changeSet encodes the pending changes. Callers hold c.mu.
func (c *Container) changeSet() (store.ChangeSet, error) {
	var cs store.ChangeSet
	for _, id := range c.pending.dirty.sorted() {
		e := c.cur.objects[id]
		payload, err := c.reg.Encode(e)
		if err != nil {
			return store.ChangeSet{}, fmt.Errorf("encode %s: %w", id, err)
		}
		cs.Upserts = append(cs.Upserts, store.Record{ID: id, Entity: e.EntityType(), Payload: payload})
	}
	cs.Deletes = c.pending.deleted.sorted()

	relinked := idSet{}
	relinked.add(c.pending.relinked.sorted()...)
	relinked.add(c.pending.inserted.sorted()...)
	for _, id := range relinked.sorted() {
		if !c.cur.links.Has(id) {
			continue
		}
		cs.Relinked = append(cs.Relinked, id)
	}
	cs.Links = c.cur.links.Rows(cs.Relinked...)
	if len(cs.Relinked) == 0 {
		// Rows with no ids means every link; nothing was relinked here.
		cs.Links = nil
	}
	return cs, nil
}

// Rollback discards every change since the last save.
func (c *Container) Rollback() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cur = c.saved.clone()
	c.pending = newChanges()
}

// IDs returns every identity in the container, ordered.
func (c *Container) IDs() []model.ID {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make(idSet, len(c.cur.objects))
	for id := range c.cur.objects {
		ids.add(id)
	}
	return ids.sorted()
}
