package container

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/roach88/northwind/internal/graph"
	"github.com/roach88/northwind/internal/metrics"
	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/registry"
	"github.com/roach88/northwind/internal/schema"
	"github.com/roach88/northwind/internal/store"
)

// Options configures a container.
type Options struct {
	// ReadOnly rejects every mutation. Containers over a read-only store are
	// always read-only.
	ReadOnly bool
	Registry *registry.Registry
	Graph    *graph.Schema
	// NewID mints identities for inserted entities. Defaults to model.NewID.
	NewID   func() model.ID
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

func (o Options) withDefaults() Options {
	if o.Registry == nil {
		o.Registry = registry.Default()
	}
	if o.Graph == nil {
		o.Graph = graph.Northwind()
	}
	if o.NewID == nil {
		o.NewID = model.NewID
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	o.Metrics = metrics.OrNop(o.Metrics)
	return o
}

type idSet map[model.ID]struct{}

func (s idSet) add(ids ...model.ID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

func (s idSet) sorted() []model.ID {
	ids := slices.Collect(maps.Keys(s))
	slices.Sort(ids)
	return ids
}

// state is one consistent version of the object graph.
type state struct {
	objects map[model.ID]model.Entity
	links   *graph.Links
	keys    *keyIndex
}

func (s *state) clone() *state {
	objects := make(map[model.ID]model.Entity, len(s.objects))
	for id, e := range s.objects {
		objects[id] = model.Clone(e)
	}
	return &state{objects: objects, links: s.links.Clone(), keys: s.keys.clone()}
}

// changes tracks what happened since the last save.
type changes struct {
	// inserted entities have never been saved.
	inserted idSet
	// edited entities were inserted, updated or relinked by a caller, and
	// are checked for required relationships on save.
	edited idSet
	// dirty entities need their payload rewritten.
	dirty idSet
	// relinked entities need their stored links rewritten.
	relinked idSet
	// deleted entities existed at the last save.
	deleted idSet
}

func newChanges() changes {
	return changes{
		inserted: idSet{},
		edited:   idSet{},
		dirty:    idSet{},
		relinked: idSet{},
		deleted:  idSet{},
	}
}

func (c changes) empty() bool {
	return len(c.inserted) == 0 && len(c.dirty) == 0 && len(c.relinked) == 0 && len(c.deleted) == 0
}

// Container is the managed object context. It is safe for concurrent use, but
// the intended discipline is one logical writer per container.
type Container struct {
	mu       sync.Mutex
	opts     Options
	reg      *registry.Registry
	store    *store.Store
	readOnly bool
	log      *slog.Logger

	cur     *state
	saved   *state
	pending changes
}

// New returns an empty container that is not backed by a store. Save only
// marks the current state as the rollback point.
func New(opts Options) *Container {
	opts = opts.withDefaults()
	s := &state{
		objects: make(map[model.ID]model.Entity),
		links:   graph.NewLinks(opts.Graph),
		keys:    newKeyIndex(),
	}
	return &Container{
		opts:     opts,
		reg:      opts.Registry,
		readOnly: opts.ReadOnly,
		log:      opts.Logger,
		cur:      s,
		saved:    s.clone(),
		pending:  newChanges(),
	}
}

// Open loads every record and link of st into a new container.
func Open(ctx context.Context, st *store.Store, opts Options) (c *Container, err error) {
	c = New(opts)
	c.store = st
	c.readOnly = c.readOnly || st.ReadOnly()
	defer metrics.Since(ctx, c.opts.Metrics, "container.open", time.Now(), &err)

	snap, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("open container: %w", err)
	}
	for _, rec := range snap.Records {
		e, err := model.New(rec.Entity)
		if err != nil {
			return nil, fmt.Errorf("open container: record %s: %w", rec.ID, err)
		}
		if err := c.reg.Decode(e, rec.Payload); err != nil {
			return nil, fmt.Errorf("open container: record %s: %w", rec.ID, err)
		}
		model.AssignID(e, rec.ID)
		if err := c.cur.keys.add(c.reg, e); err != nil {
			return nil, fmt.Errorf("open container: %w", err)
		}
		c.cur.objects[rec.ID] = e
		c.cur.links.AddNode(rec.ID, rec.Entity)
	}
	for _, row := range snap.Links {
		if _, err := c.cur.links.Link(row.Source, row.Edge, row.Target); err != nil {
			return nil, fmt.Errorf("open container: link %s.%s -> %s: %w", row.Source, row.Edge, row.Target, err)
		}
	}
	c.saved = c.cur.clone()

	c.log.Debug("container opened",
		"path", st.Path(),
		"read_only", c.readOnly,
		"records", len(snap.Records),
		"links", len(snap.Links),
	)
	return c, nil
}

// ReadOnly reports whether mutations are rejected.
func (c *Container) ReadOnly() bool {
	return c.readOnly
}

// Store returns the backing store, or nil for an in-memory container.
func (c *Container) Store() *store.Store {
	return c.store
}

// Registry returns the accessor registry used for keys and predicates.
func (c *Container) Registry() *registry.Registry {
	return c.reg
}

// Graph returns the relationship declarations the container enforces.
func (c *Container) Graph() *graph.Schema {
	return c.opts.Graph
}

// Model returns the schema model of the container's registry.
func (c *Container) Model() *schema.Model {
	return c.reg.Model()
}
