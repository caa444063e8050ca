package graph

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/schema"
)

type idSet map[model.ID]struct{}

// Links is the index of live relationships, keyed by node ID.
//
// Links is not safe for concurrent use; the container serialises access.
type Links struct {
	schema *Schema
	types  map[model.ID]schema.EntityType
	adj    map[model.ID]map[string]idSet
}

// NewLinks returns an empty index over s.
func NewLinks(s *Schema) *Links {
	return &Links{
		schema: s,
		types:  make(map[model.ID]schema.EntityType),
		adj:    make(map[model.ID]map[string]idSet),
	}
}

// Schema returns the edge declarations the index enforces.
func (l *Links) Schema() *Schema {
	return l.schema
}

// AddNode registers a node. Adding an existing node is a no-op.
func (l *Links) AddNode(id model.ID, t schema.EntityType) {
	if _, ok := l.types[id]; ok {
		return
	}
	l.types[id] = t
}

// Has reports whether id is registered.
func (l *Links) Has(id model.ID) bool {
	_, ok := l.types[id]
	return ok
}

// Ref returns the typed reference for id.
func (l *Links) Ref(id model.ID) (Ref, bool) {
	t, ok := l.types[id]
	return Ref{Type: t, ID: id}, ok
}

// Len returns the number of registered nodes.
func (l *Links) Len() int {
	return len(l.types)
}

func (l *Links) edgeFrom(src model.ID, name string) (*Edge, error) {
	t, ok := l.types[src]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, src)
	}
	e, ok := l.schema.Lookup(t, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownEdge, t, name)
	}
	return e, nil
}

// Edge resolves name on the type of src.
func (l *Links) Edge(src model.ID, name string) (*Edge, error) {
	return l.edgeFrom(src, name)
}

// Link connects src to dst over the named edge and its inverse. A to-one side
// that already points elsewhere is detached first, on both ends. Linking an
// existing pair changes nothing. The returned IDs are every node whose links
// changed.
func (l *Links) Link(src model.ID, name string, dst model.ID) ([]model.ID, error) {
	e, err := l.edgeFrom(src, name)
	if err != nil {
		return nil, err
	}
	dt, ok := l.types[dst]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, dst)
	}
	if dt != e.Target {
		return nil, fmt.Errorf("%w: %s expects %s, got %s", ErrWrongTarget, e.Key(), e.Target, dt)
	}
	if l.linked(src, e.Name, dst) {
		return nil, nil
	}

	touched := newTouched()
	touched.add(src, dst)

	if e.Cardinality == ToOne {
		for old := range l.adj[src][e.Name] {
			l.detachPair(e, src, old)
			touched.add(old)
		}
	}
	if inv := l.schema.InverseOf(e); inv != nil && inv.Cardinality == ToOne {
		for old := range l.adj[dst][inv.Name] {
			l.detachPair(inv, dst, old)
			touched.add(old)
		}
	}
	l.attachPair(e, src, dst)
	return touched.ids, nil
}

// Unlink removes the src/dst pair over the named edge and its inverse.
// Unlinking an absent pair changes nothing.
func (l *Links) Unlink(src model.ID, name string, dst model.ID) ([]model.ID, error) {
	e, err := l.edgeFrom(src, name)
	if err != nil {
		return nil, err
	}
	if !l.linked(src, e.Name, dst) {
		return nil, nil
	}
	l.detachPair(e, src, dst)
	return []model.ID{src, dst}, nil
}

// Clear unlinks every target of the named edge.
func (l *Links) Clear(src model.ID, name string) ([]model.ID, error) {
	e, err := l.edgeFrom(src, name)
	if err != nil {
		return nil, err
	}
	targets := l.sorted(l.adj[src][e.Name])
	if len(targets) == 0 {
		return nil, nil
	}
	for _, dst := range targets {
		l.detachPair(e, src, dst)
	}
	return append([]model.ID{src}, targets...), nil
}

// Remove unlinks every edge of id and forgets the node. The returned IDs are
// the surviving neighbours whose links changed.
func (l *Links) Remove(id model.ID) []model.ID {
	t, ok := l.types[id]
	if !ok {
		return nil
	}
	touched := newTouched()
	for _, e := range l.schema.EdgesOf(t) {
		for _, dst := range l.sorted(l.adj[id][e.Name]) {
			l.detachPair(e, id, dst)
			if dst != id {
				touched.add(dst)
			}
		}
	}
	delete(l.adj, id)
	delete(l.types, id)
	return touched.ids
}

// Targets returns the targets of the named edge in ID order.
func (l *Links) Targets(src model.ID, name string) []model.ID {
	return l.sorted(l.adj[src][name])
}

// Target returns the single target of a to-one edge.
func (l *Links) Target(src model.ID, name string) (model.ID, bool) {
	for id := range l.adj[src][name] {
		return id, true
	}
	return "", false
}

// Count returns the number of targets of the named edge.
func (l *Links) Count(src model.ID, name string) int {
	return len(l.adj[src][name])
}

// Clone returns an independent copy of the index.
func (l *Links) Clone() *Links {
	c := NewLinks(l.schema)
	maps.Copy(c.types, l.types)
	for id, edges := range l.adj {
		ce := make(map[string]idSet, len(edges))
		for name, set := range edges {
			ce[name] = maps.Clone(set)
		}
		c.adj[id] = ce
	}
	return c
}

// Row is one persisted link, stored in the canonical direction of its pair.
type Row struct {
	Source model.ID
	Edge   string
	Target model.ID
}

// Rows returns the canonical links of the given nodes, sorted. Passing no IDs
// returns every link in the index.
func (l *Links) Rows(ids ...model.ID) []Row {
	if len(ids) == 0 {
		ids = slices.Collect(maps.Keys(l.types))
	}
	seen := make(map[Row]struct{})
	var rows []Row
	add := func(r Row) {
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		rows = append(rows, r)
	}
	for _, id := range ids {
		t, ok := l.types[id]
		if !ok {
			continue
		}
		for _, e := range l.schema.EdgesOf(t) {
			for dst := range l.adj[id][e.Name] {
				if e.canonical() {
					add(Row{Source: id, Edge: e.Name, Target: dst})
				} else {
					add(Row{Source: dst, Edge: e.Inverse, Target: id})
				}
			}
		}
	}
	slices.SortFunc(rows, func(a, b Row) int {
		if c := compareIDs(a.Source, b.Source); c != 0 {
			return c
		}
		if a.Edge != b.Edge {
			if a.Edge < b.Edge {
				return -1
			}
			return 1
		}
		return compareIDs(a.Target, b.Target)
	})
	return rows
}

func compareIDs(a, b model.ID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (l *Links) linked(src model.ID, name string, dst model.ID) bool {
	_, ok := l.adj[src][name][dst]
	return ok
}

// attachPair records src->dst over e and dst->src over e's inverse.
func (l *Links) attachPair(e *Edge, src, dst model.ID) {
	l.put(src, e.Name, dst)
	if e.Inverse != "" {
		l.put(dst, e.Inverse, src)
	}
}

// detachPair is the exact mirror of attachPair.
func (l *Links) detachPair(e *Edge, src, dst model.ID) {
	l.drop(src, e.Name, dst)
	if e.Inverse != "" {
		l.drop(dst, e.Inverse, src)
	}
}

func (l *Links) put(src model.ID, name string, dst model.ID) {
	edges, ok := l.adj[src]
	if !ok {
		edges = make(map[string]idSet)
		l.adj[src] = edges
	}
	set, ok := edges[name]
	if !ok {
		set = make(idSet)
		edges[name] = set
	}
	set[dst] = struct{}{}
}

func (l *Links) drop(src model.ID, name string, dst model.ID) {
	set := l.adj[src][name]
	delete(set, dst)
	if len(set) == 0 {
		delete(l.adj[src], name)
	}
}

func (l *Links) sorted(set idSet) []model.ID {
	if len(set) == 0 {
		return nil
	}
	out := slices.Collect(maps.Keys(set))
	slices.Sort(out)
	return out
}

// touched collects changed node IDs in first-seen order.
type touched struct {
	seen map[model.ID]struct{}
	ids  []model.ID
}

func newTouched() *touched {
	return &touched{seen: make(map[model.ID]struct{})}
}

func (t *touched) add(ids ...model.ID) {
	for _, id := range ids {
		if _, ok := t.seen[id]; ok {
			continue
		}
		t.seen[id] = struct{}{}
		t.ids = append(t.ids, id)
	}
}
