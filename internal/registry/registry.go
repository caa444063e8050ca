package registry

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/roach88/northwind/internal/ir"
	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/schema"
)

// Accessor reads and writes one attribute of one entity type.
type Accessor struct {
	Key    string
	Entity schema.EntityType
	schema.Attribute

	f field
}

// Read returns the attribute value of e. Absent optional values read as
// ir.Null.
func (a *Accessor) Read(e model.Entity) (ir.Value, error) {
	v, err := a.f.get(e)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Key, err)
	}
	return v, nil
}

// Write assigns v to the attribute of e, coercing it to the attribute's kind.
// Null is accepted only for optional attributes.
func (a *Accessor) Write(e model.Entity, v ir.Value) error {
	if ir.IsNull(v) && !a.Optional {
		return fmt.Errorf("%s: required attribute cannot be null", a.Key)
	}
	if err := a.f.set(e, v); err != nil {
		return fmt.Errorf("%s: %w", a.Key, err)
	}
	return nil
}

// Set is the resolved accessor list of one entity type.
type Set struct {
	Entity    schema.EntityType
	Accessors []*Accessor

	byName map[string]*Accessor
}

type entry struct {
	once sync.Once
	set  *Set
	err  error
}

// Registry resolves predicate names against a schema model.
type Registry struct {
	model   *schema.Model
	tables  map[schema.EntityType]table
	entries map[schema.EntityType]*entry
	builds  atomic.Int64
}

// New returns a registry over m. Nothing is built until first use.
func New(m *schema.Model) *Registry {
	r := &Registry{
		model:   m,
		tables:  tables(),
		entries: make(map[schema.EntityType]*entry, len(m.Entities())),
	}
	for _, d := range m.Entities() {
		r.entries[d.Type] = &entry{}
	}
	return r
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return New(schema.Current())
})

// Default returns the process-wide registry over schema.Current().
func Default() *Registry {
	return defaultRegistry()
}

// Model returns the schema the registry was built from.
func (r *Registry) Model() *schema.Model {
	return r.model
}

// Accessors returns the resolved accessor set of t, building it on first use.
func (r *Registry) Accessors(t schema.EntityType) (*Set, error) {
	e, ok := r.entries[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, t)
	}
	e.once.Do(func() {
		r.builds.Add(1)
		e.set, e.err = r.build(t)
	})
	return e.set, e.err
}

// build pairs the schema attributes of t with its static table.
func (r *Registry) build(t schema.EntityType) (*Set, error) {
	d, _ := r.model.Entity(t)
	tbl := r.tables[t]

	set := &Set{Entity: t, byName: make(map[string]*Accessor, len(d.Attributes))}
	for _, attr := range d.Attributes {
		f, ok := tbl[attr.Name]
		if !ok {
			return nil, fmt.Errorf("registry: %s.%s has no accessor", t, attr.Name)
		}
		if f.kind != attr.Kind {
			return nil, fmt.Errorf("registry: %s.%s accessor is %s, schema says %s", t, attr.Name, f.kind, attr.Kind)
		}
		a := &Accessor{Key: Key(t, attr.Name), Entity: t, Attribute: attr, f: f}
		set.Accessors = append(set.Accessors, a)
		set.byName[attr.Name] = a
	}
	if len(tbl) != len(set.Accessors) {
		var extra []string
		for name := range tbl {
			if _, ok := set.byName[name]; !ok {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		return nil, fmt.Errorf("registry: %s accessors not in schema: %s", t, strings.Join(extra, ", "))
	}
	return set, nil
}

// Resolve maps a full registry key to its accessor. The key must name an
// attribute of t.
func (r *Registry) Resolve(t schema.EntityType, key string) (*Accessor, error) {
	et, fieldName, err := ParseKey(key)
	if err != nil || et != t {
		return nil, &UnknownFieldError{Entity: t, Name: key}
	}
	return r.ResolveField(t, fieldName)
}

// ResolveField maps a declared attribute name of t to its accessor.
func (r *Registry) ResolveField(t schema.EntityType, name string) (*Accessor, error) {
	set, err := r.Accessors(t)
	if err != nil {
		return nil, err
	}
	a, ok := set.byName[name]
	if !ok {
		return nil, &UnknownFieldError{Entity: t, Name: name}
	}
	return a, nil
}

// Lookup resolves a key without a separately supplied entity type.
func (r *Registry) Lookup(key string) (*Accessor, error) {
	et, _, err := ParseKey(key)
	if err != nil {
		return nil, &UnknownFieldError{Name: key}
	}
	if _, ok := r.entries[et]; !ok {
		return nil, &UnknownFieldError{Entity: et, Name: key}
	}
	return r.Resolve(et, key)
}

// Keys returns every registry key of t in declaration order.
func (r *Registry) Keys(t schema.EntityType) ([]string, error) {
	set, err := r.Accessors(t)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(set.Accessors))
	for i, a := range set.Accessors {
		keys[i] = a.Key
	}
	return keys, nil
}

// NaturalKey returns the natural key accessor of t, if t has one.
func (r *Registry) NaturalKey(t schema.EntityType) (*Accessor, bool, error) {
	set, err := r.Accessors(t)
	if err != nil {
		return nil, false, err
	}
	i := slices.IndexFunc(set.Accessors, func(a *Accessor) bool { return a.Unique })
	if i < 0 {
		return nil, false, nil
	}
	return set.Accessors[i], true, nil
}
