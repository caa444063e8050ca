package predicate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/northwind/internal/ir"
	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/registry"
	"github.com/roach88/northwind/internal/schema"
)

// ErrBind matches every BindError.
var ErrBind = errors.New("predicate bind failed")

// BindError reports a literal or operator that does not fit its field.
type BindError struct {
	Field   string
	Message string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %s", e.Field, e.Message)
}

func (e *BindError) Unwrap() error {
	return ErrBind
}

// BoundPredicate is a predicate whose fields are resolved accessors and whose
// literals have the field's kind.
type BoundPredicate interface {
	boundNode()
}

type BoundCompare struct {
	Accessor *registry.Accessor
	Op       Op
	Value    ir.Value
}

type BoundIn struct {
	Accessor *registry.Accessor
	Values   []ir.Value
}

type BoundIsNull struct {
	Accessor *registry.Accessor
}

type BoundContains struct {
	Accessor  *registry.Accessor
	Substring string
}

type BoundAnd struct {
	Predicates []BoundPredicate
}

type BoundOr struct {
	Predicates []BoundPredicate
}

type BoundNot struct {
	Predicate BoundPredicate
}

func (BoundCompare) boundNode()  {}
func (BoundIn) boundNode()       {}
func (BoundIsNull) boundNode()   {}
func (BoundContains) boundNode() {}
func (BoundAnd) boundNode()      {}
func (BoundOr) boundNode()       {}
func (BoundNot) boundNode()      {}

// Bound is a predicate resolved against one entity type.
type Bound struct {
	Entity schema.EntityType
	Root   BoundPredicate
}

// Bind resolves every field of p on entity t. A nil p binds to "match all".
//
// Field names may be full registry keys or bare attribute names; both resolve
// through r, and unknown names fail with the registry's UnknownFieldError.
func Bind(r *registry.Registry, t schema.EntityType, p Predicate) (*Bound, error) {
	if p == nil {
		return &Bound{Entity: t, Root: BoundAnd{}}, nil
	}
	b := binder{r: r, entity: t}
	root, err := b.bind(p)
	if err != nil {
		return nil, err
	}
	return &Bound{Entity: t, Root: root}, nil
}

type binder struct {
	r      *registry.Registry
	entity schema.EntityType
}

func (b binder) resolve(name string) (*registry.Accessor, error) {
	if strings.HasPrefix(name, registry.Namespace+".") {
		return b.r.Resolve(b.entity, name)
	}
	return b.r.ResolveField(b.entity, name)
}

func (b binder) literal(a *registry.Accessor, v ir.Value) (ir.Value, error) {
	if ir.IsNull(v) {
		return nil, &BindError{Field: a.Key, Message: "null literal; use IsNull"}
	}
	cv, err := ir.Coerce(v, a.Kind)
	if err != nil {
		return nil, &BindError{Field: a.Key, Message: err.Error()}
	}
	return cv, nil
}

func (b binder) bind(p Predicate) (BoundPredicate, error) {
	switch n := p.(type) {
	case Compare:
		return b.bindCompare(n)
	case *Compare:
		return b.bindCompare(*n)
	case In:
		return b.bindIn(n)
	case *In:
		return b.bindIn(*n)
	case IsNull:
		return b.bindIsNull(n)
	case *IsNull:
		return b.bindIsNull(*n)
	case Contains:
		return b.bindContains(n)
	case *Contains:
		return b.bindContains(*n)
	case And:
		kids, err := b.bindAll(n.Predicates)
		return BoundAnd{Predicates: kids}, err
	case *And:
		kids, err := b.bindAll(n.Predicates)
		return BoundAnd{Predicates: kids}, err
	case Or:
		kids, err := b.bindAll(n.Predicates)
		return BoundOr{Predicates: kids}, err
	case *Or:
		kids, err := b.bindAll(n.Predicates)
		return BoundOr{Predicates: kids}, err
	case Not:
		return b.bindNot(n)
	case *Not:
		return b.bindNot(*n)
	case nil:
		return nil, fmt.Errorf("nil predicate")
	}
	return nil, fmt.Errorf("unsupported predicate type: %T", p)
}

func (b binder) bindAll(ps []Predicate) ([]BoundPredicate, error) {
	out := make([]BoundPredicate, len(ps))
	for i, p := range ps {
		bp, err := b.bind(p)
		if err != nil {
			return nil, err
		}
		out[i] = bp
	}
	return out, nil
}

func (b binder) bindCompare(c Compare) (BoundPredicate, error) {
	a, err := b.resolve(c.Field)
	if err != nil {
		return nil, err
	}
	if !c.Op.Valid() {
		return nil, &BindError{Field: a.Key, Message: fmt.Sprintf("unknown operator %q", string(c.Op))}
	}
	if c.Op.ordering() && (a.Kind == ir.KindBool || a.Kind == ir.KindBytes) {
		return nil, &BindError{Field: a.Key, Message: fmt.Sprintf("operator %s needs an ordered field, got %s", c.Op, a.Kind)}
	}
	v, err := b.literal(a, c.Value)
	if err != nil {
		return nil, err
	}
	return BoundCompare{Accessor: a, Op: c.Op, Value: v}, nil
}

func (b binder) bindIn(in In) (BoundPredicate, error) {
	a, err := b.resolve(in.Field)
	if err != nil {
		return nil, err
	}
	values := make([]ir.Value, len(in.Values))
	for i, v := range in.Values {
		if values[i], err = b.literal(a, v); err != nil {
			return nil, err
		}
	}
	return BoundIn{Accessor: a, Values: values}, nil
}

func (b binder) bindIsNull(n IsNull) (BoundPredicate, error) {
	a, err := b.resolve(n.Field)
	if err != nil {
		return nil, err
	}
	return BoundIsNull{Accessor: a}, nil
}

func (b binder) bindContains(c Contains) (BoundPredicate, error) {
	a, err := b.resolve(c.Field)
	if err != nil {
		return nil, err
	}
	if a.Kind != ir.KindString {
		return nil, &BindError{Field: a.Key, Message: fmt.Sprintf("contains needs a string field, got %s", a.Kind)}
	}
	return BoundContains{Accessor: a, Substring: c.Substring}, nil
}

func (b binder) bindNot(n Not) (BoundPredicate, error) {
	inner, err := b.bind(n.Predicate)
	if err != nil {
		return nil, err
	}
	return BoundNot{Predicate: inner}, nil
}

// Match evaluates the predicate against e.
func (b *Bound) Match(e model.Entity) (bool, error) {
	if e.EntityType() != b.Entity {
		return false, fmt.Errorf("predicate bound to %s applied to %s", b.Entity, e.EntityType())
	}
	return match(b.Root, e)
}

func match(p BoundPredicate, e model.Entity) (bool, error) {
	switch n := p.(type) {
	case BoundCompare:
		v, err := n.Accessor.Read(e)
		if err != nil || ir.IsNull(v) {
			return false, err
		}
		c, err := ir.Compare(v, n.Value)
		if err != nil {
			return false, fmt.Errorf("%s: %w", n.Accessor.Key, err)
		}
		return n.Op.holds(c), nil
	case BoundIn:
		v, err := n.Accessor.Read(e)
		if err != nil || ir.IsNull(v) {
			return false, err
		}
		for _, candidate := range n.Values {
			if ir.Equal(v, candidate) {
				return true, nil
			}
		}
		return false, nil
	case BoundIsNull:
		v, err := n.Accessor.Read(e)
		return err == nil && ir.IsNull(v), err
	case BoundContains:
		v, err := n.Accessor.Read(e)
		if err != nil || ir.IsNull(v) {
			return false, err
		}
		s, _ := v.(ir.String)
		return strings.Contains(string(s), n.Substring), nil
	case BoundAnd:
		for _, kid := range n.Predicates {
			ok, err := match(kid, e)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case BoundOr:
		for _, kid := range n.Predicates {
			ok, err := match(kid, e)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case BoundNot:
		ok, err := match(n.Predicate, e)
		return !ok && err == nil, err
	}
	return false, fmt.Errorf("unsupported bound predicate: %T", p)
}
