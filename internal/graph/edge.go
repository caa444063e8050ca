package graph

import (
	"fmt"
	"sync"

	"github.com/roach88/northwind/internal/schema"
)

// Cardinality is the number of targets an edge may hold.
type Cardinality uint8

const (
	ToOne Cardinality = iota + 1
	ToMany
)

func (c Cardinality) String() string {
	switch c {
	case ToOne:
		return "to-one"
	case ToMany:
		return "to-many"
	}
	return fmt.Sprintf("cardinality(%d)", uint8(c))
}

// DeleteRule is applied to an edge's targets when its source is deleted.
type DeleteRule uint8

const (
	Nullify DeleteRule = iota + 1
	Cascade
	Deny
)

func (r DeleteRule) String() string {
	switch r {
	case Nullify:
		return "nullify"
	case Cascade:
		return "cascade"
	case Deny:
		return "deny"
	}
	return fmt.Sprintf("rule(%d)", uint8(r))
}

// Edge declares one directed relationship.
type Edge struct {
	Source      schema.EntityType
	Name        string
	Target      schema.EntityType
	Cardinality Cardinality
	Inverse     string
	Rule        DeleteRule
	// Required edges must hold a target when the source is saved.
	Required bool
	// Acyclic edges may not form a chain that returns to its start.
	Acyclic bool
}

// Key returns "Source.name".
func (e *Edge) Key() string {
	return string(e.Source) + "." + e.Name
}

// canonical reports whether links over e are persisted in e's direction.
// Of an inverse pair exactly one side is canonical.
func (e *Edge) canonical() bool {
	if e.Inverse == "" {
		return true
	}
	return e.Key() < string(e.Target)+"."+e.Inverse
}

func edge(src schema.EntityType, name string, dst schema.EntityType, card Cardinality, inverse string, rule DeleteRule) *Edge {
	return &Edge{Source: src, Name: name, Target: dst, Cardinality: card, Inverse: inverse, Rule: rule}
}

func required(e *Edge) *Edge {
	e.Required = true
	return e
}

func acyclic(e *Edge) *Edge {
	e.Acyclic = true
	return e
}

func declarations() []*Edge {
	const (
		product     = schema.Product
		category    = schema.Category
		supplier    = schema.Supplier
		customer    = schema.Customer
		demographic = schema.CustomerDemographic
		employee    = schema.Employee
		order       = schema.Order
		detail      = schema.OrderDetail
		shipper     = schema.Shipper
		region      = schema.Region
		territory   = schema.Territory
	)
	return []*Edge{
		edge(product, "supplier", supplier, ToOne, "products", Nullify),
		edge(product, "category", category, ToOne, "products", Nullify),
		edge(product, "orderDetails", detail, ToMany, "product", Deny),

		edge(category, "products", product, ToMany, "category", Nullify),

		edge(supplier, "products", product, ToMany, "supplier", Nullify),

		edge(customer, "demographics", demographic, ToMany, "customers", Nullify),
		edge(customer, "orders", order, ToMany, "customer", Cascade),

		edge(demographic, "customers", customer, ToMany, "demographics", Nullify),

		acyclic(edge(employee, "reportsTo", employee, ToOne, "managedEmployees", Nullify)),
		acyclic(edge(employee, "managedEmployees", employee, ToMany, "reportsTo", Nullify)),
		edge(employee, "territories", territory, ToMany, "employees", Nullify),
		edge(employee, "orders", order, ToMany, "employee", Nullify),

		edge(order, "orderDetails", detail, ToMany, "order", Cascade),
		edge(order, "customer", customer, ToOne, "orders", Nullify),
		edge(order, "employee", employee, ToOne, "orders", Nullify),
		edge(order, "shipper", shipper, ToOne, "orders", Nullify),

		required(edge(detail, "order", order, ToOne, "orderDetails", Nullify)),
		required(edge(detail, "product", product, ToOne, "orderDetails", Nullify)),

		edge(shipper, "orders", order, ToMany, "shipper", Deny),

		edge(region, "territories", territory, ToMany, "region", Nullify),

		required(edge(territory, "region", region, ToOne, "territories", Nullify)),
		edge(territory, "employees", employee, ToMany, "territories", Nullify),
	}
}

// Schema is an indexed, validated set of edges.
type Schema struct {
	edges  []*Edge
	byType map[schema.EntityType][]*Edge
	byKey  map[string]*Edge
}

// NewSchema indexes edges and checks that every inverse is declared on the
// target type, points back at the source, and names this edge as its inverse.
func NewSchema(edges []*Edge) (*Schema, error) {
	s := &Schema{
		edges:  edges,
		byType: make(map[schema.EntityType][]*Edge),
		byKey:  make(map[string]*Edge, len(edges)),
	}
	for _, e := range edges {
		if _, dup := s.byKey[e.Key()]; dup {
			return nil, fmt.Errorf("edge %s declared twice", e.Key())
		}
		s.byKey[e.Key()] = e
		s.byType[e.Source] = append(s.byType[e.Source], e)
	}
	for _, e := range edges {
		if e.Inverse == "" {
			continue
		}
		inv, ok := s.Lookup(e.Target, e.Inverse)
		if !ok {
			return nil, fmt.Errorf("edge %s: inverse %s.%s is not declared", e.Key(), e.Target, e.Inverse)
		}
		if inv.Target != e.Source || inv.Inverse != e.Name {
			return nil, fmt.Errorf("edge %s: inverse %s does not point back", e.Key(), inv.Key())
		}
		if e.Acyclic != inv.Acyclic {
			return nil, fmt.Errorf("edge %s: acyclic flag differs from inverse %s", e.Key(), inv.Key())
		}
	}
	return s, nil
}

// Edges returns every edge in declaration order.
func (s *Schema) Edges() []*Edge {
	return s.edges
}

// EdgesOf returns the edges declared on t in declaration order.
func (s *Schema) EdgesOf(t schema.EntityType) []*Edge {
	return s.byType[t]
}

// Lookup finds the edge name declared on t.
func (s *Schema) Lookup(t schema.EntityType, name string) (*Edge, bool) {
	e, ok := s.byKey[string(t)+"."+name]
	return e, ok
}

// InverseOf returns e's inverse edge, or nil.
func (s *Schema) InverseOf(e *Edge) *Edge {
	if e.Inverse == "" {
		return nil
	}
	inv, _ := s.Lookup(e.Target, e.Inverse)
	return inv
}

var northwind = sync.OnceValue(func() *Schema {
	s, err := NewSchema(declarations())
	if err != nil {
		panic(fmt.Sprintf("graph: invalid built-in edges: %v", err))
	}
	return s
})

// Northwind returns the relationship schema of the Northwind model.
func Northwind() *Schema {
	return northwind()
}
