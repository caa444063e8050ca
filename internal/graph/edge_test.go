package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/northwind/internal/schema"
)

func TestNorthwindEdges(t *testing.T) {
	s := Northwind()
	assert.Len(t, s.Edges(), 22)

	for _, e := range s.Edges() {
		t.Run(e.Key(), func(t *testing.T) {
			_, ok := schema.Current().Entity(e.Source)
			assert.True(t, ok, "source type declared")
			_, ok = schema.Current().Entity(e.Target)
			assert.True(t, ok, "target type declared")

			inv := s.InverseOf(e)
			require.NotNil(t, inv)
			assert.Equal(t, e.Source, inv.Target)
			assert.NotEqual(t, e.canonical(), inv.canonical())
		})
	}
}

func TestNorthwindDeleteRules(t *testing.T) {
	tests := []struct {
		source schema.EntityType
		edge   string
		card   Cardinality
		rule   DeleteRule
	}{
		{schema.Customer, "orders", ToMany, Cascade},
		{schema.Order, "orderDetails", ToMany, Cascade},
		{schema.Shipper, "orders", ToMany, Deny},
		{schema.Product, "orderDetails", ToMany, Deny},
		{schema.Region, "territories", ToMany, Nullify},
		{schema.Employee, "reportsTo", ToOne, Nullify},
		{schema.Employee, "managedEmployees", ToMany, Nullify},
		{schema.OrderDetail, "order", ToOne, Nullify},
	}
	for _, tt := range tests {
		t.Run(string(tt.source)+"."+tt.edge, func(t *testing.T) {
			e, ok := Northwind().Lookup(tt.source, tt.edge)
			require.True(t, ok)
			assert.Equal(t, tt.card, e.Cardinality)
			assert.Equal(t, tt.rule, e.Rule)
		})
	}
}

func TestRequiredEdges(t *testing.T) {
	var keys []string
	for _, e := range Northwind().Edges() {
		if e.Required {
			keys = append(keys, e.Key())
		}
	}
	assert.Equal(t, []string{"OrderDetail.order", "OrderDetail.product", "Territory.region"}, keys)
}

func TestNewSchemaValidatesInverses(t *testing.T) {
	_, err := NewSchema([]*Edge{
		edge("A", "b", "B", ToOne, "as", Nullify),
	})
	assert.ErrorContains(t, err, "not declared")

	_, err = NewSchema([]*Edge{
		edge("A", "b", "B", ToOne, "as", Nullify),
		edge("B", "as", "A", ToMany, "other", Nullify),
	})
	assert.ErrorContains(t, err, "does not point back")

	_, err = NewSchema([]*Edge{
		edge("A", "b", "B", ToOne, "", Nullify),
		edge("A", "b", "B", ToOne, "", Nullify),
	})
	assert.ErrorContains(t, err, "declared twice")

	_, err = NewSchema([]*Edge{
		acyclic(edge("A", "up", "A", ToOne, "down", Nullify)),
		edge("A", "down", "A", ToMany, "up", Nullify),
	})
	assert.ErrorContains(t, err, "acyclic")
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "to-one", ToOne.String())
	assert.Equal(t, "to-many", ToMany.String())
	assert.Equal(t, "cascade", Cascade.String())
	assert.Equal(t, "nullify", Nullify.String())
	assert.Equal(t, "deny", Deny.String())
}
