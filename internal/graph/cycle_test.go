package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/schema"
)

func hierarchy(t *testing.T) *Links {
	t.Helper()
	l := newIndex(t, map[model.ID]schema.EntityType{
		"fuller":   schema.Employee,
		"buchanan": schema.Employee,
		"suyama":   schema.Employee,
		"davolio":  schema.Employee,
	})
	mustLink(t, l, "buchanan", "reportsTo", "fuller")
	mustLink(t, l, "suyama", "reportsTo", "buchanan")
	return l
}

func TestCheckAcyclicAllowsTree(t *testing.T) {
	l := hierarchy(t)
	assert.NoError(t, CheckAcyclic(l, "davolio", "reportsTo", "fuller"))
	assert.NoError(t, CheckAcyclic(l, "fuller", "managedEmployees", "davolio"))
	assert.NoError(t, CheckAcyclic(l, "suyama", "reportsTo", "fuller"))
}

func TestCheckAcyclicRejectsSelf(t *testing.T) {
	l := hierarchy(t)
	err := CheckAcyclic(l, "davolio", "reportsTo", "davolio")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))
}

func TestCheckAcyclicRejectsTransitiveLoop(t *testing.T) {
	l := hierarchy(t)

	err := CheckAcyclic(l, "fuller", "reportsTo", "suyama")
	var cycle *CycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, "Employee.reportsTo", cycle.Edge)
	assert.Equal(t, []model.ID{"fuller", "suyama", "buchanan", "fuller"}, cycle.Path)

	err = CheckAcyclic(l, "suyama", "managedEmployees", "fuller")
	assert.True(t, errors.Is(err, ErrCycle))
}

func TestCheckAcyclicIgnoresOtherEdges(t *testing.T) {
	l := newIndex(t, map[model.ID]schema.EntityType{
		"r1": schema.Region,
		"t1": schema.Territory,
	})
	assert.NoError(t, CheckAcyclic(l, "t1", "region", "r1"))

	err := CheckAcyclic(l, "t1", "bogus", "r1")
	assert.True(t, errors.Is(err, ErrUnknownEdge))
}

func TestChain(t *testing.T) {
	l := hierarchy(t)
	assert.Equal(t, []model.ID{"buchanan", "fuller"}, Chain(l, "suyama", "reportsTo"))
	assert.Empty(t, Chain(l, "fuller", "reportsTo"))
}
