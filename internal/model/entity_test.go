package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/northwind/internal/schema"
)

func TestNewCoversEveryEntityType(t *testing.T) {
	for _, et := range schema.Current().Types() {
		t.Run(string(et), func(t *testing.T) {
			e, err := New(et)
			require.NoError(t, err)
			assert.Equal(t, et, e.EntityType())
			assert.Empty(t, e.Identity())
		})
	}

	_, err := New("Invoice")
	assert.Error(t, err)
}

func TestNewIDIsUniqueAndOrdered(t *testing.T) {
	a := NewID()
	b := NewID()
	assert.NotEqual(t, a, b)
	assert.Len(t, string(a), 36)
	assert.Less(t, string(a), string(b))
}

func TestAssignID(t *testing.T) {
	r := &Region{Name: "Eastern"}
	AssignID(r, "region-1")
	assert.Equal(t, ID("region-1"), r.Identity())
	assert.Equal(t, ID("region-1"), r.ID)
}

func TestCloneIsDeep(t *testing.T) {
	hired := time.Date(1992, 5, 1, 0, 0, 0, 0, time.UTC)
	e := &Employee{
		LastName:  "Davolio",
		FirstName: "Nancy",
		Title:     Ptr("Sales Representative"),
		HireDate:  &hired,
		Photo:     []byte{1, 2, 3},
		Address:   Address{City: Ptr("Seattle")},
	}
	AssignID(e, "emp-1")

	c := Clone(e).(*Employee)
	require.Equal(t, e, c)

	*c.Title = "Vice President"
	c.Photo[0] = 9
	*c.City = "Tacoma"
	*c.HireDate = hired.AddDate(1, 0, 0)

	assert.Equal(t, "Sales Representative", *e.Title)
	assert.Equal(t, byte(1), e.Photo[0])
	assert.Equal(t, "Seattle", *e.City)
	assert.Equal(t, hired, *e.HireDate)
	assert.Equal(t, ID("emp-1"), c.Identity())
}

func TestCloneOrderShipAddress(t *testing.T) {
	o := &Order{Ship: Address{Country: Ptr("Germany")}, ShipName: Ptr("Alfreds")}
	c := Clone(o).(*Order)
	*c.Ship.Country = "France"
	assert.Equal(t, "Germany", *o.Ship.Country)
}

func TestOrderDetailTotal(t *testing.T) {
	d := &OrderDetail{
		UnitPrice: decimal.RequireFromString("14.00"),
		Quantity:  12,
		Discount:  decimal.RequireFromString("0.25"),
	}
	assert.True(t, d.Total().Equal(decimal.RequireFromString("126")), d.Total().String())
}
