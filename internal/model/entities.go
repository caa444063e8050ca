package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/northwind/internal/schema"
)

// Address groups the optional postal fields shared by several entities.
type Address struct {
	Address    *string
	City       *string
	Region     *string
	PostalCode *string
	Country    *string
}

func (a Address) clone() Address {
	return Address{
		Address:    cloneStr(a.Address),
		City:       cloneStr(a.City),
		Region:     cloneStr(a.Region),
		PostalCode: cloneStr(a.PostalCode),
		Country:    cloneStr(a.Country),
	}
}

type Product struct {
	Base
	Name            string
	QuantityPerUnit *string
	UnitPrice       decimal.Decimal
	UnitsInStock    int64
	UnitsOnOrder    int64
	ReorderLevel    int64
	Discontinued    bool
}

func (*Product) EntityType() schema.EntityType { return schema.Product }

func (p *Product) clone() Entity {
	c := *p
	c.QuantityPerUnit = cloneStr(p.QuantityPerUnit)
	return &c
}

type Category struct {
	Base
	Name    string
	Info    *string
	Picture []byte
}

func (*Category) EntityType() schema.EntityType { return schema.Category }

func (c *Category) clone() Entity {
	n := *c
	n.Info = cloneStr(c.Info)
	n.Picture = cloneBytes(c.Picture)
	return &n
}

type Supplier struct {
	Base
	CompanyName  string
	ContactName  *string
	ContactTitle *string
	Address
	Phone    *string
	Fax      *string
	HomePage *string
}

func (*Supplier) EntityType() schema.EntityType { return schema.Supplier }

func (s *Supplier) clone() Entity {
	c := *s
	c.ContactName = cloneStr(s.ContactName)
	c.ContactTitle = cloneStr(s.ContactTitle)
	c.Address = s.Address.clone()
	c.Phone = cloneStr(s.Phone)
	c.Fax = cloneStr(s.Fax)
	c.HomePage = cloneStr(s.HomePage)
	return &c
}

// Customer is keyed by its short customer code, for example "ALFKI".
type Customer struct {
	Base
	Code         string
	CompanyName  string
	ContactName  *string
	ContactTitle *string
	Address
	Phone *string
	Fax   *string
}

func (*Customer) EntityType() schema.EntityType { return schema.Customer }

func (c *Customer) clone() Entity {
	n := *c
	n.ContactName = cloneStr(c.ContactName)
	n.ContactTitle = cloneStr(c.ContactTitle)
	n.Address = c.Address.clone()
	n.Phone = cloneStr(c.Phone)
	n.Fax = cloneStr(c.Fax)
	return &n
}

type CustomerDemographic struct {
	Base
	TypeID string
	Info   *string
}

func (*CustomerDemographic) EntityType() schema.EntityType { return schema.CustomerDemographic }

func (d *CustomerDemographic) clone() Entity {
	c := *d
	c.Info = cloneStr(d.Info)
	return &c
}

type Employee struct {
	Base
	LastName        string
	FirstName       string
	Title           *string
	TitleOfCourtesy *string
	BirthDate       *time.Time
	HireDate        *time.Time
	Address
	HomePhone *string
	Photo     []byte
	Notes     *string
}

func (*Employee) EntityType() schema.EntityType { return schema.Employee }

func (e *Employee) clone() Entity {
	c := *e
	c.Title = cloneStr(e.Title)
	c.TitleOfCourtesy = cloneStr(e.TitleOfCourtesy)
	c.BirthDate = cloneTime(e.BirthDate)
	c.HireDate = cloneTime(e.HireDate)
	c.Address = e.Address.clone()
	c.HomePhone = cloneStr(e.HomePhone)
	c.Photo = cloneBytes(e.Photo)
	c.Notes = cloneStr(e.Notes)
	return &c
}

// Order ship-to fields are kept apart from the customer's own address
// because an order may ship elsewhere.
type Order struct {
	Base
	OrderDate    time.Time
	RequiredDate time.Time
	ShippedDate  *time.Time
	Freight      decimal.Decimal
	ShipName     *string
	Ship         Address
}

func (*Order) EntityType() schema.EntityType { return schema.Order }

func (o *Order) clone() Entity {
	c := *o
	c.ShippedDate = cloneTime(o.ShippedDate)
	c.ShipName = cloneStr(o.ShipName)
	c.Ship = o.Ship.clone()
	return &c
}

// OrderDetail is one line item. Discount is a fraction between 0 and 1.
type OrderDetail struct {
	Base
	UnitPrice decimal.Decimal
	Quantity  int64
	Discount  decimal.Decimal
}

func (*OrderDetail) EntityType() schema.EntityType { return schema.OrderDetail }

func (d *OrderDetail) clone() Entity {
	c := *d
	return &c
}

// Total is the extended price after discount.
func (d *OrderDetail) Total() decimal.Decimal {
	gross := d.UnitPrice.Mul(decimal.NewFromInt(d.Quantity))
	return gross.Sub(gross.Mul(d.Discount))
}

type Shipper struct {
	Base
	CompanyName string
	Phone       *string
}

func (*Shipper) EntityType() schema.EntityType { return schema.Shipper }

func (s *Shipper) clone() Entity {
	c := *s
	c.Phone = cloneStr(s.Phone)
	return &c
}

type Region struct {
	Base
	Name string
}

func (*Region) EntityType() schema.EntityType { return schema.Region }

func (r *Region) clone() Entity {
	c := *r
	return &c
}

type Territory struct {
	Base
	Code string
	Name string
}

func (*Territory) EntityType() schema.EntityType { return schema.Territory }

func (t *Territory) clone() Entity {
	c := *t
	return &c
}
