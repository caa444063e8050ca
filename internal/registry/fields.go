package registry

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/northwind/internal/ir"
	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/schema"
)

// field is one row of a static accessor table.
type field struct {
	kind ir.Kind
	get  func(model.Entity) (ir.Value, error)
	set  func(model.Entity, ir.Value) error
}

type table map[string]field

func cast[E model.Entity](e model.Entity) (E, error) {
	x, ok := e.(E)
	if !ok {
		var zero E
		return zero, fmt.Errorf("%w: want %T, got %T", ErrWrongEntity, zero, e)
	}
	return x, nil
}

// typed builds a field from a pointer projection and a pair of conversions.
func typed[E model.Entity, T any](kind ir.Kind, ptr func(E) *T, to func(T) ir.Value, from func(ir.Value) (T, bool)) field {
	return field{
		kind: kind,
		get: func(e model.Entity) (ir.Value, error) {
			x, err := cast[E](e)
			if err != nil {
				return nil, err
			}
			return to(*ptr(x)), nil
		},
		set: func(e model.Entity, v ir.Value) error {
			x, err := cast[E](e)
			if err != nil {
				return err
			}
			cv, err := ir.Coerce(v, kind)
			if err != nil {
				return err
			}
			val, ok := from(cv)
			if !ok {
				return fmt.Errorf("cannot assign %s value to %s field", kindOf(v), kind)
			}
			*ptr(x) = val
			return nil
		},
	}
}

func kindOf(v ir.Value) ir.Kind {
	if v == nil {
		return ir.KindNull
	}
	return v.Kind()
}

// optional wraps a required conversion pair so that nil maps to Null.
func optional[T any](to func(T) ir.Value, from func(ir.Value) (T, bool)) (func(*T) ir.Value, func(ir.Value) (*T, bool)) {
	return func(p *T) ir.Value {
			if p == nil {
				return ir.Null{}
			}
			return to(*p)
		}, func(v ir.Value) (*T, bool) {
			if ir.IsNull(v) {
				return nil, true
			}
			x, ok := from(v)
			if !ok {
				return nil, false
			}
			return &x, true
		}
}

func toString(s string) ir.Value { return ir.String(s) }
func fromString(v ir.Value) (string, bool) {
	s, ok := v.(ir.String)
	return string(s), ok
}

func toInt(n int64) ir.Value { return ir.Int(n) }
func fromInt(v ir.Value) (int64, bool) {
	n, ok := v.(ir.Int)
	return int64(n), ok
}

func toBool(b bool) ir.Value { return ir.Bool(b) }
func fromBool(v ir.Value) (bool, bool) {
	b, ok := v.(ir.Bool)
	return bool(b), ok
}

func toDecimal(d decimal.Decimal) ir.Value { return ir.NewDecimal(d) }
func fromDecimal(v ir.Value) (decimal.Decimal, bool) {
	d, ok := v.(ir.Decimal)
	return d.Decimal, ok
}

func toTime(t time.Time) ir.Value { return ir.NewTime(t) }
func fromTime(v ir.Value) (time.Time, bool) {
	t, ok := v.(ir.Time)
	return t.Time, ok
}

func toBytes(b []byte) ir.Value {
	if b == nil {
		return ir.Null{}
	}
	return ir.Bytes(b)
}
func fromBytes(v ir.Value) ([]byte, bool) {
	if ir.IsNull(v) {
		return nil, true
	}
	b, ok := v.(ir.Bytes)
	return []byte(b), ok
}

func str[E model.Entity](ptr func(E) *string) field {
	return typed(ir.KindString, ptr, toString, fromString)
}

func optStr[E model.Entity](ptr func(E) **string) field {
	to, from := optional(toString, fromString)
	return typed(ir.KindString, ptr, to, from)
}

func integer[E model.Entity](ptr func(E) *int64) field {
	return typed(ir.KindInt, ptr, toInt, fromInt)
}

func boolean[E model.Entity](ptr func(E) *bool) field {
	return typed(ir.KindBool, ptr, toBool, fromBool)
}

func dec[E model.Entity](ptr func(E) *decimal.Decimal) field {
	return typed(ir.KindDecimal, ptr, toDecimal, fromDecimal)
}

func instant[E model.Entity](ptr func(E) *time.Time) field {
	return typed(ir.KindTime, ptr, toTime, fromTime)
}

func optInstant[E model.Entity](ptr func(E) **time.Time) field {
	to, from := optional(toTime, fromTime)
	return typed(ir.KindTime, ptr, to, from)
}

func blob[E model.Entity](ptr func(E) *[]byte) field {
	return typed(ir.KindBytes, ptr, toBytes, fromBytes)
}

// address adds the postal fields reached through addr, with names prefixed
// the same way schema declares them.
func address[E model.Entity](t table, prefix string, addr func(E) *model.Address) table {
	name := func(n string) string {
		if prefix == "" {
			return n
		}
		return prefix + string(n[0]-'a'+'A') + n[1:]
	}
	t[name("address")] = optStr(func(e E) **string { return &addr(e).Address })
	t[name("city")] = optStr(func(e E) **string { return &addr(e).City })
	t[name("region")] = optStr(func(e E) **string { return &addr(e).Region })
	t[name("postalCode")] = optStr(func(e E) **string { return &addr(e).PostalCode })
	t[name("country")] = optStr(func(e E) **string { return &addr(e).Country })
	return t
}

func tables() map[schema.EntityType]table {
	return map[schema.EntityType]table{
		schema.Product: {
			"name":            str(func(p *model.Product) *string { return &p.Name }),
			"quantityPerUnit": optStr(func(p *model.Product) **string { return &p.QuantityPerUnit }),
			"unitPrice":       dec(func(p *model.Product) *decimal.Decimal { return &p.UnitPrice }),
			"unitsInStock":    integer(func(p *model.Product) *int64 { return &p.UnitsInStock }),
			"unitsOnOrder":    integer(func(p *model.Product) *int64 { return &p.UnitsOnOrder }),
			"reorderLevel":    integer(func(p *model.Product) *int64 { return &p.ReorderLevel }),
			"discontinued":    boolean(func(p *model.Product) *bool { return &p.Discontinued }),
		},
		schema.Category: {
			"name":    str(func(c *model.Category) *string { return &c.Name }),
			"info":    optStr(func(c *model.Category) **string { return &c.Info }),
			"picture": blob(func(c *model.Category) *[]byte { return &c.Picture }),
		},
		schema.Supplier: address(table{
			"companyName":  str(func(s *model.Supplier) *string { return &s.CompanyName }),
			"contactName":  optStr(func(s *model.Supplier) **string { return &s.ContactName }),
			"contactTitle": optStr(func(s *model.Supplier) **string { return &s.ContactTitle }),
			"phone":        optStr(func(s *model.Supplier) **string { return &s.Phone }),
			"fax":          optStr(func(s *model.Supplier) **string { return &s.Fax }),
			"homePage":     optStr(func(s *model.Supplier) **string { return &s.HomePage }),
		}, "", func(s *model.Supplier) *model.Address { return &s.Address }),
		schema.Customer: address(table{
			"code":         str(func(c *model.Customer) *string { return &c.Code }),
			"companyName":  str(func(c *model.Customer) *string { return &c.CompanyName }),
			"contactName":  optStr(func(c *model.Customer) **string { return &c.ContactName }),
			"contactTitle": optStr(func(c *model.Customer) **string { return &c.ContactTitle }),
			"phone":        optStr(func(c *model.Customer) **string { return &c.Phone }),
			"fax":          optStr(func(c *model.Customer) **string { return &c.Fax }),
		}, "", func(c *model.Customer) *model.Address { return &c.Address }),
		schema.CustomerDemographic: {
			"typeID": str(func(d *model.CustomerDemographic) *string { return &d.TypeID }),
			"info":   optStr(func(d *model.CustomerDemographic) **string { return &d.Info }),
		},
		schema.Employee: address(table{
			"lastName":        str(func(e *model.Employee) *string { return &e.LastName }),
			"firstName":       str(func(e *model.Employee) *string { return &e.FirstName }),
			"title":           optStr(func(e *model.Employee) **string { return &e.Title }),
			"titleOfCourtesy": optStr(func(e *model.Employee) **string { return &e.TitleOfCourtesy }),
			"birthDate":       optInstant(func(e *model.Employee) **time.Time { return &e.BirthDate }),
			"hireDate":        optInstant(func(e *model.Employee) **time.Time { return &e.HireDate }),
			"homePhone":       optStr(func(e *model.Employee) **string { return &e.HomePhone }),
			"photo":           blob(func(e *model.Employee) *[]byte { return &e.Photo }),
			"notes":           optStr(func(e *model.Employee) **string { return &e.Notes }),
		}, "", func(e *model.Employee) *model.Address { return &e.Address }),
		schema.Order: address(table{
			"orderDate":    instant(func(o *model.Order) *time.Time { return &o.OrderDate }),
			"requiredDate": instant(func(o *model.Order) *time.Time { return &o.RequiredDate }),
			"shippedDate":  optInstant(func(o *model.Order) **time.Time { return &o.ShippedDate }),
			"freight":      dec(func(o *model.Order) *decimal.Decimal { return &o.Freight }),
			"shipName":     optStr(func(o *model.Order) **string { return &o.ShipName }),
		}, "ship", func(o *model.Order) *model.Address { return &o.Ship }),
		schema.OrderDetail: {
			"unitPrice": dec(func(d *model.OrderDetail) *decimal.Decimal { return &d.UnitPrice }),
			"quantity":  integer(func(d *model.OrderDetail) *int64 { return &d.Quantity }),
			"discount":  dec(func(d *model.OrderDetail) *decimal.Decimal { return &d.Discount }),
		},
		schema.Shipper: {
			"companyName": str(func(s *model.Shipper) *string { return &s.CompanyName }),
			"phone":       optStr(func(s *model.Shipper) **string { return &s.Phone }),
		},
		schema.Region: {
			"name": str(func(r *model.Region) *string { return &r.Name }),
		},
		schema.Territory: {
			"code": str(func(t *model.Territory) *string { return &t.Code }),
			"name": str(func(t *model.Territory) *string { return &t.Name }),
		},
	}
}
