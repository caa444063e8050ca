package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/northwind/internal/container"
	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/schema"
)

// Fixture holds the identities of the sample records, keyed by a readable
// name: natural keys where the entity has one, last names for employees,
// company names for suppliers and shippers, order numbers for orders and
// "order/product" for line items.
type Fixture struct {
	Regions      map[string]model.ID
	Territories  map[string]model.ID
	Employees    map[string]model.ID
	Categories   map[string]model.ID
	Suppliers    map[string]model.ID
	Products     map[string]model.ID
	Shippers     map[string]model.ID
	Customers    map[string]model.ID
	Demographics map[string]model.ID
	Orders       map[string]model.ID
	Details      map[string]model.ID
}

// Lookup finds a sample record by entity type and readable name.
func (f *Fixture) Lookup(t schema.EntityType, name string) (model.ID, bool) {
	var m map[string]model.ID
	switch t {
	case schema.Region:
		m = f.Regions
	case schema.Territory:
		m = f.Territories
	case schema.Employee:
		m = f.Employees
	case schema.Category:
		m = f.Categories
	case schema.Supplier:
		m = f.Suppliers
	case schema.Product:
		m = f.Products
	case schema.Shipper:
		m = f.Shippers
	case schema.Customer:
		m = f.Customers
	case schema.CustomerDemographic:
		m = f.Demographics
	case schema.Order:
		m = f.Orders
	case schema.OrderDetail:
		m = f.Details
	}
	id, ok := m[name]
	return id, ok
}

// Sizes of the sample data set.
const (
	EasternTerritories = 19
	FullerReports      = 5
	BuchananReports    = 3
)

var territoriesByRegion = []struct {
	region      string
	territories [][2]string
}{
	{"Eastern", [][2]string{
		{"01581", "Westboro"}, {"01730", "Bedford"}, {"01833", "Georgetow"},
		{"02116", "Boston"}, {"02139", "Cambridge"}, {"02184", "Braintree"},
		{"02903", "Providence"}, {"03049", "Hollis"}, {"03801", "Portsmouth"},
		{"06897", "Wilton"}, {"07960", "Morristown"}, {"08837", "Edison"},
		{"10019", "New York"}, {"10038", "New York"}, {"11747", "Mellvile"},
		{"14450", "Fairport"}, {"19713", "Neward"}, {"20852", "Rockville"},
		{"27403", "Greensboro"},
	}},
	{"Western", [][2]string{
		{"85014", "Phoenix"}, {"85251", "Scottsdale"}, {"98004", "Bellevue"},
		{"98052", "Redmond"}, {"98104", "Seattle"},
	}},
	{"Northern", [][2]string{
		{"44122", "Beachwood"}, {"45839", "Findlay"}, {"48075", "Southfield"},
		{"53404", "Racine"}, {"55113", "Roseville"}, {"55439", "Minneapolis"},
	}},
	{"Southern", [][2]string{
		{"30346", "Atlanta"}, {"31406", "Savannah"}, {"32859", "Orlando"},
		{"33607", "Tampa"}, {"75234", "Dallas"}, {"78759", "Austin"},
	}},
}

var employees = []struct {
	last, first, title string
	manager            string
	territories        []string
}{
	{"Fuller", "Andrew", "Vice President, Sales", "", []string{"01581", "01730", "01833"}},
	{"Davolio", "Nancy", "Sales Representative", "Fuller", []string{"06897", "19713"}},
	{"Leverling", "Janet", "Sales Representative", "Fuller", []string{"30346", "31406", "32859", "33607"}},
	{"Peacock", "Margaret", "Sales Representative", "Fuller", []string{"20852", "27403"}},
	{"Buchanan", "Steven", "Sales Manager", "Fuller", []string{"02903", "07960", "08837", "10019", "10038", "11747", "14450"}},
	{"Callahan", "Laura", "Inside Sales Coordinator", "Fuller", []string{"44122", "45839", "53404"}},
	{"Suyama", "Michael", "Sales Representative", "Buchanan", []string{"85014", "85251", "98004", "98052", "98104"}},
	{"King", "Robert", "Sales Representative", "Buchanan", []string{"48075", "55113", "55439"}},
	{"Dodsworth", "Anne", "Sales Representative", "Buchanan", []string{"03049", "03801"}},
}

var products = []struct {
	name, qpu, price string
	stock            int64
	discontinued     bool
	category         string
	supplier         string
}{
	{"Chai", "10 boxes x 20 bags", "18", 39, false, "Beverages", "Exotic Liquids"},
	{"Chang", "24 - 12 oz bottles", "19", 17, false, "Beverages", "Exotic Liquids"},
	{"Aniseed Syrup", "12 - 550 ml bottles", "10", 13, false, "Condiments", "Exotic Liquids"},
	{"Chef Anton's Cajun Seasoning", "48 - 6 oz jars", "22", 53, false, "Condiments", "New Orleans Cajun Delights"},
	{"Chef Anton's Gumbo Mix", "", "21.35", 0, true, "Condiments", "New Orleans Cajun Delights"},
}

var orders = []struct {
	number             string
	customer, employee string
	shipper            string
	ordered, required  time.Time
	shipped            *time.Time
	freight            string
	lines              []struct {
		product  string
		price    string
		quantity int64
		discount string
	}
}{
	{"10643", "ALFKI", "Suyama", "Speedy Express", date(1997, 8, 25), date(1997, 9, 22), model.Ptr(date(1997, 9, 2)), "29.46", []struct {
		product  string
		price    string
		quantity int64
		discount string
	}{{"Chai", "18", 15, "0.25"}, {"Chang", "19", 21, "0.25"}}},
	{"10692", "ALFKI", "Peacock", "United Package", date(1997, 10, 3), date(1997, 10, 31), model.Ptr(date(1997, 10, 13)), "61.02", []struct {
		product  string
		price    string
		quantity int64
		discount string
	}{{"Aniseed Syrup", "10", 20, "0"}}},
	{"10308", "ANATR", "King", "United Package", date(1996, 9, 18), date(1996, 10, 16), nil, "1.61", []struct {
		product  string
		price    string
		quantity int64
		discount string
	}{{"Chef Anton's Cajun Seasoning", "22", 5, "0"}}},
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// builder stops at the first error so the loading code reads top to bottom.
type builder struct {
	c   *container.Container
	err error
}

func (b *builder) insert(e model.Entity) model.ID {
	if b.err != nil {
		return ""
	}
	id, err := b.c.Insert(e)
	if err != nil {
		b.err = fmt.Errorf("insert %s: %w", e.EntityType(), err)
	}
	return id
}

func (b *builder) relate(src model.ID, edge string, dst model.ID) {
	if b.err != nil {
		return
	}
	if err := b.c.Relate(src, edge, dst); err != nil {
		b.err = fmt.Errorf("relate %s.%s: %w", src, edge, err)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return model.Ptr(s)
}

// LoadNorthwind inserts the sample data set into c. It does not save.
func LoadNorthwind(c *container.Container) (*Fixture, error) {
	f := &Fixture{
		Regions:      map[string]model.ID{},
		Territories:  map[string]model.ID{},
		Employees:    map[string]model.ID{},
		Categories:   map[string]model.ID{},
		Suppliers:    map[string]model.ID{},
		Products:     map[string]model.ID{},
		Shippers:     map[string]model.ID{},
		Customers:    map[string]model.ID{},
		Demographics: map[string]model.ID{},
		Orders:       map[string]model.ID{},
		Details:      map[string]model.ID{},
	}
	b := &builder{c: c}

	for _, r := range territoriesByRegion {
		region := b.insert(&model.Region{Name: r.region})
		f.Regions[r.region] = region
		for _, t := range r.territories {
			id := b.insert(&model.Territory{Code: t[0], Name: t[1]})
			f.Territories[t[0]] = id
			b.relate(id, "region", region)
		}
	}

	for _, e := range employees {
		id := b.insert(&model.Employee{
			LastName:  e.last,
			FirstName: e.first,
			Title:     model.Ptr(e.title),
			HireDate:  model.Ptr(date(1992, 5, 1)),
			Address:   model.Address{City: model.Ptr("Seattle"), Country: model.Ptr("USA")},
		})
		f.Employees[e.last] = id
		if e.manager != "" {
			b.relate(id, "reportsTo", f.Employees[e.manager])
		}
		for _, code := range e.territories {
			b.relate(id, "territories", f.Territories[code])
		}
	}

	for _, name := range []string{"Beverages", "Condiments", "Confections"} {
		f.Categories[name] = b.insert(&model.Category{Name: name})
	}
	for _, name := range []string{"Exotic Liquids", "New Orleans Cajun Delights"} {
		f.Suppliers[name] = b.insert(&model.Supplier{CompanyName: name})
	}
	for _, p := range products {
		id := b.insert(&model.Product{
			Name:            p.name,
			QuantityPerUnit: optional(p.qpu),
			UnitPrice:       decimal.RequireFromString(p.price),
			UnitsInStock:    p.stock,
			Discontinued:    p.discontinued,
		})
		f.Products[p.name] = id
		b.relate(id, "category", f.Categories[p.category])
		b.relate(f.Suppliers[p.supplier], "products", id)
	}

	for _, name := range []string{"Speedy Express", "United Package", "Federal Shipping"} {
		f.Shippers[name] = b.insert(&model.Shipper{CompanyName: name, Phone: model.Ptr("(503) 555-9831")})
	}

	for _, d := range []string{"SMB", "ENT"} {
		f.Demographics[d] = b.insert(&model.CustomerDemographic{TypeID: d})
	}
	for _, cu := range []struct{ code, name, demographic string }{
		{"ALFKI", "Alfreds Futterkiste", "SMB"},
		{"ANATR", "Ana Trujillo Emparedados y helados", "SMB"},
		{"AROUT", "Around the Horn", "ENT"},
	} {
		id := b.insert(&model.Customer{
			Code:        cu.code,
			CompanyName: cu.name,
			Address:     model.Address{Country: model.Ptr("Germany")},
		})
		f.Customers[cu.code] = id
		b.relate(id, "demographics", f.Demographics[cu.demographic])
	}

	for _, o := range orders {
		id := b.insert(&model.Order{
			OrderDate:    o.ordered,
			RequiredDate: o.required,
			ShippedDate:  o.shipped,
			Freight:      decimal.RequireFromString(o.freight),
			ShipName:     model.Ptr(o.customer),
		})
		f.Orders[o.number] = id
		b.relate(id, "customer", f.Customers[o.customer])
		b.relate(id, "employee", f.Employees[o.employee])
		b.relate(id, "shipper", f.Shippers[o.shipper])
		for _, l := range o.lines {
			d := b.insert(&model.OrderDetail{
				UnitPrice: decimal.RequireFromString(l.price),
				Quantity:  l.quantity,
				Discount:  decimal.RequireFromString(l.discount),
			})
			f.Details[o.number+"/"+l.product] = d
			b.relate(d, "order", id)
			b.relate(d, "product", f.Products[l.product])
		}
	}

	if b.err != nil {
		return nil, b.err
	}
	return f, nil
}

// MustLoadNorthwind is LoadNorthwind for tests.
func MustLoadNorthwind(tb testing.TB, c *container.Container) *Fixture {
	tb.Helper()
	f, err := LoadNorthwind(c)
	if err != nil {
		tb.Fatalf("load northwind fixture: %v", err)
	}
	return f
}
