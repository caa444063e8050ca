package schema

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/roach88/northwind/internal/ir"
)

// EntityType names one of the Northwind entities.
type EntityType string

const (
	Product             EntityType = "Product"
	Category            EntityType = "Category"
	Supplier            EntityType = "Supplier"
	Customer            EntityType = "Customer"
	CustomerDemographic EntityType = "CustomerDemographic"
	Employee            EntityType = "Employee"
	Order               EntityType = "Order"
	OrderDetail         EntityType = "OrderDetail"
	Shipper             EntityType = "Shipper"
	Region              EntityType = "Region"
	Territory           EntityType = "Territory"
)

// CurrentVersion is the version of the model compiled into this binary.
var CurrentVersion = Version{Major: 1, Minor: 0, Patch: 0}

// Attribute describes one stored field of an entity.
type Attribute struct {
	// Name is the declared field name used in predicate keys.
	Name string
	// Column is the key the value is stored under.
	Column   string
	Kind     ir.Kind
	Optional bool
	// Unique marks the entity's natural key.
	Unique bool
}

// Descriptor is the ordered attribute list of one entity type.
type Descriptor struct {
	Type       EntityType
	Attributes []Attribute

	byName map[string]int
}

// Attribute looks up an attribute by declared name.
func (d *Descriptor) Attribute(name string) (Attribute, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Attribute{}, false
	}
	return d.Attributes[i], true
}

// NaturalKey returns the attribute marked unique, if the entity has one.
func (d *Descriptor) NaturalKey() (Attribute, bool) {
	for _, a := range d.Attributes {
		if a.Unique {
			return a, true
		}
	}
	return Attribute{}, false
}

// Model is the complete, ordered set of entity descriptors.
type Model struct {
	Version  Version
	entities []*Descriptor
	byType   map[EntityType]*Descriptor
}

// Entities returns the descriptors in declaration order.
func (m *Model) Entities() []*Descriptor {
	return m.entities
}

// Entity looks up a descriptor by type.
func (m *Model) Entity(t EntityType) (*Descriptor, bool) {
	d, ok := m.byType[t]
	return d, ok
}

// Types returns the entity types in declaration order.
func (m *Model) Types() []EntityType {
	out := make([]EntityType, len(m.entities))
	for i, d := range m.entities {
		out[i] = d.Type
	}
	return out
}

var current = sync.OnceValue(func() *Model {
	m, err := NewModel(CurrentVersion, declarations())
	if err != nil {
		panic(fmt.Sprintf("schema: invalid built-in model: %v", err))
	}
	return m
})

// Current returns the process-wide Northwind model.
func Current() *Model {
	return current()
}

// NewModel indexes descriptors and checks that entity and attribute names are
// unique and that each entity has at most one natural key.
func NewModel(v Version, descs []*Descriptor) (*Model, error) {
	m := &Model{
		Version: v,
		byType:  make(map[EntityType]*Descriptor, len(descs)),
	}
	for _, d := range descs {
		if _, dup := m.byType[d.Type]; dup {
			return nil, fmt.Errorf("entity %s declared twice", d.Type)
		}
		d.byName = make(map[string]int, len(d.Attributes))
		keys := 0
		for i, a := range d.Attributes {
			if _, dup := d.byName[a.Name]; dup {
				return nil, fmt.Errorf("entity %s: attribute %q declared twice", d.Type, a.Name)
			}
			if a.Unique {
				keys++
			}
			d.byName[a.Name] = i
		}
		if keys > 1 {
			return nil, fmt.Errorf("entity %s: %d natural keys declared", d.Type, keys)
		}
		m.byType[d.Type] = d
		m.entities = append(m.entities, d)
	}
	return m, nil
}

type attrOption func(*Attribute)

func optional(a *Attribute) { a.Optional = true }
func unique(a *Attribute)   { a.Unique = true }

func attr(name string, kind ir.Kind, opts ...attrOption) Attribute {
	a := Attribute{Name: name, Column: ColumnName(name), Kind: kind}
	for _, o := range opts {
		o(&a)
	}
	return a
}

func str(name string, opts ...attrOption) Attribute { return attr(name, ir.KindString, opts...) }

// address returns the optional postal fields, each prefixed when prefix is set.
func address(prefix string) []Attribute {
	names := []string{"address", "city", "region", "postalCode", "country"}
	out := make([]Attribute, len(names))
	for i, n := range names {
		if prefix != "" {
			n = prefix + strings.ToUpper(n[:1]) + n[1:]
		}
		out[i] = str(n, optional)
	}
	return out
}

func attrs(groups ...[]Attribute) []Attribute {
	var out []Attribute
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func declarations() []*Descriptor {
	return []*Descriptor{
		{Type: Product, Attributes: []Attribute{
			str("name", unique),
			str("quantityPerUnit", optional),
			attr("unitPrice", ir.KindDecimal),
			attr("unitsInStock", ir.KindInt),
			attr("unitsOnOrder", ir.KindInt),
			attr("reorderLevel", ir.KindInt),
			attr("discontinued", ir.KindBool),
		}},
		{Type: Category, Attributes: []Attribute{
			str("name", unique),
			str("info", optional),
			attr("picture", ir.KindBytes, optional),
		}},
		{Type: Supplier, Attributes: attrs(
			[]Attribute{
				str("companyName"),
				str("contactName", optional),
				str("contactTitle", optional),
			},
			address(""),
			[]Attribute{
				str("phone", optional),
				str("fax", optional),
				str("homePage", optional),
			},
		)},
		{Type: Customer, Attributes: attrs(
			[]Attribute{
				str("code", unique),
				str("companyName"),
				str("contactName", optional),
				str("contactTitle", optional),
			},
			address(""),
			[]Attribute{
				str("phone", optional),
				str("fax", optional),
			},
		)},
		{Type: CustomerDemographic, Attributes: []Attribute{
			str("typeID", unique),
			str("info", optional),
		}},
		{Type: Employee, Attributes: attrs(
			[]Attribute{
				str("lastName"),
				str("firstName"),
				str("title", optional),
				str("titleOfCourtesy", optional),
				attr("birthDate", ir.KindTime, optional),
				attr("hireDate", ir.KindTime, optional),
			},
			address(""),
			[]Attribute{
				str("homePhone", optional),
				attr("photo", ir.KindBytes, optional),
				str("notes", optional),
			},
		)},
		{Type: Order, Attributes: attrs(
			[]Attribute{
				attr("orderDate", ir.KindTime),
				attr("requiredDate", ir.KindTime),
				attr("shippedDate", ir.KindTime, optional),
				attr("freight", ir.KindDecimal),
				str("shipName", optional),
			},
			address("ship"),
		)},
		{Type: OrderDetail, Attributes: []Attribute{
			attr("unitPrice", ir.KindDecimal),
			attr("quantity", ir.KindInt),
			attr("discount", ir.KindDecimal),
		}},
		{Type: Shipper, Attributes: []Attribute{
			str("companyName"),
			str("phone", optional),
		}},
		{Type: Region, Attributes: []Attribute{
			str("name", unique),
		}},
		{Type: Territory, Attributes: []Attribute{
			str("code", unique),
			str("name"),
		}},
	}
}

// ColumnName converts a declared camelCase name to its snake_case storage
// key: "postalCode" becomes "postal_code" and "typeID" becomes "type_id".
func ColumnName(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Manifest renders the model as a value suitable for canonical encoding.
// Stores record its fingerprint next to the version.
func (m *Model) Manifest() ir.Object {
	entities := make(ir.List, len(m.entities))
	for i, d := range m.entities {
		list := make(ir.List, len(d.Attributes))
		for j, a := range d.Attributes {
			list[j] = ir.Object{
				"name":     ir.String(a.Name),
				"column":   ir.String(a.Column),
				"kind":     ir.String(a.Kind.String()),
				"optional": ir.Bool(a.Optional),
				"unique":   ir.Bool(a.Unique),
			}
		}
		entities[i] = ir.Object{
			"type":       ir.String(string(d.Type)),
			"attributes": list,
		}
	}
	return ir.Object{
		"version":  ir.String(m.Version.String()),
		"entities": entities,
	}
}

// Fingerprint hashes the canonical manifest.
func (m *Model) Fingerprint() string {
	return ir.MustFingerprint(ir.DomainSchema, m.Manifest())
}
