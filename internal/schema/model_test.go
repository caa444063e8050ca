package schema

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/northwind/internal/ir"
)

func TestCurrentModelOrder(t *testing.T) {
	m := Current()
	assert.Equal(t, CurrentVersion, m.Version)
	assert.Equal(t, []EntityType{
		Product, Category, Supplier, Customer, CustomerDemographic,
		Employee, Order, OrderDetail, Shipper, Region, Territory,
	}, m.Types())
	assert.Same(t, m, Current())
}

func TestNaturalKeys(t *testing.T) {
	want := map[EntityType]string{
		Product:             "name",
		Category:            "name",
		Customer:            "code",
		CustomerDemographic: "typeID",
		Region:              "name",
		Territory:           "code",
	}

	for _, d := range Current().Entities() {
		t.Run(string(d.Type), func(t *testing.T) {
			key, ok := d.NaturalKey()
			expected, has := want[d.Type]
			require.Equal(t, has, ok)
			if has {
				assert.Equal(t, expected, key.Name)
			}
		})
	}
}

func TestAttributeLookup(t *testing.T) {
	d, ok := Current().Entity(Order)
	require.True(t, ok)

	a, ok := d.Attribute("shipPostalCode")
	require.True(t, ok)
	assert.Equal(t, "ship_postal_code", a.Column)
	assert.True(t, a.Optional)
	assert.Equal(t, ir.KindString, a.Kind)

	freight, ok := d.Attribute("freight")
	require.True(t, ok)
	assert.Equal(t, ir.KindDecimal, freight.Kind)
	assert.False(t, freight.Optional)

	_, ok = d.Attribute("ship_postal_code")
	assert.False(t, ok)

	_, ok = Current().Entity("Invoice")
	assert.False(t, ok)
}

func TestColumnName(t *testing.T) {
	tests := map[string]string{
		"name":            "name",
		"postalCode":      "postal_code",
		"typeID":          "type_id",
		"titleOfCourtesy": "title_of_courtesy",
		"shipPostalCode":  "ship_postal_code",
	}
	for in, want := range tests {
		assert.Equal(t, want, ColumnName(in), in)
	}
}

func TestNewModelRejectsDuplicates(t *testing.T) {
	_, err := NewModel(CurrentVersion, []*Descriptor{
		{Type: Region, Attributes: []Attribute{str("name")}},
		{Type: Region, Attributes: []Attribute{str("name")}},
	})
	assert.Error(t, err)

	_, err = NewModel(CurrentVersion, []*Descriptor{
		{Type: Region, Attributes: []Attribute{str("name"), str("name")}},
	})
	assert.Error(t, err)

	_, err = NewModel(CurrentVersion, []*Descriptor{
		{Type: Region, Attributes: []Attribute{str("name", unique), str("code", unique)}},
	})
	assert.Error(t, err)
}

func TestManifestGolden(t *testing.T) {
	data, err := ir.MarshalCanonical(Current().Manifest())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "model_manifest", data)
}

func TestFingerprintStable(t *testing.T) {
	assert.Equal(t, "194711df530e7c6695c47c5d34a45aff771240e5b6ef56b540db99a55592b96c", Current().Fingerprint())
}
