package registry

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/northwind/internal/ir"
	"github.com/roach88/northwind/internal/model"
)

func TestEncodeUsesColumnsAndOmitsNulls(t *testing.T) {
	o := &model.Order{
		OrderDate:    time.Date(1996, 7, 4, 0, 0, 0, 0, time.UTC),
		RequiredDate: time.Date(1996, 8, 1, 0, 0, 0, 0, time.UTC),
		Freight:      decimal.RequireFromString("32.38"),
		Ship:         model.Address{PostalCode: model.Ptr("51100")},
	}

	obj, err := Default().Encode(o)
	require.NoError(t, err)

	data, err := ir.MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t,
		`{"freight":"32.38","order_date":"1996-07-04T00:00:00Z","required_date":"1996-08-01T00:00:00Z","ship_postal_code":"51100"}`,
		string(data))
}

func TestDecodeFromLooseJSON(t *testing.T) {
	hired := time.Date(1992, 5, 1, 0, 0, 0, 0, time.UTC)
	src := &model.Employee{
		LastName:  "Fuller",
		FirstName: "Andrew",
		Title:     model.Ptr("Vice President, Sales"),
		HireDate:  &hired,
		Photo:     []byte{0xff, 0xd8},
		Address:   model.Address{City: model.Ptr("Tacoma")},
	}

	obj, err := Default().Encode(src)
	require.NoError(t, err)
	data, err := ir.MarshalCanonical(obj)
	require.NoError(t, err)

	loose, err := ir.UnmarshalValue(data)
	require.NoError(t, err)

	dst := &model.Employee{}
	require.NoError(t, Default().Decode(dst, loose.(ir.Object)))
	assert.Equal(t, src, dst)
}

func TestDecodeMissingRequired(t *testing.T) {
	err := Default().Decode(&model.Region{}, ir.Object{})
	assert.ErrorContains(t, err, "cannot be null")
}
