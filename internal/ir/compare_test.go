package ir

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) Decimal {
	return NewDecimal(decimal.RequireFromString(s))
}

func TestCompare(t *testing.T) {
	early := NewTime(time.Date(1996, 7, 4, 0, 0, 0, 0, time.UTC))
	late := NewTime(time.Date(1998, 5, 6, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		a, b Value
		want int
	}{
		{"strings", String("Chai"), String("Chang"), -1},
		{"ints", Int(10), Int(2), 1},
		{"decimals", dec("18.00"), dec("18"), 0},
		{"int against decimal", Int(18), dec("18.5"), -1},
		{"decimal against int", dec("19.5"), Int(19), 1},
		{"bools", Bool(false), Bool(true), -1},
		{"times", late, early, 1},
		{"bytes", Bytes("ab"), Bytes("ab"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompareIncomparable(t *testing.T) {
	pairs := [][2]Value{
		{String("1"), Int(1)},
		{Null{}, Null{}},
		{List{}, List{}},
		{Bool(true), Int(1)},
	}
	for _, p := range pairs {
		_, err := Compare(p[0], p[1])
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrIncomparable))
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Null{}, nil))
	assert.False(t, Equal(Null{}, String("")))
	assert.True(t, Equal(Int(2), dec("2.0")))
	assert.True(t, Equal(List{Int(1), String("a")}, List{Int(1), String("a")}))
	assert.False(t, Equal(List{Int(1)}, List{Int(1), Int(2)}))
	assert.True(t, Equal(Object{"a": Int(1)}, Object{"a": Int(1)}))
	assert.False(t, Equal(Object{"a": Int(1)}, Object{"b": Int(1)}))
}

func TestCoerce(t *testing.T) {
	got, err := Coerce(String("12.50"), KindDecimal)
	require.NoError(t, err)
	assert.True(t, Equal(got, dec("12.5")))

	got, err = Coerce(Int(3), KindDecimal)
	require.NoError(t, err)
	assert.Equal(t, KindDecimal, got.Kind())

	got, err = Coerce(dec("4"), KindInt)
	require.NoError(t, err)
	assert.Equal(t, Int(4), got)

	got, err = Coerce(String("1996-07-04T00:00:00Z"), KindTime)
	require.NoError(t, err)
	assert.Equal(t, 1996, got.(Time).Year())

	got, err = Coerce(String("aGk="), KindBytes)
	require.NoError(t, err)
	assert.Equal(t, Bytes("hi"), got)

	got, err = Coerce(Null{}, KindString)
	require.NoError(t, err)
	assert.Equal(t, Null{}, got)
}

func TestCoerceFailures(t *testing.T) {
	_, err := Coerce(String("twelve"), KindDecimal)
	assert.Error(t, err)

	_, err = Coerce(dec("4.5"), KindInt)
	assert.Error(t, err)

	_, err = Coerce(Int(1), KindBool)
	assert.Error(t, err)

	_, err = Coerce(String("yesterday"), KindTime)
	assert.Error(t, err)
}
