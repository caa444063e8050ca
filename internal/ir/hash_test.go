package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintKnownValue(t *testing.T) {
	fp, err := Fingerprint(DomainFilter, Object{"a": Int(1)})
	require.NoError(t, err)
	assert.Equal(t, "1cd4cca640ca0da348add5488c0a8735ea6ffffa5d4f0782805bbd18ab4462e8", fp)
}

func TestFingerprintDomainSeparation(t *testing.T) {
	v := Object{"a": Int(1)}
	filter := MustFingerprint(DomainFilter, v)
	record := MustFingerprint(DomainRecord, v)

	assert.NotEqual(t, filter, record)
	assert.Equal(t, "291984c58ade21125b61fa53127c32cde45ae7b3144d551a671c14d88ef97bd8", record)
}

func TestFingerprintKeyOrderIndependent(t *testing.T) {
	a := MustFingerprint(DomainFilter, Object{"x": Int(1), "y": String("b")})
	b := MustFingerprint(DomainFilter, Object{"y": String("b"), "x": Int(1)})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}
