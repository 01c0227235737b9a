package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone_USFormatted(t *testing.T) {
	res := NormalizePhone("(555) 123-4567", "US")
	require.NoError(t, res.Err)
	assert.Equal(t, "+15551234567", res.Value)
	assert.Equal(t, 1.0, res.Confidence)
	assert.False(t, res.Deferred)
}

func TestNormalizePhone_AlreadyE164(t *testing.T) {
	res := NormalizePhone("+442071234567", "US")
	require.NoError(t, res.Err)
	assert.Equal(t, "+442071234567", res.Value)
}

func TestNormalizePhone_LeadingCountryDigit(t *testing.T) {
	// US numbers often arrive with the 1 already present.
	res := NormalizePhone("1-555-123-4567", "US")
	require.NoError(t, res.Err)
	assert.Equal(t, "+15551234567", res.Value)
}

func TestNormalizePhone_TrunkZero(t *testing.T) {
	res := NormalizePhone("020 7123 4567", "GB")
	require.NoError(t, res.Err)
	assert.Equal(t, "+442071234567", res.Value)
}

func TestNormalizePhone_TooFewDigits(t *testing.T) {
	res := NormalizePhone("123456", "US")
	require.Error(t, res.Err)
	assert.True(t, IsValueError(res.Err))
}

func TestNormalizePhone_TooManyDigits(t *testing.T) {
	res := NormalizePhone("+12345678901234567890", "US")
	require.Error(t, res.Err)
	assert.True(t, IsValueError(res.Err))
}

func TestNormalizePhone_NoDefaultCountryDefers(t *testing.T) {
	res := NormalizePhone("555-123-4567", "")
	require.NoError(t, res.Err)
	assert.True(t, res.Deferred)
}

func TestNormalizePhone_UnknownCountryDefers(t *testing.T) {
	res := NormalizePhone("555-123-4567", "ZZ")
	assert.True(t, res.Deferred)
}

func TestNormalizePhone_Empty(t *testing.T) {
	res := NormalizePhone("   ", "US")
	require.Error(t, res.Err)
	assert.True(t, IsValueError(res.Err))
}
