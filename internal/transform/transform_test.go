package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	res := NormalizeEmail("  Alice.Smith@Example.COM ")
	require.NoError(t, res.Err)
	assert.Equal(t, "alice.smith@example.com", res.Value)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestNormalizeEmail_Invalid(t *testing.T) {
	for _, v := range []string{"not-an-email", "a@b", "@example.com", ""} {
		res := NormalizeEmail(v)
		assert.Error(t, res.Err, "value %q", v)
		assert.True(t, IsValueError(res.Err))
	}
}

func TestTitleCase_Basic(t *testing.T) {
	res := TitleCase("jOHN SMITH", nil)
	require.NoError(t, res.Err)
	assert.Equal(t, "John Smith", res.Value)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestTitleCase_DefaultExceptions(t *testing.T) {
	res := TitleCase("ronald mcdonald", nil)
	require.NoError(t, res.Err)
	assert.Equal(t, "Ronald McDonald", res.Value)

	res = TitleCase("ludwig VAN beethoven", nil)
	require.NoError(t, res.Err)
	assert.Equal(t, "Ludwig van Beethoven", res.Value)
}

func TestTitleCase_CustomExceptions(t *testing.T) {
	res := TitleCase("acme devops team", []string{"DevOps"})
	require.NoError(t, res.Err)
	assert.Equal(t, "Acme DevOps Team", res.Value)
}

func TestTitleCase_Empty(t *testing.T) {
	res := TitleCase("  ", nil)
	require.Error(t, res.Err)
}

func TestStripCompanySuffix(t *testing.T) {
	tests := []struct {
		in       string
		want     string
		stripped bool
	}{
		{"Acme Inc", "Acme", true},
		{"Acme, Inc.", "Acme", true},
		{"Acme Corporation", "Acme", true},
		{"Globex LLC", "Globex", true},
		{"Acme", "Acme", false},
		{"Inc", "Inc", false},
	}
	for _, tc := range tests {
		got, stripped := StripCompanySuffix(tc.in, nil)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
		assert.Equal(t, tc.stripped, stripped, "input %q", tc.in)
	}
}

func TestStripCompanySuffix_SuffixMustBeOwnWord(t *testing.T) {
	// Names that happen to end in a suffix string stay intact.
	for _, name := range []string{"Cisco", "Texaco", "Petco", "Adelco", "Scorp", "Vinc"} {
		got, stripped := StripCompanySuffix(name, nil)
		assert.False(t, stripped, "input %q", name)
		assert.Equal(t, name, got, "input %q", name)
	}

	got, stripped := StripCompanySuffix("Texaco Co", nil)
	assert.True(t, stripped)
	assert.Equal(t, "Texaco", got)

	got, stripped = StripCompanySuffix("Petco,Inc.", nil)
	assert.True(t, stripped)
	assert.Equal(t, "Petco", got)
}

func TestStripCompanySuffix_CustomList(t *testing.T) {
	got, stripped := StripCompanySuffix("Acme GmbH", []string{"GmbH"})
	assert.True(t, stripped)
	assert.Equal(t, "Acme", got)
}
