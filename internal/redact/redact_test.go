package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact_MaskToken(t *testing.T) {
	in := "contact alice@example.com or 555-123-4567"
	out := Redact(in, MaskToken)
	assert.Equal(t, "contact [EMAIL] or [PHONE]", out)
}

func TestRedact_FormatPreserving(t *testing.T) {
	in := "contact alice@example.com or 555.123.4567"
	out := Redact(in, FormatPreserving)
	assert.Equal(t, "contact email@example.com or 555-555-5555", out)
}

func TestRedact_SSNBeforePhone(t *testing.T) {
	// The SSN shape overlaps the phone shape; the SSN sentinel must win in
	// both modes.
	assert.Equal(t, "[SSN]", Redact("123-45-6789", MaskToken))
	assert.Equal(t, "[SSN]", Redact("123-45-6789", FormatPreserving))
}

func TestRedact_PlainTextUntouched(t *testing.T) {
	in := "Senior Software Engineer"
	assert.Equal(t, in, Redact(in, MaskToken))
	assert.Equal(t, in, Redact(in, FormatPreserving))
}

func TestRedact_MultipleMatches(t *testing.T) {
	in := "a@x.com b@y.org"
	assert.Equal(t, "[EMAIL] [EMAIL]", Redact(in, MaskToken))
}
