// Package redact masks PII before any value crosses the boundary to the
// remote classifier. Redaction is one-way and stateless; deterministic
// transforms never see redacted input.
package redact

import "regexp"

// Mode selects how matched PII is replaced.
type Mode int

const (
	// MaskToken replaces matches with fixed sentinels like [EMAIL].
	MaskToken Mode = iota
	// FormatPreserving replaces matches with realistic dummies of the same
	// shape, for steps whose output format depends on input shape.
	FormatPreserving
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
)

// Redact masks emails, phone numbers, and SSN-like sequences in text.
// SSNs are always replaced with the [SSN] sentinel regardless of mode.
func Redact(text string, mode Mode) string {
	// SSN first: the pattern overlaps the phone pattern.
	out := ssnPattern.ReplaceAllString(text, "[SSN]")

	if mode == FormatPreserving {
		out = emailPattern.ReplaceAllString(out, "email@example.com")
		out = phonePattern.ReplaceAllString(out, "555-555-5555")
		return out
	}

	out = emailPattern.ReplaceAllString(out, "[EMAIL]")
	out = phonePattern.ReplaceAllString(out, "[PHONE]")
	return out
}
