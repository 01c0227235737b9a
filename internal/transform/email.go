package transform

import (
	"regexp"
	"strings"
)

var emailShape = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail trims, lowercases, and validates an email address.
// Valid addresses normalize at confidence 1.0; invalid ones are value errors.
func NormalizeEmail(value string) Result {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return failed(value, "empty email")
	}
	if !emailShape.MatchString(normalized) {
		return failed(value, "not a valid email address")
	}
	return ok(normalized, 1.0)
}
