package transform

import (
	"strings"
)

// countryCallingCodes maps ISO 3166-1 alpha-2 codes to calling codes for the
// countries the product supports as a default-country parameter.
var countryCallingCodes = map[string]string{
	"US": "1",
	"CA": "1",
	"GB": "44",
	"IE": "353",
	"AU": "61",
	"NZ": "64",
	"DE": "49",
	"FR": "33",
	"ES": "34",
	"IT": "39",
	"NL": "31",
	"BR": "55",
	"MX": "52",
	"IN": "91",
	"JP": "81",
}

const (
	phoneMinDigits = 7
	phoneMaxDigits = 15
)

// NormalizePhone formats a phone number as E.164. Formatting characters are
// stripped; a number without a country code takes the calling code of the
// defaultCountry parameter. Numbers with fewer than 7 or more than 15
// significant digits fail the value, not the job. A number with no leading
// "+" and no usable default country is deferred for the remote engine.
func NormalizePhone(value, defaultCountry string) Result {
	s := strings.TrimSpace(value)
	if s == "" {
		return failed(value, "empty phone number")
	}

	hasPlus := strings.HasPrefix(s, "+")
	digits := keepDigits(s)
	if digits == "" {
		return failed(value, "no digits")
	}

	if hasPlus {
		if len(digits) < phoneMinDigits || len(digits) > phoneMaxDigits {
			return failed(value, "digit count out of E.164 range")
		}
		return ok("+"+digits, 1.0)
	}

	code, known := countryCallingCodes[strings.ToUpper(defaultCountry)]
	if !known {
		return deferred(value)
	}

	// A leading trunk zero is dropped when prepending a country code
	// (e.g. UK 020... → +4420...). NANP numbers given with a leading 1
	// already carry their calling code.
	if code == "1" && len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	} else if code != "1" && strings.HasPrefix(digits, "0") {
		digits = digits[1:]
	}

	if len(digits) < phoneMinDigits {
		return failed(value, "fewer than 7 significant digits")
	}
	full := code + digits
	if len(full) > phoneMaxDigits {
		return failed(value, "more than 15 significant digits")
	}
	return ok("+"+full, 1.0)
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
