package transform

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Date confidence tiers. An unambiguous parse is certain; a slash or dash
// date where both day-first and month-first readings are plausible resolves
// via the locale hint at reduced confidence.
const (
	dateConfidenceExact     = 1.0
	dateConfidenceParsed    = 0.9
	dateConfidenceAmbiguous = 0.7
)

var isoDateShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// unambiguousLayouts are formats with only one plausible reading.
var unambiguousLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"20060102",
}

var numericDateShape = regexp.MustCompile(`^(\d{1,2})([/-])(\d{1,2})([/-])(\d{4})$`)

// NormalizeDate converts a date string to YYYY-MM-DD. Numeric dates where
// both the day-first and month-first readings are valid are resolved by the
// locale hint ("DMY" prefers day-first, anything else month-first) at
// reduced confidence. Strings no layout matches are deferred for the remote
// engine to resolve.
func NormalizeDate(value, localeHint string) Result {
	s := strings.TrimSpace(value)
	if s == "" {
		return failed(value, "empty date")
	}

	if isoDateShape.MatchString(s) {
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return failed(value, "not a calendar date")
		}
		return ok(s, dateConfidenceExact)
	}

	for _, layout := range unambiguousLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return ok(t.Format("2006-01-02"), dateConfidenceParsed)
		}
	}

	if m := numericDateShape.FindStringSubmatch(s); m != nil {
		return resolveNumericDate(value, m, localeHint)
	}

	return deferred(value)
}

func resolveNumericDate(original string, m []string, localeHint string) Result {
	first, second, year := atoi(m[1]), atoi(m[3]), atoi(m[5])

	monthFirst := validYMD(year, first, second)
	dayFirst := validYMD(year, second, first)

	switch {
	case monthFirst && dayFirst:
		// Both readings plausible (e.g. 03/04/2024). When the two readings
		// coincide (e.g. 05/05/2024) the value is actually unambiguous.
		if first == second {
			return ok(formatYMD(year, first, second), dateConfidenceParsed)
		}
		if strings.EqualFold(localeHint, "DMY") {
			return ok(formatYMD(year, second, first), dateConfidenceAmbiguous)
		}
		return ok(formatYMD(year, first, second), dateConfidenceAmbiguous)
	case monthFirst:
		return ok(formatYMD(year, first, second), dateConfidenceParsed)
	case dayFirst:
		return ok(formatYMD(year, second, first), dateConfidenceParsed)
	default:
		return failed(original, "not a calendar date")
	}
}

func validYMD(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

func formatYMD(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
