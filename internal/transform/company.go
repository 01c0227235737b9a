package transform

import "strings"

// DefaultCompanySuffixes are legal suffixes stripped before a company name
// is sent to the remote normalizer, reducing tokens and cache misses.
var DefaultCompanySuffixes = []string{
	"Inc",
	"Inc.",
	"Incorporated",
	"LLC",
	"L.L.C.",
	"Ltd",
	"Ltd.",
	"Limited",
	"Corp",
	"Corp.",
	"Corporation",
	"Co",
	"Co.",
	"Company",
	"LLP",
	"L.L.P.",
	"LP",
	"L.P.",
	"PLC",
	"P.L.C.",
}

// StripCompanySuffix removes a trailing legal suffix (and any separating
// comma) from a company name. The suffix must be its own word: names that
// merely end in a suffix string ("Cisco", "Texaco") are left alone. Returns
// the stripped name and whether a suffix was removed. Only one trailing
// suffix is stripped per call.
func StripCompanySuffix(value string, suffixes []string) (string, bool) {
	if len(suffixes) == 0 {
		suffixes = DefaultCompanySuffixes
	}
	s := strings.TrimSpace(value)

	for _, suffix := range suffixes {
		if len(s) <= len(suffix) {
			continue
		}
		tail := s[len(s)-len(suffix):]
		if !strings.EqualFold(tail, suffix) {
			continue
		}
		if sep := s[len(s)-len(suffix)-1]; sep != ' ' && sep != ',' {
			continue
		}
		head := strings.TrimRight(s[:len(s)-len(suffix)], " ,")
		if head == "" {
			continue
		}
		return head, true
	}

	return s, false
}
