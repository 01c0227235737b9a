package transform

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultNameExceptions are casing exceptions applied word-by-word,
// case-insensitively, preserving the exception's canonical casing.
var DefaultNameExceptions = []string{
	"McDonald",
	"MacDonald",
	"O'Brien",
	"O'Connor",
	"O'Reilly",
	"van",
	"von",
	"de",
	"del",
	"della",
	"di",
	"da",
	"le",
	"la",
}

var titleCaser = cases.Title(language.English)

// TitleCase converts a name to title case, honoring the exception list.
// An empty exceptions slice falls back to DefaultNameExceptions.
func TitleCase(value string, exceptions []string) Result {
	s := strings.TrimSpace(value)
	if s == "" {
		return failed(value, "empty value")
	}
	if len(exceptions) == 0 {
		exceptions = DefaultNameExceptions
	}

	canonical := make(map[string]string, len(exceptions))
	for _, e := range exceptions {
		canonical[strings.ToLower(e)] = e
	}

	words := strings.Fields(s)
	for i, w := range words {
		if c, found := canonical[strings.ToLower(w)]; found {
			words[i] = c
			continue
		}
		words[i] = titleCaser.String(strings.ToLower(w))
	}

	return ok(strings.Join(words, " "), 1.0)
}
