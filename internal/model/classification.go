package model

import "time"

// ClassifierUnknown is the sentinel the classifier returns for a value it
// cannot resolve. Unknown results are recorded as value failures, they never
// overwrite the original cell.
const ClassifierUnknown = "Unknown"

// SeniorityUnknown is the sentinel label for a job title that cannot be
// mapped to a seniority level.
const SeniorityUnknown = ClassifierUnknown

// SeniorityLevels is the closed set of labels for map_job_titles.
var SeniorityLevels = []string{
	"Intern",
	"Junior",
	"Mid",
	"Senior",
	"Lead",
	"Director",
	"VP",
	"C-Level",
	SeniorityUnknown,
}

// ValidSeniority reports whether label is one of the fixed seniority levels.
func ValidSeniority(label string) bool {
	for _, l := range SeniorityLevels {
		if l == label {
			return true
		}
	}
	return false
}

// Classification is a single classified value with its confidence.
type Classification struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// CacheEntry is an immutable cached classification result. Expired entries
// are treated as misses and overwritten by the next put for the same key.
type CacheEntry struct {
	Key        string    `json:"key"`
	Value      string    `json:"value"`
	Confidence float64   `json:"confidence"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at the given time.
func (e CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
