package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/sells-group/datacleaner-cli/internal/model"
)

// NormalizeValue canonicalizes an input value for cache keying: trimmed,
// case-folded, inner whitespace collapsed. Identical values across jobs and
// users share cache benefit this way.
func NormalizeValue(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

// CacheKey derives the content-addressed cache key for a classification:
// a stable hash over (classifier model version, recipe id, normalized input
// value). Row identity never participates.
func CacheKey(modelID string, recipeType model.RecipeType, value string) string {
	h := sha256.New()
	h.Write([]byte(modelID))
	h.Write([]byte{0x1f})
	h.Write([]byte(recipeType))
	h.Write([]byte{0x1f})
	h.Write([]byte(NormalizeValue(value)))
	return hex.EncodeToString(h.Sum(nil))
}
