package engine

import (
	"hash/fnv"
	"math/rand/v2"
	"sort"

	"github.com/sells-group/datacleaner-cli/internal/table"
)

// previewRowCap bounds the preview regardless of configured sample sizes.
const previewRowCap = 100

// buildPreview samples a bounded slice of the result: a fixed head, a fixed
// tail, and a random draw from the middle. The draw is seeded by job id so
// re-running the same job reproduces the preview byte for byte.
func buildPreview(t *table.Table, head, tail, random int, jobID string) *table.Table {
	if over := head + tail + random - previewRowCap; over > 0 {
		cut := min(over, random)
		random -= cut
		over -= cut
		cut = min(over, tail)
		tail -= cut
		head -= over - cut
	}

	n := len(t.Rows)
	if n <= head+tail+random {
		return t.Clone()
	}

	indices := make([]int, 0, head+tail+random)
	for i := 0; i < head; i++ {
		indices = append(indices, i)
	}
	for i := n - tail; i < n; i++ {
		indices = append(indices, i)
	}

	middle := make([]int, 0, n-head-tail)
	for i := head; i < n-tail; i++ {
		middle = append(middle, i)
	}
	rng := rand.New(rand.NewPCG(seedFrom(jobID), 0))
	rng.Shuffle(len(middle), func(i, j int) {
		middle[i], middle[j] = middle[j], middle[i]
	})
	indices = append(indices, middle[:random]...)

	sort.Ints(indices)
	return t.SelectRows(indices)
}

func seedFrom(jobID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(jobID))
	return h.Sum64()
}
