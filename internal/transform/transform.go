// Package transform holds the deterministic per-value cleaning functions.
// Each transform is pure and synchronous: it takes one value and returns a
// normalized value with a confidence, an explicit defer signal (hybrid steps
// route deferred values to the remote classifier), or a value-level error
// that never fails the whole job.
package transform

import (
	"errors"
	"fmt"
)

// Result is the outcome of a deterministic transform on a single value.
type Result struct {
	Value      string
	Confidence float64
	// Deferred marks a value the deterministic path cannot confidently
	// resolve; hybrid steps re-route it to the remote engine.
	Deferred bool
	Err      error
}

func ok(value string, confidence float64) Result {
	return Result{Value: value, Confidence: confidence}
}

func deferred(value string) Result {
	return Result{Value: value, Deferred: true}
}

func failed(value, reason string) Result {
	return Result{Value: value, Err: &ValueError{Value: value, Reason: reason}}
}

// ValueError marks a single value that failed a transform. The row is kept,
// the failure is recorded, and aggregate confidence drops; the job continues.
type ValueError struct {
	Value  string
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("value %q: %s", e.Value, e.Reason)
}

// IsValueError reports whether err is (or wraps) a ValueError.
func IsValueError(err error) bool {
	var ve *ValueError
	return errors.As(err, &ve)
}
