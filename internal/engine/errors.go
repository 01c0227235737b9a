package engine

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// FatalJobError aborts the whole job: unreadable source file, every required
// column missing, an entitlement violation, or a row limit breach. Per-value
// failures never use this type.
type FatalJobError struct {
	Reason string
	Err    error
}

func (e *FatalJobError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fatal: %s: %v", e.Reason, e.Err)
	}
	return "fatal: " + e.Reason
}

func (e *FatalJobError) Unwrap() error { return e.Err }

func fatalf(format string, args ...any) error {
	return &FatalJobError{Reason: fmt.Sprintf(format, args...)}
}

func fatal(reason string, err error) error {
	return &FatalJobError{Reason: reason, Err: err}
}

// IsFatal reports whether err is (or wraps) a FatalJobError.
func IsFatal(err error) bool {
	var fe *FatalJobError
	return eris.As(err, &fe)
}

// ValidationError rejects a job before execution starts: an unknown recipe
// or malformed parameters. The job stays queued and never reaches processing.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(reason string, err error) error {
	return &ValidationError{Reason: reason, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return eris.As(err, &ve)
}
