package checkpoint

import (
	"errors"
	"fmt"

	"github.com/chazu/stasis/canon"
)

// ---------------------------------------------------------------------------
// Checkpoint Error Types
// ---------------------------------------------------------------------------

// Causes reported through *Error. They annotate the one error kind and can
// be matched with errors.Is.
var (
	ErrUnsupportedKey  = canon.ErrUnsupportedKey
	ErrVersionMismatch = errors.New("checkpoint version mismatch")
	ErrMissingBuiltin  = errors.New("missing built-in")
	ErrDependencyCycle = errors.New("dependency cycle")
	ErrMalformed       = errors.New("malformed checkpoint")
	ErrShapeMismatch   = errors.New("shape mismatch")
)

// Error is the only error kind returned by Dump, Load and Inspect.
type Error struct {
	Msg   string
	Cause error // one of the Err* values above, or nil
	Err   error // underlying failure, or nil
}

func (e *Error) Error() string {
	msg := "checkpoint: "
	if e.Cause != nil {
		msg += e.Cause.Error() + ": "
	}
	msg += e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	var errs []error
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(cause error, format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Cause: cause}
}

func wrapError(cause, err error, format string, args ...any) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return &Error{Msg: fmt.Sprintf(format, args...), Cause: cause, Err: err}
}
