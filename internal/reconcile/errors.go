package reconcile

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an invocation failed.
type ErrorKind string

const (
	// InitializationError: the provider client could not be constructed.
	InitializationError ErrorKind = "initialization"
	// LookupError: listing the provider's current state failed.
	LookupError ErrorKind = "lookup"
	// WriteError: a create, update or import call failed.
	WriteError ErrorKind = "write"
	// InputError: the request was rejected before any provider call.
	InputError ErrorKind = "input"
)

var errNotInitialized = errors.New("provider client not initialized")

// Error is a failure of one invocation. Op describes what was attempted; when
// empty the underlying error is reported as-is.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the ErrorKind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func inputErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: InputError, Err: fmt.Errorf(format, args...)}
}
