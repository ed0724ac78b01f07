package core

import (
	"errors"
	"fmt"
)

// Kind classifies failures crossing the service boundary so the transport
// layer can map them without inspecting error text.
type Kind string

const (
	// KindInvalidInput marks errors caused by the caller's payload; rejected
	// before any model or index call and never retried.
	KindInvalidInput Kind = "invalid_input"
	// KindUnavailable marks a dependency (model server, vector index) that is
	// not ready or not reachable. Distinct from an empty result.
	KindUnavailable Kind = "unavailable"
	// KindInternal marks everything else.
	KindInternal Kind = "internal"
)

// Error pairs a failure kind with a wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewInputError wraps a caller-input failure.
func NewInputError(msg string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Msg: msg, Err: err}
}

// NewUnavailableError wraps a dependency-not-ready failure.
func NewUnavailableError(msg string, err error) *Error {
	return &Error{Kind: KindUnavailable, Msg: msg, Err: err}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to KindInternal.
func KindOf(err error) Kind {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Kind
	}
	return KindInternal
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
