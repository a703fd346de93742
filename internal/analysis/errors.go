package analysis

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline errors for transport mapping. Only
// normalization failures, timeouts before normalization, capacity
// rejections and internal faults surface to the caller; per-field and
// per-detector failures are absorbed by the orchestrator.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindDecodeFailure     Kind = "decode_failure"
	KindTimeout           Kind = "timeout"
	KindBusy              Kind = "busy"
	KindInternal          Kind = "internal"
)

// Error is a pipeline error with a stable kind and message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates an Error with the given kind and message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates an Error wrapping a cause.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal if err carries none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
