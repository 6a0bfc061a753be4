// Package apperr defines the error taxonomy shared by services and handlers.
// Services return *Error values; handlers map Kind to an HTTP status and
// expose Code/Message to the caller.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Validation is a malformed or missing input, always the caller's fault.
	Validation Kind = iota
	// NotFound means a referenced entity does not exist.
	NotFound
	// Conflict covers duplicate accounts, self-purchase and similar clashes.
	Conflict
	// State covers logical state failures: expired or mismatched codes,
	// purchases that are not yet confirmable. Never recovered locally.
	State
	// Unavailable marks a degraded dependency (gateway, mail). Engines fall
	// back where a fallback exists, otherwise it is surfaced.
	Unavailable
	// Internal is an unexpected store or infrastructure failure.
	Internal
)

type Error struct {
	Kind    Kind
	Code    string // stable machine code, e.g. "self_purchase"
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets sentinel-style comparison work: two *Errors match when their
// codes match, so errors.Is(err, apperr.New(...)) compares by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error,
// defaulting to Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// CodeOf returns the stable code of err, or "internal" for plain errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

// MessageOf returns the caller-facing message of err. Plain errors are not
// exposed verbatim.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
