// Package domainerrors defines the coded error type every operation returns to
// callers. The code is the stable, caller-visible error kind; the message is a
// human-readable description that never carries raw store or driver text.
//
// Services translate infrastructure facts (see pkg/platform/sentinel) into these
// codes at the boundary. Handlers map codes onto transport status values.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code is the stable error kind surfaced to callers.
type Code string

const (
	CodeUnauthenticated    Code = "unauthenticated"
	CodePermissionDenied   Code = "permission-denied"
	CodeInvalidArgument    Code = "invalid-argument"
	CodeNotFound           Code = "not-found"
	CodeFailedPrecondition Code = "failed-precondition"
	CodeAlreadyExists      Code = "already-exists"
	CodeInternal           Code = "internal"

	// CodeInvariantViolation is raised by domain models when a transition is not
	// allowed from the current state. Services translate it into
	// CodeFailedPrecondition before it reaches a caller.
	CodeInvariantViolation Code = "invariant-violation"
)

// Error is a coded domain error. Err holds the underlying cause for logging and
// errors.Is/As traversal; it is never rendered to callers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and caller-safe message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// As returns the outermost coded error in the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost coded error in the chain carries code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// CodeOf returns the caller-visible code for err. Uncoded errors are internal,
// and invariant violations that escaped translation surface as failed preconditions.
func CodeOf(err error) Code {
	de, ok := As(err)
	if !ok {
		return CodeInternal
	}
	if de.Code == CodeInvariantViolation {
		return CodeFailedPrecondition
	}
	return de.Code
}

// MessageOf returns the caller-safe message for err. Internal errors never
// expose their message.
func MessageOf(err error) string {
	de, ok := As(err)
	if !ok || CodeOf(err) == CodeInternal {
		return "internal error"
	}
	return de.Message
}

// HTTPStatus maps a code onto the HTTP status used by the callable transport.
func HTTPStatus(code Code) int {
	switch code {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeFailedPrecondition, CodeInvariantViolation:
		return http.StatusPreconditionFailed
	case CodeAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
