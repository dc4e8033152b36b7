// Package errs defines the error taxonomy shared by the services, the storage
// backends and the HTTP layer. Every failure that crosses a package boundary
// carries a Kind so the HTTP layer can render a stable (code, status) pair.
package errs

import (
	"errors"
	"net/http"
)

// Kind classifies an error for API rendering and logging.
type Kind string

const (
	// KindInvalid marks malformed caller input.
	KindInvalid Kind = "validation_error"
	// KindNotFound marks a reference to an absent entity.
	KindNotFound Kind = "not_found"
	// KindConflict marks a uniqueness or dependent-record violation.
	KindConflict Kind = "conflict"
	// KindTooManyRequests marks a rejected admission.
	KindTooManyRequests Kind = "too_many_requests"
	// KindInternal marks a bug or infrastructure fault.
	KindInternal Kind = "internal"
)

// HTTPStatus maps a kind to its HTTP status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalid:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a taxonomy-carrying error. Message is safe to show to callers for
// every kind except KindInternal.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two taxonomy errors by kind so sentinel-style comparisons work:
// errors.Is(err, errs.NotFound("")) holds for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// New constructs a taxonomy error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and caller-facing message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Invalid(message string) *Error  { return New(KindInvalid, message) }
func NotFound(message string) *Error { return New(KindNotFound, message) }
func Conflict(message string) *Error { return New(KindConflict, message) }

// Internal wraps an unexpected failure. The message shown to callers is
// decided by the HTTP layer, not here.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf returns the kind carried by err. Unrecognized errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Operational reports whether err is an expected, caller-correctable failure.
// Non-operational errors indicate a bug or infrastructure fault.
func Operational(err error) bool {
	return KindOf(err) != KindInternal
}
