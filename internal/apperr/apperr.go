// Package apperr defines the error kinds shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound marks a missing resource or an ownership mismatch that is reported as missing.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest marks missing or malformed parameters.
	ErrBadRequest = errors.New("bad request")
	// ErrInvalidInput marks a request body that fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidReference marks an id that does not resolve to an existing record.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrNotAuthorized marks an authenticated caller acting on someone else's resource.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrUnauthenticated marks a request without a valid identity.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Error carries a caller-facing message and the kind it belongs to.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// NotFound builds an ErrNotFound error.
func NotFound(format string, args ...any) error { return newf(ErrNotFound, format, args...) }

// BadRequest builds an ErrBadRequest error.
func BadRequest(format string, args ...any) error { return newf(ErrBadRequest, format, args...) }

// InvalidInput builds an ErrInvalidInput error.
func InvalidInput(format string, args ...any) error { return newf(ErrInvalidInput, format, args...) }

// InvalidReference builds an ErrInvalidReference error.
func InvalidReference(format string, args ...any) error {
	return newf(ErrInvalidReference, format, args...)
}

// NotAuthorized builds an ErrNotAuthorized error.
func NotAuthorized(format string, args ...any) error { return newf(ErrNotAuthorized, format, args...) }

// Unauthenticated builds an ErrUnauthenticated error.
func Unauthenticated(format string, args ...any) error {
	return newf(ErrUnauthenticated, format, args...)
}

// Status maps an error to the HTTP status code used to report it.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidReference):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
