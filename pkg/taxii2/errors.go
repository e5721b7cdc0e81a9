package taxii2

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by this module matches exactly one of
// these through errors.Is.
var (
	ErrInvalidArguments   = errors.New("invalid arguments")
	ErrAccess             = errors.New("access denied")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidJSON        = errors.New("invalid JSON")
	ErrContentType        = errors.New("unexpected content type")
	ErrUnsupportedType    = errors.New("unsupported type")
	ErrTransport          = errors.New("transport error")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrUnsupportedVersion = errors.New("operation not supported by protocol version")
)

// Error is a classified error carrying a human readable message.
type Error struct {
	Kind    error
	Message string
	Err     error
}

// NewError builds an Error of the given kind.
func NewError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error of the given kind that wraps cause.
func WrapError(kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPError is returned when a server answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
	Body       []byte
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}

	return fmt.Sprintf("%s for url: %s", status, e.URL)
}

// Is reports whether target is ErrTransport.
func (e *HTTPError) Is(target error) bool {
	return target == ErrTransport
}

// IsNotFound checks if the error is a 404 from the server.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusNotFound
	}

	return false
}

// IsUnauthorized checks if the error is a 401 from the server.
func IsUnauthorized(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusUnauthorized
	}

	return false
}

// IsValidation checks if a fetched resource failed validation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsAccess checks if an operation was refused by collection permissions.
func IsAccess(err error) bool {
	return errors.Is(err, ErrAccess)
}
