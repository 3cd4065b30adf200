package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries the HTTP status decided where the failure was detected.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, msg string) *Error {
	return &Error{Status: status, Message: msg}
}

func NotFound(msg string) *Error     { return New(http.StatusNotFound, msg) }
func BadRequest(msg string) *Error   { return New(http.StatusBadRequest, msg) }
func Forbidden(msg string) *Error    { return New(http.StatusForbidden, msg) }
func Unauthorized(msg string) *Error { return New(http.StatusUnauthorized, msg) }
func Conflict(msg string) *Error     { return New(http.StatusConflict, msg) }

func BadRequestf(format string, args ...interface{}) *Error {
	return BadRequest(fmt.Sprintf(format, args...))
}

// Internal wraps an unexpected failure. The message is safe to show to clients.
func Internal(msg string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: msg, Err: err}
}

// StatusOf returns the status carried by err, or 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Is reports whether err carries the given status.
func Is(err error, status int) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == status
}
