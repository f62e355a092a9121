package errors

import (
	"errors"
	"net/http"
)

// Error is the caller-facing error type. Every error that crosses the service
// boundary carries the HTTP status it should map to, so handlers never have to
// inspect error strings.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *Error) Error() string {
	return e.Message
}

func New(message string, status int) *Error {
	return &Error{Message: message, Status: status}
}

// NewValidation reports malformed or contradictory input, e.g. a user-scope
// notification without an owner.
func NewValidation(message string) *Error {
	return New(message, http.StatusBadRequest)
}

func NewNotFound(message string) *Error {
	return New(message, http.StatusNotFound)
}

func NewForbidden(message string) *Error {
	return New(message, http.StatusForbidden)
}

// NewConflict reports an operation invoked against a record in the wrong
// lifecycle state, e.g. hard-deleting a record that was never soft-deleted.
func NewConflict(message string) *Error {
	return New(message, http.StatusConflict)
}

func statusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

func IsValidation(err error) bool { return statusOf(err) == http.StatusBadRequest }
func IsNotFound(err error) bool   { return statusOf(err) == http.StatusNotFound }
func IsForbidden(err error) bool  { return statusOf(err) == http.StatusForbidden }
func IsConflict(err error) bool   { return statusOf(err) == http.StatusConflict }

// Status resolves the HTTP status for any error, falling back to 500 for
// errors that did not originate at the service boundary.
func Status(err error) int {
	if s := statusOf(err); s != 0 {
		return s
	}
	return http.StatusInternalServerError
}
