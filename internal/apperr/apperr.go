// Package apperr carries the error taxonomy shared by services and handlers.
// Handlers pick the HTTP status from the Kind, never from the message.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindAuthentication    Kind = "AUTHENTICATION"
	KindAuthorization     Kind = "AUTHORIZATION"
	KindNotFound          Kind = "NOT_FOUND"
	KindRateLimited       Kind = "RATE_LIMITED"
	KindDependencyFailure Kind = "DEPENDENCY_FAILURE"
	KindUnexpected        Kind = "UNEXPECTED"
)

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

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error     { return New(KindValidation, message) }
func Unauthenticated(message string) *Error { return New(KindAuthentication, message) }
func Forbidden(message string) *Error      { return New(KindAuthorization, message) }
func NotFound(message string) *Error       { return New(KindNotFound, message) }
func RateLimited(message string) *Error    { return New(KindRateLimited, message) }

func Dependency(message string, err error) *Error {
	return Wrap(KindDependencyFailure, message, err)
}

// KindOf returns the kind of the first *Error in the chain, or UNEXPECTED.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func Status(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the client-facing message for err. Server-side failures
// collapse to a generic message unless debug is set.
func PublicMessage(err error, debug bool) string {
	var e *Error
	if !errors.As(err, &e) {
		if debug {
			return err.Error()
		}
		return "Internal server error"
	}
	if Status(e.Kind) >= http.StatusInternalServerError && !debug {
		return "Internal server error"
	}
	if debug && e.Err != nil {
		return e.Error()
	}
	return e.Message
}
