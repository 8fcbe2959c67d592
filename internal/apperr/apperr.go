// Package apperr defines the error kinds surfaced by the comment, vote and post services
// and their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "BAD_REQUEST"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	default:
		return "INTERNAL"
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrNotFound) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrBadRequest   = &Error{Kind: KindBadRequest}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInternal     = &Error{Kind: KindInternal}
)

func BadRequest(msg string) error {
	return &Error{Kind: KindBadRequest, Message: msg}
}

func Unauthorized() error {
	return &Error{Kind: KindUnauthorized, Message: "Unauthorized"}
}

func Forbidden() error {
	return &Error{Kind: KindForbidden, Message: "Forbidden"}
}

func NotFound(msg string) error {
	if msg == "" {
		msg = "Not found"
	}
	return &Error{Kind: KindNotFound, Message: msg}
}

// Internal wraps a collaborator failure. The message shown to clients stays generic.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindInternal, Message: "Internal error", Err: err}
}

// KindOf returns the kind carried by err; errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the client-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal error"
}
