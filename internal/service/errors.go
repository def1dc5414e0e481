package service

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map them to status codes, so every error leaving this
// package that a client should see wraps exactly one of them.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrExpiredCode        = errors.New("verification code expired")
	ErrDependency         = errors.New("dependency failure")
)

// Error carries a client-facing message next to its kind. The underlying
// cause, if any, is kept for logging and never shown to clients.
type Error struct {
	Kind  error
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}

	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}

	return []error{e.Kind}
}

func newErr(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapErr(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}
