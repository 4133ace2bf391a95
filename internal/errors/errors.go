// Package errors provides the domain error type shared by the services and the GraphQL layer.
//
// Usage:
//
//	// In services - return typed errors
//	if existing != nil {
//	    return nil, errors.BadUserInput("Book is already added").WithInvalidArgs(title)
//	}
//
//	// In resolvers - check with errors.Is
//	if errors.Is(err, errors.ErrUnauthenticated) {
//	    ...
//	}
//
// *Error implements Extensions(), so graphql-go copies its code and
// invalid arguments into the "extensions" object of the response error.
package errors

import (
	"errors"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code surfaced in GraphQL extensions.
type Code string

// Error codes used throughout the application.
const (
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeBadUserInput    Code = "BAD_USER_INPUT"
	CodeInternal        Code = "INTERNAL_SERVER_ERROR"
)

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code        Code   `json:"code"`
	Message     string `json:"message"`
	InvalidArgs any    `json:"invalidArgs,omitempty"`
	Details     any    `json:"details,omitempty"`
	cause       error
}

// Error implements the error interface.
// The cause is deliberately left out: the message is what clients see.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Extensions implements the graphql-go extensions interface.
func (e *Error) Extensions() map[string]any {
	ext := map[string]any{"code": string(e.Code)}
	if e.InvalidArgs != nil {
		ext["invalidArgs"] = e.InvalidArgs
	}
	if e.Details != nil {
		ext["details"] = e.Details
	}
	return ext
}

// WithInvalidArgs returns a copy of the error carrying the offending input value.
func (e *Error) WithInvalidArgs(args any) *Error {
	cp := *e
	cp.InvalidArgs = args
	return &cp
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCause returns a copy of the error wrapping an underlying error.
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.cause = err
	return &cp
}

// Sentinel errors for use with errors.Is().
var (
	ErrUnauthenticated = &Error{Code: CodeUnauthenticated, Message: "unauthenticated"}
	ErrBadUserInput    = &Error{Code: CodeBadUserInput, Message: "bad user input"}
	ErrInternal        = &Error{Code: CodeInternal, Message: "internal server error"}
)

// Unauthenticated creates an unauthenticated error.
func Unauthenticated(msg string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: msg}
}

// BadUserInput creates a bad user input error.
func BadUserInput(msg string) *Error {
	return &Error{Code: CodeBadUserInput, Message: msg}
}

// ValidationWithDetails creates a bad user input error carrying per-field messages.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeBadUserInput, Message: msg, Details: details}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Public converts any error into one that is safe to hand to a client.
// Domain errors pass through untouched; anything else becomes ErrInternal
// wrapping the cause so it can still be logged.
func Public(err error) *Error {
	if err == nil {
		return nil
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return Wrap(err, CodeInternal, ErrInternal.Message)
}
