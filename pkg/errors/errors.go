// Package errors provides the structured error taxonomy for userhub.
//
// Services return these errors to their callers; only the HTTP boundary maps
// them to status codes. No component inspects error strings.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups error codes by the failure class they represent.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "authentication"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

// Code identifies a specific error condition.
type Code string

const (
	// Guard rejections. Both surface as unauthorized externally but stay
	// distinguishable for diagnostics.
	CodeTokenNotFound Code = "TOKEN_NOT_FOUND"
	CodeInvalidToken  Code = "INVALID_TOKEN"

	// Bad login credentials. Deliberately identical for unknown email and
	// wrong password.
	CodeUnauthorized Code = "UNAUTHORIZED"

	CodeNotFound       Code = "NOT_FOUND"
	CodeDuplicateEmail Code = "DUPLICATE_EMAIL"
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeDatabase       Code = "DATABASE_ERROR"
	CodeInternal       Code = "INTERNAL_ERROR"
)

// Error is a structured error carrying a stable code alongside the message.
type Error struct {
	Kind    Kind                   `json:"kind"`
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a detail to the error.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause attaches an underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// New creates a structured error.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func NewTokenNotFound() *Error {
	return New(KindAuth, CodeTokenNotFound, "token not found")
}

func NewInvalidToken() *Error {
	return New(KindAuth, CodeInvalidToken, "invalid token")
}

func NewUnauthorized() *Error {
	return New(KindAuth, CodeUnauthorized, "invalid credentials")
}

func NewNotFound(message string) *Error {
	return New(KindNotFound, CodeNotFound, message)
}

func NewDuplicateEmail(email string) *Error {
	return New(KindConflict, CodeDuplicateEmail, "email already exists").
		WithDetail("email", email)
}

func NewValidation(message string) *Error {
	return New(KindValidation, CodeValidation, message)
}

func NewDatabase(message string, cause error) *Error {
	return New(KindInternal, CodeDatabase, message).WithCause(cause)
}

func NewInternal(message string, cause error) *Error {
	return New(KindInternal, CodeInternal, message).WithCause(cause)
}

// CodeOf extracts the code from an error, or CodeInternal when the error is
// not a structured one.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// AsError assigns the structured error inside err to target, reporting
// whether one was found.
func AsError(err error, target **Error) bool {
	return errors.As(err, target)
}

// HTTPStatus maps an error to the status the boundary layer should emit.
// Both guard rejection reasons and bad login credentials collapse to 401.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeTokenNotFound, CodeInvalidToken, CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateEmail:
		return http.StatusConflict
	case CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
