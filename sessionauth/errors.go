package sessionauth

import (
	"errors"
	"fmt"
)

// ErrorCode classifies every failure the session service can report
type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrMalformedToken ErrorCode = "MALFORMED_TOKEN"
	ErrExpired        ErrorCode = "EXPIRED"
	ErrRevoked        ErrorCode = "REVOKED"
	ErrInfrastructure ErrorCode = "INFRASTRUCTURE"
	ErrConfigError    ErrorCode = "CONFIG_ERROR"
	ErrMissingToken   ErrorCode = "MISSING_TOKEN"
)

// Sentinel errors returned by TokenStore and UserDirectory implementations.
var (
	ErrRecordNotFound = errors.New("token record not found")
	ErrUserNotFound   = errors.New("user not found")
)

// Error is the single error type surfaced by the package
type Error struct {
	Code     ErrorCode
	Message  string
	Internal error
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause
func (e *Error) Unwrap() error {
	return e.Internal
}

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new classified error
func NewError(code ErrorCode, message string, internal error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Internal: internal,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "UNKNOWN".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "UNKNOWN"
}

// IsInfrastructure reports whether err is a store or directory failure
// rather than a verdict about the credentials themselves.
func IsInfrastructure(err error) bool {
	return CodeOf(err) == ErrInfrastructure
}
