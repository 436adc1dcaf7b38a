/*
Package dynamodol – error types.
*/
package dynamodol

import (
	"errors"
	"fmt"
)

// ErrorCode is a well-known error category string.
type ErrorCode string

const (
	// ErrConfiguration marks a bad schema or reader configuration. Fatal at
	// construction time, never retried.
	ErrConfiguration ErrorCode = "ConfigurationError"

	// ErrKeySchema marks an external key whose shape does not match the
	// configured key schema (scalar vs composite).
	ErrKeySchema ErrorCode = "KeySchemaMismatchError"

	// ErrInvalidOperator marks a filter operator that is not valid in its
	// context (partition key, sort key, attribute, or size).
	ErrInvalidOperator ErrorCode = "InvalidOperatorError"

	// ErrNoSuchKey marks a read or delete for which no item exists.
	ErrNoSuchKey ErrorCode = "NoSuchKeyError"

	// ErrValidation marks a malformed filter operand (e.g. $between bounds).
	ErrValidation ErrorCode = "ValidationError"

	// ErrRuntime wraps unclassified remote-engine faults.
	ErrRuntime ErrorCode = "RuntimeError"
)

// Error is the error type returned by this package. It carries a Code and a
// free-form Context map for extra debugging data.
type Error struct {
	Message string
	Code    ErrorCode
	Context map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError constructs an Error.
func NewError(msg string, opts ...func(*Error)) *Error {
	err := &Error{Message: msg}
	for _, o := range opts {
		o(err)
	}
	return err
}

// WithCode sets the error code.
func WithCode(c ErrorCode) func(*Error) {
	return func(e *Error) { e.Code = c }
}

// WithContext attaches a context map.
func WithContext(ctx map[string]any) func(*Error) {
	return func(e *Error) { e.Context = ctx }
}

// WithCause wraps an underlying error.
func WithCause(cause error) func(*Error) {
	return func(e *Error) { e.Cause = cause }
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsNoSuchKey reports whether err indicates a missing item.
func IsNoSuchKey(err error) bool { return hasCode(err, ErrNoSuchKey) }

// IsConfiguration reports whether err is a construction-time configuration error.
func IsConfiguration(err error) bool { return hasCode(err, ErrConfiguration) }

// IsKeySchemaMismatch reports whether err indicates a key of the wrong shape.
func IsKeySchemaMismatch(err error) bool { return hasCode(err, ErrKeySchema) }

// IsInvalidOperator reports whether err indicates an operator used outside
// its valid context.
func IsInvalidOperator(err error) bool { return hasCode(err, ErrInvalidOperator) }
