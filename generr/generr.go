package generr

import (
	"errors"
	"fmt"
	"strings"
)

// Standard error codes used across the resolver for consistent error
// reporting.
const (
	// CodeUnsupportedPrefix indicates an identifier system the registry
	// client does not recognize.
	CodeUnsupportedPrefix = "UNSUPPORTED_PREFIX"

	// CodeInefficientUsage indicates a single-item resolution was
	// attempted for an identifier type that must be batched.
	CodeInefficientUsage = "INEFFICIENT_USAGE"

	// CodeTransport indicates a network-level failure (connection or
	// timeout), retried before being surfaced.
	CodeTransport = "TRANSPORT_ERROR"

	// CodeRegistry indicates a structured application error returned by
	// the allele registry. Not retried.
	CodeRegistry = "REGISTRY_ERROR"

	// CodeNotFound indicates the service had no match for the query.
	// Lookups treat this as a terminal success with an empty result; the
	// code exists for per-item reporting.
	CodeNotFound = "NOT_FOUND"

	// CodeParse indicates a malformed or unexpected payload shape.
	CodeParse = "PARSE_ERROR"

	// CodeContract indicates a programming-contract violation by the
	// caller, such as mixing prefixes in one batch call.
	CodeContract = "CONTRACT_VIOLATION"
)

// Error is a structured error for resolver operations. It records which
// service and operation failed, carries a standard error code, and can
// wrap an underlying cause.
type Error struct {
	// Service is the external collaborator involved (e.g., "clingen",
	// "myvariant", "cache").
	Service string

	// Operation is the specific operation that failed (e.g.,
	// "ResolveBatch", "query").
	Operation string

	// Code is one of the standard error code constants.
	Code string

	// Message is a human-readable description. For registry application
	// errors this carries the registry's own errorType and description.
	Message string

	// Details contains additional context as key-value pairs.
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error
}

// New creates a structured resolver error.
func New(service, operation, code, message string) *Error {
	return &Error{
		Service:   service,
		Operation: operation,
		Code:      code,
		Message:   message,
	}
}

// Wrap creates a structured resolver error wrapping an underlying cause.
func Wrap(service, operation, code, message string, cause error) *Error {
	return &Error{
		Service:   service,
		Operation: operation,
		Code:      code,
		Message:   message,
		Cause:     cause,
	}
}

// WithDetail attaches a key-value pair to the error and returns it for
// chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s [%s]", e.Service, e.Operation, e.Code)
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code, so sentinel
// comparisons like errors.Is(err, generr.New("", "", CodeParse, "")) work
// across wrapped chains.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// IsCode reports whether err is, or wraps, a resolver error with the
// given code.
func IsCode(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// CodeOf returns the resolver error code carried by err, or the empty
// string when err carries none.
func CodeOf(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}

// Retryable reports whether an error with the given code is worth
// retrying. Only transport-level failures are; structured application
// errors, contract violations, and parse failures are terminal.
func Retryable(code string) bool {
	return code == CodeTransport
}
