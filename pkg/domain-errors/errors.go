// Package domainerrors provides code-tagged errors for the lifecycle core.
//
// Services return these so transports can map failures to responses without
// string matching. Stores return sentinel errors (pkg/platform/sentinel) and
// services translate them here at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers and transports.
type Code string

const (
	// CodeInvalidTransition marks a transition edge that does not exist in
	// the graph for the application's current status.
	CodeInvalidTransition Code = "invalid_transition"

	// CodePermissionDenied marks an actor whose role does not qualify for
	// the requested edge or operation.
	CodePermissionDenied Code = "permission_denied"

	// CodeValidation marks malformed input, including a missing mandatory
	// reason on reason-gated edges.
	CodeValidation Code = "validation_error"

	// CodeConflict marks an optimistic-version mismatch. Retryable: the
	// caller should re-read current state and re-validate.
	CodeConflict Code = "conflict"

	// CodeNotFound marks an unknown application or record.
	CodeNotFound Code = "not_found"

	// CodeStorageTimeout marks a storage operation that exceeded its bound.
	// The transaction is aborted; no partial effect remains.
	CodeStorageTimeout Code = "storage_timeout"

	// CodeIntegrityViolation marks a consent fingerprint mismatch detected
	// during verification.
	CodeIntegrityViolation Code = "integrity_violation"

	// CodeBadRequest marks a request the transport could not parse.
	CodeBadRequest Code = "bad_request"

	// CodeUnauthorized marks a missing, expired, or unverifiable token.
	CodeUnauthorized Code = "unauthorized"

	// CodeInternal marks unexpected failures. Details are logged, not
	// returned to callers.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a caller-safe message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a domain error with the given code and caller-safe message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// Is reports whether err (or anything it wraps) carries the given code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// HasCode is an alias for Is kept for call-site readability in tests.
func HasCode(err error, code Code) bool { return Is(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal for
// untagged errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Retryable reports whether the caller may retry the operation after
// re-reading current state. Only optimistic-concurrency conflicts qualify.
func Retryable(err error) bool {
	return Is(err, CodeConflict)
}
