// Package domainerrors provides coded errors for the governance layer.
//
// Codes classify failures for the transport layer (status mapping) and for
// tests (HasCode assertions). Guards never swallow errors: a failure either
// surfaces as a typed deny-result (investment policy) or as a coded error
// from this package (actor/field guards).
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the failure class of a domain error.
type Code string

const (
	// CodeValidation marks malformed guard input: missing required fields,
	// unknown enum values. Surfaced immediately, never retried.
	CodeValidation Code = "validation"

	// CodeAuthorizationDenied marks a failed business condition with a
	// user-displayable reason. Logged at warning.
	CodeAuthorizationDenied Code = "authorization_denied"

	// CodeSecurityViolation marks impersonation mismatches, actor/action
	// authority mismatches and field-ownership violations. Always fatal,
	// always logged at critical, never downgraded.
	CodeSecurityViolation Code = "security_violation"

	// CodeConcurrency marks lock acquisition or transaction failures. The
	// transaction is rolled back; retry is the caller's decision.
	CodeConcurrency Code = "concurrency"

	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	ErrCode Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.ErrCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.ErrCode, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates a coded error with a human-readable message.
func New(code Code, message string) error {
	return &Error{ErrCode: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{ErrCode: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. The cause stays
// reachable through errors.Is/As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{ErrCode: code, Message: message, Cause: err}
}

// CodeOf returns the code of err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.ErrCode
	}
	return CodeInternal
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.ErrCode == code
	}
	return false
}

// Reason returns the message of a coded error for end-user display, or the
// plain error text for uncoded errors.
func Reason(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
