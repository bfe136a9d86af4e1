package types

import (
	"context"
	"errors"
	"fmt"
)

// Error code constants for probe and validation failures.
const (
	ErrCodeInvalidTarget     = "INVALID_TARGET"
	ErrCodeInvalidHostname   = "INVALID_HOSTNAME"
	ErrCodeInvalidPort       = "INVALID_PORT"
	ErrCodeInvalidHeader     = "INVALID_HEADER"
	ErrCodeInvalidStatus     = "INVALID_STATUS"
	ErrCodePolicyViolation   = "POLICY_VIOLATION"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeDNSFailure        = "DNS_FAILURE"
	ErrCodeConnectionFailed  = "CONNECTION_FAILED"
	ErrCodeConnectionTimeout = "CONNECTION_TIMEOUT"
	ErrCodeHTTPRequestFailed = "HTTP_REQUEST_FAILED"
	ErrCodeUnexpectedStatus  = "UNEXPECTED_STATUS"
	ErrCodeWaitTimeout       = "WAIT_TIMEOUT"
	ErrCodeCancelled         = "CANCELLED"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Error is a structured error with a stable code, an optional target
// identity, and an optional wrapped cause.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Target  string `json:"target,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e.Target != "" && e.Err != nil:
		return fmt.Sprintf("[%s] %s: %s: %v", e.Code, e.Target, e.Message, e.Err)
	case e.Target != "":
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Target, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error without a target identity.
func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewTargetError builds an Error attributed to a specific target.
func NewTargetError(code, target, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Target: target}
}

// WrapError builds an Error wrapping an underlying cause.
func WrapError(code, target string, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Target: target, Err: err}
}

// Code returns the error code of err, or empty when err is not an *Error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCancelled reports whether err represents caller-initiated cancellation.
func IsCancelled(err error) bool {
	return Code(err) == ErrCodeCancelled || errors.Is(err, context.Canceled)
}

// IsPolicy reports whether err is a policy-gate rejection, which must not
// be retried.
func IsPolicy(err error) bool {
	c := Code(err)
	return c == ErrCodePolicyViolation || c == ErrCodeRateLimited
}
