package integration

import (
	"errors"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Framework Errors
// ---------------------------------------------------------------------------

var (
	// Registry errors
	ErrUnknownModule      = errors.New("integration: unknown module")
	ErrDuplicateModule    = errors.New("integration: module already registered")
	ErrDependencyNotReady = errors.New("integration: module dependency not registered")

	// Catalog errors
	ErrCatalogIntegrity = errors.New("integration: module catalog integrity fault")

	// Rate limiter errors
	ErrAdmissionTimeout = errors.New("integration: rate limit admission timed out")
	ErrQuotaExhausted   = errors.New("integration: daily request quota exhausted")
)

// ---------------------------------------------------------------------------
// Error Taxonomy
// ---------------------------------------------------------------------------

// ErrorCode is the stable taxonomy code callers branch on. All failures
// surfaced by the framework carry exactly one of these codes.
type ErrorCode string

const (
	// ErrorCodeInvalidInput indicates a missing or invalid request field
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorCodeAuthFailed indicates the provider rejected authentication
	ErrorCodeAuthFailed ErrorCode = "AUTH_FAILED"
	// ErrorCodeNotFound indicates the requested resource is absent
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeValidationFailed indicates a provider-side validation error
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrorCodeRateLimitExceeded indicates provider throttling or a local
	// admission timeout against a saturated bucket
	ErrorCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrorCodeServiceUnavailable indicates a provider outage
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrorCodeConnectionFailed indicates the connection was refused or
	// aborted before any response was received
	ErrorCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrorCodeTimeout indicates a deadline elapsed
	ErrorCodeTimeout ErrorCode = "TIMEOUT"
	// ErrorCodeServerError indicates any other 5xx provider response
	ErrorCodeServerError ErrorCode = "SERVER_ERROR"
	// ErrorCodeUnknown indicates an unrecognized failure
	ErrorCodeUnknown ErrorCode = "UNKNOWN"
)

// String returns the string representation of ErrorCode
func (c ErrorCode) String() string {
	return string(c)
}

// ClassifiedError is the normalized error value surfaced to callers. The
// original provider error is never swallowed; it remains on Cause for logs.
type ClassifiedError struct {
	// Code is the taxonomy member
	Code ErrorCode
	// HTTPStatus is the provider HTTP status, 0 when no response was received
	HTTPStatus int
	// Transient indicates the condition is expected to clear on its own
	Transient bool
	// Retryable indicates the dispatcher may retry the attempt
	Retryable bool
	// RetryAfter is the provider-suggested minimum wait before retrying,
	// zero when the provider gave no hint
	RetryAfter time.Duration
	// ModuleID identifies the module the failing call was issued against
	ModuleID string
	// Operation is the logical operation name
	Operation string
	// Message is a human-readable description
	Message string
	// Cause is the original error, preserved for diagnostics
	Cause error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	msg := fmt.Sprintf("integration: %s %s.%s", e.Code, e.ModuleID, e.Operation)
	if e.HTTPStatus > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.HTTPStatus)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	return msg
}

// Unwrap exposes the original cause to errors.Is/errors.As chains.
func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether the dispatcher may retry this failure locally.
func (e *ClassifiedError) IsRetryable() bool {
	return e.Transient && e.Retryable
}

// AsClassified extracts a ClassifiedError from an error chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
