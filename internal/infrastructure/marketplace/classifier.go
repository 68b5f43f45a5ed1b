package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/commerceops/backend/internal/domain/integration"
)

// Default retry hints when the provider supplies none.
const (
	defaultThrottleRetryAfter  = 60 * time.Second
	defaultOutageRetryAfter    = 5 * time.Minute
	defaultTransientRetryAfter = 5 * time.Second
)

// providerErrorEnvelope is the error body shape shared by all provider
// resource groups.
type providerErrorEnvelope struct {
	Errors []providerError `json:"errors"`
}

type providerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// Classify maps a transport-level failure (no HTTP response received) into
// the error taxonomy. The original cause is preserved on the result.
func Classify(moduleID, operation string, err error) *integration.ClassifiedError {
	ce := &integration.ClassifiedError{
		ModuleID:  moduleID,
		Operation: operation,
		Cause:     err,
		Message:   err.Error(),
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		ce.Code = integration.ErrorCodeTimeout
		ce.Transient = true
		ce.Retryable = true
		ce.RetryAfter = defaultTransientRetryAfter
	case errors.As(err, &netErr) && netErr.Timeout():
		ce.Code = integration.ErrorCodeTimeout
		ce.Transient = true
		ce.Retryable = true
		ce.RetryAfter = defaultTransientRetryAfter
	case errors.As(err, &netErr):
		// Connection refused, reset, DNS failure - no response was received
		ce.Code = integration.ErrorCodeConnectionFailed
		ce.Transient = true
		ce.Retryable = true
		ce.RetryAfter = defaultTransientRetryAfter
	default:
		ce.Code = integration.ErrorCodeUnknown
		ce.Transient = true
		ce.Retryable = true
	}
	return ce
}

// ClassifyResponse maps a non-2xx provider response into the error taxonomy.
func ClassifyResponse(moduleID, operation string, resp *integration.TransportResponse) *integration.ClassifiedError {
	ce := &integration.ClassifiedError{
		ModuleID:   moduleID,
		Operation:  operation,
		HTTPStatus: resp.Status,
	}

	code, message := parseProviderError(resp.Body)
	ce.Message = message

	switch {
	case resp.Status == 429 || isThrottleCode(code):
		ce.Code = integration.ErrorCodeRateLimitExceeded
		ce.HTTPStatus = 429
		ce.Transient = true
		ce.Retryable = true
		ce.RetryAfter = retryAfterHeader(resp, defaultThrottleRetryAfter)
	case resp.Status == 503:
		ce.Code = integration.ErrorCodeServiceUnavailable
		ce.Transient = true
		ce.Retryable = true
		ce.RetryAfter = retryAfterHeader(resp, defaultOutageRetryAfter)
	case resp.Status == 504:
		ce.Code = integration.ErrorCodeTimeout
		ce.Transient = true
		ce.Retryable = true
		ce.RetryAfter = defaultTransientRetryAfter
	case resp.Status == 400:
		ce.Code = integration.ErrorCodeInvalidInput
	case resp.Status == 401 || resp.Status == 403:
		ce.Code = integration.ErrorCodeAuthFailed
	case resp.Status == 404:
		ce.Code = integration.ErrorCodeNotFound
	case resp.Status == 422:
		ce.Code = integration.ErrorCodeValidationFailed
	case resp.Status >= 500:
		ce.Code = integration.ErrorCodeServerError
		ce.Transient = true
		ce.Retryable = true
	default:
		ce.Code = integration.ErrorCodeUnknown
		ce.Transient = true
		ce.Retryable = true
	}
	return ce
}

// parseProviderError extracts the first error code and message from the
// provider error envelope, tolerating any other body shape.
func parseProviderError(body []byte) (code, message string) {
	if len(body) == 0 {
		return "", ""
	}
	var env providerErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Errors) == 0 {
		return "", ""
	}
	return env.Errors[0].Code, env.Errors[0].Message
}

// isThrottleCode reports whether the provider flagged throttling explicitly
// in the error body, independent of the HTTP status.
func isThrottleCode(code string) bool {
	switch strings.ToLower(code) {
	case "quotaexceeded", "requestthrottled", "throttlingexception":
		return true
	default:
		return false
	}
}

// retryAfterHeader reads the Retry-After response header (delta-seconds
// form), falling back to def when absent or malformed.
func retryAfterHeader(resp *integration.TransportResponse, def time.Duration) time.Duration {
	v := resp.Header("Retry-After")
	if v == "" {
		return def
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || secs < 0 {
		return def
	}
	return time.Duration(secs * float64(time.Second))
}
