package integration

import (
	"context"
	"net/url"
)

// ---------------------------------------------------------------------------
// Request/Response Value Objects
// ---------------------------------------------------------------------------

// RequestSpec describes one logical provider call. It is built by a module
// façade, consumed once by the dispatcher, and never mutated after that.
type RequestSpec struct {
	// Method is the HTTP method (GET, POST, PUT, DELETE, PATCH)
	Method string
	// Path is the provider resource path, already versioned
	// (e.g. "/orders/v0/orders")
	Path string
	// Operation is the logical operation name used for error context and
	// telemetry (e.g. "getOrders")
	Operation string
	// Query holds the query parameters
	Query url.Values
	// Body is the JSON-encoded request body, nil for body-less methods
	Body []byte
	// Headers holds extra request headers beyond the credential headers
	Headers map[string]string
}

// WithQuery returns a copy of the spec with the given query parameter set.
func (s RequestSpec) WithQuery(key, value string) RequestSpec {
	q := url.Values{}
	for k, vs := range s.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set(key, value)
	s.Query = q
	return s
}

// ApiResponse is the typed success envelope. It is never constructed for a
// failed call.
type ApiResponse[T any] struct {
	// Data is the decoded response payload
	Data T
	// Status is the HTTP status code
	Status int
	// Headers holds the response headers, single-valued
	Headers map[string]string
}

// Page is one page of a cursor-paginated listing. An empty NextToken signals
// the final page. The token is provider-owned and round-tripped verbatim.
type Page[T any] struct {
	Items     []T
	NextToken string
}

// ---------------------------------------------------------------------------
// Collaborator Ports
// ---------------------------------------------------------------------------

// TransportRequest is the wire-level request handed to the Transport.
type TransportRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// TransportResponse is the wire-level response returned by the Transport.
// A response is returned for every completed HTTP exchange, including
// non-2xx statuses; a non-nil error means no response was received at all.
type TransportResponse struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// Header returns the named response header, case-insensitively.
func (r *TransportResponse) Header(name string) string {
	if v, ok := r.Headers[name]; ok {
		return v
	}
	for k, v := range r.Headers {
		if equalFold(k, name) {
			return v
		}
	}
	return ""
}

// equalFold is an allocation-free ASCII case-insensitive compare for header
// names.
func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Transport performs one HTTP exchange. Implementations must be safe for
// concurrent use; connection pooling is the transport's concern. The
// framework never constructs raw sockets.
type Transport interface {
	Send(ctx context.Context, req *TransportRequest) (*TransportResponse, error)
}

// CredentialProvider supplies auth headers for a module's calls. A failure
// to produce headers is classified as AUTH_FAILED.
type CredentialProvider interface {
	AuthHeadersFor(ctx context.Context, moduleID string) (map[string]string, error)
}

// AttemptEvent describes one dispatcher attempt, success or failure.
type AttemptEvent struct {
	// RequestID correlates all attempts of one logical call
	RequestID string
	// ModuleID is the module the call was issued against
	ModuleID string
	// Operation is the logical operation name
	Operation string
	// Attempt is 1-based
	Attempt int
	// Outcome is "success", or the taxonomy code of the failure
	Outcome string
	// LatencyMs is the wall time of the attempt in milliseconds
	LatencyMs int64
}

// TelemetrySink receives one event per dispatcher attempt. Implementations
// must not block the calling goroutine.
type TelemetrySink interface {
	RecordAttempt(ctx context.Context, event AttemptEvent)
}

// NoopTelemetrySink discards all events. Used when telemetry is disabled.
type NoopTelemetrySink struct{}

// RecordAttempt implements TelemetrySink.
func (NoopTelemetrySink) RecordAttempt(context.Context, AttemptEvent) {}

// QuotaStore tracks the optional daily request quota of a module. Acquire
// atomically consumes cost units and reports false once the quota for the
// current 24h window is exhausted. The window starts at first use.
type QuotaStore interface {
	Acquire(ctx context.Context, moduleID string, limit int64, cost int64) (bool, error)
}
