package marketplace

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/commerceops/backend/internal/domain/integration"
)

// maxResponseSize is the maximum allowed provider response size (10MB)
const maxResponseSize = 10 * 1024 * 1024

// HTTPTransport is the default Transport implementation backed by a pooled
// net/http client. It performs exactly one exchange per Send: no redirects
// beyond the client default, no retries, no admission control - those are
// the dispatcher's concerns.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
}

// NewHTTPTransport creates a transport with the given per-request timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTransport{
		client:    &http.Client{Timeout: timeout},
		userAgent: "commerceops-backend/1.0",
	}
}

// NewHTTPTransportWithClient creates a transport sharing an existing client.
// Useful for tests and for hosts that tune their own pooling.
func NewHTTPTransportWithClient(client *http.Client) *HTTPTransport {
	return &HTTPTransport{
		client:    client,
		userAgent: "commerceops-backend/1.0",
	}
}

// Send implements integration.Transport.
func (t *HTTPTransport) Send(ctx context.Context, req *integration.TransportRequest) (*integration.TransportResponse, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("marketplace: failed to create request: %w", err)
	}

	httpReq.Header.Set("User-Agent", t.userAgent)
	if len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("marketplace: failed to read response: %w", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return &integration.TransportResponse{
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    respBody,
	}, nil
}

var _ integration.Transport = (*HTTPTransport)(nil)
