package marketplace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commerceops/backend/internal/domain/integration"
)

// fakeTransport scripts responses and records every request it saw.
type fakeTransport struct {
	mu   sync.Mutex
	fn   func(call int, req *integration.TransportRequest) (*integration.TransportResponse, error)
	reqs []*integration.TransportRequest
}

func (f *fakeTransport) Send(_ context.Context, req *integration.TransportRequest) (*integration.TransportResponse, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	call := len(f.reqs)
	f.mu.Unlock()
	return f.fn(call, req)
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

// recordingSink captures attempt events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []integration.AttemptEvent
}

func (s *recordingSink) RecordAttempt(_ context.Context, e integration.AttemptEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) all() []integration.AttemptEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]integration.AttemptEvent, len(s.events))
	copy(out, s.events)
	return out
}

// failingCreds always refuses to produce headers.
type failingCreds struct{}

func (failingCreds) AuthHeadersFor(context.Context, string) (map[string]string, error) {
	return nil, errors.New("token refresh failed")
}

func dispatcherTestDefs() []integration.ModuleDefinition {
	return []integration.ModuleDefinition{
		{
			ID:          "widgets",
			DisplayName: "Widgets",
			Versions:    []integration.ModuleVersion{{Version: "v1", IsDefault: true}},
			RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 1000, BurstCapacity: 100},
		},
		{
			ID:          "scarce",
			DisplayName: "Scarce",
			Versions:    []integration.ModuleVersion{{Version: "v1", IsDefault: true}},
			RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 0.001, BurstCapacity: 1},
		},
		{
			ID:          "twoshot",
			DisplayName: "Two Shot",
			Versions:    []integration.ModuleVersion{{Version: "v1", IsDefault: true}},
			RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 0.001, BurstCapacity: 2},
		},
	}
}

func newTestDispatcher(t *testing.T, transport integration.Transport, opts ...DispatcherOption) *Dispatcher {
	t.Helper()
	catalog, err := newCatalog(dispatcherTestDefs())
	require.NoError(t, err)

	creds := NewStaticCredentialProvider(map[string]string{"x-access-token": "test-token"})
	d := NewDispatcher(DispatcherConfig{Endpoint: "https://api.example.test"}, catalog, transport, creds, opts...)
	// Retry backoffs complete instantly under test
	d.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return d
}

func okJSON(body string) (*integration.TransportResponse, error) {
	return &integration.TransportResponse{
		Status:  200,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    []byte(body),
	}, nil
}

func TestDispatcher_SuccessDecodesEnvelope(t *testing.T) {
	transport := &fakeTransport{fn: func(int, *integration.TransportRequest) (*integration.TransportResponse, error) {
		return okJSON(`{"name":"anvil","qty":3}`)
	}}
	d := newTestDispatcher(t, transport)

	type widget struct {
		Name string `json:"name"`
		Qty  int    `json:"qty"`
	}
	spec := integration.RequestSpec{Method: "GET", Path: "/widgets/v1/anvil", Operation: "getWidget"}
	spec = spec.WithQuery("expand", "true")

	resp, err := Request[widget](context.Background(), d, "widgets", spec)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, widget{Name: "anvil", Qty: 3}, resp.Data)

	require.Equal(t, 1, transport.calls())
	sent := transport.reqs[0]
	assert.Equal(t, "https://api.example.test/widgets/v1/anvil?expand=true", sent.URL)
	assert.Equal(t, "test-token", sent.Headers["x-access-token"], "credential headers attached")
}

func TestDispatcher_RetriesUpToCeiling(t *testing.T) {
	transport := &fakeTransport{fn: func(int, *integration.TransportRequest) (*integration.TransportResponse, error) {
		return &integration.TransportResponse{Status: 500}, nil
	}}
	d := newTestDispatcher(t, transport)

	_, err := d.Do(context.Background(), "widgets", integration.RequestSpec{Method: "GET", Path: "/w", Operation: "op"})
	require.Error(t, err)

	ce, ok := integration.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, integration.ErrorCodeServerError, ce.Code)
	assert.Equal(t, DefaultRetryPolicy().MaxAttempts, transport.calls(), "every attempt up to the ceiling, no more")
}

func TestDispatcher_NoRetryOnTerminalFailure(t *testing.T) {
	transport := &fakeTransport{fn: func(int, *integration.TransportRequest) (*integration.TransportResponse, error) {
		return &integration.TransportResponse{Status: 404}, nil
	}}
	d := newTestDispatcher(t, transport)

	_, err := d.Do(context.Background(), "widgets", integration.RequestSpec{Method: "GET", Path: "/w", Operation: "op"})
	require.Error(t, err)

	ce, ok := integration.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, integration.ErrorCodeNotFound, ce.Code)
	assert.Equal(t, 1, transport.calls())
}

func TestDispatcher_RecoversAfterTransientFailure(t *testing.T) {
	transport := &fakeTransport{fn: func(call int, _ *integration.TransportRequest) (*integration.TransportResponse, error) {
		if call == 1 {
			return &integration.TransportResponse{Status: 503}, nil
		}
		return okJSON(`{}`)
	}}
	d := newTestDispatcher(t, transport)

	resp, err := d.Do(context.Background(), "widgets", integration.RequestSpec{Method: "GET", Path: "/w", Operation: "op"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, 2, transport.calls())
}

func TestDispatcher_RetryAfterRaisesBackoffFloor(t *testing.T) {
	transport := &fakeTransport{fn: func(call int, _ *integration.TransportRequest) (*integration.TransportResponse, error) {
		if call == 1 {
			return &integration.TransportResponse{
				Status:  429,
				Headers: map[string]string{"Retry-After": "2"},
			}, nil
		}
		return okJSON(`{}`)
	}}
	d := newTestDispatcher(t, transport)

	var slept []time.Duration
	d.sleep = func(_ context.Context, wait time.Duration) error {
		slept = append(slept, wait)
		return nil
	}

	_, err := d.Do(context.Background(), "widgets", integration.RequestSpec{Method: "GET", Path: "/w", Operation: "op"})
	require.NoError(t, err)
	require.Len(t, slept, 1)
	assert.GreaterOrEqual(t, slept[0], 2*time.Second, "provider hint floors the backoff")
}

func TestDispatcher_AdmissionTimeoutIsNotRetried(t *testing.T) {
	transport := &fakeTransport{fn: func(int, *integration.TransportRequest) (*integration.TransportResponse, error) {
		return okJSON(`{}`)
	}}
	sink := &recordingSink{}
	d := newTestDispatcher(t, transport, WithTelemetry(sink))

	// The single burst token admits the first call
	_, err := d.Do(context.Background(), "scarce", integration.RequestSpec{Method: "GET", Path: "/s", Operation: "op"})
	require.NoError(t, err)

	// The bucket is empty and refills far slower than the admission timeout
	_, err = d.Do(context.Background(), "scarce", integration.RequestSpec{Method: "GET", Path: "/s", Operation: "op"})
	require.Error(t, err)

	ce, ok := integration.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, integration.ErrorCodeRateLimitExceeded, ce.Code)
	assert.True(t, ce.Transient)
	assert.False(t, ce.IsRetryable(), "local throttles propagate, the caller decides")
	assert.ErrorIs(t, ce, integration.ErrAdmissionTimeout)

	assert.Equal(t, 1, transport.calls(), "no request was sent for the throttled call")

	events := sink.all()
	require.Len(t, events, 2)
	assert.Equal(t, integration.ErrorCodeRateLimitExceeded.String(), events[1].Outcome)
}

func TestDispatcher_RetriesReacquireAdmission(t *testing.T) {
	transport := &fakeTransport{fn: func(int, *integration.TransportRequest) (*integration.TransportResponse, error) {
		return &integration.TransportResponse{Status: 500}, nil
	}}
	d := newTestDispatcher(t, transport)

	// Burst of 2, negligible refill: the third attempt fails admission
	_, err := d.Do(context.Background(), "twoshot", integration.RequestSpec{Method: "GET", Path: "/t", Operation: "op"})
	require.Error(t, err)

	ce, ok := integration.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, integration.ErrorCodeRateLimitExceeded, ce.Code)
	assert.Equal(t, 2, transport.calls(), "each retry spent a token")
}

func TestDispatcher_CredentialFailure(t *testing.T) {
	transport := &fakeTransport{fn: func(int, *integration.TransportRequest) (*integration.TransportResponse, error) {
		return okJSON(`{}`)
	}}
	catalog, err := newCatalog(dispatcherTestDefs())
	require.NoError(t, err)
	d := NewDispatcher(DispatcherConfig{Endpoint: "https://api.example.test"}, catalog, transport, failingCreds{})

	_, err = d.Do(context.Background(), "widgets", integration.RequestSpec{Method: "GET", Path: "/w", Operation: "op"})
	require.Error(t, err)

	ce, ok := integration.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, integration.ErrorCodeAuthFailed, ce.Code)
	assert.Equal(t, 0, transport.calls())
}

func TestDispatcher_UnknownModule(t *testing.T) {
	transport := &fakeTransport{fn: func(int, *integration.TransportRequest) (*integration.TransportResponse, error) {
		return okJSON(`{}`)
	}}
	d := newTestDispatcher(t, transport)

	_, err := d.Do(context.Background(), "doesNotExist", integration.RequestSpec{Method: "GET", Path: "/x", Operation: "op"})
	assert.ErrorIs(t, err, integration.ErrUnknownModule)
	assert.Equal(t, 0, transport.calls())
}

func TestDispatcher_AttemptEventsPerAttempt(t *testing.T) {
	transport := &fakeTransport{fn: func(int, *integration.TransportRequest) (*integration.TransportResponse, error) {
		return &integration.TransportResponse{Status: 500}, nil
	}}
	sink := &recordingSink{}
	d := newTestDispatcher(t, transport, WithTelemetry(sink))

	_, err := d.Do(context.Background(), "widgets", integration.RequestSpec{Method: "GET", Path: "/w", Operation: "listWidgets"})
	require.Error(t, err)

	events := sink.all()
	require.Len(t, events, DefaultRetryPolicy().MaxAttempts)
	for i, e := range events {
		assert.Equal(t, i+1, e.Attempt)
		assert.Equal(t, "widgets", e.ModuleID)
		assert.Equal(t, "listWidgets", e.Operation)
		assert.Equal(t, integration.ErrorCodeServerError.String(), e.Outcome)
		assert.Equal(t, events[0].RequestID, e.RequestID, "attempts of one call share a request id")
	}
}

func TestDispatcher_MalformedSuccessBody(t *testing.T) {
	transport := &fakeTransport{fn: func(int, *integration.TransportRequest) (*integration.TransportResponse, error) {
		return okJSON(`{not json`)
	}}
	d := newTestDispatcher(t, transport)

	type widget struct{}
	_, err := Request[widget](context.Background(), d, "widgets", integration.RequestSpec{Method: "GET", Path: "/w", Operation: "op"})
	require.Error(t, err)

	ce, ok := integration.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, integration.ErrorCodeUnknown, ce.Code)
	assert.False(t, ce.IsRetryable())
	assert.Equal(t, 1, transport.calls(), "decode failures never trigger a retry")
}

func TestDispatcher_DeadlineDuringBackoff(t *testing.T) {
	transport := &fakeTransport{fn: func(int, *integration.TransportRequest) (*integration.TransportResponse, error) {
		return &integration.TransportResponse{Status: 500}, nil
	}}
	d := newTestDispatcher(t, transport)
	d.sleep = func(context.Context, time.Duration) error { return context.DeadlineExceeded }

	_, err := d.Do(context.Background(), "widgets", integration.RequestSpec{Method: "GET", Path: "/w", Operation: "op"})
	require.Error(t, err)

	ce, ok := integration.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, integration.ErrorCodeTimeout, ce.Code)
	assert.Equal(t, 1, transport.calls())
}

func TestDispatcher_Snapshots(t *testing.T) {
	transport := &fakeTransport{fn: func(int, *integration.TransportRequest) (*integration.TransportResponse, error) {
		return okJSON(`{}`)
	}}
	d := newTestDispatcher(t, transport)

	assert.Empty(t, d.Snapshots(), "no buckets before first use")

	_, err := d.Do(context.Background(), "widgets", integration.RequestSpec{Method: "GET", Path: "/w", Operation: "op"})
	require.NoError(t, err)

	snaps := d.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, "widgets", snaps[0].ModuleID)
	assert.Equal(t, 100.0, snaps[0].Capacity)
}
