package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commerceops/backend/internal/domain/integration"
)

// RetryPolicy bounds the dispatcher's local retries of transient failures.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int
	// BaseBackoff is the backoff before the first retry
	BaseBackoff time.Duration
	// Multiplier grows the backoff per retry
	Multiplier float64
	// MaxBackoff caps a single backoff sleep
	MaxBackoff time.Duration
}

// DefaultRetryPolicy returns the framework default: 3 attempts, 500ms base,
// doubling, capped at 8s, randomized.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseBackoff: 500 * time.Millisecond,
		Multiplier:  2,
		MaxBackoff:  8 * time.Second,
	}
}

// DispatcherConfig holds the dispatcher's tunables.
type DispatcherConfig struct {
	// Endpoint is the provider base URL (scheme + host, no trailing slash)
	Endpoint string
	// AdmissionTimeout is the maximum wait for a rate-limit token
	AdmissionTimeout time.Duration
	// Retry is the default retry policy, used when a call supplies none
	Retry RetryPolicy
}

// Dispatcher executes logical provider calls: it admits the call through the
// module's rate limiter, attaches credential headers, invokes the transport,
// classifies failures, and retries transient ones under the retry policy.
// Retries re-acquire a token; they never bypass the limiter.
type Dispatcher struct {
	cfg       DispatcherConfig
	catalog   *Catalog
	transport integration.Transport
	creds     integration.CredentialProvider
	telemetry integration.TelemetrySink
	quota     integration.QuotaStore
	logger    *zap.Logger

	mu       sync.RWMutex
	limiters map[string]*RateLimiter

	// test hooks
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTelemetry attaches an attempt-event sink.
func WithTelemetry(sink integration.TelemetrySink) DispatcherOption {
	return func(d *Dispatcher) {
		if sink != nil {
			d.telemetry = sink
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithSharedQuotaStore replaces the in-process daily-quota tracking with a
// shared store, for deployments where several instances drain one account.
func WithSharedQuotaStore(store integration.QuotaStore) DispatcherOption {
	return func(d *Dispatcher) {
		if store != nil {
			d.quota = store
		}
	}
}

// NewDispatcher wires a dispatcher against the given catalog, transport and
// credential provider.
func NewDispatcher(cfg DispatcherConfig, catalog *Catalog, transport integration.Transport, creds integration.CredentialProvider, opts ...DispatcherOption) *Dispatcher {
	if cfg.AdmissionTimeout <= 0 {
		cfg.AdmissionTimeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	d := &Dispatcher{
		cfg:       cfg,
		catalog:   catalog,
		transport: transport,
		creds:     creds,
		telemetry: integration.NoopTelemetrySink{},
		logger:    zap.NewNop(),
		limiters:  make(map[string]*RateLimiter),
		sleep:     sleepContext,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Request executes one logical call and decodes the response body into T.
// All failures are surfaced as *integration.ClassifiedError.
func Request[T any](ctx context.Context, d *Dispatcher, moduleID string, spec integration.RequestSpec) (*integration.ApiResponse[T], error) {
	resp, err := d.Do(ctx, moduleID, spec)
	if err != nil {
		return nil, err
	}

	var data T
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &data); err != nil {
			return nil, &integration.ClassifiedError{
				Code:       integration.ErrorCodeUnknown,
				HTTPStatus: resp.Status,
				ModuleID:   moduleID,
				Operation:  spec.Operation,
				Message:    "failed to decode provider response",
				Cause:      err,
			}
		}
	}

	return &integration.ApiResponse[T]{
		Data:    data,
		Status:  resp.Status,
		Headers: resp.Headers,
	}, nil
}

// Do executes one logical call and returns the raw transport response on
// success (any 2xx/3xx status). Failures are classified; transient ones are
// retried up to the policy ceiling, re-acquiring admission each time.
func (d *Dispatcher) Do(ctx context.Context, moduleID string, spec integration.RequestSpec) (*integration.TransportResponse, error) {
	limiter, err := d.limiter(moduleID)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	policy := d.cfg.Retry
	bo := newBackoff(policy)

	var classified *integration.ClassifiedError
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		resp, ce := d.attempt(ctx, limiter, moduleID, spec, requestID, attempt)
		if ce == nil {
			return resp, nil
		}
		classified = ce

		// Admission-timeout throttles and terminal errors propagate to the
		// caller on first occurrence
		if !ce.IsRetryable() || attempt == policy.MaxAttempts {
			break
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			wait = policy.MaxBackoff
		}
		if ce.RetryAfter > wait {
			wait = ce.RetryAfter
		}
		d.logger.Debug("retrying marketplace call",
			zap.String("module", moduleID),
			zap.String("operation", spec.Operation),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
		)
		if err := d.sleep(ctx, wait); err != nil {
			return nil, &integration.ClassifiedError{
				Code:      integration.ErrorCodeTimeout,
				ModuleID:  moduleID,
				Operation: spec.Operation,
				Message:   "deadline elapsed during retry backoff",
				Cause:     err,
			}
		}
	}
	return nil, classified
}

// attempt performs a single admission + transport round trip.
func (d *Dispatcher) attempt(ctx context.Context, limiter *RateLimiter, moduleID string, spec integration.RequestSpec, requestID string, attempt int) (*integration.TransportResponse, *integration.ClassifiedError) {
	start := d.now()

	if err := limiter.Acquire(ctx, 1, d.cfg.AdmissionTimeout); err != nil {
		ce := d.classifyAdmission(moduleID, spec.Operation, err)
		d.observe(ctx, requestID, moduleID, spec.Operation, attempt, ce.Code.String(), start)
		return nil, ce
	}

	headers, err := d.creds.AuthHeadersFor(ctx, moduleID)
	if err != nil {
		ce := &integration.ClassifiedError{
			Code:      integration.ErrorCodeAuthFailed,
			ModuleID:  moduleID,
			Operation: spec.Operation,
			Message:   "credential provider failed",
			Cause:     err,
		}
		d.observe(ctx, requestID, moduleID, spec.Operation, attempt, ce.Code.String(), start)
		return nil, ce
	}
	if headers == nil {
		headers = make(map[string]string, len(spec.Headers))
	}
	for k, v := range spec.Headers {
		headers[k] = v
	}

	resp, err := d.transport.Send(ctx, &integration.TransportRequest{
		Method:  spec.Method,
		URL:     d.buildURL(spec),
		Headers: headers,
		Body:    spec.Body,
	})

	switch {
	case err != nil:
		ce := Classify(moduleID, spec.Operation, err)
		d.observe(ctx, requestID, moduleID, spec.Operation, attempt, ce.Code.String(), start)
		return nil, ce
	case resp.Status >= 400:
		ce := ClassifyResponse(moduleID, spec.Operation, resp)
		d.observe(ctx, requestID, moduleID, spec.Operation, attempt, ce.Code.String(), start)
		return nil, ce
	default:
		d.observe(ctx, requestID, moduleID, spec.Operation, attempt, "success", start)
		return resp, nil
	}
}

// classifyAdmission maps limiter failures. A timed-out admission is a local
// throttle: transient, but never retried by the dispatcher itself - the
// caller decides whether to resubmit.
func (d *Dispatcher) classifyAdmission(moduleID, operation string, err error) *integration.ClassifiedError {
	if ctxErr := contextError(err); ctxErr != nil {
		return &integration.ClassifiedError{
			Code:      integration.ErrorCodeTimeout,
			ModuleID:  moduleID,
			Operation: operation,
			Message:   "deadline elapsed while waiting for admission",
			Cause:     ctxErr,
		}
	}
	return &integration.ClassifiedError{
		Code:      integration.ErrorCodeRateLimitExceeded,
		ModuleID:  moduleID,
		Operation: operation,
		Transient: true,
		Retryable: false,
		Message:   "admission timed out, no request was sent",
		Cause:     err,
	}
}

// observe emits the structured attempt event to the telemetry sink and the
// logger.
func (d *Dispatcher) observe(ctx context.Context, requestID, moduleID, operation string, attempt int, outcome string, start time.Time) {
	latency := d.now().Sub(start)
	d.telemetry.RecordAttempt(ctx, integration.AttemptEvent{
		RequestID: requestID,
		ModuleID:  moduleID,
		Operation: operation,
		Attempt:   attempt,
		Outcome:   outcome,
		LatencyMs: latency.Milliseconds(),
	})
	d.logger.Debug("marketplace attempt",
		zap.String("request_id", requestID),
		zap.String("module", moduleID),
		zap.String("operation", operation),
		zap.Int("attempt", attempt),
		zap.String("outcome", outcome),
		zap.Int64("latency_ms", latency.Milliseconds()),
	)
}

// limiter returns the module's rate limiter, creating it from the catalog
// policy on first use. Buckets live for the process lifetime.
func (d *Dispatcher) limiter(moduleID string) (*RateLimiter, error) {
	d.mu.RLock()
	l, ok := d.limiters[moduleID]
	d.mu.RUnlock()
	if ok {
		return l, nil
	}

	def, err := d.catalog.Get(moduleID)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if l, ok := d.limiters[moduleID]; ok {
		return l, nil
	}
	opts := []RateLimiterOption{WithClock(d.now), WithSleeper(d.sleep)}
	if def.RateLimit.MaximumRequestQuota > 0 && d.quota != nil {
		opts = append(opts, WithQuotaStore(d.quota))
	}
	l = NewRateLimiter(moduleID, def.RateLimit, opts...)
	d.limiters[moduleID] = l
	return l, nil
}

// Snapshots returns the state of every live bucket, for the ops surface.
func (d *Dispatcher) Snapshots() []BucketSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]BucketSnapshot, 0, len(d.limiters))
	for _, id := range d.catalog.IDs() {
		if l, ok := d.limiters[id]; ok {
			out = append(out, l.Snapshot())
		}
	}
	return out
}

// buildURL joins the endpoint, path and encoded query.
func (d *Dispatcher) buildURL(spec integration.RequestSpec) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(d.cfg.Endpoint, "/"))
	if !strings.HasPrefix(spec.Path, "/") {
		b.WriteString("/")
	}
	b.WriteString(spec.Path)
	if len(spec.Query) > 0 {
		b.WriteString("?")
		b.WriteString(spec.Query.Encode())
	}
	return b.String()
}

// newBackoff builds the randomized exponential schedule for one logical
// call. The classified RetryAfter raises the floor of each sleep.
func newBackoff(policy RetryPolicy) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.BaseBackoff
	bo.Multiplier = policy.Multiplier
	bo.MaxInterval = policy.MaxBackoff
	bo.RandomizationFactor = 1 // full jitter
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// contextError extracts the context error from an admission failure, nil
// when the failure was a plain admission timeout.
func contextError(err error) error {
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return context.DeadlineExceeded
	}
	return nil
}
