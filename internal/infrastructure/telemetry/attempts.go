package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/commerceops/backend/internal/domain/integration"
)

// AttemptRecorder exports one metric sample per marketplace dispatcher
// attempt: a counter by module, operation and outcome, and a latency
// histogram. It implements integration.TelemetrySink.
type AttemptRecorder struct {
	attempts *Counter
	latency  *Histogram
}

// NewAttemptRecorder creates the recorder on the given meter.
func NewAttemptRecorder(meter metric.Meter) (*AttemptRecorder, error) {
	attempts, err := NewCounter(meter,
		"marketplace.attempts",
		"Marketplace call attempts by module, operation and outcome",
		"{attempt}",
	)
	if err != nil {
		return nil, err
	}

	latency, err := NewHistogram(meter, HistogramOpts{
		Name:        "marketplace.attempt.duration",
		Description: "Marketplace call attempt latency",
		Unit:        "s",
		Boundaries:  MarketplaceLatencyBuckets,
	})
	if err != nil {
		return nil, err
	}

	return &AttemptRecorder{attempts: attempts, latency: latency}, nil
}

// RecordAttempt implements integration.TelemetrySink.
func (r *AttemptRecorder) RecordAttempt(ctx context.Context, event integration.AttemptEvent) {
	r.attempts.Inc(ctx,
		AttrModuleID.String(event.ModuleID),
		AttrOperation.String(event.Operation),
		AttrOutcome.String(event.Outcome),
	)
	r.latency.RecordDuration(ctx, time.Duration(event.LatencyMs)*time.Millisecond,
		AttrModuleID.String(event.ModuleID),
		AttrOperation.String(event.Operation),
		AttrOutcome.String(event.Outcome),
	)
}

var _ integration.TelemetrySink = (*AttemptRecorder)(nil)
