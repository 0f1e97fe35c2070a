package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "pane-deck"

// Metrics holds all OTEL metric instruments for pane-deck.
// All counters are cumulative (monotonic) and safe for concurrent use.
type Metrics struct {
	// tmux invocations (partitioned by op + outcome via attributes)
	Commands metric.Int64Counter

	// Reconciliation
	ReconcileDuration metric.Float64Histogram
	SessionsListed    metric.Int64Counter
	PreviewFailures   metric.Int64Counter
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Commands, err = meter.Int64Counter("tmux.commands",
		metric.WithDescription("Number of tmux invocations partitioned by command and outcome (ok, error, timeout)"))
	if err != nil {
		return nil, err
	}

	m.ReconcileDuration, err = meter.Float64Histogram("tracker.reconcile.duration",
		metric.WithDescription("Time to build the unified session list"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	m.SessionsListed, err = meter.Int64Counter("tracker.sessions.listed",
		metric.WithDescription("Total unified sessions returned by list requests"),
		metric.WithUnit("{session}"))
	if err != nil {
		return nil, err
	}

	m.PreviewFailures, err = meter.Int64Counter("tracker.preview.failures",
		metric.WithDescription("Number of preview captures that failed for an unexpected reason"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordCommand records one tmux invocation.
func (m *Metrics) RecordCommand(ctx context.Context, op, outcome string) {
	if m == nil {
		return
	}
	m.Commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tmux.op", op),
		attribute.String("tmux.outcome", outcome),
	))
}

// RecordReconcile records a completed list request.
func (m *Metrics) RecordReconcile(ctx context.Context, elapsed time.Duration, sessions int) {
	if m == nil {
		return
	}
	m.ReconcileDuration.Record(ctx, float64(elapsed.Microseconds())/1000)
	m.SessionsListed.Add(ctx, int64(sessions))
}

// RecordPreviewFailure records a preview capture that failed unexpectedly.
func (m *Metrics) RecordPreviewFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.PreviewFailures.Add(ctx, 1)
}
