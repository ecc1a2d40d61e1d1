package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of every dice metric.
const MeterName = "diceengine"

// Recorder records dice engine metrics.
// Use NewRecorder for OTel metrics or NoopRecorder{} when disabled.
type Recorder interface {
	// RecordRoll counts a successful roll and the dice it drew.
	RecordRoll(ctx context.Context, frontend string, diceDrawn int)
	// RecordAnalysis counts a successful analysis and its latency.
	RecordAnalysis(ctx context.Context, frontend, method string, latency time.Duration)
	// RecordError counts a rejected roll or analysis.
	RecordError(ctx context.Context, frontend, operation string)
}

type otelRecorder struct {
	rolls           metric.Int64Counter
	diceDrawn       metric.Int64Counter
	analyses        metric.Int64Counter
	analysisLatency metric.Float64Histogram
	errors          metric.Int64Counter
}

// NewRecorder creates a Recorder on the given meter provider. A nil provider
// selects the global one.
//
// Postcondition: Returns a Recorder whose instruments are all registered, or an error.
func NewRecorder(provider metric.MeterProvider) (Recorder, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(MeterName)

	rolls, err := meter.Int64Counter("dice.rolls",
		metric.WithDescription("Number of successful rolls"),
	)
	if err != nil {
		return nil, err
	}
	diceDrawn, err := meter.Int64Counter("dice.drawn",
		metric.WithDescription("Number of individual dice drawn by rolls"),
	)
	if err != nil {
		return nil, err
	}
	analyses, err := meter.Int64Counter("dice.analyses",
		metric.WithDescription("Number of successful target analyses"),
	)
	if err != nil {
		return nil, err
	}
	analysisLatency, err := meter.Float64Histogram("dice.analysis.latency_ms",
		metric.WithDescription("Target analysis latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	errs, err := meter.Int64Counter("dice.errors",
		metric.WithDescription("Number of rejected expressions"),
	)
	if err != nil {
		return nil, err
	}

	return &otelRecorder{
		rolls:           rolls,
		diceDrawn:       diceDrawn,
		analyses:        analyses,
		analysisLatency: analysisLatency,
		errors:          errs,
	}, nil
}

func (r *otelRecorder) RecordRoll(ctx context.Context, frontend string, diceDrawn int) {
	attrs := metric.WithAttributes(attribute.String("frontend", frontend))
	r.rolls.Add(ctx, 1, attrs)
	r.diceDrawn.Add(ctx, int64(diceDrawn), attrs)
}

func (r *otelRecorder) RecordAnalysis(ctx context.Context, frontend, method string, latency time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("frontend", frontend),
		attribute.String("method", method),
	)
	r.analyses.Add(ctx, 1, attrs)
	r.analysisLatency.Record(ctx, float64(latency.Microseconds())/1000, attrs)
}

func (r *otelRecorder) RecordError(ctx context.Context, frontend, operation string) {
	r.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("frontend", frontend),
		attribute.String("operation", operation),
	))
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

var _ Recorder = NoopRecorder{}

func (NoopRecorder) RecordRoll(context.Context, string, int) {}
func (NoopRecorder) RecordAnalysis(context.Context, string, string, time.Duration) {}
func (NoopRecorder) RecordError(context.Context, string, string) {}
