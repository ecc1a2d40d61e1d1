package observability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/cory-johannsen/diceengine/internal/config"
)

// Telemetry owns the meter and tracer providers of one process.
//
// Metrics stay in process: a manual reader is collected by ReportMetrics and
// written to the log. Spans are exported over OTLP/HTTP.
type Telemetry struct {
	logger         *zap.Logger
	reader         *sdkmetric.ManualReader
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	recorder       Recorder
	tracer         trace.Tracer
}

// Setup builds the providers enabled by cfg. Disabled signals get no-op
// implementations.
//
// Precondition: cfg passed config validation; logger must be non-nil.
// Postcondition: Returns a Telemetry whose Recorder and Tracer are non-nil, or an error.
func Setup(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*Telemetry, error) {
	t := &Telemetry{
		logger:   logger,
		recorder: NoopRecorder{},
		tracer:   noop.NewTracerProvider().Tracer(TracerName),
	}
	if !cfg.Metrics && !cfg.Tracing {
		return t, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("building telemetry resource: %w", err)
	}

	if cfg.Metrics {
		t.reader = sdkmetric.NewManualReader()
		t.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(t.reader),
			sdkmetric.WithResource(res),
		)
		rec, err := NewRecorder(t.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("creating metrics recorder: %w", err)
		}
		t.recorder = rec
		otel.SetMeterProvider(t.meterProvider)
	}

	if cfg.Tracing {
		exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
		if err != nil {
			return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
		}
		t.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		t.tracer = t.tracerProvider.Tracer(TracerName)
		otel.SetTracerProvider(t.tracerProvider)
		otel.SetTextMapPropagator(propagation.TraceContext{})
	}

	logger.Info("telemetry enabled",
		zap.Bool("metrics", cfg.Metrics),
		zap.Bool("tracing", cfg.Tracing),
		zap.String("service", cfg.ServiceName),
	)
	return t, nil
}

// Recorder returns the metrics recorder.
func (t *Telemetry) Recorder() Recorder { return t.recorder }

// Tracer returns the tracer for dice spans.
func (t *Telemetry) Tracer() trace.Tracer { return t.tracer }

// MetricsEnabled reports whether ReportMetrics has anything to collect.
func (t *Telemetry) MetricsEnabled() bool { return t.reader != nil }

// ReportMetrics collects the current metric values and logs one line per
// instrument with its running total.
func (t *Telemetry) ReportMetrics(ctx context.Context) error {
	if t.reader == nil {
		return nil
	}
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collecting metrics: %w", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				t.logger.Info("metric", zap.String("name", m.Name), zap.Int64("total", total))
			case metricdata.Histogram[float64]:
				var count uint64
				var sum float64
				for _, dp := range data.DataPoints {
					count += dp.Count
					sum += dp.Sum
				}
				t.logger.Info("metric",
					zap.String("name", m.Name),
					zap.Uint64("count", count),
					zap.Float64("sum", sum),
				)
			}
		}
	}
	return nil
}

// Shutdown flushes and stops the providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.meterProvider != nil {
		errs = append(errs, t.meterProvider.Shutdown(ctx))
	}
	if t.tracerProvider != nil {
		errs = append(errs, t.tracerProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
