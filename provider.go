package otx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

var (
	// ErrDisabled is returned when telemetry or tracing is turned off.
	ErrDisabled = errors.New("otx: telemetry is disabled")

	// ErrLogsDisabled is returned by NewLoggerProvider when log export is off.
	ErrLogsDisabled = errors.New("otx: logs export is disabled")

	// ErrMetricsDisabled is returned by NewMeterProvider when metric export is off.
	ErrMetricsDisabled = errors.New("otx: metrics export is disabled")

	// ErrServiceNameRequired is returned when telemetry is enabled without a service name.
	ErrServiceNameRequired = errors.New("otx: service name is required")
)

const defaultMetricInterval = 60 * time.Second

// Telemetry groups the providers built by Setup.
// Providers for disabled signals are nil.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
}

// Setup builds every enabled provider and installs them globally.
// Metrics and logs are optional: when they are disabled the corresponding
// field stays nil. If a later provider fails, the ones already built are
// shut down before the error is returned.
func Setup(ctx context.Context, cfg *TelemetryConfig) (*Telemetry, error) {
	tp, err := NewTracerProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	t := &Telemetry{TracerProvider: tp}

	mp, err := NewMeterProvider(ctx, cfg)
	switch {
	case err == nil:
		t.MeterProvider = mp
	case !errors.Is(err, ErrMetricsDisabled):
		_ = t.Shutdown(ctx)
		return nil, err
	}

	lp, err := NewLoggerProvider(ctx, cfg)
	switch {
	case err == nil:
		t.LoggerProvider = lp
	case !errors.Is(err, ErrLogsDisabled):
		_ = t.Shutdown(ctx)
		return nil, err
	}

	return t, nil
}

// Shutdown flushes and stops every provider, joining their errors.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	var errs []error
	if t.TracerProvider != nil {
		errs = append(errs, t.TracerProvider.Shutdown(ctx))
	}
	if t.MeterProvider != nil {
		errs = append(errs, t.MeterProvider.Shutdown(ctx))
	}
	if t.LoggerProvider != nil {
		errs = append(errs, t.LoggerProvider.Shutdown(ctx))
	}

	return errors.Join(errs...)
}

// NewTracerProvider builds the TracerProvider and installs it, together with
// the configured propagator, as the OTel globals.
func NewTracerProvider(ctx context.Context, cfg *TelemetryConfig) (*sdktrace.TracerProvider, error) {
	if !cfg.IsEnabled() || !cfg.Traces.IsEnabled() {
		return nil, ErrDisabled
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	exporter, err := buildTraceExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(buildSampler(cfg.SamplingConfig())),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(buildPropagator(cfg.Propagation))

	return tp, nil
}

// NewMeterProvider builds the MeterProvider used for messaging client metrics
// and installs it globally.
func NewMeterProvider(ctx context.Context, cfg *TelemetryConfig) (*sdkmetric.MeterProvider, error) {
	if !cfg.IsEnabled() {
		return nil, ErrDisabled
	}
	if !cfg.Metrics.IsEnabled() {
		return nil, ErrMetricsDisabled
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	exporter, err := buildMetricExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build metric exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(normalizeMetricInterval(cfg.Metrics.Interval, defaultMetricInterval)),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	otel.SetMeterProvider(mp)

	return mp, nil
}

// NewLoggerProvider builds the LoggerProvider that carries instrumentation
// log records and installs it globally.
func NewLoggerProvider(ctx context.Context, cfg *TelemetryConfig) (*sdklog.LoggerProvider, error) {
	if !cfg.IsEnabled() {
		return nil, ErrDisabled
	}
	if !cfg.Logs.IsEnabled() {
		return nil, ErrLogsDisabled
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	exporter, err := buildLogExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build log exporter: %w", err)
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	global.SetLoggerProvider(lp)

	return lp, nil
}

func buildResource(ctx context.Context, cfg *TelemetryConfig) (*resource.Resource, error) {
	if cfg.ServiceName == "" {
		return nil, ErrServiceNameRequired
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
		semconv.DeploymentEnvironment(cfg.Environment),
	}
	for key, value := range cfg.ResourceAttributes {
		if key != "" {
			attrs = append(attrs, attribute.String(key, value))
		}
	}

	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(attrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("otx: create resource: %w", err)
	}

	return res, nil
}

// normalizeMetricInterval reads sub-millisecond values as milliseconds,
// since bare numeric env values are parsed as nanoseconds.
func normalizeMetricInterval(value, fallback time.Duration) time.Duration {
	switch {
	case value <= 0:
		return fallback
	case value < time.Millisecond:
		return time.Duration(int64(value)) * time.Millisecond
	default:
		return value
	}
}

func buildSampler(cfg *SamplingConfig) sdktrace.Sampler {
	if cfg == nil {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}

	switch cfg.Sampler {
	case "always_on":
		return sdktrace.AlwaysSample()
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(cfg.SamplerArg)
	case "parentbased_always_off":
		return sdktrace.ParentBased(sdktrace.NeverSample())
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplerArg))
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}
