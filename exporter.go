package otx

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// signal identifies which telemetry stream an exporter is built for.
type signal int

const (
	signalTraces signal = iota
	signalMetrics
	signalLogs
)

// exporterParams is the resolved exporter configuration for one signal.
type exporterParams struct {
	Type        string // "otlp", "console", "nop"
	Protocol    string // "grpc", "http/protobuf", "http"
	Endpoint    string
	Headers     map[string]string
	Timeout     time.Duration
	Compression string
	Insecure    bool
}

func (p exporterParams) useHTTP() bool {
	return p.Protocol == "http/protobuf" || p.Protocol == "http"
}

// resolveExporterParams merges shared OTLP settings with the per-signal
// exporter type and endpoint override.
func resolveExporterParams(cfg *TelemetryConfig, sig signal) exporterParams {
	params := exporterParams{
		Type:     defaultExporter,
		Protocol: "grpc",
		Endpoint: defaultOTLPEndpoint,
		Timeout:  10 * time.Second,
		Insecure: true,
	}
	if cfg == nil {
		return params
	}

	otlp := cfg.OTLPSettings()
	if otlp.Endpoint != "" {
		params.Endpoint = otlp.Endpoint
	}
	if otlp.Protocol != "" {
		params.Protocol = otlp.Protocol
	}
	if otlp.Timeout > 0 {
		params.Timeout = normalizeDuration(otlp.Timeout)
	}
	params.Headers = otlp.Headers
	params.Compression = otlp.Compression
	params.Insecure = otlp.IsInsecure()

	var typ, endpoint string
	switch sig {
	case signalTraces:
		typ = cfg.TracesExporter()
		if cfg.Traces != nil {
			endpoint = cfg.Traces.Endpoint
		}
	case signalMetrics:
		if cfg.Metrics != nil {
			typ, endpoint = cfg.Metrics.Exporter, cfg.Metrics.Endpoint
		}
	case signalLogs:
		if cfg.Logs != nil {
			typ, endpoint = cfg.Logs.Exporter, cfg.Logs.Endpoint
		}
	}
	if typ != "" {
		params.Type = typ
	}
	if endpoint != "" {
		params.Endpoint = endpoint
	}
	params.Type = normalizeExporterType(params.Type)

	return params
}

type nopSpanExporter struct{}

func (nopSpanExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (nopSpanExporter) Shutdown(context.Context) error                            { return nil }

func buildTraceExporter(ctx context.Context, cfg *TelemetryConfig) (sdktrace.SpanExporter, error) {
	params := resolveExporterParams(cfg, signalTraces)

	switch params.Type {
	case "console":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "none", "nop":
		return nopSpanExporter{}, nil
	}

	if params.useHTTP() {
		opts := buildHTTPOptions(params,
			otlptracehttp.WithEndpoint,
			otlptracehttp.WithEndpointURL,
			otlptracehttp.WithHeaders,
			otlptracehttp.WithTimeout,
			otlptracehttp.WithInsecure,
			func() otlptracehttp.Option { return otlptracehttp.WithCompression(otlptracehttp.GzipCompression) },
		)

		return otlptracehttp.New(ctx, opts...)
	}

	opts := buildGRPCOptions(params,
		otlptracegrpc.WithEndpoint,
		otlptracegrpc.WithHeaders,
		otlptracegrpc.WithTimeout,
		otlptracegrpc.WithInsecure,
		func() otlptracegrpc.Option { return otlptracegrpc.WithCompressor("gzip") },
	)

	return otlptracegrpc.New(ctx, opts...)
}

type nopMetricExporter struct{}

func (nopMetricExporter) Export(context.Context, *metricdata.ResourceMetrics) error { return nil }
func (nopMetricExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

func (nopMetricExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}
func (nopMetricExporter) ForceFlush(context.Context) error { return nil }
func (nopMetricExporter) Shutdown(context.Context) error   { return nil }

func buildMetricExporter(ctx context.Context, cfg *TelemetryConfig) (sdkmetric.Exporter, error) {
	params := resolveExporterParams(cfg, signalMetrics)

	switch params.Type {
	case "console":
		return stdoutmetric.New(stdoutmetric.WithPrettyPrint())
	case "none", "nop":
		return nopMetricExporter{}, nil
	}

	if params.useHTTP() {
		opts := buildHTTPOptions(params,
			otlpmetrichttp.WithEndpoint,
			otlpmetrichttp.WithEndpointURL,
			otlpmetrichttp.WithHeaders,
			otlpmetrichttp.WithTimeout,
			otlpmetrichttp.WithInsecure,
			func() otlpmetrichttp.Option { return otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression) },
		)

		return otlpmetrichttp.New(ctx, opts...)
	}

	opts := buildGRPCOptions(params,
		otlpmetricgrpc.WithEndpoint,
		otlpmetricgrpc.WithHeaders,
		otlpmetricgrpc.WithTimeout,
		otlpmetricgrpc.WithInsecure,
		func() otlpmetricgrpc.Option { return otlpmetricgrpc.WithCompressor("gzip") },
	)

	return otlpmetricgrpc.New(ctx, opts...)
}

type nopLogExporter struct{}

func (nopLogExporter) Export(context.Context, []sdklog.Record) error { return nil }
func (nopLogExporter) Shutdown(context.Context) error                { return nil }
func (nopLogExporter) ForceFlush(context.Context) error              { return nil }

func buildLogExporter(ctx context.Context, cfg *TelemetryConfig) (sdklog.Exporter, error) {
	params := resolveExporterParams(cfg, signalLogs)

	switch params.Type {
	case "console":
		return stdoutlog.New(stdoutlog.WithPrettyPrint())
	case "none", "nop":
		return nopLogExporter{}, nil
	}

	if params.useHTTP() {
		opts := buildHTTPOptions(params,
			otlploghttp.WithEndpoint,
			otlploghttp.WithEndpointURL,
			otlploghttp.WithHeaders,
			otlploghttp.WithTimeout,
			otlploghttp.WithInsecure,
			func() otlploghttp.Option { return otlploghttp.WithCompression(otlploghttp.GzipCompression) },
		)

		return otlploghttp.New(ctx, opts...)
	}

	opts := buildGRPCOptions(params,
		otlploggrpc.WithEndpoint,
		otlploggrpc.WithHeaders,
		otlploggrpc.WithTimeout,
		otlploggrpc.WithInsecure,
		func() otlploggrpc.Option { return otlploggrpc.WithCompressor("gzip") },
	)

	return otlploggrpc.New(ctx, opts...)
}

func normalizeExporterType(value string) string {
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case "":
		return defaultExporter
	case "stdout":
		return "console"
	case "noop":
		return "nop"
	default:
		return v
	}
}

// normalizeDuration reads sub-millisecond values as milliseconds.
func normalizeDuration(value time.Duration) time.Duration {
	if value > 0 && value < time.Millisecond {
		//nolint:durationcheck // numeric env values are milliseconds
		return value * time.Millisecond
	}

	return value
}

func isHTTPScheme(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}

func buildHTTPOptions[T any](
	params exporterParams,
	withEndpoint func(string) T,
	withEndpointURL func(string) T,
	withHeaders func(map[string]string) T,
	withTimeout func(time.Duration) T,
	withInsecure func() T,
	withCompression func() T,
) []T {
	var opts []T
	if isHTTPScheme(params.Endpoint) {
		opts = append(opts, withEndpointURL(params.Endpoint))
	} else {
		opts = append(opts, withEndpoint(params.Endpoint))
	}

	return appendCommonOptions(opts, params, withHeaders, withTimeout, withInsecure, withCompression)
}

func buildGRPCOptions[T any](
	params exporterParams,
	withEndpoint func(string) T,
	withHeaders func(map[string]string) T,
	withTimeout func(time.Duration) T,
	withInsecure func() T,
	withCompression func() T,
) []T {
	opts := []T{withEndpoint(params.Endpoint)}

	return appendCommonOptions(opts, params, withHeaders, withTimeout, withInsecure, withCompression)
}

func appendCommonOptions[T any](
	opts []T,
	params exporterParams,
	withHeaders func(map[string]string) T,
	withTimeout func(time.Duration) T,
	withInsecure func() T,
	withCompression func() T,
) []T {
	if len(params.Headers) > 0 {
		opts = append(opts, withHeaders(params.Headers))
	}
	if params.Timeout > 0 {
		opts = append(opts, withTimeout(params.Timeout))
	}
	if params.Insecure {
		opts = append(opts, withInsecure())
	}
	if params.Compression == "gzip" {
		opts = append(opts, withCompression())
	}

	return opts
}
