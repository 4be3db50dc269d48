//revive:disable:line-length-limit
package otx

import (
	"slices"
	"strings"
	"time"
)

// Default values shared by the config accessors and exporter builders.
const (
	defaultOTLPEndpoint = "localhost:4317"
	defaultExporter     = "otlp"
	defaultPropagators  = "tracecontext,baggage"
)

// TelemetryConfig configures the telemetry pipeline that receives the spans,
// metrics and log records produced by the Pulsar instrumentation.
//
// Environment variable names follow the OTel SDK environment conventions:
// https://opentelemetry.io/docs/specs/otel/configuration/sdk-environment-variables/
type TelemetryConfig struct {
	// Enabled turns the whole pipeline on. When false every provider
	// constructor returns ErrDisabled and instrumentation stays on the
	// global no-op providers.
	Enabled *bool `yaml:"enabled" default:"false" env:"OTX_ENABLED"`

	// ServiceName identifies the producing or consuming application.
	ServiceName string `yaml:"serviceName" env:"OTEL_SERVICE_NAME" validate:"required_if=Enabled true"`

	// Version is reported as service.version.
	Version string `yaml:"version" env:"OTEL_SERVICE_VERSION"`

	// Environment is reported as deployment.environment.
	Environment string `yaml:"environment" env:"OTEL_DEPLOYMENT_ENVIRONMENT" default:"development"`

	// ResourceAttributes are extra key=value resource attributes.
	ResourceAttributes map[string]string `yaml:"resourceAttributes,omitempty" env:"OTEL_RESOURCE_ATTRIBUTES"`

	// OTLP holds exporter settings shared by every signal.
	OTLP *OTLPConfig `yaml:"otlp,omitempty"`

	Traces      *TracesConfig  `yaml:"traces,omitempty"`
	Logs        *LogsConfig    `yaml:"logs,omitempty"`
	Metrics     *MetricsConfig `yaml:"metrics,omitempty"`
	Propagation *PropConfig    `yaml:"propagation,omitempty"`
}

// OTLPConfig contains the OTLP exporter settings shared by traces, metrics and logs.
type OTLPConfig struct {
	// Endpoint is "host:port" for gRPC, or a full URL for HTTP
	// (e.g. "http://collector:4318/v1/traces").
	Endpoint string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`

	// Insecure disables TLS. Defaults to true.
	Insecure *bool `yaml:"insecure" env:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`

	// Headers are sent with every export request. They often carry
	// credentials, so never log them.
	Headers map[string]string `yaml:"headers,omitempty" env:"OTEL_EXPORTER_OTLP_HEADERS"`

	// Protocol is one of "grpc", "http/protobuf" or "http".
	Protocol string `yaml:"protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL" default:"grpc" validate:"oneof=grpc http/protobuf http"`

	Timeout     time.Duration `yaml:"timeout" env:"OTEL_EXPORTER_OTLP_TIMEOUT" default:"10s" validate:"gte=0"`
	Compression string        `yaml:"compression,omitempty" env:"OTEL_EXPORTER_OTLP_COMPRESSION" validate:"omitempty,oneof=gzip none"`
}

// IsInsecure reports whether TLS is disabled. A nil config counts as insecure.
func (c *OTLPConfig) IsInsecure() bool {
	return c == nil || c.Insecure == nil || *c.Insecure
}

// TracesConfig configures span export.
type TracesConfig struct {
	// Enabled defaults to true when the pipeline is enabled.
	Enabled *bool `yaml:"enabled" default:"true"`

	// Exporter is one of "otlp", "console", "stdout" or "none".
	Exporter string `yaml:"exporter" env:"OTEL_TRACES_EXPORTER" default:"otlp" validate:"oneof=otlp console stdout none"`

	// Endpoint overrides OTLP.Endpoint for traces only.
	Endpoint string `yaml:"endpoint,omitempty" env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`

	Sampling *SamplingConfig `yaml:"sampling,omitempty"`
}

// IsEnabled reports whether span export is on.
func (c *TracesConfig) IsEnabled() bool {
	return c == nil || c.Enabled == nil || *c.Enabled
}

// LogsConfig configures export of OTel log records, such as the warnings the
// Pulsar instrumentation emits when it fails to propagate context.
type LogsConfig struct {
	// Enabled is opt-in.
	Enabled  *bool  `yaml:"enabled" default:"false"`
	Exporter string `yaml:"exporter" env:"OTEL_LOGS_EXPORTER" default:"otlp" validate:"oneof=otlp console stdout none"`
	Endpoint string `yaml:"endpoint,omitempty" env:"OTEL_EXPORTER_OTLP_LOGS_ENDPOINT"`
}

// IsEnabled reports whether log export is on.
func (c *LogsConfig) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

// MetricsConfig configures export of the messaging client metrics.
type MetricsConfig struct {
	// Enabled is opt-in.
	Enabled  *bool  `yaml:"enabled" default:"false"`
	Exporter string `yaml:"exporter" env:"OTEL_METRICS_EXPORTER" default:"otlp" validate:"oneof=otlp console stdout none"`
	Endpoint string `yaml:"endpoint,omitempty" env:"OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"`

	// Interval is the periodic reader interval. Bare numbers from the
	// environment are milliseconds.
	Interval time.Duration `yaml:"interval,omitempty" env:"OTEL_METRIC_EXPORT_INTERVAL" default:"60s" validate:"omitempty,gt=0"`
}

// IsEnabled reports whether metric export is on.
func (c *MetricsConfig) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

// SamplingConfig selects the trace sampler.
type SamplingConfig struct {
	// Sampler is one of "always_on", "always_off", "traceidratio",
	// "parentbased_always_on", "parentbased_always_off" or
	// "parentbased_traceidratio".
	//
	// Consumer spans are children of remote producer spans, so the
	// parent-based samplers keep a message's send and receive spans in
	// the same sampling decision.
	Sampler string `yaml:"sampler" env:"OTEL_TRACES_SAMPLER" default:"parentbased_always_on" validate:"oneof=always_on always_off traceidratio parentbased_always_on parentbased_always_off parentbased_traceidratio"`

	// SamplerArg is the ratio for the traceidratio samplers.
	SamplerArg float64 `yaml:"samplerArg" env:"OTEL_TRACES_SAMPLER_ARG" default:"1.0" validate:"gte=0,lte=1"`
}

// PropConfig selects the propagators used to write trace context into
// message properties.
type PropConfig struct {
	// Propagators is a comma-separated list: "tracecontext", "baggage" or "none".
	Propagators string `yaml:"propagators" env:"OTEL_PROPAGATORS" default:"tracecontext,baggage"`
}

// HasTraceContext reports whether the W3C tracecontext propagator is selected.
func (c *PropConfig) HasTraceContext() bool {
	if c == nil || c.Propagators == "" {
		return true
	}

	return slices.Contains(splitPropagators(c.Propagators), "tracecontext")
}

// HasBaggage reports whether the W3C baggage propagator is selected.
func (c *PropConfig) HasBaggage() bool {
	if c == nil || c.Propagators == "" {
		return true
	}

	return slices.Contains(splitPropagators(c.Propagators), "baggage")
}

func splitPropagators(propagators string) []string {
	if propagators == "" {
		return nil
	}

	var result []string
	for p := range strings.SplitSeq(propagators, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}

	return result
}

// IsEnabled reports whether telemetry is enabled. A nil config is disabled.
func (c *TelemetryConfig) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

// SamplingConfig returns the trace sampling settings, or nil for the default sampler.
func (c *TelemetryConfig) SamplingConfig() *SamplingConfig {
	if c == nil || c.Traces == nil {
		return nil
	}

	return c.Traces.Sampling
}

// TracesExporter returns the effective trace exporter type.
func (c *TelemetryConfig) TracesExporter() string {
	if c == nil || c.Traces == nil || c.Traces.Exporter == "" {
		return defaultExporter
	}

	return c.Traces.Exporter
}

// TracesEndpoint returns the trace endpoint: Traces.Endpoint, then OTLP.Endpoint.
func (c *TelemetryConfig) TracesEndpoint() string {
	if c == nil {
		return defaultOTLPEndpoint
	}
	if c.Traces != nil && c.Traces.Endpoint != "" {
		return c.Traces.Endpoint
	}
	if c.OTLP != nil && c.OTLP.Endpoint != "" {
		return c.OTLP.Endpoint
	}

	return defaultOTLPEndpoint
}

// OTLPSettings returns the shared OTLP settings, never nil.
func (c *TelemetryConfig) OTLPSettings() *OTLPConfig {
	if c == nil || c.OTLP == nil {
		return &OTLPConfig{}
	}

	return c.OTLP
}

func boolPtr(v bool) *bool { return &v }
