package main

import (
	"flag"
	"time"

	"github.com/arloliu/fuda"
	otx "github.com/arloliu/otx-pulsar"
	otxpulsar "github.com/arloliu/otx-pulsar/pulsar"
)

// Config holds all CLI configuration.
// Uses fuda struct tags for defaults and env var binding.
type Config struct {
	// Broker settings
	ServiceURL   string `yaml:"serviceUrl" default:"pulsar://localhost:6650" env:"PULSAR_SERVICE_URL"`
	Topic        string `yaml:"topic" default:"pulsar-sim" env:"PULSAR_TOPIC"`
	Subscription string `yaml:"subscription" default:"pulsar-sim" env:"PULSAR_SUBSCRIPTION"`

	// Telemetry settings. TelemetryFile, when set, replaces the flags below.
	TelemetryFile string `yaml:"telemetryFile" env:"OTX_CONFIG_FILE"`
	Endpoint      string `yaml:"endpoint" default:"localhost:4317" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	UseHTTP       bool   `yaml:"http" default:"false"`
	Insecure      *bool  `yaml:"insecure" default:"true" env:"OTEL_EXPORTER_OTLP_INSECURE"`
	Console       bool   `yaml:"console" default:"false"`
	ServiceName   string `yaml:"serviceName" default:"pulsar-sim" env:"OTEL_SERVICE_NAME"`
	EnableLogs    bool   `yaml:"logs" default:"false"`
	EnableMetrics bool   `yaml:"metrics" default:"false"`

	// Instrumentation
	CapturePayload bool   `yaml:"capturePayload" default:"false" env:"OTX_PULSAR_CAPTURE_PAYLOAD"`
	PropagationKey string `yaml:"propagationKey" env:"OTX_PULSAR_PROPAGATION_KEY"`

	// Produce mode
	Count    int           `yaml:"count" default:"10"`
	Interval time.Duration `yaml:"interval" default:"1s"`
	Payload  string        `yaml:"payload" default:"hello from pulsar-sim"`
	Key      string        `yaml:"key"`

	// Relay mode
	Listen string `yaml:"listen" default:":8080" env:"PULSAR_SIM_LISTEN"`
}

// IsInsecure returns the insecure value, defaulting to true if nil.
func (c *Config) IsInsecure() bool {
	if c.Insecure == nil {
		return true
	}

	return *c.Insecure
}

func newConfig() *Config {
	cfg := &Config{}
	// Apply defaults from struct tags (fuda handles time.Duration and *bool parsing)
	_ = fuda.SetDefaults(cfg)

	return cfg
}

func (c *Config) bindCommonFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ServiceURL, "service-url", c.ServiceURL, "Pulsar service URL")
	fs.StringVar(&c.Topic, "topic", c.Topic, "Pulsar topic")
	fs.StringVar(&c.TelemetryFile, "telemetry-config", c.TelemetryFile, "otx telemetry YAML file")
	fs.StringVar(&c.Endpoint, "endpoint", c.Endpoint, "OTLP endpoint")
	fs.BoolVar(&c.UseHTTP, "http", c.UseHTTP, "Use HTTP instead of gRPC")
	fs.Func("insecure", "Skip TLS verification (default: true)", func(s string) error {
		val := s == "true" || s == "1"
		c.Insecure = &val

		return nil
	})
	fs.BoolVar(&c.Console, "console", c.Console, "Print telemetry to stdout instead of OTLP")
	fs.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Service name")
	fs.BoolVar(&c.EnableLogs, "logs", c.EnableLogs, "Export OTel log records")
	fs.BoolVar(&c.EnableMetrics, "metrics", c.EnableMetrics, "Export messaging metrics")
	fs.BoolVar(&c.CapturePayload, "capture-payload", c.CapturePayload, "Record message body size on spans")
	fs.StringVar(&c.PropagationKey, "propagation-key", c.PropagationKey, "Pack trace context into one message property")
}

func (c *Config) applyEnvOverrides() {
	// fuda.LoadEnv reads env vars based on struct tags
	_ = fuda.LoadEnv(c)
}

// telemetryConfig returns the otx pipeline configuration, read from
// TelemetryFile when one is given.
func (c *Config) telemetryConfig() (*otx.TelemetryConfig, error) {
	if c.TelemetryFile != "" {
		return otx.LoadConfig(c.TelemetryFile)
	}

	exporter := "otlp"
	if c.Console {
		exporter = "console"
	}
	protocol := "grpc"
	if c.UseHTTP {
		protocol = "http"
	}

	enabled := true
	insecure := c.IsInsecure()

	return &otx.TelemetryConfig{
		Enabled:     &enabled,
		ServiceName: c.ServiceName,
		OTLP: &otx.OTLPConfig{
			Endpoint: c.Endpoint,
			Protocol: protocol,
			Insecure: &insecure,
		},
		Traces:  &otx.TracesConfig{Exporter: exporter},
		Logs:    &otx.LogsConfig{Enabled: &c.EnableLogs, Exporter: exporter},
		Metrics: &otx.MetricsConfig{Enabled: &c.EnableMetrics, Exporter: exporter, Interval: 10 * time.Second},
	}, nil
}

// instrumentation returns the proxy options shared by every mode.
func (c *Config) instrumentation() []otxpulsar.Option {
	return []otxpulsar.Option{
		otxpulsar.WithServiceURL(c.ServiceURL),
		otxpulsar.WithCaptureMessagePayload(c.CapturePayload),
		otxpulsar.WithPropagationKey(c.PropagationKey),
	}
}
