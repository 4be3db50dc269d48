package pulsar

import (
	"fmt"

	"github.com/arloliu/fuda"
)

// Config is the instrumentation policy shared by every proxy created from
// one client. It is read-only once the client is built.
type Config struct {
	// CaptureMessagePayload records the payload size as
	// messaging.message.body.size.
	CaptureMessagePayload bool `yaml:"captureMessagePayload" env:"OTX_PULSAR_CAPTURE_PAYLOAD" default:"false"`

	// SpanNamePrefix is prepended to every span name.
	SpanNamePrefix string `yaml:"spanNamePrefix" env:"OTX_PULSAR_SPAN_NAME_PREFIX"`

	// PropagationKey packs the trace context into one property with this
	// name. Empty writes each propagator field as its own property.
	PropagationKey string `yaml:"propagationKey" env:"OTX_PULSAR_PROPAGATION_KEY"`

	// ServiceURL is the broker URL reported as server.address and
	// server.port. NewClient fills it from pulsar.ClientOptions.URL.
	ServiceURL string `yaml:"serviceUrl" env:"OTX_PULSAR_SERVICE_URL"`

	// Metrics enables the messaging client metrics. Defaults to true.
	Metrics *bool `yaml:"metrics" env:"OTX_PULSAR_METRICS" default:"true"`
}

// MetricsEnabled reports whether metrics are recorded. Nil means enabled.
func (c Config) MetricsEnabled() bool {
	return c.Metrics == nil || *c.Metrics
}

// LoadConfig reads a Config from a YAML or JSON file, applying environment
// overrides and defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if err := fuda.LoadFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("otx/pulsar: load config %q: %w", path, err)
	}

	return cfg, nil
}

// ParseConfig is LoadConfig for an in-memory document.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := fuda.LoadBytes(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("otx/pulsar: parse config: %w", err)
	}

	return cfg, nil
}
