package otx

import (
	"fmt"

	"github.com/arloliu/fuda"
)

// LoadConfig reads a YAML or JSON telemetry config from path.
// Environment variables override file values; struct-tag defaults fill
// the gaps and the result is validated.
func LoadConfig(path string) (*TelemetryConfig, error) {
	var cfg TelemetryConfig
	if err := fuda.LoadFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("otx: load telemetry config %q: %w", path, err)
	}

	return &cfg, nil
}

// ParseConfig is LoadConfig for an in-memory document.
func ParseConfig(data []byte) (*TelemetryConfig, error) {
	var cfg TelemetryConfig
	if err := fuda.LoadBytes(data, &cfg); err != nil {
		return nil, fmt.Errorf("otx: parse telemetry config: %w", err)
	}

	return &cfg, nil
}
