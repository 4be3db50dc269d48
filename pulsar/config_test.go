package pulsar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
captureMessagePayload: true
spanNamePrefix: "billing/"
propagationKey: "otel-context"
serviceUrl: "pulsar://broker:6650"
`))
	require.NoError(t, err)

	assert.True(t, cfg.CaptureMessagePayload)
	assert.Equal(t, "billing/", cfg.SpanNamePrefix)
	assert.Equal(t, "otel-context", cfg.PropagationKey)
	assert.Equal(t, "pulsar://broker:6650", cfg.ServiceURL)
	assert.True(t, cfg.MetricsEnabled())
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulsar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("spanNamePrefix: \"file/\"\nmetrics: true\n"), 0o644))

	t.Setenv("OTX_PULSAR_SPAN_NAME_PREFIX", "env/")
	t.Setenv("OTX_PULSAR_METRICS", "false")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env/", cfg.SpanNamePrefix)
	assert.False(t, cfg.MetricsEnabled())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "otx/pulsar: load config")
}

func TestConfig_ZeroValueMetricsEnabled(t *testing.T) {
	assert.True(t, Config{}.MetricsEnabled())
}

func TestWithConfig_ThenOverride(t *testing.T) {
	o := applyOptions([]Option{
		WithConfig(Config{SpanNamePrefix: "a/", PropagationKey: "k"}),
		WithSpanNamePrefix("b/"),
	})
	assert.Equal(t, "b/", o.cfg.SpanNamePrefix)
	assert.Equal(t, "k", o.cfg.PropagationKey)
}
