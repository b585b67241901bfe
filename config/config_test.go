package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFull(t *testing.T) {
	cfg, err := Parse([]byte(`
roots:
  - conf/extensions
  - /etc/halcyon
metrics:
  enabled: true
  addr: ":9100"
  path: /stats
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"conf/extensions", "/etc/halcyon"}, cfg.Roots)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, "/stats", cfg.Metrics.Path)
}

func TestParseAppliesMetricsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("metrics:\n  enabled: true\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultMetricsAddr, cfg.Metrics.Addr)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
}

func TestParseRejectsEmptyRoot(t *testing.T) {
	_, err := Parse([]byte("roots:\n  - \"  \"\n"))
	assert.Error(t, err)
}

func TestParseRejectsBadMetricsPath(t *testing.T) {
	_, err := Parse([]byte("metrics:\n  enabled: true\n  path: stats\n"))
	assert.Error(t, err)
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := Parse([]byte("roots: [unclosed"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "halcyon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roots:\n  - ext\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ext"}, cfg.Roots)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
