// Package config loads the YAML environment configuration for the
// extension loader: resource scan roots and the optional metrics endpoint.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/halcyon-dev/halcyon/errors"
)

// Defaults applied by Validate when fields are unset.
const (
	DefaultMetricsAddr = ":9090"
	DefaultMetricsPath = "/metrics"
)

// Config represents the complete loader configuration
type Config struct {
	// Roots lists directories scanned for extension resource files, in
	// precedence order after the built-in root.
	Roots []string `yaml:"roots"`

	// Metrics configures the optional prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig configures the metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// Load reads and validates a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Config", "Load", "file read")
	}
	return Parse(data)
}

// Parse decodes and validates configuration bytes
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapConfig(err, "Config", "Parse", "yaml decoding")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration and applies defaults
func (c *Config) Validate() error {
	for i, root := range c.Roots {
		root = strings.TrimSpace(root)
		if root == "" {
			return errors.WrapConfig(
				fmt.Errorf("root %d is empty", i),
				"Config", "Validate", "root validation")
		}
		c.Roots[i] = root
	}

	if c.Metrics.Enabled {
		if c.Metrics.Addr == "" {
			c.Metrics.Addr = DefaultMetricsAddr
		}
		if c.Metrics.Path == "" {
			c.Metrics.Path = DefaultMetricsPath
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return errors.WrapConfig(
				fmt.Errorf("metrics path %q must start with /", c.Metrics.Path),
				"Config", "Validate", "metrics validation")
		}
	}
	return nil
}
