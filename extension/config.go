package extension

import (
	"os"

	"github.com/halcyon-dev/halcyon/config"
	"github.com/halcyon-dev/halcyon/metric"
)

// WithConfig applies a loaded configuration to the environment: each
// configured root is mounted as a scan root, and an enabled metrics
// section attaches a fresh metrics set.
func WithConfig(cfg *config.Config) Option {
	return func(e *Environment) {
		for _, root := range cfg.Roots {
			e.roots = append(e.roots, os.DirFS(root))
		}
		if cfg.Metrics.Enabled && e.metrics == nil {
			e.metrics = metric.NewMetrics()
		}
	}
}
