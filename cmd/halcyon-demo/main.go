// Package main implements the halcyon demo consumer. It builds an
// extension Environment, registers the demo extension set, and drives the
// loader through named lookup, wrapper composition, activation and
// adaptive dispatch.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/halcyon-dev/halcyon/common"
	"github.com/halcyon-dev/halcyon/config"
	"github.com/halcyon-dev/halcyon/demo"
	"github.com/halcyon-dev/halcyon/extension"
	"github.com/halcyon-dev/halcyon/metric"
)

const appName = "halcyon-demo"

func main() {
	if err := run(); err != nil {
		slog.Error("demo failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", getEnv("HALCYON_CONFIG", ""),
		"Path to configuration file (env: HALCYON_CONFIG)")
	logLevel := flag.String("log-level", getEnv("HALCYON_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: HALCYON_LOG_LEVEL)")
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	opts := []extension.Option{extension.WithLogger(logger)}
	var registry *metric.Registry
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		if cfg.Metrics.Enabled {
			registry = metric.NewRegistry()
			opts = append(opts, extension.WithMetrics(registry.CoreMetrics()))
		}
		opts = append(opts, extension.WithConfig(cfg))
	}

	env := extension.NewEnvironment(opts...)
	if err := demo.Register(env); err != nil {
		return err
	}

	if err := greet(env); err != nil {
		return err
	}
	if err := rollOut(env); err != nil {
		return err
	}
	if err := dial(env); err != nil {
		return err
	}

	if registry != nil {
		families, err := registry.PrometheusRegistry().Gather()
		if err != nil {
			return err
		}
		logger.Info("metrics gathered", "families", len(families))
	}
	return nil
}

// greet exercises named lookup and wrapper composition.
func greet(env *extension.Environment) error {
	loader, err := extension.For(env, (*demo.Robot)(nil))
	if err != nil {
		return err
	}
	robot, err := loader.Get("optimusPrime")
	if err != nil {
		return err
	}
	slog.Info(robot.(demo.Robot).SayHello(), "app", appName)

	if w, ok := robot.(*demo.LoggingRobotWrapper); ok {
		slog.Info("wrapper composed", "inner", loader.NameOf(w.Inner()))
	}
	return nil
}

// rollOut exercises the activation filter.
func rollOut(env *extension.Environment) error {
	loader, err := extension.For(env, (*demo.Robot)(nil))
	if err != nil {
		return err
	}
	url := common.New("tcp", "base", 7000, "hangar", nil)
	robots, err := loader.Activate(url, nil, "autobots")
	if err != nil {
		return err
	}
	for _, r := range robots {
		slog.Info("rolling out", "robot", r.(demo.Robot).SayHello())
	}
	return nil
}

// dial exercises adaptive dispatch: the transport is chosen from the URL
// scheme, falling back to the point default when the scheme is absent.
func dial(env *extension.Environment) error {
	loader, err := extension.For(env, (*demo.Transport)(nil))
	if err != nil {
		return err
	}
	adaptive, err := loader.Adaptive()
	if err != nil {
		return err
	}
	transport := adaptive.(*demo.Transport)

	for _, raw := range []string{"quic://edge-1:4433/stream", "/fallback"} {
		url, err := common.Parse(raw)
		if err != nil {
			return err
		}
		conn, err := transport.Dial(url, "peer-1")
		if err != nil {
			return err
		}
		slog.Info("dialed", "url", raw, "connection", conn)
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
