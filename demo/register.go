package demo

import (
	"embed"
	"io/fs"

	"github.com/halcyon-dev/halcyon/errors"
	"github.com/halcyon-dev/halcyon/extension"
)

//go:embed all:resources
var resourcesFS embed.FS

// Register installs the demo extension points, classes and resource
// bindings into the environment. A nil environment selects the package
// default.
func Register(env *extension.Environment) error {
	if env == nil {
		env = extension.Default()
	}

	if err := env.RegisterPoint((*Robot)(nil)); err != nil {
		return errors.Wrap(err, "demo", "Register", "Robot point registration")
	}
	if err := env.RegisterPoint((*Transport)(nil), extension.WithDefault("tcp")); err != nil {
		return errors.Wrap(err, "demo", "Register", "Transport point registration")
	}

	if err := env.RegisterClass("demo.OptimusPrime", NewOptimusPrime,
		extension.WithActivate(extension.Activation{Groups: []string{"autobots"}, Order: 10})); err != nil {
		return errors.Wrap(err, "demo", "Register", "OptimusPrime class registration")
	}
	if err := env.RegisterClass("demo.Bumblebee", NewBumblebee,
		extension.WithActivate(extension.Activation{Groups: []string{"autobots"}, Order: 20})); err != nil {
		return errors.Wrap(err, "demo", "Register", "Bumblebee class registration")
	}
	if err := env.RegisterClass("demo.LoggingRobotWrapper", NewLoggingRobotWrapper); err != nil {
		return errors.Wrap(err, "demo", "Register", "LoggingRobotWrapper class registration")
	}
	if err := env.RegisterClass("demo.TCPTransport", NewTCPTransport); err != nil {
		return errors.Wrap(err, "demo", "Register", "TCPTransport class registration")
	}
	if err := env.RegisterClass("demo.QUICTransport", NewQUICTransport); err != nil {
		return errors.Wrap(err, "demo", "Register", "QUICTransport class registration")
	}

	sub, err := fs.Sub(resourcesFS, "resources")
	if err != nil {
		return errors.WrapFatal(err, "demo", "Register", "resource mounting")
	}
	env.AddRoot(sub)
	return nil
}
