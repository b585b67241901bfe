// Package demo provides a small extension set exercising the loader end to
// end: an interface point with a wrapper and activation metadata, and a
// struct-of-funcs point with adaptive dispatch. cmd/halcyon-demo drives it.
package demo

import (
	"fmt"
	"log/slog"

	"github.com/halcyon-dev/halcyon/common"
)

// Robot is an interface extension point. Implementations are bound in the
// package's resource file.
type Robot interface {
	SayHello() string
}

// OptimusPrime is the "optimusPrime" robot.
type OptimusPrime struct{}

// NewOptimusPrime constructs the extension.
func NewOptimusPrime() *OptimusPrime { return &OptimusPrime{} }

// SayHello implements Robot.
func (r *OptimusPrime) SayHello() string { return "Hello, I am Optimus Prime." }

// Bumblebee is the "bumblebee" robot.
type Bumblebee struct{}

// NewBumblebee constructs the extension.
func NewBumblebee() *Bumblebee { return &Bumblebee{} }

// SayHello implements Robot.
func (r *Bumblebee) SayHello() string { return "Hello, I am Bumblebee." }

// LoggingRobotWrapper decorates every materialized Robot with a log line
// before delegation. Its single-argument constructor classifies it as a
// wrapper.
type LoggingRobotWrapper struct {
	inner Robot
}

// NewLoggingRobotWrapper wraps an existing robot.
func NewLoggingRobotWrapper(inner Robot) *LoggingRobotWrapper {
	return &LoggingRobotWrapper{inner: inner}
}

// SayHello implements Robot.
func (w *LoggingRobotWrapper) SayHello() string {
	slog.Debug("robot greeting requested")
	return w.inner.SayHello()
}

// Inner exposes the wrapped robot.
func (w *LoggingRobotWrapper) Inner() Robot { return w.inner }

// Transport is a struct-of-funcs extension point: the concrete transport
// is chosen per call from the URL scheme, falling back to the point's
// default.
type Transport struct {
	// Dial opens a connection to target over the transport selected by
	// the url.
	Dial func(url *common.URL, target string) (string, error) `adaptive:"protocol"`

	// Describe identifies the transport. It is not adaptive; calling it
	// on the adaptive dispatcher fails.
	Describe func() string
}

// NewTCPTransport constructs the "tcp" transport.
func NewTCPTransport() *Transport {
	return &Transport{
		Dial: func(_ *common.URL, target string) (string, error) {
			return fmt.Sprintf("tcp connection to %s", target), nil
		},
		Describe: func() string { return "plain tcp transport" },
	}
}

// NewQUICTransport constructs the "quic" transport.
func NewQUICTransport() *Transport {
	return &Transport{
		Dial: func(_ *common.URL, target string) (string, error) {
			return fmt.Sprintf("quic stream to %s", target), nil
		},
		Describe: func() string { return "quic datagram transport" },
	}
}
