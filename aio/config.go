// File: aio/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Completion port configuration and functional options.

package aio

import (
	"fmt"
	"strings"

	"github.com/missionlove/nanomsg/api"
	"github.com/missionlove/nanomsg/control"
)

// Backend selects the completion port implementation.
type Backend int

const (
	// BackendAuto picks native where the platform has a kernel completion
	// port and emulated elsewhere.
	BackendAuto Backend = iota
	// BackendNative uses the kernel completion port (Windows IOCP).
	BackendNative
	// BackendEmulated uses a readiness poller, a wakeup signal and a FIFO.
	BackendEmulated
)

func (b Backend) String() string {
	switch b {
	case BackendAuto:
		return "auto"
	case BackendNative:
		return "native"
	case BackendEmulated:
		return "emulated"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// ParseBackend maps "auto", "native" or "emulated" to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return BackendAuto, nil
	case "native":
		return BackendNative, nil
	case "emulated":
		return BackendEmulated, nil
	}
	return BackendAuto, fmt.Errorf("aio: unknown backend %q: %w", s, api.ErrInvalidArgument)
}

// Config holds completion port construction parameters.
type Config struct {
	Backend Backend
	// Name labels log lines and the debug probe. Generated when empty.
	Name string
	// Logger overrides the package logger for this port.
	Logger *control.Logger
	// Poller and Signal replace the platform primitives of the emulated
	// backend. The port takes ownership and closes them.
	Poller api.Poller
	Signal api.Signal
	// PublishProbes registers the port statistics in control.Probes.
	PublishProbes bool
}

// DefaultConfig returns the configuration used when no option is given.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendAuto,
		PublishProbes: true,
	}
}

// Option customizes port construction.
type Option func(*Config)

// WithBackend selects the implementation.
func WithBackend(b Backend) Option {
	return func(c *Config) {
		c.Backend = b
	}
}

// WithName sets the port label.
func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithLogger attaches a logger to the port.
func WithLogger(l *control.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithPoller injects the readiness poller of the emulated backend.
func WithPoller(p api.Poller) Option {
	return func(c *Config) {
		c.Poller = p
	}
}

// WithSignal injects the wakeup signal of the emulated backend.
func WithSignal(s api.Signal) Option {
	return func(c *Config) {
		c.Signal = s
	}
}

// WithProbes toggles publication of the port statistics.
func WithProbes(on bool) Option {
	return func(c *Config) {
		c.PublishProbes = on
	}
}
