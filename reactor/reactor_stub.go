//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd
// +build !linux,!darwin,!dragonfly,!freebsd,!netbsd,!openbsd

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for platforms without a supported readiness poller.

package reactor

import (
	"fmt"

	"github.com/missionlove/nanomsg/api"
)

// NewPoller returns an error for unsupported platforms.
func NewPoller() (api.Poller, error) {
	return nil, fmt.Errorf("reactor: readiness poller: %w", api.ErrNotSupported)
}

// NewSignal returns an error for unsupported platforms.
func NewSignal() (api.Signal, error) {
	return nil, fmt.Errorf("reactor: wakeup signal: %w", api.ErrNotSupported)
}
