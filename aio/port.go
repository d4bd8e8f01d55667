// File: aio/port.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Completion port contract and backend selection.

package aio

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/missionlove/nanomsg/api"
	"github.com/missionlove/nanomsg/control"
)

// CompletionPort delivers completion events to goroutines blocked in Wait.
// All methods are safe for concurrent use.
type CompletionPort interface {
	// Post enqueues a user event. It never fails.
	Post(op int, arg any)

	// Wait returns the next event. A negative timeout waits forever, zero
	// polls. It fails with api.ErrTimedOut or api.ErrInterrupted.
	Wait(timeout time.Duration) (api.Event, error)

	// Register binds s to the port so its pending operations complete
	// here. Registering a socket twice panics.
	Register(s *Socket) error

	// Backend reports the implementation in use.
	Backend() Backend

	// Stats returns the port counters.
	Stats() control.StatsSnapshot

	// Close releases the port.
	Close() error
}

var portSeq atomic.Uint64

// NewCompletionPort builds a port. Without options the backend is picked
// automatically.
func NewCompletionPort(opts ...Option) (CompletionPort, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("port-%d", portSeq.Add(1))
	}
	if cfg.Logger == nil {
		cfg.Logger = logger()
	}

	backend := cfg.Backend
	if backend == BackendAuto {
		backend = BackendEmulated
		if Capabilities().NativePort {
			backend = BackendNative
		}
	}

	var (
		port CompletionPort
		err  error
	)
	switch backend {
	case BackendNative:
		port, err = newNativePort(cfg)
	case BackendEmulated:
		port, err = newEmulatedPort(cfg)
	default:
		return nil, fmt.Errorf("aio: %s: %w", backend, api.ErrInvalidArgument)
	}
	if err != nil {
		cfg.Logger.Err().
			Str("port", cfg.Name).
			Str("backend", backend.String()).
			Err(err).
			Log("completion port creation failed")
		return nil, err
	}

	if cfg.PublishProbes {
		control.Probes.RegisterProbe("port."+cfg.Name, func() any {
			return port.Stats().AsMap()
		})
	}
	cfg.Logger.Debug().
		Str("port", cfg.Name).
		Str("backend", backend.String()).
		Log("completion port opened")
	return port, nil
}

// unpublish drops the debug probe of a closing port.
func unpublish(cfg Config) {
	if cfg.PublishProbes {
		control.Probes.UnregisterProbe("port." + cfg.Name)
	}
}
