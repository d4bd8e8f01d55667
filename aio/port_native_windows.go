//go:build windows

// File: aio/port_native_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Completion port backed by a Windows I/O completion port.

package aio

import (
	"errors"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/missionlove/nanomsg/api"
	"github.com/missionlove/nanomsg/control"
	"github.com/missionlove/nanomsg/reactor"
)

type nativePort struct {
	cfg   Config
	log   *control.Logger
	iocp  *reactor.IOCP
	stats control.PortStats
	// inflight keeps handles reachable while the kernel owns their
	// overlapped structure.
	inflight sync.Map // map[*Handle]struct{}

	closeOnce sync.Once
	closeErr  error
}

func newNativePort(cfg Config) (CompletionPort, error) {
	iocp, err := reactor.NewIOCP()
	if err != nil {
		return nil, fmt.Errorf("aio: native completion port: %w", err)
	}
	return &nativePort{cfg: cfg, log: cfg.Logger, iocp: iocp}, nil
}

func (p *nativePort) Backend() Backend { return BackendNative }

func (p *nativePort) Stats() control.StatsSnapshot { return p.stats.Snapshot() }

func (p *nativePort) Post(op int, arg any) {
	if err := p.iocp.Post(op, arg); err != nil {
		panic(fmt.Sprintf("aio: post to completion port: %v", err))
	}
	p.stats.IncPosted()
}

func (p *nativePort) Register(s *Socket) error {
	return s.attachNative(p)
}

// Wait dequeues packets until one completes an operation. Packets that only
// advance a multi-part transfer are consumed here and the transfer is
// re-issued.
func (p *nativePort) Wait(timeout time.Duration) (api.Event, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	remaining := timeout
	for {
		c, err := p.iocp.Wait(remaining)
		if err != nil {
			switch {
			case errors.Is(err, api.ErrTimedOut):
				p.stats.IncTimeouts()
			case errors.Is(err, api.ErrInterrupted):
				p.stats.IncInterrupts()
			}
			return api.Event{}, err
		}
		if c.Overlapped == nil {
			p.stats.IncDelivered()
			return api.Event{Op: c.Op, Arg: c.Arg}, nil
		}

		h := (*Handle)(unsafe.Pointer(c.Overlapped))
		p.inflight.Delete(h)
		p.stats.IncDispatches()
		if h.sys.sock.completeOverlapped(h, c.Bytes, c.Err) {
			p.stats.IncCompleted()
			p.stats.IncDelivered()
			return api.Event{Op: h.Op, Arg: h}, nil
		}

		if timeout > 0 {
			if remaining = time.Until(deadline); remaining <= 0 {
				p.stats.IncTimeouts()
				return api.Event{}, &api.OpError{Op: "wait", Err: api.ErrTimedOut}
			}
		}
	}
}

// track marks h as owned by the kernel until its packet is dequeued.
func (p *nativePort) track(h *Handle) {
	p.inflight.Store(h, struct{}{})
}

func (p *nativePort) untrack(h *Handle) {
	p.inflight.Delete(h)
}

func (p *nativePort) Close() error {
	p.closeOnce.Do(func() {
		unpublish(p.cfg)
		p.closeErr = p.iocp.Close()
		if p.closeErr != nil {
			p.log.Warning().
				Str("port", p.cfg.Name).
				Err(p.closeErr).
				Log("completion port close")
		}
	})
	return p.closeErr
}

// skipOnSuccess stops the kernel from queueing a packet for an overlapped
// call that completed immediately, so that call can report success itself.
const skipOnSuccess = windows.FILE_SKIP_COMPLETION_PORT_ON_SUCCESS | windows.FILE_SKIP_SET_EVENT_ON_HANDLE
