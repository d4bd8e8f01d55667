// File: aio/port_emulated.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Completion port emulated on top of a readiness poller. Completions live in
// a CompletionQueue whose signal is watched by the same poller as the
// registered sockets, so one Wait call serves both.

package aio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/missionlove/nanomsg/api"
	"github.com/missionlove/nanomsg/control"
	"github.com/missionlove/nanomsg/reactor"
)

// readinessHandler is implemented by sockets registered with an emulated
// port. The port calls it from Wait when the poller reports the socket.
type readinessHandler interface {
	onReady(ev api.Events)
}

type emulatedPort struct {
	cfg    Config
	log    *control.Logger
	poller api.Poller
	signal api.Signal
	sigh   api.PollHandle
	queue  *CompletionQueue
	stats  control.PortStats

	// gate is held shared by every Wait and exclusively by Close while it
	// releases the poller, so no waiter is inside the poller at that point.
	gate    sync.RWMutex
	closing atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

func newEmulatedPort(cfg Config) (_ *emulatedPort, err error) {
	p := &emulatedPort{cfg: cfg, log: cfg.Logger}

	p.poller = cfg.Poller
	if p.poller == nil {
		if p.poller, err = reactor.NewPoller(); err != nil {
			return nil, fmt.Errorf("aio: emulated port poller: %w", err)
		}
	}
	defer func() {
		if err != nil {
			_ = p.poller.Close()
		}
	}()

	p.signal = cfg.Signal
	if p.signal == nil {
		if p.signal, err = reactor.NewSignal(); err != nil {
			return nil, fmt.Errorf("aio: emulated port signal: %w", err)
		}
	}
	defer func() {
		if err != nil {
			_ = p.signal.Close()
		}
	}()

	p.sigh = api.PollHandle{FD: p.signal.FD(), Persistent: true}
	if err = p.poller.Add(&p.sigh); err != nil {
		return nil, fmt.Errorf("aio: register completion signal: %w", err)
	}
	if err = p.poller.Arm(&p.sigh, api.EventRead); err != nil {
		_ = p.poller.Remove(&p.sigh)
		return nil, fmt.Errorf("aio: arm completion signal: %w", err)
	}

	p.queue = newCompletionQueue(p.signal, &p.stats)
	return p, nil
}

func (p *emulatedPort) Backend() Backend { return BackendEmulated }

func (p *emulatedPort) Stats() control.StatsSnapshot { return p.stats.Snapshot() }

func (p *emulatedPort) Post(op int, arg any) {
	p.queue.Post(op, arg)
}

// complete finishes a socket operation by posting its handle.
func (p *emulatedPort) complete(h *Handle) {
	p.stats.IncCompleted()
	p.queue.Post(h.Op, h)
}

func (p *emulatedPort) Register(s *Socket) error {
	return s.attachEmulated(p)
}

// Wait pops a queued event or blocks on the poller. Socket readiness
// reported while waiting drives that socket's pending operations, whose
// completions are then picked up by the next pop. A wakeup that turns out
// to carry nothing is retried until the deadline. Once the port is closing
// every Wait returns api.ErrClosed.
func (p *emulatedPort) Wait(timeout time.Duration) (api.Event, error) {
	p.gate.RLock()
	defer p.gate.RUnlock()
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	woken := false
	for {
		if p.closing.Load() {
			return api.Event{}, &api.OpError{Op: "wait", Err: api.ErrClosed}
		}
		if ev, ok := p.queue.TryWait(); ok {
			p.stats.IncDelivered()
			return ev, nil
		}
		if woken {
			p.stats.IncSpurious()
			woken = false
		}

		remaining := timeout
		if timeout > 0 {
			if remaining = time.Until(deadline); remaining <= 0 {
				p.stats.IncTimeouts()
				return api.Event{}, &api.OpError{Op: "wait", Err: api.ErrTimedOut}
			}
		}

		ev, h, err := p.poller.Wait(remaining)
		if p.closing.Load() {
			return api.Event{}, &api.OpError{Op: "wait", Err: api.ErrClosed}
		}
		switch {
		case err == nil:
		case errors.Is(err, api.ErrTimedOut):
			p.stats.IncTimeouts()
			return api.Event{}, err
		case errors.Is(err, api.ErrInterrupted):
			p.stats.IncInterrupts()
			return api.Event{}, err
		default:
			return api.Event{}, err
		}

		switch {
		case h == nil:
			// readiness for a descriptor removed meanwhile
			woken = true
		case h == &p.sigh:
			woken = true
		default:
			if r, ok := h.Data.(readinessHandler); ok {
				p.stats.IncDispatches()
				r.onReady(ev)
			}
		}
		if timeout == 0 && !woken {
			// one dispatch round for a poll; pick up what it produced
			if ev, ok := p.queue.TryWait(); ok {
				p.stats.IncDelivered()
				return ev, nil
			}
			p.stats.IncTimeouts()
			return api.Event{}, &api.OpError{Op: "wait", Err: api.ErrTimedOut}
		}
	}
}

func (p *emulatedPort) Close() error {
	p.closeOnce.Do(func() {
		unpublish(p.cfg)
		p.closing.Store(true)
		// The signal is level-triggered: once held raised, every goroutine
		// blocked in the poller returns and observes closing.
		p.queue.detach()
		p.gate.Lock()
		defer p.gate.Unlock()
		errs := []error{
			p.poller.Remove(&p.sigh),
			p.signal.Close(),
			p.poller.Close(),
		}
		p.closeErr = errors.Join(errs...)
		if p.closeErr != nil {
			p.log.Warning().
				Str("port", p.cfg.Name).
				Err(p.closeErr).
				Log("completion port close")
		}
		if n := p.queue.Len(); n != 0 {
			p.log.Debug().
				Str("port", p.cfg.Name).
				Int("undelivered", n).
				Log("completion port closed with queued events")
		}
	})
	return p.closeErr
}
