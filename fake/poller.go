// Package fake
// Author: momentics <momentics@gmail.com>
//
// In-memory doubles of the readiness poller and wakeup signal. They let the
// emulated completion port run without kernel objects, and they check the
// signalling discipline of the completion queue.

package fake

import (
	"fmt"
	"sync"
	"time"

	"github.com/missionlove/nanomsg/api"
)

type entry struct {
	h     *api.PollHandle
	armed api.Events
	ready api.Events
	level api.Events
}

// Poller is an in-memory api.Poller. Readiness comes from Signals built on
// it and from Inject. Registrations follow the kernel rules: one-shot
// handles are disarmed by the report they produce.
type Poller struct {
	mu      sync.Mutex
	entries []*entry
	changed chan struct{}
	nextFD  uintptr
	failing []error
	closed  bool
	arms    int
}

// NewPoller returns an empty poller.
func NewPoller() *Poller {
	return &Poller{changed: make(chan struct{}), nextFD: 1000}
}

// allocFD hands out descriptors that never collide with each other.
func (p *Poller) allocFD() uintptr {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextFD++
	return p.nextFD
}

// notify wakes every blocked Wait. Called with p.mu held.
func (p *Poller) notify() {
	close(p.changed)
	p.changed = make(chan struct{})
}

func (p *Poller) find(fd uintptr) *entry {
	for _, e := range p.entries {
		if e.h.FD == fd {
			return e
		}
	}
	return nil
}

func (p *Poller) Add(h *api.PollHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("fake: add to closed poller")
	}
	if p.find(h.FD) != nil {
		return fmt.Errorf("fake: descriptor %d already registered", h.FD)
	}
	p.entries = append(p.entries, &entry{h: h})
	return nil
}

func (p *Poller) Remove(h *api.PollHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, e := range p.entries {
		if e.h == h {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("fake: descriptor %d not registered", h.FD)
}

func (p *Poller) Arm(h *api.PollHandle, ev api.Events) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.find(h.FD)
	if e == nil || e.h != h {
		return fmt.Errorf("fake: descriptor %d not registered", h.FD)
	}
	e.armed = ev
	p.arms++
	p.notify()
	return nil
}

// Wait reports the first armed entry with pending readiness, in
// registration order.
func (p *Poller) Wait(timeout time.Duration) (api.Events, *api.PollHandle, error) {
	var expire <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expire = t.C
	}
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return 0, nil, fmt.Errorf("fake: wait on closed poller")
		}
		if len(p.failing) > 0 {
			err := p.failing[0]
			p.failing = p.failing[1:]
			p.mu.Unlock()
			return 0, nil, err
		}
		for _, e := range p.entries {
			mask := e.armed | api.EventError | api.EventHangup
			if e.armed == 0 {
				continue
			}
			ev := (e.ready | e.level) & mask
			if ev == 0 {
				continue
			}
			e.ready &^= ev
			if !e.h.Persistent {
				e.armed = 0
			}
			h := e.h
			p.mu.Unlock()
			return ev, h, nil
		}
		changed := p.changed
		p.mu.Unlock()

		if timeout == 0 {
			return 0, nil, &api.OpError{Op: "fake wait", Err: api.ErrTimedOut}
		}
		select {
		case <-changed:
		case <-expire:
			return 0, nil, &api.OpError{Op: "fake wait", Err: api.ErrTimedOut}
		}
	}
}

func (p *Poller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("fake: poller closed twice")
	}
	p.closed = true
	p.entries = nil
	p.notify()
	return nil
}

// Inject makes fd report ev once it is armed for it.
func (p *Poller) Inject(fd uintptr, ev api.Events) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e := p.find(fd); e != nil {
		e.ready |= ev
		p.notify()
	}
}

// FailWait makes the next Wait calls return errs in order.
func (p *Poller) FailWait(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing = append(p.failing, errs...)
	p.notify()
}

// Armed returns the interest currently armed for fd.
func (p *Poller) Armed(fd uintptr) api.Events {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e := p.find(fd); e != nil {
		return e.armed
	}
	return 0
}

// Registered reports whether fd is known to the poller.
func (p *Poller) Registered(fd uintptr) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.find(fd) != nil
}

// Closed reports whether Close was called.
func (p *Poller) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// setLevel switches level-triggered readiness of fd.
func (p *Poller) setLevel(fd uintptr, ev api.Events, on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.find(fd)
	if e == nil {
		return
	}
	if on {
		e.level |= ev
		p.notify()
	} else {
		e.level &^= ev
	}
}
