// Author: momentics <momentics@gmail.com>

package fake

import (
	"fmt"
	"sync"

	"github.com/missionlove/nanomsg/api"
)

// Signal is an in-memory api.Signal that is readable on its Poller while
// raised. It panics when raised twice or lowered twice in a row, since the
// completion queue must only ever toggle it.
type Signal struct {
	poller *Poller
	fd     uintptr

	mu     sync.Mutex
	raised bool
	raises int
	lowers int
	closed bool
}

var _ api.Signal = (*Signal)(nil)

// NewSignal creates a lowered signal watched through p.
func NewSignal(p *Poller) *Signal {
	return &Signal{poller: p, fd: p.allocFD()}
}

func (s *Signal) FD() uintptr { return s.fd }

func (s *Signal) Signal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raised {
		panic(fmt.Sprintf("fake: signal %d raised while already raised", s.fd))
	}
	s.raised = true
	s.raises++
	s.poller.setLevel(s.fd, api.EventRead, true)
	return nil
}

func (s *Signal) Unsignal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.raised {
		panic(fmt.Sprintf("fake: signal %d lowered while already lowered", s.fd))
	}
	s.raised = false
	s.lowers++
	s.poller.setLevel(s.fd, api.EventRead, false)
	return nil
}

func (s *Signal) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("fake: signal %d closed twice", s.fd)
	}
	s.closed = true
	return nil
}

// Raised reports the current state.
func (s *Signal) Raised() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raised
}

// Toggles returns how many times the signal was raised and lowered.
func (s *Signal) Toggles() (raises, lowers int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raises, s.lowers
}

// Closed reports whether Close was called.
func (s *Signal) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
