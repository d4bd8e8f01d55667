// File: aio/socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// User socket: one owned, tuned, non-blocking OS socket.

package aio

import (
	"fmt"
	"sync"

	"github.com/missionlove/nanomsg/api"
)

// Recv flags.
const (
	// Partial completes a receive as soon as any data has arrived instead
	// of waiting for the whole buffer.
	Partial = 1 << iota
)

// Socket owns exactly one OS socket. Operations try to finish
// synchronously; when a registered socket would block and the caller passed
// a Handle, they return api.ErrInProgress and complete later through the
// port. Without a port or a Handle a would-block result is returned as
// iox.ErrWouldBlock.
type Socket struct {
	mu     sync.Mutex
	domain int
	typ    int
	proto  int
	port   CompletionPort
	closed bool

	sys socketSys
}

// Domain returns the address family the socket was opened with.
func (s *Socket) Domain() int { return s.domain }

// Type returns the socket type.
func (s *Socket) Type() int { return s.typ }

// Protocol returns the protocol number.
func (s *Socket) Protocol() int { return s.proto }

// Port returns the completion port the socket is registered with, or nil.
func (s *Socket) Port() CompletionPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

func (s *Socket) String() string {
	return fmt.Sprintf("socket(fd=%d domain=%d type=%d)", s.FD(), s.domain, s.typ)
}

// bindPort records the port, enforcing single registration. Called with
// s.mu held.
func (s *Socket) bindPort(p CompletionPort) error {
	if s.port != nil {
		panic(fmt.Sprintf("aio: %s is already registered with a completion port", s.String()))
	}
	if s.closed {
		return closedError("register")
	}
	s.port = p
	return nil
}

func closedError(op string) error {
	return &api.OpError{Op: op, Err: api.ErrClosed}
}
