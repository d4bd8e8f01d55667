//go:build unix

// File: aio/pending_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pending-operation state machine of the emulated backend. Each socket keeps
// one FIFO per direction and arms its one-shot poller registration with
// exactly the directions that have work queued. Readiness retries the head
// operations in order, keeping partial progress in the Handle.

package aio

import (
	"github.com/eapache/queue"
	"golang.org/x/sys/unix"

	"github.com/missionlove/nanomsg/api"
	"github.com/missionlove/nanomsg/internal/errno"
)

func (s *Socket) attachEmulated(p *emulatedPort) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bindPort(p); err != nil {
		return err
	}
	s.sys.pollh = api.PollHandle{FD: uintptr(s.sys.fd), Data: s}
	if err := p.poller.Add(&s.sys.pollh); err != nil {
		s.port = nil
		return err
	}
	s.sys.ep = p
	return nil
}

// async reports whether a would-block outcome can become a pending
// operation. Called with s.mu held.
func (s *Socket) async(h *Handle) bool {
	return h != nil && s.sys.ep != nil
}

// interest is the readiness the queued operations need.
func (s *Socket) interest() api.Events {
	var ev api.Events
	if s.sys.in.Length() > 0 {
		ev |= api.EventRead
	}
	if s.sys.out.Length() > 0 {
		ev |= api.EventWrite
	}
	return ev
}

func (s *Socket) arm(ev api.Events) error {
	if ev == s.sys.armed {
		return nil
	}
	if err := s.sys.ep.poller.Arm(&s.sys.pollh, ev); err != nil {
		return err
	}
	s.sys.armed = ev
	return nil
}

// enqueue parks h behind the operations already waiting in q.
func (s *Socket) enqueue(q *queue.Queue, h *Handle, kind opKind, buf []byte, flags, done int) error {
	h.begin(kind, buf, flags, done)
	want := s.interest()
	if q == s.sys.in {
		want |= api.EventRead
	} else {
		want |= api.EventWrite
	}
	if err := s.arm(want); err != nil {
		h.buf = nil
		h.setState(OpIdle)
		return err
	}
	q.Add(h)
	s.sys.ep.stats.IncPending()
	return api.ErrInProgress
}

// onReady runs on the goroutine whose Wait received the readiness report.
// The registration is one-shot, so it is disarmed until re-armed here.
func (s *Socket) onReady(ev api.Events) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sys.armed = 0
	if s.closed {
		return
	}
	if ev&(api.EventRead|api.EventError|api.EventHangup) != 0 {
		s.drive(s.sys.in)
	}
	if ev&(api.EventWrite|api.EventError|api.EventHangup) != 0 {
		s.drive(s.sys.out)
	}
	if err := s.arm(s.interest()); err != nil {
		logger().Err().
			Int("fd", s.sys.fd).
			Err(err).
			Log("re-arming socket failed; failing its pending operations")
		s.failPending(err)
	}
}

// drive retries the operations of q from the head until one would block.
func (s *Socket) drive(q *queue.Queue) {
	for q.Length() > 0 {
		h := q.Peek().(*Handle)
		h.setState(OpRetrying)
		finished, err := s.retry(h)
		if !finished {
			h.setState(OpAwaiting)
			return
		}
		q.Remove()
		h.finish(err)
		s.sys.ep.complete(h)
	}
}

// failPending terminates every queued operation with err.
func (s *Socket) failPending(err error) {
	for _, q := range [...]*queue.Queue{s.sys.in, s.sys.out} {
		for q.Length() > 0 {
			h := q.Remove().(*Handle)
			h.finish(err)
			s.sys.ep.complete(h)
		}
	}
}

func (s *Socket) retry(h *Handle) (finished bool, err error) {
	switch h.kind {
	case opRecv:
		return s.retryRecv(h)
	case opSend:
		return s.retrySend(h)
	case opConnect:
		return s.retryConnect()
	case opAccept:
		return s.retryAccept(h)
	}
	panic("aio: pending handle without an operation")
}

func (s *Socket) retryRecv(h *Handle) (bool, error) {
	for h.done < len(h.buf) {
		m, err := s.recvOnce(h.buf[h.done:])
		if err != nil {
			if errno.Code(err) == unix.EINTR {
				continue
			}
			if err = recvFailure(err); err != nil {
				return true, err
			}
			return false, nil
		}
		if m == 0 {
			return true, errno.ConnReset("recv", nil)
		}
		h.done += m
		if h.flags&Partial != 0 {
			return true, nil
		}
	}
	return true, nil
}

func (s *Socket) retrySend(h *Handle) (bool, error) {
	for h.done < len(h.buf) {
		m, err := s.sendOnce(h.buf[h.done:])
		if err != nil {
			if errno.Code(err) == unix.EINTR {
				continue
			}
			if err = sendFailure(err); err != nil {
				return true, err
			}
			return false, nil
		}
		if m == 0 {
			return false, nil
		}
		h.done += m
	}
	return true, nil
}

// retryConnect inspects SO_ERROR. A clean SO_ERROR on a socket without a
// peer means the handshake is still running.
func (s *Socket) retryConnect() (bool, error) {
	code, err := unix.GetsockoptInt(s.sys.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return true, errno.Translate("getsockopt SO_ERROR", err)
	}
	if code != 0 {
		switch cerr := unix.Errno(code); {
		case cerr == unix.EINPROGRESS || cerr == unix.EALREADY || cerr == unix.EINTR:
			return false, nil
		default:
			return true, connectFailure(cerr)
		}
	}
	if _, err := unix.Getpeername(s.sys.fd); err != nil {
		if errno.Code(err) == unix.ENOTCONN {
			return false, nil
		}
		return true, errno.Translate("getpeername", err)
	}
	return true, nil
}

func (s *Socket) retryAccept(h *Handle) (bool, error) {
	for {
		nfd, err := acceptConn(s.sys.fd)
		if err == nil {
			ns, err := s.adopt(nfd)
			h.accepted = ns
			return true, err
		}
		code := errno.Code(err)
		switch {
		case code == unix.ECONNABORTED || code == unix.EPROTO || code == unix.EINTR:
			continue
		case errno.WouldBlock(code):
			return false, nil
		}
		return true, errno.Translate("accept", err)
	}
}
