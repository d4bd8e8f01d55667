//go:build unix

// File: aio/socket_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// POSIX user socket. Every call first tries the non-blocking system call;
// only what is left over is queued for the emulated completion port.

package aio

import (
	"fmt"
	"net/netip"

	"code.hybscloud.com/iox"
	"github.com/eapache/queue"
	"golang.org/x/sys/unix"

	"github.com/missionlove/nanomsg/api"
	"github.com/missionlove/nanomsg/internal/errno"
)

type socketSys struct {
	fd    int
	ep    *emulatedPort
	pollh api.PollHandle
	// in holds pending recv and accept handles, out pending send and
	// connect handles, each in submission order.
	in    *queue.Queue
	out   *queue.Queue
	armed api.Events
}

// NewSocket opens a non-blocking, close-on-exec socket and tunes it for
// low latency.
func NewSocket(domain, typ, proto int) (*Socket, error) {
	fd, err := openSocket(domain, typ, proto)
	if err != nil {
		return nil, errno.Translate("socket", err)
	}
	s := newSocket(fd, domain, typ, proto)
	if err := s.tune(); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return s, nil
}

func newSocket(fd, domain, typ, proto int) *Socket {
	return &Socket{
		domain: domain,
		typ:    typ,
		proto:  proto,
		sys: socketSys{
			fd:  fd,
			in:  queue.New(),
			out: queue.New(),
		},
	}
}

func (s *Socket) tune() error {
	fd := s.sys.fd
	if err := tunePlatform(fd); err != nil {
		return err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return errno.Translate("fcntl O_NONBLOCK", err)
	}
	if (s.domain == unix.AF_INET || s.domain == unix.AF_INET6) && s.typ == unix.SOCK_STREAM {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			return errno.Translate("setsockopt TCP_NODELAY", err)
		}
	}
	if s.domain == unix.AF_INET6 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0); err != nil {
			return errno.Translate("setsockopt IPV6_V6ONLY", err)
		}
	}
	return nil
}

// FD returns the OS descriptor.
func (s *Socket) FD() uintptr {
	return uintptr(s.sys.fd)
}

// Close releases the descriptor. Operations still queued fail with
// api.ErrClosed and their completions are posted.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if ep := s.sys.ep; ep != nil {
		if err := ep.poller.Remove(&s.sys.pollh); err != nil {
			logger().Debug().
				Int("fd", s.sys.fd).
				Err(err).
				Log("poller removal on close")
		}
		s.failPending(closedError("close"))
	}
	if err := unix.Close(s.sys.fd); err != nil {
		return errno.Translate("close", err)
	}
	return nil
}

// Bind assigns the local address.
func (s *Socket) Bind(addr netip.AddrPort) error {
	sa, err := sockaddr(s.domain, addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return closedError("bind")
	}
	if err := unix.Bind(s.sys.fd, sa); err != nil {
		return errno.Translate("bind", err)
	}
	return nil
}

// Listen starts accepting connections. SO_REUSEADDR is set so a restarted
// service can bind again without waiting out TIME_WAIT.
func (s *Socket) Listen(backlog int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return closedError("listen")
	}
	if err := unix.SetsockoptInt(s.sys.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return errno.Translate("setsockopt SO_REUSEADDR", err)
	}
	if err := unix.Listen(s.sys.fd, backlog); err != nil {
		return errno.Translate("listen", err)
	}
	return nil
}

// LocalAddr returns the bound address.
func (s *Socket) LocalAddr() (netip.AddrPort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return netip.AddrPort{}, closedError("getsockname")
	}
	sa, err := unix.Getsockname(s.sys.fd)
	if err != nil {
		return netip.AddrPort{}, errno.Translate("getsockname", err)
	}
	return addrPort(sa), nil
}

// Connect starts a connection to addr. It returns nil once connected, or
// api.ErrInProgress when h will be completed through the port.
func (s *Socket) Connect(addr netip.AddrPort, h *Handle) error {
	sa, err := sockaddr(s.domain, addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return closedError("connect")
	}
	err = unix.Connect(s.sys.fd, sa)
	if err == nil {
		return nil
	}
	// An interrupted non-blocking connect keeps going in the kernel.
	if code := errno.Code(err); code != unix.EINPROGRESS && code != unix.EINTR {
		return connectFailure(err)
	}
	if !s.async(h) {
		return &api.OpError{Op: "connect", Err: iox.ErrWouldBlock, Sys: err}
	}
	return s.enqueue(s.sys.out, h, opConnect, nil, 0, 0)
}

// connectFailure classifies a failed connect the same way whether it was
// reported by connect itself or later through SO_ERROR.
func connectFailure(err error) error {
	if errno.RecvFatal(errno.Code(err)) {
		return errno.ConnReset("connect", err)
	}
	return errno.Translate("connect", err)
}

// Accept returns the next connection, or api.ErrInProgress when h will
// carry it through the port (see Handle.Accepted).
func (s *Socket) Accept(h *Handle) (*Socket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, closedError("accept")
	}
	if s.sys.in.Length() == 0 {
		for {
			nfd, err := acceptConn(s.sys.fd)
			if err == nil {
				return s.adopt(nfd)
			}
			code := errno.Code(err)
			if code == unix.ECONNABORTED || code == unix.EPROTO {
				continue
			}
			if !errno.WouldBlock(code) {
				return nil, errno.Translate("accept", err)
			}
			break
		}
	}
	if !s.async(h) {
		return nil, iox.ErrWouldBlock
	}
	return nil, s.enqueue(s.sys.in, h, opAccept, nil, 0, 0)
}

// adopt wraps an accepted descriptor, applying the listener's tuning.
func (s *Socket) adopt(nfd int) (*Socket, error) {
	ns := newSocket(nfd, s.domain, s.typ, s.proto)
	if err := ns.tune(); err != nil {
		_ = unix.Close(nfd)
		return nil, err
	}
	return ns, nil
}

// Send writes buf. It returns len(buf) when everything went out
// synchronously. Otherwise n counts the bytes already written and, with a
// handle on a registered socket, the rest is sent asynchronously: the
// completion reports the total. No send flags are defined yet.
func (s *Socket) Send(buf []byte, flags int, h *Handle) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, closedError("send")
	}
	n := 0
	if s.sys.out.Length() == 0 {
		for n < len(buf) {
			m, err := s.sendOnce(buf[n:])
			if err != nil {
				if err = sendFailure(err); err != nil {
					return n, err
				}
				break
			}
			if m == 0 {
				break
			}
			n += m
		}
		if n == len(buf) {
			return n, nil
		}
	}
	if !s.async(h) {
		return n, iox.ErrWouldBlock
	}
	return n, s.enqueue(s.sys.out, h, opSend, buf, flags, n)
}

// Recv fills buf. Without Partial it completes only once len(buf) bytes
// arrived; with Partial any data completes it. A peer that closed the
// connection yields api.ErrConnReset.
func (s *Socket) Recv(buf []byte, flags int, h *Handle) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, closedError("recv")
	}
	n := 0
	if s.sys.in.Length() == 0 {
		for n < len(buf) {
			m, err := s.recvOnce(buf[n:])
			if err != nil {
				if err = recvFailure(err); err != nil {
					return n, err
				}
				break
			}
			if m == 0 {
				return n, errno.ConnReset("recv", nil)
			}
			n += m
			if flags&Partial != 0 {
				return n, nil
			}
		}
		if n == len(buf) {
			return n, nil
		}
	}
	if !s.async(h) {
		return n, iox.ErrWouldBlock
	}
	return n, s.enqueue(s.sys.in, h, opRecv, buf, flags, n)
}

func (s *Socket) sendOnce(p []byte) (int, error) {
	n, err := unix.SendmsgN(s.sys.fd, p, nil, nil, sendFlags)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Socket) recvOnce(p []byte) (int, error) {
	n, _, err := unix.Recvfrom(s.sys.fd, p, 0)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// sendFailure classifies a failed send. It returns nil for would-block.
// Codes outside the expected set mean the socket is in a state this layer
// never produces and abort the process.
func sendFailure(err error) error {
	code := errno.Code(err)
	switch {
	case errno.WouldBlock(code):
		return nil
	case code == unix.EINTR:
		return errno.Translate("send", err)
	case errno.SendFatal(code):
		return errno.ConnReset("send", err)
	case code == unix.ENOBUFS, code == unix.ENOMEM, code == unix.EMSGSIZE:
		return errno.Translate("send", err)
	}
	panic(fmt.Sprintf("aio: send: unexpected error: %v", err))
}

// recvFailure is sendFailure for receives.
func recvFailure(err error) error {
	code := errno.Code(err)
	switch {
	case errno.WouldBlock(code):
		return nil
	case code == unix.EINTR:
		return errno.Translate("recv", err)
	case errno.RecvFatal(code):
		return errno.ConnReset("recv", err)
	case code == unix.ENOBUFS, code == unix.ENOMEM:
		return errno.Translate("recv", err)
	}
	panic(fmt.Sprintf("aio: recv: unexpected error: %v", err))
}
