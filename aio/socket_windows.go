//go:build windows

// File: aio/socket_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows user socket. Registered sockets use overlapped WSASend, WSARecv,
// AcceptEx and ConnectEx; completions come back through the native port.
// Unregistered sockets fall back to plain non-blocking calls.

package aio

import (
	"errors"
	"fmt"
	"net/netip"
	"unsafe"

	"code.hybscloud.com/iox"
	"golang.org/x/sys/windows"

	"github.com/missionlove/nanomsg/api"
	"github.com/missionlove/nanomsg/internal/errno"
)

const fionbio = 0x8004667e

var (
	modws2_32       = windows.NewLazySystemDLL("ws2_32.dll")
	procIoctlsocket = modws2_32.NewProc("ioctlsocket")
	procAccept      = modws2_32.NewProc("accept")
)

type socketSys struct {
	fd windows.Handle
	np *nativePort
	// skip is set when immediate overlapped successes queue no packet.
	skip bool
}

type handleSys struct {
	ov     windows.Overlapped
	sock   *Socket
	wsabuf windows.WSABuf
	qty    uint32
	flags  uint32
	sa     windows.Sockaddr
	peer   *Socket
	addrs  [2]windows.RawSockaddrAny
}

func detectCaps() Caps {
	return Caps{NativePort: true}
}

// NewSocket opens an overlapped, non-inheritable, non-blocking socket and
// tunes it for low latency.
func NewSocket(domain, typ, proto int) (*Socket, error) {
	fd, err := windows.WSASocket(int32(domain), int32(typ), int32(proto), nil, 0, windows.WSA_FLAG_OVERLAPPED)
	if err != nil {
		return nil, errno.Translate("WSASocket", err)
	}
	s := newSocket(fd, domain, typ, proto)
	if err := s.tune(); err != nil {
		_ = windows.Closesocket(fd)
		return nil, err
	}
	return s, nil
}

func newSocket(fd windows.Handle, domain, typ, proto int) *Socket {
	return &Socket{
		domain: domain,
		typ:    typ,
		proto:  proto,
		sys:    socketSys{fd: fd},
	}
}

func (s *Socket) tune() error {
	fd := s.sys.fd
	if err := windows.SetHandleInformation(fd, windows.HANDLE_FLAG_INHERIT, 0); err != nil {
		return errno.Translate("SetHandleInformation", err)
	}
	on := uint32(1)
	if r, _, err := procIoctlsocket.Call(uintptr(fd), fionbio, uintptr(unsafe.Pointer(&on))); int32(r) != 0 {
		return errno.Translate("ioctlsocket FIONBIO", err)
	}
	if (s.domain == windows.AF_INET || s.domain == windows.AF_INET6) && s.typ == windows.SOCK_STREAM {
		if err := windows.SetsockoptInt(fd, windows.IPPROTO_TCP, windows.TCP_NODELAY, 1); err != nil {
			return errno.Translate("setsockopt TCP_NODELAY", err)
		}
	}
	if s.domain == windows.AF_INET6 {
		if err := windows.SetsockoptInt(fd, windows.IPPROTO_IPV6, windows.IPV6_V6ONLY, 0); err != nil {
			return errno.Translate("setsockopt IPV6_V6ONLY", err)
		}
	}
	return nil
}

// FD returns the OS socket handle.
func (s *Socket) FD() uintptr {
	return uintptr(s.sys.fd)
}

// Close releases the handle. Overlapped operations still in flight are
// aborted by the kernel and complete with api.ErrClosed.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := windows.Closesocket(s.sys.fd); err != nil {
		return errno.Translate("closesocket", err)
	}
	return nil
}

func (s *Socket) attachNative(p *nativePort) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bindPort(p); err != nil {
		return err
	}
	if err := p.iocp.Associate(s.sys.fd); err != nil {
		s.port = nil
		return err
	}
	if err := windows.SetFileCompletionNotificationModes(s.sys.fd, skipOnSuccess); err != nil {
		p.log.Debug().
			Str("port", p.cfg.Name).
			Err(err).
			Log("completion notification modes unavailable")
	} else {
		s.sys.skip = true
	}
	s.sys.np = p
	return nil
}

func (s *Socket) attachEmulated(*emulatedPort) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bindPort(nil); err != nil {
		return err
	}
	return fmt.Errorf("aio: emulated port sockets: %w", api.ErrNotSupported)
}

func (s *Socket) async(h *Handle) bool {
	return h != nil && s.sys.np != nil
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
	if err := windows.Bind(s.sys.fd, sa); err != nil {
		return errno.Translate("bind", err)
	}
	return nil
}

// Listen starts accepting connections. SO_EXCLUSIVEADDRUSE keeps other
// processes from binding the same port.
func (s *Socket) Listen(backlog int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return closedError("listen")
	}
	if err := windows.SetsockoptInt(s.sys.fd, windows.SOL_SOCKET, soExclusiveAddrUse, 1); err != nil {
		return errno.Translate("setsockopt SO_EXCLUSIVEADDRUSE", err)
	}
	if err := windows.Listen(s.sys.fd, backlog); err != nil {
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
	sa, err := windows.Getsockname(s.sys.fd)
	if err != nil {
		return netip.AddrPort{}, errno.Translate("getsockname", err)
	}
	return addrPort(sa), nil
}

// Connect starts a connection to addr.
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
	if !s.async(h) {
		err := windows.Connect(s.sys.fd, sa)
		if err == nil {
			return nil
		}
		if errno.WouldBlock(errno.Code(err)) {
			return &api.OpError{Op: "connect", Err: iox.ErrWouldBlock, Sys: err}
		}
		return errno.Translate("connect", err)
	}
	// ConnectEx requires a bound socket.
	if _, err := windows.Getsockname(s.sys.fd); err != nil {
		local, _ := sockaddr(s.domain, netip.AddrPort{})
		if err := windows.Bind(s.sys.fd, local); err != nil {
			return errno.Translate("bind", err)
		}
	}
	h.begin(opConnect, nil, 0, 0)
	h.sys.sa = sa
	_, err = s.start(h)
	return err
}

// Accept returns the next connection, or api.ErrInProgress when h will
// carry it through the port.
func (s *Socket) Accept(h *Handle) (*Socket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, closedError("accept")
	}
	if !s.async(h) {
		r, _, err := procAccept.Call(uintptr(s.sys.fd), 0, 0)
		if windows.Handle(r) == windows.InvalidHandle {
			if errno.WouldBlock(errno.Code(err)) {
				return nil, iox.ErrWouldBlock
			}
			return nil, errno.Translate("accept", err)
		}
		ns := newSocket(windows.Handle(r), s.domain, s.typ, s.proto)
		if err := ns.tune(); err != nil {
			_ = windows.Closesocket(ns.sys.fd)
			return nil, err
		}
		return ns, nil
	}
	h.begin(opAccept, nil, 0, 0)
	if _, err := s.start(h); err != nil {
		return nil, err
	}
	return h.accepted, nil
}

// Send writes buf. Registered sockets with a handle complete the rest of
// the buffer asynchronously.
func (s *Socket) Send(buf []byte, flags int, h *Handle) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, closedError("send")
	}
	if !s.async(h) {
		n := 0
		for n < len(buf) {
			var qty uint32
			wb := windows.WSABuf{Len: uint32(len(buf) - n), Buf: &buf[n]}
			if err := windows.WSASend(s.sys.fd, &wb, 1, &qty, 0, nil, nil); err != nil {
				code := errno.Code(err)
				switch {
				case errno.WouldBlock(code):
					return n, iox.ErrWouldBlock
				case errno.SendFatal(code):
					return n, errno.ConnReset("send", err)
				}
				return n, errno.Translate("send", err)
			}
			n += int(qty)
		}
		return n, nil
	}
	h.begin(opSend, buf, flags, 0)
	return s.start(h)
}

// Recv fills buf, or with Partial any prefix of it.
func (s *Socket) Recv(buf []byte, flags int, h *Handle) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, closedError("recv")
	}
	if !s.async(h) {
		n := 0
		for n < len(buf) {
			var qty, wflags uint32
			wb := windows.WSABuf{Len: uint32(len(buf) - n), Buf: &buf[n]}
			if err := windows.WSARecv(s.sys.fd, &wb, 1, &qty, &wflags, nil, nil); err != nil {
				code := errno.Code(err)
				switch {
				case errno.WouldBlock(code):
					return n, iox.ErrWouldBlock
				case errno.RecvFatal(code):
					return n, errno.ConnReset("recv", err)
				}
				return n, errno.Translate("recv", err)
			}
			if qty == 0 {
				return n, errno.ConnReset("recv", nil)
			}
			n += int(qty)
			if flags&Partial != 0 {
				break
			}
		}
		return n, nil
	}
	h.begin(opRecv, buf, flags, 0)
	return s.start(h)
}

// start runs a freshly begun operation. Immediate completion leaves h idle
// and returns the result; otherwise it returns api.ErrInProgress.
func (s *Socket) start(h *Handle) (int, error) {
	finished, err := s.issue(h)
	if !finished {
		s.sys.np.stats.IncPending()
		return h.done, api.ErrInProgress
	}
	n := h.done
	h.finish(err)
	h.setState(OpIdle)
	return n, err
}

// issue submits h until the kernel keeps it pending or it finishes.
// Called with s.mu held.
func (s *Socket) issue(h *Handle) (finished bool, err error) {
	for {
		h.sys.ov = windows.Overlapped{}
		h.sys.sock = s
		h.sys.qty = 0
		s.sys.np.track(h)
		err := s.submit(h)
		if errno.Code(err) == errno.IOPending || (err == nil && !s.sys.skip) {
			return false, nil
		}
		s.sys.np.untrack(h)
		if finished, err := s.advance(h, h.sys.qty, err); finished {
			return true, err
		}
	}
}

func (s *Socket) submit(h *Handle) error {
	switch h.kind {
	case opSend:
		rest := h.buf[h.done:]
		h.sys.wsabuf = windows.WSABuf{Len: uint32(len(rest)), Buf: &rest[0]}
		return windows.WSASend(s.sys.fd, &h.sys.wsabuf, 1, &h.sys.qty, 0, &h.sys.ov, nil)
	case opRecv:
		rest := h.buf[h.done:]
		h.sys.wsabuf = windows.WSABuf{Len: uint32(len(rest)), Buf: &rest[0]}
		h.sys.flags = 0
		return windows.WSARecv(s.sys.fd, &h.sys.wsabuf, 1, &h.sys.qty, &h.sys.flags, &h.sys.ov, nil)
	case opAccept:
		if h.sys.peer == nil {
			peer, err := NewSocket(s.domain, s.typ, s.proto)
			if err != nil {
				return err
			}
			h.sys.peer = peer
		}
		size := uint32(unsafe.Sizeof(h.sys.addrs[0]))
		return windows.AcceptEx(s.sys.fd, h.sys.peer.sys.fd, (*byte)(unsafe.Pointer(&h.sys.addrs[0])),
			0, size, size, &h.sys.qty, &h.sys.ov)
	case opConnect:
		return windows.ConnectEx(s.sys.fd, h.sys.sa, nil, 0, &h.sys.qty, &h.sys.ov)
	}
	panic("aio: pending handle without an operation")
}

// advance applies one finished submission to h.
func (s *Socket) advance(h *Handle, n uint32, err error) (bool, error) {
	if err != nil {
		if h.sys.peer != nil {
			_ = h.sys.peer.Close()
			h.sys.peer = nil
		}
		var oe *api.OpError
		if errors.As(err, &oe) {
			return true, err
		}
		code := errno.Code(err)
		switch {
		case errno.Aborted(code):
			return true, closedError(h.kind.String())
		case h.kind == opSend && errno.SendFatal(code):
			return true, errno.ConnReset("send", err)
		case h.kind == opRecv && errno.RecvFatal(code):
			return true, errno.ConnReset("recv", err)
		}
		return true, errno.Translate(h.kind.String(), err)
	}
	switch h.kind {
	case opSend:
		h.done += int(n)
		return h.done == len(h.buf), nil
	case opRecv:
		if n == 0 {
			return true, errno.ConnReset("recv", nil)
		}
		h.done += int(n)
		return h.done == len(h.buf) || h.flags&Partial != 0, nil
	case opAccept:
		peer := h.sys.peer
		h.sys.peer = nil
		lfd := s.sys.fd
		if err := windows.Setsockopt(peer.sys.fd, windows.SOL_SOCKET, windows.SO_UPDATE_ACCEPT_CONTEXT,
			(*byte)(unsafe.Pointer(&lfd)), int32(unsafe.Sizeof(lfd))); err != nil {
			_ = peer.Close()
			return true, errno.Translate("setsockopt SO_UPDATE_ACCEPT_CONTEXT", err)
		}
		h.accepted = peer
		return true, nil
	case opConnect:
		if err := windows.Setsockopt(s.sys.fd, windows.SOL_SOCKET, windows.SO_UPDATE_CONNECT_CONTEXT, nil, 0); err != nil {
			return true, errno.Translate("setsockopt SO_UPDATE_CONNECT_CONTEXT", err)
		}
		return true, nil
	}
	return true, nil
}

// completeOverlapped consumes the packet of an operation that went pending.
// It reports whether the operation is now finished.
func (s *Socket) completeOverlapped(h *Handle, n uint32, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	h.setState(OpRetrying)
	finished, ferr := s.advance(h, n, err)
	if !finished {
		if s.closed {
			finished, ferr = true, closedError(h.kind.String())
		} else {
			finished, ferr = s.issue(h)
		}
	}
	if !finished {
		h.setState(OpAwaiting)
		return false
	}
	h.finish(ferr)
	return true
}
