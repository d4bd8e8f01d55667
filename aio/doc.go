// File: aio/doc.go
// Package aio
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Asynchronous socket I/O with a uniform completion contract.
//
// A CompletionPort delivers (op, arg) completion events to any number of
// goroutines blocked in Wait. It is backed either by the kernel completion
// port (Windows IOCP, BackendNative) or by an emulation built from a
// readiness poller, a wakeup signal and a growable FIFO (BackendEmulated).
//
// A Socket owns one non-blocking OS socket. Every operation first tries to
// finish synchronously. If it cannot, it returns api.ErrInProgress and the
// completion is later returned by Wait on the port the socket is registered
// with, as api.Event{Op: h.Op, Arg: h} for the *Handle passed to the call.
//
//	port, _ := aio.NewCompletionPort()
//	s, _ := aio.NewSocket(aio.Inet4, aio.Stream, aio.ProtoDefault)
//	_ = port.Register(s)
//	h := &aio.Handle{Op: opRecv}
//	n, err := s.Recv(buf, 0, h)
//	if errors.Is(err, api.ErrInProgress) {
//		ev, _ := port.Wait(-1)
//		n, err = ev.Arg.(*aio.Handle).Result()
//	}
package aio
