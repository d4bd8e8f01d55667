//go:build linux || darwin

// File: aio/socket_unix_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package aio

import (
	"bytes"
	"errors"
	"net/netip"
	"testing"
	"time"

	"code.hybscloud.com/iox"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/missionlove/nanomsg/api"
	"github.com/missionlove/nanomsg/control"
	"github.com/missionlove/nanomsg/fake"
)

var loopback = netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), 0)

func newPort(t *testing.T) CompletionPort {
	t.Helper()
	port, err := NewCompletionPort(
		WithBackend(BackendEmulated),
		WithLogger(control.DiscardLogger()),
		WithProbes(false),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = port.Close() })
	return port
}

func newTCP(t *testing.T) *Socket {
	t.Helper()
	s, err := NewSocket(Inet4, Stream, ProtoDefault)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newListener(t *testing.T) (*Socket, netip.AddrPort) {
	t.Helper()
	l := newTCP(t)
	require.NoError(t, l.Bind(loopback))
	require.NoError(t, l.Listen(16))
	addr, err := l.LocalAddr()
	require.NoError(t, err)
	require.NotZero(t, addr.Port())
	return l, addr
}

// startConnect issues a connect that is allowed to still be in progress.
func startConnect(t *testing.T, c *Socket, addr netip.AddrPort) {
	t.Helper()
	if err := c.Connect(addr, nil); err != nil {
		require.ErrorIs(t, err, iox.ErrWouldBlock)
	}
}

func acceptSync(t *testing.T, l *Socket) *Socket {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		s, err := l.Accept(nil)
		if err == nil {
			t.Cleanup(func() { _ = s.Close() })
			return s
		}
		require.ErrorIs(t, err, iox.ErrWouldBlock)
		require.True(t, time.Now().Before(deadline), "accept timed out")
		time.Sleep(time.Millisecond)
	}
}

func connectedPair(t *testing.T) (client, server *Socket) {
	t.Helper()
	l, addr := newListener(t)
	client = newTCP(t)
	startConnect(t, client, addr)
	server = acceptSync(t, l)
	return client, server
}

func waitEvent(t *testing.T, port CompletionPort) api.Event {
	t.Helper()
	ev, err := port.Wait(5 * time.Second)
	require.NoError(t, err)
	return ev
}

func TestSocketIsTuned(t *testing.T) {
	s := newTCP(t)
	fd := int(s.FD())

	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	require.NoError(t, err)
	require.NotZero(t, flags&unix.O_NONBLOCK)

	fdflags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	require.NoError(t, err)
	require.NotZero(t, fdflags&unix.FD_CLOEXEC)

	nodelay, err := unix.GetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY)
	require.NoError(t, err)
	require.NotZero(t, nodelay)
}

func TestSocketZeroLengthIO(t *testing.T) {
	client, server := connectedPair(t)

	n, err := client.Send(nil, 0, nil)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = server.Recv([]byte{}, 0, &Handle{})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSocketSynchronousTransfer(t *testing.T) {
	client, server := connectedPair(t)

	n, err := client.Send([]byte("hello"), 0, nil)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = server.Recv(buf, 0, nil)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))
}

func TestSocketPartialRecv(t *testing.T) {
	client, server := connectedPair(t)

	_, err := client.Send([]byte("abc"), 0, nil)
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := server.Recv(buf, Partial, nil)
	require.NoError(t, err)
	require.Equal(t, "abc", string(buf[:n]))
}

func TestSocketPeerCloseIsConnReset(t *testing.T) {
	client, server := connectedPair(t)
	require.NoError(t, client.Close())

	_, err := server.Recv(make([]byte, 1), 0, nil)
	require.ErrorIs(t, err, api.ErrConnReset)
	require.True(t, api.IsConnectionFatal(err))
}

func TestSocketWouldBlockWithoutPort(t *testing.T) {
	_, server := connectedPair(t)

	n, err := server.Recv(make([]byte, 4), 0, &Handle{})
	require.ErrorIs(t, err, iox.ErrWouldBlock)
	require.Zero(t, n)

	port := newPort(t)
	require.NoError(t, port.Register(server))
	_, err = server.Recv(make([]byte, 4), 0, nil)
	require.ErrorIs(t, err, iox.ErrWouldBlock)
}

func TestRegisterTwicePanics(t *testing.T) {
	port := newPort(t)
	s := newTCP(t)
	require.NoError(t, port.Register(s))
	require.Same(t, port, s.Port())
	require.Panics(t, func() { _ = port.Register(s) })
}

func TestRegisterClosedSocket(t *testing.T) {
	port := newPort(t)
	s := newTCP(t)
	require.NoError(t, s.Close())
	require.ErrorIs(t, port.Register(s), api.ErrClosed)
}

func TestPendingRecvCompletes(t *testing.T) {
	port := newPort(t)
	client, server := connectedPair(t)
	require.NoError(t, port.Register(server))

	buf := make([]byte, 8)
	h := &Handle{Op: 3, Arg: "recv"}
	n, err := server.Recv(buf, 0, h)
	require.ErrorIs(t, err, api.ErrInProgress)
	require.Zero(t, n)
	require.Equal(t, OpAwaiting, h.State())

	_, err = client.Send([]byte("abcd"), 0, nil)
	require.NoError(t, err)
	// the first half arrives alone and must not complete the receive
	_, err = port.Wait(50 * time.Millisecond)
	require.ErrorIs(t, err, api.ErrTimedOut)

	_, err = client.Send([]byte("efgh"), 0, nil)
	require.NoError(t, err)

	ev := waitEvent(t, port)
	require.Equal(t, 3, ev.Op)
	require.Same(t, h, ev.Arg)
	n, err = h.Result()
	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, "abcdefgh", string(buf))
	require.Equal(t, OpDone, h.State())
}

func TestPendingRecvQueuesBehindEarlierOnes(t *testing.T) {
	port := newPort(t)
	client, server := connectedPair(t)
	require.NoError(t, port.Register(server))

	first, second := make([]byte, 3), make([]byte, 3)
	h1, h2 := &Handle{Op: 1}, &Handle{Op: 2}
	_, err := server.Recv(first, 0, h1)
	require.ErrorIs(t, err, api.ErrInProgress)
	_, err = server.Recv(second, 0, h2)
	require.ErrorIs(t, err, api.ErrInProgress)

	_, err = client.Send([]byte("123456"), 0, nil)
	require.NoError(t, err)

	require.Equal(t, 1, waitEvent(t, port).Op)
	require.Equal(t, 2, waitEvent(t, port).Op)
	require.Equal(t, "123", string(first))
	require.Equal(t, "456", string(second))
}

func TestPendingAcceptCompletes(t *testing.T) {
	port := newPort(t)
	l, addr := newListener(t)
	require.NoError(t, port.Register(l))

	h := &Handle{Op: 10}
	s, err := l.Accept(h)
	require.ErrorIs(t, err, api.ErrInProgress)
	require.Nil(t, s)

	client := newTCP(t)
	startConnect(t, client, addr)

	ev := waitEvent(t, port)
	require.Same(t, h, ev.Arg)
	_, err = h.Result()
	require.NoError(t, err)
	accepted := h.Accepted()
	require.NotNil(t, accepted)
	defer accepted.Close()
	require.Equal(t, Inet4, accepted.Domain())
}

func TestPendingConnectCompletes(t *testing.T) {
	port := newPort(t)
	l, addr := newListener(t)
	client := newTCP(t)
	require.NoError(t, port.Register(client))

	h := &Handle{Op: 20}
	err := client.Connect(addr, h)
	if err != nil {
		require.ErrorIs(t, err, api.ErrInProgress)
		ev := waitEvent(t, port)
		require.Same(t, h, ev.Arg)
		_, err = h.Result()
		require.NoError(t, err)
	}
	server := acceptSync(t, l)

	n, err := client.Send([]byte("ok"), 0, &Handle{})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	buf := make([]byte, 2)
	_, err = server.Recv(buf, 0, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", string(buf))
}

func TestPendingConnectRefused(t *testing.T) {
	port := newPort(t)
	l, addr := newListener(t)
	require.NoError(t, l.Close())

	client := newTCP(t)
	require.NoError(t, port.Register(client))
	h := &Handle{Op: 21}
	err := client.Connect(addr, h)
	if errors.Is(err, api.ErrInProgress) {
		ev := waitEvent(t, port)
		require.Same(t, h, ev.Arg)
		_, err = h.Result()
		require.Equal(t, OpFailed, h.State())
	}
	require.ErrorIs(t, err, unix.ECONNREFUSED)
}

func TestLargeSendCompletesAsynchronously(t *testing.T) {
	port := newPort(t)
	client, server := connectedPair(t)
	require.NoError(t, port.Register(client))

	payload := make([]byte, 16<<20)
	for i := range payload {
		payload[i] = byte(i * 7)
	}

	received := make(chan []byte, 1)
	go func() {
		var got bytes.Buffer
		chunk := make([]byte, 64<<10)
		deadline := time.Now().Add(20 * time.Second)
		for got.Len() < len(payload) && time.Now().Before(deadline) {
			n, err := server.Recv(chunk, Partial, nil)
			if errors.Is(err, iox.ErrWouldBlock) {
				time.Sleep(100 * time.Microsecond)
				continue
			}
			if err != nil {
				break
			}
			got.Write(chunk[:n])
		}
		received <- got.Bytes()
	}()

	h := &Handle{Op: 30}
	n, err := client.Send(payload, 0, h)
	if err == nil {
		require.Equal(t, len(payload), n)
	} else {
		require.ErrorIs(t, err, api.ErrInProgress)
		require.Less(t, n, len(payload))
		ev, werr := port.Wait(20 * time.Second)
		require.NoError(t, werr)
		require.Same(t, h, ev.Arg)
		total, herr := h.Result()
		require.NoError(t, herr)
		require.Equal(t, len(payload), total)
	}

	got := <-received
	require.Equal(t, len(payload), len(got))
	require.True(t, bytes.Equal(payload, got), "payload corrupted or reordered")
}

func TestCloseFailsPendingOperations(t *testing.T) {
	port := newPort(t)
	_, server := connectedPair(t)
	require.NoError(t, port.Register(server))

	h := &Handle{Op: 40}
	_, err := server.Recv(make([]byte, 4), 0, h)
	require.ErrorIs(t, err, api.ErrInProgress)

	require.NoError(t, server.Close())
	ev := waitEvent(t, port)
	require.Same(t, h, ev.Arg)
	_, err = h.Result()
	require.ErrorIs(t, err, api.ErrClosed)
	require.Equal(t, OpFailed, h.State())

	_, err = server.Recv(make([]byte, 1), 0, nil)
	require.ErrorIs(t, err, api.ErrClosed)
	require.NoError(t, server.Close())
}

// A fake poller records what the socket arms, so the direction bookkeeping
// can be checked exactly.
func TestPendingArmsExactDirections(t *testing.T) {
	poller := fake.NewPoller()
	port, err := NewCompletionPort(
		WithBackend(BackendEmulated),
		WithPoller(poller),
		WithSignal(fake.NewSignal(poller)),
		WithLogger(control.DiscardLogger()),
		WithProbes(false),
	)
	require.NoError(t, err)
	defer port.Close()

	client, server := connectedPair(t)
	require.NoError(t, port.Register(server))
	require.True(t, poller.Registered(server.FD()))
	require.Zero(t, poller.Armed(server.FD()))

	buf := make([]byte, 2)
	h := &Handle{Op: 50}
	_, err = server.Recv(buf, 0, h)
	require.ErrorIs(t, err, api.ErrInProgress)
	require.Equal(t, api.EventRead, poller.Armed(server.FD()))

	// readiness without data: the receive stays queued and is re-armed
	poller.Inject(server.FD(), api.EventRead)
	_, err = port.Wait(0)
	require.ErrorIs(t, err, api.ErrTimedOut)
	require.Equal(t, OpAwaiting, h.State())
	require.Equal(t, api.EventRead, poller.Armed(server.FD()))

	_, err = client.Send([]byte("hi"), 0, nil)
	require.NoError(t, err)
	poller.Inject(server.FD(), api.EventRead)
	ev := waitEvent(t, port)
	require.Same(t, h, ev.Arg)
	require.Equal(t, "hi", string(buf))
	require.Zero(t, poller.Armed(server.FD()))

	require.NoError(t, server.Close())
	require.False(t, poller.Registered(server.FD()))
}

func TestCloseWakesBlockedWait(t *testing.T) {
	port, err := NewCompletionPort(
		WithBackend(BackendEmulated),
		WithLogger(control.DiscardLogger()),
		WithProbes(false),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := port.Wait(-1)
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, port.Close())
	select {
	case err := <-done:
		require.ErrorIs(t, err, api.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait(-1) still blocked after Close")
	}
}

func TestConnectFailureClassification(t *testing.T) {
	for _, code := range []unix.Errno{unix.ECONNREFUSED, unix.ETIMEDOUT, unix.EHOSTUNREACH} {
		err := connectFailure(code)
		require.ErrorIs(t, err, api.ErrConnReset, code.Error())
		require.ErrorIs(t, err, code)
		require.NotErrorIs(t, err, api.ErrConnRefused)
	}
	err := connectFailure(unix.EADDRNOTAVAIL)
	require.ErrorIs(t, err, api.ErrAddrNotAvailable)
	require.NotErrorIs(t, err, api.ErrConnReset)
}
