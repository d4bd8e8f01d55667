//go:build windows
// +build windows

// File: reactor/reactor_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows I/O completion port wrapper backing the native completion port.

package reactor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/windows"

	"github.com/missionlove/nanomsg/api"
	"github.com/missionlove/nanomsg/internal/errno"
)

// Completion is one packet dequeued from an IOCP.
type Completion struct {
	// Posted packets carry Op and Arg; Overlapped is nil.
	Op  int
	Arg any
	// I/O packets carry the overlapped structure, byte count and status.
	Overlapped *windows.Overlapped
	Bytes      uint32
	Err        error
}

// IOCP owns one kernel completion port. Posted arguments are Go values, so
// they stay in keys until dequeued and only a generated key crosses the
// kernel boundary. Key zero is reserved for associated sockets.
type IOCP struct {
	port       windows.Handle
	keys       sync.Map // map[uintptr]any
	keyCounter atomic.Uintptr
	closed     atomic.Bool
}

// NewIOCP creates a completion port not yet associated with any handle.
func NewIOCP() (*IOCP, error) {
	port, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return nil, errno.Translate("CreateIoCompletionPort", err)
	}
	return &IOCP{port: port}, nil
}

// Associate routes completions of overlapped operations on h to this port.
func (c *IOCP) Associate(h windows.Handle) error {
	if _, err := windows.CreateIoCompletionPort(h, c.port, 0, 0); err != nil {
		return errno.Translate("CreateIoCompletionPort", err)
	}
	return nil
}

// Post queues a user completion packet.
func (c *IOCP) Post(op int, arg any) error {
	key := c.keyCounter.Add(1)
	if key == 0 {
		key = c.keyCounter.Add(1)
	}
	c.keys.Store(key, arg)
	if err := windows.PostQueuedCompletionStatus(c.port, uint32(int32(op)), key, nil); err != nil {
		c.keys.Delete(key)
		return errno.Translate("PostQueuedCompletionStatus", err)
	}
	return nil
}

// Wait dequeues one packet. Timeout exhaustion is reported as api.ErrTimedOut,
// the same failure the emulated port uses.
func (c *IOCP) Wait(timeout time.Duration) (Completion, error) {
	if c.closed.Load() {
		return Completion{}, ErrPollerClosed
	}
	ms := uint32(windows.INFINITE)
	if timeout >= 0 {
		ms = uint32(timeoutMillis(timeout))
	}
	var (
		qty uint32
		key uintptr
		ov  *windows.Overlapped
	)
	err := windows.GetQueuedCompletionStatus(c.port, &qty, &key, &ov, ms)
	if ov == nil {
		if err != nil {
			if errno.Code(err) == errno.WaitTimeout {
				return Completion{}, &api.OpError{Op: "GetQueuedCompletionStatus", Err: api.ErrTimedOut, Sys: err}
			}
			return Completion{}, errno.Translate("GetQueuedCompletionStatus", err)
		}
		arg, ok := c.keys.LoadAndDelete(key)
		if !ok {
			return Completion{}, fmt.Errorf("reactor: completion key %d: %w", key, ErrNotRegistered)
		}
		return Completion{Op: int(int32(qty)), Arg: arg}, nil
	}
	return Completion{Overlapped: ov, Bytes: qty, Err: err}, nil
}

// Close releases the port handle.
func (c *IOCP) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return windows.CloseHandle(c.port)
}
