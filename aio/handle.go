// File: aio/handle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Handle carries one asynchronous socket operation from the call that could
// not finish synchronously to the completion event that reports its result.

package aio

import (
	"fmt"
	"sync/atomic"
)

// OpState tracks a Handle through its pending life.
type OpState int32

const (
	// OpIdle: no operation attached, or the result has been consumed.
	OpIdle OpState = iota
	// OpAwaiting: queued until the socket becomes ready.
	OpAwaiting
	// OpRetrying: the operation is being re-attempted after readiness.
	OpRetrying
	// OpDone: finished successfully, completion posted.
	OpDone
	// OpFailed: finished with an error, completion posted.
	OpFailed
)

func (s OpState) String() string {
	switch s {
	case OpIdle:
		return "idle"
	case OpAwaiting:
		return "awaiting"
	case OpRetrying:
		return "retrying"
	case OpDone:
		return "done"
	case OpFailed:
		return "failed"
	}
	return fmt.Sprintf("opstate(%d)", int32(s))
}

type opKind uint8

const (
	opNone opKind = iota
	opConnect
	opAccept
	opSend
	opRecv
)

func (k opKind) String() string {
	switch k {
	case opConnect:
		return "connect"
	case opAccept:
		return "accept"
	case opSend:
		return "send"
	case opRecv:
		return "recv"
	}
	return "none"
}

// Handle is the caller-owned context of an asynchronous operation. Op and
// Arg are chosen by the caller; the completion event for the operation is
// api.Event{Op: h.Op, Arg: h}. A Handle must not be reused while its state
// is OpAwaiting or OpRetrying.
type Handle struct {
	// sys must stay the first field: the native backend converts the
	// overlapped structure it holds back into the *Handle.
	sys handleSys

	Op  int
	Arg any

	state    atomic.Int32
	kind     opKind
	buf      []byte
	flags    int
	done     int
	err      error
	accepted *Socket
}

// State returns the current lifecycle state.
func (h *Handle) State() OpState {
	return OpState(h.state.Load())
}

// Result returns the transferred byte count and the terminal error of the
// last finished operation. Valid once its completion has been received.
func (h *Handle) Result() (int, error) {
	return h.done, h.err
}

// Accepted returns the socket produced by a finished accept, or nil.
func (h *Handle) Accepted() *Socket {
	return h.accepted
}

func (h *Handle) setState(s OpState) {
	h.state.Store(int32(s))
}

// begin attaches a new operation. done is the progress already made by the
// synchronous attempt.
func (h *Handle) begin(kind opKind, buf []byte, flags, done int) {
	switch h.State() {
	case OpAwaiting, OpRetrying:
		panic(fmt.Sprintf("aio: %s started on a handle with a pending %s", kind, h.kind))
	}
	h.kind = kind
	h.buf = buf
	h.flags = flags
	h.done = done
	h.err = nil
	h.accepted = nil
	h.setState(OpAwaiting)
}

// finish records the terminal outcome and releases the caller buffer.
func (h *Handle) finish(err error) {
	h.err = err
	h.buf = nil
	if err != nil {
		h.setState(OpFailed)
		return
	}
	h.setState(OpDone)
}
