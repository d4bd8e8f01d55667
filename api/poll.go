// Package api
// Author: momentics
//
// Readiness poller and wakeup signal contracts consumed by the emulated
// completion port.

package api

import "time"

// Events is a readiness mask.
type Events uint32

const (
	EventRead Events = 1 << iota
	EventWrite
	EventError
	EventHangup
)

func (e Events) String() string {
	if e == 0 {
		return "none"
	}
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if e&EventRead != 0 {
		add("read")
	}
	if e&EventWrite != 0 {
		add("write")
	}
	if e&EventError != 0 {
		add("error")
	}
	if e&EventHangup != 0 {
		add("hangup")
	}
	return s
}

// PollHandle binds one descriptor to a Poller registration.
type PollHandle struct {
	// FD is the watched descriptor.
	FD uintptr
	// Data is returned untouched alongside readiness.
	Data any
	// Persistent handles stay armed after delivering readiness (level
	// triggered). Other handles are one-shot and must be re-armed.
	Persistent bool
}

// Poller waits for descriptor readiness.
type Poller interface {
	// Add registers h with nothing armed.
	Add(h *PollHandle) error

	// Remove drops the registration of h.
	Remove(h *PollHandle) error

	// Arm replaces the armed interest of h with ev. Zero disarms.
	Arm(h *PollHandle, ev Events) error

	// Wait blocks up to timeout (negative means forever) for one readiness
	// report. It returns ErrTimedOut or ErrInterrupted when nothing arrives.
	Wait(timeout time.Duration) (Events, *PollHandle, error)

	// Close releases the poller.
	Close() error
}

// Signal is a cross-thread wakeup object watched through a Poller.
type Signal interface {
	// FD returns the descriptor that becomes readable while signalled.
	FD() uintptr

	// Signal raises the signal.
	Signal() error

	// Unsignal lowers the signal.
	Unsignal() error

	// Close releases the signal.
	Close() error
}
