//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux factories: epoll(7) poller and eventfd(2) wakeup signal.

package reactor

import (
	"golang.org/x/sys/unix"

	"github.com/missionlove/nanomsg/api"
	"github.com/missionlove/nanomsg/internal/errno"
)

// NewPoller constructs the platform readiness poller.
func NewPoller() (api.Poller, error) {
	return newEpollPoller()
}

// eventfdSignal is an api.Signal backed by a non-blocking eventfd.
type eventfdSignal struct {
	fd int
}

// NewSignal constructs the platform wakeup signal.
func NewSignal() (api.Signal, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, errno.Translate("eventfd", err)
	}
	return &eventfdSignal{fd: fd}, nil
}

func (s *eventfdSignal) FD() uintptr { return uintptr(s.fd) }

func (s *eventfdSignal) Signal() error {
	buf := [8]byte{1}
	if _, err := unix.Write(s.fd, buf[:]); err != nil {
		return errno.Translate("eventfd write", err)
	}
	return nil
}

// Unsignal resets the counter to zero. An already lowered signal is fine.
func (s *eventfdSignal) Unsignal() error {
	var buf [8]byte
	if _, err := unix.Read(s.fd, buf[:]); err != nil && err != unix.EAGAIN {
		return errno.Translate("eventfd read", err)
	}
	return nil
}

func (s *eventfdSignal) Close() error {
	return unix.Close(s.fd)
}
