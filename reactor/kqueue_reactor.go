//go:build darwin || dragonfly || freebsd || netbsd || openbsd

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - BSD/Darwin kqueue implementation.

package reactor

import (
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/missionlove/nanomsg/api"
	"github.com/missionlove/nanomsg/internal/errno"
)

// kqueuePoller implements api.Poller with kqueue. Read and write interest
// are separate filters; non-persistent handles arm them EV_ONESHOT.
type kqueuePoller struct {
	kq     int
	table  handleTable
	closed atomic.Bool
}

func newKqueuePoller() (*kqueuePoller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, errno.Translate("kqueue", err)
	}
	unix.CloseOnExec(kq)
	return &kqueuePoller{kq: kq, table: newHandleTable()}, nil
}

// Add registers h. Filters are only installed by Arm.
func (p *kqueuePoller) Add(h *api.PollHandle) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	return p.table.insert(h)
}

func (p *kqueuePoller) Remove(h *api.PollHandle) error {
	if !p.table.remove(h) {
		return ErrNotRegistered
	}
	return p.apply(h, 0)
}

func (p *kqueuePoller) Arm(h *api.PollHandle, ev api.Events) error {
	if !p.table.contains(h) {
		return ErrNotRegistered
	}
	return p.apply(h, ev)
}

func (p *kqueuePoller) apply(h *api.PollHandle, ev api.Events) error {
	add := unix.EV_ADD | unix.EV_ENABLE
	if !h.Persistent {
		add |= unix.EV_ONESHOT
	}
	var changes [2]unix.Kevent_t
	flags := unix.EV_DELETE
	if ev&api.EventRead != 0 {
		flags = add
	}
	unix.SetKevent(&changes[0], int(h.FD), unix.EVFILT_READ, flags)
	flags = unix.EV_DELETE
	if ev&api.EventWrite != 0 {
		flags = add
	}
	unix.SetKevent(&changes[1], int(h.FD), unix.EVFILT_WRITE, flags)

	for i := range changes {
		if _, err := unix.Kevent(p.kq, changes[i:i+1], nil, nil); err != nil {
			// deleting a filter that already fired or was never installed
			if err == unix.ENOENT {
				continue
			}
			return errno.Translate("kevent", err)
		}
	}
	return nil
}

func (p *kqueuePoller) Wait(timeout time.Duration) (api.Events, *api.PollHandle, error) {
	if p.closed.Load() {
		return 0, nil, ErrPollerClosed
	}
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeout))
		ts = &t
	}
	var events [1]unix.Kevent_t
	n, err := unix.Kevent(p.kq, nil, events[:], ts)
	if err != nil {
		return 0, nil, errno.Translate("kevent", err)
	}
	if n == 0 {
		return 0, nil, &api.OpError{Op: "kevent", Err: api.ErrTimedOut}
	}
	h := p.table.lookup(uintptr(events[0].Ident))
	if h == nil {
		return 0, nil, nil
	}
	return kqueueEvents(&events[0]), h, nil
}

func kqueueEvents(k *unix.Kevent_t) api.Events {
	var ev api.Events
	switch k.Filter {
	case unix.EVFILT_READ:
		ev |= api.EventRead
	case unix.EVFILT_WRITE:
		ev |= api.EventWrite
	}
	if k.Flags&unix.EV_EOF != 0 {
		ev |= api.EventHangup
	}
	if k.Flags&unix.EV_ERROR != 0 {
		ev |= api.EventError
	}
	return ev
}

func (p *kqueuePoller) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(p.kq)
}
