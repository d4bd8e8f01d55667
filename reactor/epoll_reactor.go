//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux epoll implementation.

package reactor

import (
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/missionlove/nanomsg/api"
	"github.com/missionlove/nanomsg/internal/errno"
)

// epollPoller implements api.Poller using Linux epoll. Non-persistent
// handles are registered EPOLLONESHOT so a readiness report reaches exactly
// one waiter until the handle is armed again.
type epollPoller struct {
	epfd   int
	table  handleTable
	closed atomic.Bool
}

// newEpollPoller creates a new instance of epollPoller.
func newEpollPoller() (*epollPoller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errno.Translate("epoll_create1", err)
	}
	return &epollPoller{epfd: epfd, table: newHandleTable()}, nil
}

func epollFlags(h *api.PollHandle, ev api.Events) uint32 {
	var flags uint32
	if ev&api.EventRead != 0 {
		flags |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if ev&api.EventWrite != 0 {
		flags |= unix.EPOLLOUT
	}
	if !h.Persistent {
		flags |= unix.EPOLLONESHOT
	}
	return flags
}

// Add registers a descriptor with nothing armed.
func (p *epollPoller) Add(h *api.PollHandle) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	if err := p.table.insert(h); err != nil {
		return err
	}
	ev := unix.EpollEvent{Events: epollFlags(h, 0), Fd: int32(h.FD)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, int(h.FD), &ev); err != nil {
		p.table.remove(h)
		return errno.Translate("epoll_ctl add", err)
	}
	return nil
}

// Remove removes a descriptor from the epoll watch list.
func (p *epollPoller) Remove(h *api.PollHandle) error {
	if !p.table.remove(h) {
		return ErrNotRegistered
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, int(h.FD), nil); err != nil {
		return errno.Translate("epoll_ctl del", err)
	}
	return nil
}

// Arm replaces the interest set of h.
func (p *epollPoller) Arm(h *api.PollHandle, events api.Events) error {
	if !p.table.contains(h) {
		return ErrNotRegistered
	}
	ev := unix.EpollEvent{Events: epollFlags(h, events), Fd: int32(h.FD)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, int(h.FD), &ev); err != nil {
		return errno.Translate("epoll_ctl mod", err)
	}
	return nil
}

// Wait blocks up to timeout for a single readiness report. A report for a
// descriptor removed in the meantime comes back as (0, nil, nil).
func (p *epollPoller) Wait(timeout time.Duration) (api.Events, *api.PollHandle, error) {
	if p.closed.Load() {
		return 0, nil, ErrPollerClosed
	}
	var events [1]unix.EpollEvent
	n, err := unix.EpollWait(p.epfd, events[:], timeoutMillis(timeout))
	if err != nil {
		return 0, nil, errno.Translate("epoll_wait", err)
	}
	if n == 0 {
		return 0, nil, &api.OpError{Op: "epoll_wait", Err: api.ErrTimedOut}
	}
	h := p.table.lookup(uintptr(events[0].Fd))
	if h == nil {
		return 0, nil, nil
	}
	return epollEvents(events[0].Events), h, nil
}

func epollEvents(raw uint32) api.Events {
	var ev api.Events
	if raw&unix.EPOLLIN != 0 {
		ev |= api.EventRead
	}
	if raw&unix.EPOLLOUT != 0 {
		ev |= api.EventWrite
	}
	if raw&unix.EPOLLERR != 0 {
		ev |= api.EventError
	}
	if raw&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		ev |= api.EventHangup
	}
	return ev
}

// Close releases the epoll file descriptor.
func (p *epollPoller) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(p.epfd)
}
