//go:build darwin || dragonfly || freebsd || netbsd || openbsd

// File: reactor/reactor_bsd.go
// Author: momentics <momentics@gmail.com>
//
// BSD/Darwin factories: kqueue(2) poller and self-pipe wakeup signal.

package reactor

import (
	"golang.org/x/sys/unix"

	"github.com/missionlove/nanomsg/api"
	"github.com/missionlove/nanomsg/internal/errno"
)

// NewPoller constructs the platform readiness poller.
func NewPoller() (api.Poller, error) {
	return newKqueuePoller()
}

// pipeSignal is an api.Signal backed by a non-blocking self-pipe.
type pipeSignal struct {
	r, w int
}

// NewSignal constructs the platform wakeup signal.
func NewSignal() (api.Signal, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, errno.Translate("pipe", err)
	}
	cleanup := func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	}
	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			cleanup()
			return nil, errno.Translate("fcntl", err)
		}
	}
	return &pipeSignal{r: fds[0], w: fds[1]}, nil
}

func (s *pipeSignal) FD() uintptr { return uintptr(s.r) }

func (s *pipeSignal) Signal() error {
	if _, err := unix.Write(s.w, []byte{1}); err != nil && err != unix.EAGAIN {
		return errno.Translate("pipe write", err)
	}
	return nil
}

// Unsignal drains the pipe.
func (s *pipeSignal) Unsignal() error {
	var buf [64]byte
	for {
		n, err := unix.Read(s.r, buf[:])
		if err == unix.EAGAIN || (err == nil && n == 0) {
			return nil
		}
		if err != nil {
			return errno.Translate("pipe read", err)
		}
	}
}

func (s *pipeSignal) Close() error {
	err := unix.Close(s.r)
	if werr := unix.Close(s.w); err == nil {
		err = werr
	}
	return err
}
