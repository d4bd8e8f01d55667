//go:build unix && !linux

// File: aio/socket_forklock.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platforms without SOCK_CLOEXEC in this build set FD_CLOEXEC right after
// the descriptor is created. ForkLock keeps os/exec from forking in between;
// forks done outside the Go runtime can still inherit the descriptor.

package aio

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func openSocket(domain, typ, proto int) (int, error) {
	warnCloexecRace()
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	fd, err := unix.Socket(domain, typ, proto)
	if err != nil {
		return -1, err
	}
	syscall.CloseOnExec(fd)
	return fd, nil
}

func acceptConn(fd int) (int, error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	nfd, _, err := unix.Accept(fd)
	if err != nil {
		return -1, err
	}
	syscall.CloseOnExec(nfd)
	return nfd, nil
}
