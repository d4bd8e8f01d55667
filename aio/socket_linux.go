//go:build linux

// File: aio/socket_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package aio

import "golang.org/x/sys/unix"

// MSG_NOSIGNAL keeps a send to a reset peer from raising SIGPIPE.
const sendFlags = unix.MSG_NOSIGNAL

func detectCaps() Caps {
	return Caps{
		AtomicCloexec: true,
		AcceptCloexec: true,
		NoSigPipeFlag: true,
	}
}

func openSocket(domain, typ, proto int) (int, error) {
	return unix.Socket(domain, typ|unix.SOCK_CLOEXEC, proto)
}

func acceptConn(fd int) (int, error) {
	nfd, _, err := unix.Accept4(fd, unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK)
	return nfd, err
}

func tunePlatform(int) error { return nil }
