//go:build darwin

// File: aio/socket_darwin.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package aio

import (
	"golang.org/x/sys/unix"

	"github.com/missionlove/nanomsg/internal/errno"
)

// Darwin has no MSG_NOSIGNAL; SO_NOSIGPIPE is set on the socket instead.
const sendFlags = 0

func detectCaps() Caps {
	return Caps{NoSigPipeOption: true}
}

func tunePlatform(fd int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1); err != nil {
		return errno.Translate("setsockopt SO_NOSIGPIPE", err)
	}
	return nil
}
