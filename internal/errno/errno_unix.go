//go:build unix

// File: internal/errno/errno_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package errno

import (
	"syscall"

	"code.hybscloud.com/iox"
	"golang.org/x/sys/unix"

	"github.com/missionlove/nanomsg/api"
)

func portable(code syscall.Errno) error {
	switch code {
	case unix.EINTR:
		return api.ErrInterrupted
	case unix.EAGAIN:
		return iox.ErrWouldBlock
	case unix.EINPROGRESS, unix.EALREADY:
		return api.ErrInProgress
	case unix.ETIMEDOUT:
		return api.ErrTimedOut
	case unix.ECONNRESET, unix.EPIPE, unix.ECONNABORTED, unix.ENOTCONN,
		unix.EHOSTUNREACH, unix.ENETUNREACH, unix.ENETDOWN:
		return api.ErrConnReset
	case unix.ECONNREFUSED:
		return api.ErrConnRefused
	case unix.EADDRINUSE:
		return api.ErrAddrInUse
	case unix.EADDRNOTAVAIL:
		return api.ErrAddrNotAvailable
	case unix.EACCES, unix.EPERM:
		return api.ErrAccessDenied
	case unix.EMFILE, unix.ENFILE:
		return api.ErrTooManyFiles
	case unix.ENOBUFS, unix.ENOMEM:
		return api.ErrNoBuffers
	case unix.EBADF:
		return api.ErrClosed
	case unix.EINVAL:
		return api.ErrInvalidArgument
	case unix.EOPNOTSUPP, unix.EAFNOSUPPORT, unix.EPROTONOSUPPORT, unix.ESOCKTNOSUPPORT:
		return api.ErrNotSupported
	}
	return nil
}

// WouldBlock reports whether code means the non-blocking call could not
// proceed right now.
func WouldBlock(code syscall.Errno) bool {
	return code == unix.EAGAIN || code == unix.EWOULDBLOCK
}

// SendFatal reports whether a send failure ends the connection. Besides a
// reset or a broken pipe this covers sends on a socket whose connect failed.
func SendFatal(code syscall.Errno) bool {
	switch code {
	case unix.ECONNRESET, unix.EPIPE, unix.ENOTCONN, unix.ECONNREFUSED,
		unix.ETIMEDOUT, unix.EHOSTUNREACH, unix.ENETUNREACH:
		return true
	}
	return false
}

// RecvFatal reports whether a receive failure ends the connection.
func RecvFatal(code syscall.Errno) bool {
	switch code {
	case unix.ECONNRESET, unix.ECONNREFUSED, unix.ETIMEDOUT, unix.EHOSTUNREACH, unix.ENOTCONN:
		return true
	}
	return false
}
