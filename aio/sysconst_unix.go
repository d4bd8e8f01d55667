//go:build unix

// File: aio/sysconst_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package aio

import "golang.org/x/sys/unix"

// Portable socket constants for NewSocket.
const (
	Inet4        = unix.AF_INET
	Inet6        = unix.AF_INET6
	Stream       = unix.SOCK_STREAM
	Datagram     = unix.SOCK_DGRAM
	ProtoDefault = 0
	ProtoTCP     = unix.IPPROTO_TCP
)
