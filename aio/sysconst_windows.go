//go:build windows

// File: aio/sysconst_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package aio

import "golang.org/x/sys/windows"

// Portable socket constants for NewSocket.
const (
	Inet4        = windows.AF_INET
	Inet6        = windows.AF_INET6
	Stream       = windows.SOCK_STREAM
	Datagram     = windows.SOCK_DGRAM
	ProtoDefault = 0
	ProtoTCP     = windows.IPPROTO_TCP
)

// SO_EXCLUSIVEADDRUSE is ~SO_REUSEADDR in winsock2.h.
const soExclusiveAddrUse = ^windows.SO_REUSEADDR
