//go:build unix && !linux && !darwin

// File: aio/socket_unixother.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package aio

// The Go runtime turns SIGPIPE on sockets into EPIPE, so no send flag is
// needed here.
const sendFlags = 0

func detectCaps() Caps {
	return Caps{}
}

func tunePlatform(int) error { return nil }
