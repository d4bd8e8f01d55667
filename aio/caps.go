// File: aio/caps.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package aio

import "sync"

// Caps lists the platform features the socket layer adapts to. They are
// detected once per process.
type Caps struct {
	// NativePort: the kernel has a completion port (BackendNative works).
	NativePort bool
	// AtomicCloexec: sockets are created close-on-exec in one call.
	AtomicCloexec bool
	// AcceptCloexec: accepted sockets are close-on-exec in one call.
	AcceptCloexec bool
	// NoSigPipeOption: SO_NOSIGPIPE is set on every socket.
	NoSigPipeOption bool
	// NoSigPipeFlag: sends pass MSG_NOSIGNAL.
	NoSigPipeFlag bool
}

var capabilities = sync.OnceValue(detectCaps)

// Capabilities returns the detected platform features.
func Capabilities() Caps {
	return capabilities()
}

var cloexecWarning sync.Once

// warnCloexecRace is called whenever close-on-exec had to be applied after
// the descriptor was created.
func warnCloexecRace() {
	cloexecWarning.Do(func() {
		logger().Warning().
			Log("close-on-exec is applied after socket creation; a concurrent fork may inherit the descriptor")
	})
}
