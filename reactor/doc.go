// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness poller and wakeup signal used by the
// emulated completion port (epoll and eventfd on Linux, kqueue and a self-pipe
// on BSD/Darwin), plus a thin wrapper over the Windows I/O completion port.
package reactor
