// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral pieces shared by the poller implementations.

package reactor

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/missionlove/nanomsg/api"
)

var (
	ErrAlreadyRegistered = errors.New("reactor: descriptor already registered")
	ErrNotRegistered     = errors.New("reactor: descriptor not registered")
	ErrPollerClosed      = errors.New("reactor: poller closed")
)

// timeoutMillis converts a Wait timeout into the millisecond argument of
// epoll_wait style calls, rounding up so short waits never become polls.
func timeoutMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}

// handleTable maps descriptors back to their registrations.
type handleTable struct {
	mu      sync.RWMutex
	handles map[uintptr]*api.PollHandle
}

func newHandleTable() handleTable {
	return handleTable{handles: make(map[uintptr]*api.PollHandle)}
}

func (t *handleTable) insert(h *api.PollHandle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.handles[h.FD]; dup {
		return ErrAlreadyRegistered
	}
	t.handles[h.FD] = h
	return nil
}

func (t *handleTable) remove(h *api.PollHandle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.handles[h.FD]; !ok || cur != h {
		return false
	}
	delete(t.handles, h.FD)
	return true
}

func (t *handleTable) lookup(fd uintptr) *api.PollHandle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.handles[fd]
}

func (t *handleTable) contains(h *api.PollHandle) bool {
	return t.lookup(h.FD) == h
}
