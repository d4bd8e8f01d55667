// File: aio/queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Completion queue of the emulated port.

package aio

import (
	"fmt"
	"sync"

	"github.com/missionlove/nanomsg/api"
	"github.com/missionlove/nanomsg/control"
	"github.com/missionlove/nanomsg/internal/concurrency"
)

// InitialQueueCapacity is the starting size of every completion queue.
const InitialQueueCapacity = 64

// CompletionQueue is an unbounded FIFO of completion events guarded by one
// mutex. Its signal is raised exactly when the queue goes from empty to
// non-empty and lowered exactly when it goes back to empty, so a poller
// watching the signal sees it readable iff events are waiting.
type CompletionQueue struct {
	mu     sync.Mutex
	ring   *concurrency.GrowRing[api.Event]
	signal api.Signal
	stats  *control.PortStats
	// detached: the signal is held raised and no longer follows the queue.
	detached bool
}

// NewCompletionQueue builds an empty queue driving sig.
func NewCompletionQueue(sig api.Signal) *CompletionQueue {
	return newCompletionQueue(sig, nil)
}

func newCompletionQueue(sig api.Signal, stats *control.PortStats) *CompletionQueue {
	return &CompletionQueue{
		ring:   concurrency.NewGrowRing[api.Event](InitialQueueCapacity),
		signal: sig,
		stats:  stats,
	}
}

// Post appends an event. It never fails: the queue grows instead.
func (q *CompletionQueue) Post(op int, arg any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	growths := q.ring.Growths()
	if q.ring.Push(api.Event{Op: op, Arg: arg}) && !q.detached {
		if err := q.signal.Signal(); err != nil {
			panic(fmt.Sprintf("aio: raise completion signal: %v", err))
		}
	}
	if q.stats != nil {
		q.stats.IncPosted()
		if q.ring.Growths() != growths {
			q.stats.IncGrowths()
		}
	}
}

// TryWait pops the oldest event without blocking.
func (q *CompletionQueue) TryWait() (api.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ev, ok, nowEmpty := q.ring.Pop()
	if !ok {
		return api.Event{}, false
	}
	if nowEmpty && !q.detached {
		if err := q.signal.Unsignal(); err != nil {
			panic(fmt.Sprintf("aio: lower completion signal: %v", err))
		}
	}
	return ev, true
}

// detach raises the signal for good, so every poller waiter watching it
// wakes, and stops the queue from toggling it afterwards. The queue itself
// stays usable.
func (q *CompletionQueue) detach() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.detached {
		return
	}
	q.detached = true
	if q.ring.Len() == 0 {
		if err := q.signal.Signal(); err != nil {
			panic(fmt.Sprintf("aio: raise completion signal: %v", err))
		}
	}
}

// Len returns the number of queued events.
func (q *CompletionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ring.Len()
}

// Cap returns the current ring capacity.
func (q *CompletionQueue) Cap() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ring.Cap()
}
