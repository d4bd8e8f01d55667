// File: aio/port_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package aio

import (
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/missionlove/nanomsg/api"
	"github.com/missionlove/nanomsg/control"
	"github.com/missionlove/nanomsg/fake"
)

func newFakePort(t *testing.T, opts ...Option) (CompletionPort, *fake.Poller, *fake.Signal) {
	t.Helper()
	poller := fake.NewPoller()
	sig := fake.NewSignal(poller)
	opts = append([]Option{
		WithBackend(BackendEmulated),
		WithPoller(poller),
		WithSignal(sig),
		WithLogger(control.DiscardLogger()),
		WithProbes(false),
	}, opts...)
	port, err := NewCompletionPort(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = port.Close() })
	return port, poller, sig
}

func TestEmulatedPortPostWait(t *testing.T) {
	port, _, sig := newFakePort(t)
	require.Equal(t, BackendEmulated, port.Backend())

	port.Post(7, "seven")
	port.Post(8, "eight")
	require.True(t, sig.Raised())

	ev, err := port.Wait(time.Second)
	require.NoError(t, err)
	require.Equal(t, api.Event{Op: 7, Arg: "seven"}, ev)
	ev, err = port.Wait(0)
	require.NoError(t, err)
	require.Equal(t, api.Event{Op: 8, Arg: "eight"}, ev)
	require.False(t, sig.Raised())

	st := port.Stats()
	require.EqualValues(t, 2, st.Posted)
	require.EqualValues(t, 2, st.Delivered)
}

func TestEmulatedPortWaitTimesOut(t *testing.T) {
	port, _, _ := newFakePort(t)

	start := time.Now()
	_, err := port.Wait(50 * time.Millisecond)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, api.ErrTimedOut)
	assert.GreaterOrEqual(t, elapsed, 45*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
	require.EqualValues(t, 1, port.Stats().Timeouts)
}

func TestEmulatedPortPollEmpty(t *testing.T) {
	port, _, _ := newFakePort(t)
	_, err := port.Wait(0)
	require.ErrorIs(t, err, api.ErrTimedOut)
}

func TestEmulatedPortInterrupted(t *testing.T) {
	port, poller, _ := newFakePort(t)
	poller.FailWait(&api.OpError{Op: "fake wait", Err: api.ErrInterrupted})

	_, err := port.Wait(time.Second)
	require.ErrorIs(t, err, api.ErrInterrupted)
	require.EqualValues(t, 1, port.Stats().Interrupts)

	port.Post(1, nil)
	ev, err := port.Wait(time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, ev.Op)
}

func TestEmulatedPortWakesBlockedWaiter(t *testing.T) {
	port, _, _ := newFakePort(t)

	got := make(chan api.Event, 1)
	go func() {
		ev, err := port.Wait(-1)
		if err == nil {
			got <- ev
		}
	}()
	time.Sleep(20 * time.Millisecond)
	port.Post(42, nil)

	select {
	case ev := <-got:
		require.Equal(t, 42, ev.Op)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter not woken by Post")
	}
}

// Concurrent producers and consumers: every event is delivered exactly
// once and the signal never toggles redundantly (the fake would panic).
func TestEmulatedPortConcurrentPostWait(t *testing.T) {
	port, _, sig := newFakePort(t)
	const (
		producers = 4
		consumers = 4
		perProd   = 500
	)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProd; i++ {
				port.Post(p*perProd+i, nil)
				if i%50 == 0 {
					runtime.Gosched()
				}
			}
		}(p)
	}

	seen := make([]bool, producers*perProd)
	var mu sync.Mutex
	var cg sync.WaitGroup
	remaining := producers * perProd
	for c := 0; c < consumers; c++ {
		cg.Add(1)
		go func() {
			defer cg.Done()
			for {
				mu.Lock()
				if remaining == 0 {
					mu.Unlock()
					return
				}
				mu.Unlock()
				ev, err := port.Wait(20 * time.Millisecond)
				if errors.Is(err, api.ErrTimedOut) {
					continue
				}
				if err != nil {
					t.Errorf("wait: %v", err)
					return
				}
				mu.Lock()
				if seen[ev.Op] {
					t.Errorf("event %d delivered twice", ev.Op)
				}
				seen[ev.Op] = true
				remaining--
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	cg.Wait()

	for op, ok := range seen {
		require.True(t, ok, "event %d lost", op)
	}
	require.False(t, sig.Raised())
	raises, lowers := sig.Toggles()
	require.Equal(t, raises, lowers)
}

func TestEmulatedPortCloseReleasesInjected(t *testing.T) {
	poller := fake.NewPoller()
	sig := fake.NewSignal(poller)
	port, err := NewCompletionPort(
		WithBackend(BackendEmulated),
		WithPoller(poller),
		WithSignal(sig),
		WithLogger(control.DiscardLogger()),
		WithName("close-test"),
	)
	require.NoError(t, err)
	require.Contains(t, control.Probes.DumpState(), "port.close-test")

	require.NoError(t, port.Close())
	require.NoError(t, port.Close())
	require.True(t, poller.Closed())
	require.True(t, sig.Closed())
	require.NotContains(t, control.Probes.DumpState(), "port.close-test")
}

func TestEmulatedPortCloseWakesWaiters(t *testing.T) {
	port, _, sig := newFakePort(t)

	const waiters = 4
	errs := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			_, err := port.Wait(-1)
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, port.Close())
	for i := 0; i < waiters; i++ {
		select {
		case err := <-errs:
			require.ErrorIs(t, err, api.ErrClosed)
		case <-time.After(2 * time.Second):
			t.Fatalf("waiter %d still blocked after Close", i)
		}
	}
	require.True(t, sig.Raised())

	// the queue no longer drives the released signal
	port.Post(1, nil)
	_, err := port.Wait(time.Second)
	require.ErrorIs(t, err, api.ErrClosed)
}

func TestBackendSelection(t *testing.T) {
	_, err := NewCompletionPort(WithBackend(Backend(99)), WithLogger(control.DiscardLogger()))
	require.ErrorIs(t, err, api.ErrInvalidArgument)

	if !Capabilities().NativePort {
		_, err := NewCompletionPort(WithBackend(BackendNative), WithLogger(control.DiscardLogger()))
		require.ErrorIs(t, err, api.ErrNotSupported)
	}
}

func TestParseBackend(t *testing.T) {
	for in, want := range map[string]Backend{
		"":          BackendAuto,
		"auto":      BackendAuto,
		"Native":    BackendNative,
		" emulated": BackendEmulated,
	} {
		got, err := ParseBackend(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseBackend("iouring")
	require.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestWaitRetryHonoursContext(t *testing.T) {
	port, poller, _ := newFakePort(t)
	poller.FailWait(&api.OpError{Op: "fake wait", Err: api.ErrInterrupted})
	go func() {
		time.Sleep(30 * time.Millisecond)
		port.Post(5, nil)
	}()

	ctx, cancel := testContext(t, 5*time.Second)
	defer cancel()
	ev, err := WaitRetry(ctx, port)
	require.NoError(t, err)
	require.Equal(t, 5, ev.Op)

	ctx, cancel = testContext(t, 30*time.Millisecond)
	defer cancel()
	_, err = WaitRetry(ctx, port)
	require.Error(t, err)
}
