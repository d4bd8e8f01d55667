// File: aio/wait.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package aio

import (
	"context"
	"errors"
	"time"

	"code.hybscloud.com/iox"

	"github.com/missionlove/nanomsg/api"
)

// WaitSlice bounds each Wait issued by WaitRetry so cancellation of its
// context is noticed.
var WaitSlice = 100 * time.Millisecond

// WaitRetry waits on port until an event arrives or ctx ends. Timeouts of
// the individual slices and interrupted waits are retried, the latter after
// an adaptive backoff. Other failures are returned as is.
func WaitRetry(ctx context.Context, port CompletionPort) (api.Event, error) {
	var bo iox.Backoff
	for {
		if err := ctx.Err(); err != nil {
			return api.Event{}, err
		}
		slice := WaitSlice
		if dl, ok := ctx.Deadline(); ok {
			if left := time.Until(dl); left < slice {
				slice = max(left, 0)
			}
		}
		ev, err := port.Wait(slice)
		switch {
		case err == nil:
			return ev, nil
		case errors.Is(err, api.ErrTimedOut):
			bo.Reset()
		case errors.Is(err, api.ErrInterrupted):
			bo.Wait()
		default:
			return api.Event{}, err
		}
	}
}
