// File: aio/handle_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package aio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T, d time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), d)
}

func TestHandleLifecycle(t *testing.T) {
	var h Handle
	require.Equal(t, OpIdle, h.State())

	buf := make([]byte, 4)
	h.begin(opRecv, buf, Partial, 1)
	require.Equal(t, OpAwaiting, h.State())

	require.Panics(t, func() { h.begin(opSend, buf, 0, 0) })

	h.done = 3
	h.finish(nil)
	require.Equal(t, OpDone, h.State())
	n, err := h.Result()
	require.Equal(t, 3, n)
	require.NoError(t, err)

	failure := errors.New("boom")
	h.begin(opSend, buf, 0, 0)
	h.finish(failure)
	require.Equal(t, OpFailed, h.State())
	_, err = h.Result()
	require.ErrorIs(t, err, failure)
	require.Nil(t, h.Accepted())
}

func TestOpStateString(t *testing.T) {
	require.Equal(t, "awaiting", OpAwaiting.String())
	require.Equal(t, "failed", OpFailed.String())
	require.Equal(t, "opstate(9)", OpState(9).String())
}
