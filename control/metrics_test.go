// control/metrics_test.go
// Author: momentics <momentics@gmail.com>

package control

import (
	"bytes"
	"sync"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/require"
)

func TestPortStatsConcurrent(t *testing.T) {
	var st PortStats
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				st.IncPosted()
				st.IncDelivered()
			}
		}()
	}
	wg.Wait()
	st.IncGrowths()

	snap := st.Snapshot()
	require.EqualValues(t, 8000, snap.Posted)
	require.EqualValues(t, 8000, snap.Delivered)
	require.EqualValues(t, 1, snap.Growths)
	require.Zero(t, snap.Timeouts)

	m := snap.AsMap()
	require.Equal(t, uint64(8000), m["posted"])
	require.Len(t, m, 9)
}

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("answer", func() any { return 42 })
	require.Equal(t, map[string]any{"answer": 42}, dp.DumpState())
	dp.UnregisterProbe("answer")
	require.Empty(t, dp.DumpState())
}

func TestNewLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, logiface.LevelWarning)
	l.Debug().Log("hidden")
	require.Zero(t, buf.Len())
	l.Warning().Str("port", "p1").Log("shown")
	require.Contains(t, buf.String(), `"shown"`)
	require.Contains(t, buf.String(), `"p1"`)

	buf.Reset()
	DiscardLogger().Err().Log("dropped")
	require.Zero(t, buf.Len())
}
