package gpio

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedEdges struct {
	edges []bool
	i     atomic.Int32
}

func (s *scriptedEdges) EdgeDetected() bool {
	i := int(s.i.Add(1)) - 1
	return i < len(s.edges) && s.edges[i]
}

func TestWatchPressesDebounce(t *testing.T) {
	// Poll every 10ms, debounce 300ms: edges on polls 0, 1 and 40.
	edges := make([]bool, 50)
	edges[0], edges[1], edges[40] = true, true, true
	src := &scriptedEdges{edges: edges}

	ctx, cancel := context.WithCancel(context.Background())
	var presses atomic.Int32
	done := make(chan struct{})
	go func() {
		WatchPresses(ctx, src, 10*time.Millisecond, 300*time.Millisecond, func() { presses.Add(1) })
		close(done)
	}()

	require.Eventually(t, func() bool { return src.i.Load() >= 50 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-done
	require.Equal(t, int32(2), presses.Load())
}
