package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConcurrentVisitTracker(t *testing.T) {
	tracker := newConcurrentVisitTracker()
	require.True(t, tracker.MarkIfNew("https://hackerone.com/first"))
	require.False(t, tracker.MarkIfNew("https://hackerone.com/first"))
	require.True(t, tracker.MarkIfNew("https://hackerone.com/second"))
	require.False(t, tracker.MarkIfNew(""))
}

func TestTimerPauserHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	TimerPauser{}.Pause(ctx, 5*time.Second)
	require.Less(t, time.Since(start), time.Second, "pause should exit immediately when context is done")
}

func TestPoliteDelayBounds(t *testing.T) {
	d := newPoliteDelay(time.Second, 3*time.Second)
	for i := 0; i < 50; i++ {
		got := d.next()
		require.GreaterOrEqual(t, got, time.Second)
		require.LessOrEqual(t, got, 3*time.Second)
	}

	require.Zero(t, newPoliteDelay(0, 0).next())
	inverted := newPoliteDelay(2*time.Second, time.Second)
	require.Equal(t, 2*time.Second, inverted.next())
}
