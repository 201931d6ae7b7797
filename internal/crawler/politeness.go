package crawler

import (
	"context"
	"sync"
	"time"
)

// visitTracker provides thread-safe visited URL tracking to prevent revisits.
type visitTracker interface {
	MarkIfNew(url string) bool
}

type concurrentVisitTracker struct {
	seen sync.Map
}

func newConcurrentVisitTracker() *concurrentVisitTracker {
	return &concurrentVisitTracker{}
}

// MarkIfNew stores the URL if it has not been seen before and returns true.
func (t *concurrentVisitTracker) MarkIfNew(url string) bool {
	if url == "" {
		return false
	}
	_, loaded := t.seen.LoadOrStore(url, struct{}{})
	return !loaded
}

// TimerPauser sleeps on a timer and returns early when ctx ends.
type TimerPauser struct{}

// Pause blocks for delay or until ctx is done.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// politeDelay draws the pause taken after every successful fetch.
type politeDelay struct {
	min    time.Duration
	max    time.Duration
	random func(lo, hi time.Duration) time.Duration
}

func newPoliteDelay(lo, hi time.Duration) politeDelay {
	if lo < 0 {
		lo = 0
	}
	if hi < lo {
		hi = lo
	}
	return politeDelay{min: lo, max: hi, random: randomBetween}
}

func (d politeDelay) next() time.Duration {
	if d.max <= 0 {
		return 0
	}
	return d.random(d.min, d.max)
}
