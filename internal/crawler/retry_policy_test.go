package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLinearRetryPolicyStepWithinBounds(t *testing.T) {
	p := NewLinearRetryPolicy(2*time.Second, 5*time.Second)
	for i := 0; i < 100; i++ {
		step := p.Step()
		require.GreaterOrEqual(t, step, 2*time.Second)
		require.LessOrEqual(t, step, 5*time.Second)
	}
}

func TestLinearRetryPolicyBackoffScalesWithAttempt(t *testing.T) {
	p := NewLinearRetryPolicy(2*time.Second, 5*time.Second)
	step := 3 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 3 * time.Second},
		{attempt: 1, want: 3 * time.Second},
		{attempt: 2, want: 6 * time.Second},
		{attempt: 3, want: 9 * time.Second},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, p.Backoff(step, tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestNewLinearRetryPolicyDefaults(t *testing.T) {
	p := NewLinearRetryPolicy(0, 0)
	require.Equal(t, defaultBackoffMinStep, p.minStep)
	require.Equal(t, defaultBackoffMinStep, p.maxStep)
}

func TestRandomBetweenDegenerateRange(t *testing.T) {
	require.Equal(t, time.Second, randomBetween(time.Second, time.Second))
	require.Equal(t, time.Second, randomBetween(time.Second, 0))
}
