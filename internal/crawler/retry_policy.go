package crawler

import (
	"crypto/rand"
	"math/big"
	"time"
)

// Default bounds for the per-call backoff step.
const (
	defaultBackoffMinStep = 2 * time.Second
	defaultBackoffMaxStep = 5 * time.Second
)

// LinearRetryPolicy scales a random step by the attempt number. The step is
// drawn once per fetch call so delays grow strictly with each attempt.
type LinearRetryPolicy struct {
	minStep time.Duration
	maxStep time.Duration
	random  func(lo, hi time.Duration) time.Duration
}

// NewLinearRetryPolicy builds a policy whose step lies in [minStep, maxStep].
// Non-positive bounds fall back to 2s and 5s.
func NewLinearRetryPolicy(minStep, maxStep time.Duration) *LinearRetryPolicy {
	if minStep <= 0 {
		minStep = defaultBackoffMinStep
	}
	if maxStep < minStep {
		maxStep = minStep
	}
	return &LinearRetryPolicy{
		minStep: minStep,
		maxStep: maxStep,
		random:  randomBetween,
	}
}

// Step draws the backoff unit used for one fetch call.
func (p *LinearRetryPolicy) Step() time.Duration {
	return p.random(p.minStep, p.maxStep)
}

// Backoff returns the wait after the given failed attempt (1-based).
func (p *LinearRetryPolicy) Backoff(step time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return step * time.Duration(attempt)
}

// randomBetween returns a uniformly distributed duration in [lo, hi].
func randomBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	bound := big.NewInt(int64(hi-lo) + 1)
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return lo + (hi-lo)/2
	}
	return lo + time.Duration(n.Int64())
}
