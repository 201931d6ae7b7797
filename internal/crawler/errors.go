package crawler

import "errors"

var (
	// ErrFetchExhausted is returned once every attempt (or every backend) failed.
	ErrFetchExhausted = errors.New("fetch exhausted")
	// ErrEmptyContent marks an attempt that returned only whitespace.
	ErrEmptyContent = errors.New("empty content")
	// ErrNoBackends is returned when a chain is built without fetchers.
	ErrNoBackends = errors.New("no fetch backends enabled")
)
