package crawler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// NamedFetcher is a Fetcher that can identify itself in logs.
type NamedFetcher interface {
	Fetcher
	Name() string
}

// Chain tries fetchers in priority order and returns the first non-empty content.
type Chain struct {
	fetchers []NamedFetcher
	logger   *zap.Logger
}

// NewChain builds a chain from fetchers ordered highest priority first.
func NewChain(logger *zap.Logger, fetchers ...NamedFetcher) (*Chain, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	kept := make([]NamedFetcher, 0, len(fetchers))
	for _, f := range fetchers {
		if f != nil {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoBackends
	}
	return &Chain{fetchers: kept, logger: logger}, nil
}

// Names lists the backends in the order they are tried.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.fetchers))
	for _, f := range c.fetchers {
		names = append(names, f.Name())
	}
	return names
}

// Fetch falls through the chain until one fetcher succeeds.
func (c *Chain) Fetch(ctx context.Context, rawURL string, maxRetries int) (Content, error) {
	var errs []error
	for _, f := range c.fetchers {
		content, err := f.Fetch(ctx, rawURL, maxRetries)
		if err == nil && !content.Empty() {
			return content, nil
		}
		if err == nil {
			err = ErrEmptyContent
		}
		errs = append(errs, fmt.Errorf("%s: %w", f.Name(), err))
		if ctx.Err() != nil {
			break
		}
		c.logger.Warn("Backend failed; trying next", zap.String("backend", f.Name()), zap.String("url", rawURL))
	}
	return Content{}, fmt.Errorf("%w: %s: %w", ErrFetchExhausted, rawURL, errors.Join(errs...))
}
