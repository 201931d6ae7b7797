package crawler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/bounty-scope-crawler/internal/metrics"
)

// PolicyConfig holds the cross-cutting fetch settings shared by all backends.
type PolicyConfig struct {
	DelayMin       time.Duration
	DelayMax       time.Duration
	ListingMarkers []string
}

// PolicyDeps carries the collaborators used by a PolicyFetcher. Nil fields get
// defaults: a 2-5s linear retry policy, a timer pauser, no rate limiting, and
// no debug dumps.
type PolicyDeps struct {
	Retry  *LinearRetryPolicy
	Pauser Pauser
	Waiter Waiter
	Dumper *DebugDumper
	Logger *zap.Logger
}

// PolicyFetcher applies retries, linear backoff, politeness delay, rate
// limiting, and listing dumps around a single-attempt Backend.
type PolicyFetcher struct {
	backend Backend
	cfg     PolicyConfig
	retry   *LinearRetryPolicy
	delay   politeDelay
	pauser  Pauser
	waiter  Waiter
	dumper  *DebugDumper
	logger  *zap.Logger
}

// NewPolicyFetcher wraps backend with the shared fetch policy.
func NewPolicyFetcher(backend Backend, cfg PolicyConfig, deps PolicyDeps) *PolicyFetcher {
	if deps.Retry == nil {
		deps.Retry = NewLinearRetryPolicy(defaultBackoffMinStep, defaultBackoffMaxStep)
	}
	if deps.Pauser == nil {
		deps.Pauser = TimerPauser{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &PolicyFetcher{
		backend: backend,
		cfg:     cfg,
		retry:   deps.Retry,
		delay:   newPoliteDelay(cfg.DelayMin, cfg.DelayMax),
		pauser:  deps.Pauser,
		waiter:  deps.Waiter,
		dumper:  deps.Dumper,
		logger:  deps.Logger.With(zap.String("backend", backend.Name())),
	}
}

// Name returns the wrapped backend's name.
func (f *PolicyFetcher) Name() string {
	return f.backend.Name()
}

// Fetch tries the backend up to maxRetries times. After failed attempt n it
// sleeps step*n; after a success it sleeps the politeness delay.
func (f *PolicyFetcher) Fetch(ctx context.Context, rawURL string, maxRetries int) (Content, error) {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	name := f.backend.Name()
	step := f.retry.Step()
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Content{}, fmt.Errorf("fetch %s canceled: %w", rawURL, err)
		}
		if f.waiter != nil {
			if err := f.waiter.Wait(ctx, rawURL); err != nil {
				return Content{}, fmt.Errorf("wait for %s: %w", rawURL, err)
			}
		}

		start := time.Now()
		content, err := f.backend.Fetch(ctx, rawURL)
		elapsed := time.Since(start)
		if err == nil && content.Empty() {
			err = ErrEmptyContent
		}
		if err == nil {
			metrics.ObserveFetch(name, "success", elapsed)
			content = f.finalize(content, rawURL, elapsed)
			if IsListingURL(rawURL, f.cfg.ListingMarkers) {
				f.dumper.Dump(ctx, content)
			}
			delay := f.delay.next()
			f.logger.Info("Fetched page",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Int("bytes", len(content.Body)),
				zap.Duration("politeness_delay", delay),
			)
			f.pauser.Pause(ctx, delay)
			return content, nil
		}

		lastErr = err
		metrics.ObserveFetch(name, "failure", elapsed)
		if ctx.Err() != nil {
			return Content{}, fmt.Errorf("fetch %s canceled: %w", rawURL, ctx.Err())
		}
		wait := f.retry.Backoff(step, attempt)
		f.logger.Warn("Fetch attempt failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		f.pauser.Pause(ctx, wait)
	}
	return Content{}, fmt.Errorf("%w: %s via %s after %d attempts: %w", ErrFetchExhausted, rawURL, name, maxRetries, lastErr)
}

func (f *PolicyFetcher) finalize(content Content, rawURL string, elapsed time.Duration) Content {
	content.Backend = f.backend.Name()
	if content.URL == "" {
		content.URL = rawURL
	}
	if content.Format == "" {
		content.Format = FormatHTML
	}
	content.Duration = elapsed
	return content
}
