// Package headless renders pages in a persistent headless Chrome tab.
package headless

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/bounty-scope-crawler/internal/crawler"
)

// BackendName identifies this backend in logs, metrics, and dumps.
const BackendName = "headless"

// ErrUnavailable is returned when Chrome cannot be started or the tab is gone.
var ErrUnavailable = errors.New("headless: browser unavailable")

const networkQuiet = 500 * time.Millisecond

const scrollScript = `window.scrollTo(0, document.body.scrollHeight);`

// Config controls the behavior of the headless fetcher.
type Config struct {
	ChromePath        string
	Headless          bool
	UserAgent         string
	NavigationTimeout time.Duration
	SettleMin         time.Duration
	SettleMax         time.Duration
	ScrollPasses      int
	ScrollPause       time.Duration
	ViewportWidth     int
	ViewportHeight    int
	// ListingMarkers select the URLs that get scrolled.
	ListingMarkers []string
}

// Fetcher implements crawler.Backend with one long-lived browser tab.
type Fetcher struct {
	cfg    Config
	pauser crawler.Pauser
	logger *zap.Logger
	settle func() time.Duration

	mu          sync.Mutex
	allocCancel context.CancelFunc
	tab         context.Context
	tabCancel   context.CancelFunc
	network     *networkTracker
	meta        *responseMeta
}

// NewChromedp starts Chrome and opens the tab used by every fetch. A
// browser that fails to start is reported as ErrUnavailable.
func NewChromedp(ctx context.Context, cfg Config, pauser crawler.Pauser, logger *zap.Logger) (*Fetcher, error) {
	cfg = withDefaults(cfg)
	if pauser == nil {
		pauser = crawler.TimerPauser{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tab, tabCancel := chromedp.NewContext(allocCtx)

	f := &Fetcher{
		cfg:         cfg,
		pauser:      pauser,
		logger:      logger,
		settle:      uniform(cfg.SettleMin, cfg.SettleMax),
		allocCancel: allocCancel,
		tab:         tab,
		tabCancel:   tabCancel,
		network:     newNetworkTracker(),
		meta:        newResponseMeta(),
	}
	chromedp.ListenTarget(tab, f.captureEvent)

	if err := f.run(ctx, cfg.NavigationTimeout, f.setupAction()); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return f, nil
}

func withDefaults(cfg Config) Config {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 60 * time.Second
	}
	if cfg.SettleMin <= 0 && cfg.SettleMax <= 0 {
		cfg.SettleMin, cfg.SettleMax = 3*time.Second, 8*time.Second
	}
	if cfg.SettleMax < cfg.SettleMin {
		cfg.SettleMax = cfg.SettleMin
	}
	if cfg.ScrollPasses < 0 {
		cfg.ScrollPasses = 0
	}
	if cfg.ScrollPause <= 0 {
		cfg.ScrollPause = 2 * time.Second
	}
	if cfg.ViewportWidth <= 0 || cfg.ViewportHeight <= 0 {
		cfg.ViewportWidth, cfg.ViewportHeight = 1920, 1080
	}
	return cfg
}

// Name implements crawler.Backend.
func (f *Fetcher) Name() string {
	return BackendName
}

// Close shuts down the tab and the browser process.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tabCancel != nil {
		f.tabCancel()
		f.tabCancel = nil
	}
	if f.allocCancel != nil {
		f.allocCancel()
		f.allocCancel = nil
	}
	f.tab = nil
}

// Fetch navigates the tab to rawURL, lets the page settle, scrolls listing
// pages, and returns the rendered document.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (crawler.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tab == nil {
		return crawler.Content{}, ErrUnavailable
	}

	f.network.reset()
	f.meta.reset()
	if err := f.run(ctx, f.cfg.NavigationTimeout,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return crawler.Content{}, fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	f.waitNetworkIdle(ctx)

	f.pauser.Pause(ctx, f.settle())
	if crawler.IsListingURL(rawURL, f.cfg.ListingMarkers) {
		if err := f.scroll(ctx); err != nil {
			return crawler.Content{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return crawler.Content{}, fmt.Errorf("headless fetch canceled: %w", err)
	}

	var html string
	if err := f.run(ctx, f.cfg.NavigationTimeout,
		chromedp.Evaluate(`document.documentElement.outerHTML`, &html),
	); err != nil {
		return crawler.Content{}, fmt.Errorf("read document %s: %w", rawURL, err)
	}

	status, finalURL := f.meta.snapshotWithFallbacks(rawURL)
	if status >= http.StatusBadRequest {
		return crawler.Content{}, fmt.Errorf("navigate %s: status %d", rawURL, status)
	}
	return crawler.Content{
		URL:     finalURL,
		Body:    html,
		Format:  crawler.FormatHTML,
		Backend: BackendName,
	}, nil
}

func (f *Fetcher) scroll(ctx context.Context) error {
	for pass := 1; pass <= f.cfg.ScrollPasses; pass++ {
		if err := f.run(ctx, f.cfg.NavigationTimeout, chromedp.Evaluate(scrollScript, nil)); err != nil {
			return fmt.Errorf("scroll pass %d: %w", pass, err)
		}
		f.pauser.Pause(ctx, f.cfg.ScrollPause)
	}
	return nil
}

// run executes actions on the tab, bounded by timeout and by ctx.
func (f *Fetcher) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(f.tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (f *Fetcher) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := emulation.SetDeviceMetricsOverride(
			int64(f.cfg.ViewportWidth), int64(f.cfg.ViewportHeight), 1, false,
		).Do(ctx); err != nil {
			return fmt.Errorf("set viewport: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// waitNetworkIdle returns once no request has been in flight for
// networkQuiet, or when the navigation timeout elapses.
func (f *Fetcher) waitNetworkIdle(ctx context.Context) {
	deadline := time.NewTimer(f.cfg.NavigationTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if f.network.idle(time.Now(), networkQuiet) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			f.logger.Debug("network never went idle", zap.Int("inflight", f.network.inflightCount()))
			return
		case <-ticker.C:
		}
	}
}

func (f *Fetcher) captureEvent(ev any) {
	f.network.capture(ev)
	if resp, ok := ev.(*network.EventResponseReceived); ok {
		f.meta.capture(resp)
	}
}

func uniform(lo, hi time.Duration) func() time.Duration {
	return func() time.Duration {
		if hi <= lo {
			return lo
		}
		return lo + rand.N(hi-lo+1)
	}
}

// networkTracker counts in-flight requests on the tab.
type networkTracker struct {
	mu           sync.Mutex
	inflight     map[network.RequestID]struct{}
	lastActivity time.Time
}

func newNetworkTracker() *networkTracker {
	return &networkTracker{inflight: make(map[network.RequestID]struct{})}
}

func (t *networkTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.inflight)
	t.lastActivity = time.Now()
}

func (t *networkTracker) capture(ev any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[e.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(t.inflight, e.RequestID)
	case *network.EventLoadingFailed:
		delete(t.inflight, e.RequestID)
	default:
		return
	}
	t.lastActivity = time.Now()
}

func (t *networkTracker) idle(now time.Time, quiet time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && now.Sub(t.lastActivity) >= quiet
}

func (t *networkTracker) inflightCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

// responseMeta remembers the last document response seen on the tab.
type responseMeta struct {
	mu     sync.RWMutex
	status int
	url    string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status, m.url = 0, ""
}

func (m *responseMeta) capture(event *network.EventResponseReceived) {
	if event.Type != network.ResourceTypeDocument || event.Response == nil {
		return
	}
	m.mu.Lock()
	m.status = int(event.Response.Status)
	m.url = event.Response.URL
	m.mu.Unlock()
}

func (m *responseMeta) snapshotWithFallbacks(requestURL string) (int, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, url := m.status, m.url
	if strings.TrimSpace(url) == "" {
		url = requestURL
	}
	if status == 0 {
		status = http.StatusOK
	}
	return status, url
}
