// Package collyfetcher implements the plain HTTP backend using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/bounty-scope-crawler/internal/crawler"
)

// BackendName identifies this backend in logs, metrics, and dumps.
const BackendName = "plain-http"

const acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"

// Config controls collector behavior.
type Config struct {
	// BaseURL is sent as the Referer.
	BaseURL          string
	Timeout          time.Duration
	RetryTimeout     time.Duration
	CloudflareBypass bool
}

// ProxySource hands out proxy URLs. ok is false when none are available.
type ProxySource interface {
	Random(exclude string) (proxy string, ok bool)
}

// UserAgentSource picks a User-Agent per request.
type UserAgentSource interface {
	Random() string
}

// Fetcher implements crawler.Backend using the Colly collector.
type Fetcher struct {
	cfg           Config
	agents        UserAgentSource
	proxies       ProxySource
	logger        *zap.Logger
	baseCollector *colly.Collector

	mu         sync.Mutex
	cookies    []*http.Cookie
	transports map[string]http.RoundTripper
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. proxies may be nil.
func New(cfg Config, agents UserAgentSource, proxies ProxySource, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RetryTimeout <= 0 {
		cfg.RetryTimeout = 90 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true

	return &Fetcher{
		cfg:           cfg,
		agents:        agents,
		proxies:       proxies,
		logger:        logger,
		baseCollector: c,
		transports:    make(map[string]http.RoundTripper),
	}
}

// Name implements crawler.Backend.
func (f *Fetcher) Name() string {
	return BackendName
}

// SetCookies installs session cookies sent with every later request.
func (f *Fetcher) SetCookies(cookies []*http.Cookie) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cookies = append([]*http.Cookie(nil), cookies...)
}

// Fetch performs one GET. A timeout is retried once through a different
// proxy with the longer retry timeout.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (crawler.Content, error) {
	proxy := f.pickProxy("")
	content, err := f.attempt(ctx, rawURL, proxy, f.cfg.Timeout)
	if err == nil || !isTimeout(err) || ctx.Err() != nil {
		return content, err
	}

	retryProxy := f.pickProxy(proxy)
	f.logger.Warn("plain http timeout, retrying",
		zap.String("url", rawURL),
		zap.String("proxy", retryProxy),
		zap.Duration("timeout", f.cfg.RetryTimeout),
	)
	return f.attempt(ctx, rawURL, retryProxy, f.cfg.RetryTimeout)
}

func (f *Fetcher) pickProxy(exclude string) string {
	if f.proxies == nil {
		return ""
	}
	proxy, ok := f.proxies.Random(exclude)
	if !ok {
		return ""
	}
	return proxy
}

func (f *Fetcher) attempt(ctx context.Context, rawURL, proxy string, timeout time.Duration) (crawler.Content, error) {
	var (
		result   crawler.Content
		fetchErr error
	)
	collector, err := f.buildCollector(ctx, proxy, timeout, &result, &fetchErr)
	if err != nil {
		return crawler.Content{}, err
	}
	if err := f.runCollector(ctx, collector, rawURL, &fetchErr); err != nil {
		return crawler.Content{}, err
	}
	return result, nil
}

func (f *Fetcher) buildCollector(
	ctx context.Context,
	proxy string,
	timeout time.Duration,
	result *crawler.Content,
	fetchErr *error,
) (*colly.Collector, error) {
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	if f.agents != nil {
		collector.UserAgent = f.agents.Random()
	}
	collector.SetRequestTimeout(timeout)

	transport, err := f.transportFor(proxy)
	if err != nil {
		return nil, err
	}
	collector.WithTransport(transport)

	f.configureCollectorHooks(collector, result, fetchErr)
	return collector, nil
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, result *crawler.Content, fetchErr *error) {
	hooks.OnRequest(func(r *colly.Request) {
		f.setBrowserHeaders(r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = crawler.Content{
			URL:     r.Request.URL.String(),
			Body:    string(r.Body),
			Format:  crawler.FormatHTML,
			Backend: BackendName,
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			*fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		*fetchErr = err
	})
}

func (f *Fetcher) setBrowserHeaders(r *colly.Request) {
	r.Headers.Set("Accept", acceptHeader)
	r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	if f.cfg.BaseURL != "" {
		r.Headers.Set("Referer", f.cfg.BaseURL)
	}
	r.Headers.Set("DNT", "1")
	r.Headers.Set("Upgrade-Insecure-Requests", "1")

	f.mu.Lock()
	cookies := f.cookies
	f.mu.Unlock()
	if len(cookies) == 0 {
		return
	}
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	r.Headers.Set("Cookie", strings.Join(pairs, "; "))
}

// runCollector visits rawURL and waits for the visit to end. The collector's
// request is bound to ctx, so a cancel aborts it; waiting for the goroutine
// keeps the hooks from writing results after we return.
func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, rawURL string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		<-done
		return fmt.Errorf("plain http fetch canceled: %w", ctx.Err())
	case err := <-done:
		if ctx.Err() != nil {
			return fmt.Errorf("plain http fetch canceled: %w", ctx.Err())
		}
		if *fetchErr != nil {
			return fmt.Errorf("fetch %s: %w", rawURL, *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("visit %s: %w", rawURL, err)
		}
		return nil
	}
}

func (f *Fetcher) transportFor(proxy string) (http.RoundTripper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rt, ok := f.transports[proxy]; ok {
		return rt, nil
	}
	transport := newHTTPTransport()
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy %q: %w", proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	var rt http.RoundTripper = transport
	if f.cfg.CloudflareBypass {
		rt = cloudflarebp.AddCloudFlareByPass(rt)
	}
	f.transports[proxy] = rt
	return rt, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
