package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/bounty-scope-crawler/internal/config"
	"github.com/JakeFAU/bounty-scope-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/bounty-scope-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/bounty-scope-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/bounty-scope-crawler/internal/fetcher/remote"
	"github.com/JakeFAU/bounty-scope-crawler/internal/fetcher/useragent"
	"github.com/JakeFAU/bounty-scope-crawler/internal/logging"
	"github.com/JakeFAU/bounty-scope-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/bounty-scope-crawler/internal/proxy"
	"github.com/JakeFAU/bounty-scope-crawler/internal/storage/local"
)

// buildBackends returns the enabled backends in chain order, each wrapped
// in the shared fetch policy. Backends that fail to start are logged and
// left out. The returned func releases the browser, if one was started.
func buildBackends(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
) ([]crawler.NamedFetcher, func(), error) {
	closeAll := func() {}

	deps, err := buildPolicyDeps(cfg, logger)
	if err != nil {
		return nil, closeAll, err
	}
	policyCfg := cfg.PolicyConfig()
	wrap := func(b crawler.Backend) crawler.NamedFetcher {
		return crawler.NewPolicyFetcher(b, policyCfg, deps)
	}

	agents := useragent.NewPool(cfg.HTTP.UserAgents)
	proxies := buildProxyPool(ctx, cfg, logger)

	var remoteClient *remote.Client
	if cfg.Remote.BrowserEnabled || cfg.Remote.ScrapeEnabled {
		remoteClient, err = remote.Dial(ctx, remote.Config{
			Host:    cfg.Remote.Host,
			Port:    cfg.Remote.Port,
			Timeout: time.Duration(cfg.Remote.TimeoutSeconds) * time.Second,
		}, logging.Component(logger, "remote"))
		if err != nil {
			logger.Warn("Remote automation backends unavailable", zap.Error(err))
			remoteClient = nil
		}
	}

	var fetchers []crawler.NamedFetcher

	if cfg.Remote.BrowserEnabled && remoteClient != nil {
		fetchers = append(fetchers, wrap(remote.NewBrowserBackend(remoteClient, cfg.Remote.BrowserServer)))
	}

	var browser *headless.Fetcher
	if cfg.Headless.Enabled {
		browser, err = headless.NewChromedp(ctx, headlessConfig(cfg, agents.Random()), crawler.TimerPauser{},
			logging.Component(logger, "headless"))
		if err != nil {
			logger.Warn("Headless backend unavailable", zap.Error(err))
			browser = nil
		} else {
			closeAll = browser.Close
			fetchers = append(fetchers, wrap(browser))
		}
	}

	if cfg.Remote.ScrapeEnabled && remoteClient != nil {
		fetchers = append(fetchers, wrap(remote.NewScrapeBackend(remoteClient, cfg.Remote.ScrapeServer)))
	}

	if cfg.HTTP.Enabled {
		var proxySource collyfetcher.ProxySource
		if proxies != nil {
			proxySource = proxies
		}
		plain := collyfetcher.New(collyfetcher.Config{
			BaseURL:          cfg.Site.BaseURL,
			Timeout:          time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
			RetryTimeout:     time.Duration(cfg.HTTP.RetryTimeoutSeconds) * time.Second,
			CloudflareBypass: cfg.HTTP.CloudflareBypass,
		}, agents, proxySource, logging.Component(logger, "plain-http"))
		if cfg.Login.Enabled {
			applyLogin(ctx, cfg, browser, plain, logger)
		}
		fetchers = append(fetchers, wrap(plain))
	}

	return fetchers, closeAll, nil
}

func buildPolicyDeps(cfg config.Config, logger *zap.Logger) (crawler.PolicyDeps, error) {
	deps := crawler.PolicyDeps{
		Pauser: crawler.TimerPauser{},
		Logger: logging.Component(logger, "fetch"),
		Waiter: ratelimit.New(ratelimit.Config{
			RequestsPerSecond: cfg.Crawler.RequestsPerSecond,
			Burst:             1,
		}),
	}
	if cfg.Crawler.DebugDumps {
		blobs, err := local.New(local.Config{Dir: cfg.Crawler.DebugDir})
		if err != nil {
			return crawler.PolicyDeps{}, fmt.Errorf("init debug dump dir: %w", err)
		}
		deps.Dumper = crawler.NewDebugDumper(blobs, logging.Component(logger, "dump"))
	}
	return deps, nil
}

// buildProxyPool loads and optionally validates the proxy list. It returns
// nil when proxies are disabled or none survive.
func buildProxyPool(ctx context.Context, cfg config.Config, logger *zap.Logger) *proxy.Pool {
	if !cfg.Proxy.Enabled {
		return nil
	}
	list, err := proxy.LoadFile(cfg.Proxy.File)
	if err != nil {
		logger.Warn("Proxy list unavailable; continuing without proxies", zap.Error(err))
		return nil
	}
	pool := proxy.NewPool(list)
	if cfg.Proxy.Validate {
		pool.Validate(ctx, proxy.ValidateConfig{
			URL:     cfg.Proxy.ValidateURL,
			Timeout: time.Duration(cfg.Proxy.ValidateTimeoutSeconds) * time.Second,
		}, logging.Component(logger, "proxy"))
	}
	if pool.Len() == 0 {
		logger.Warn("No usable proxies; continuing without proxies")
		return nil
	}
	logger.Info("Proxy pool ready", zap.Int("proxies", pool.Len()))
	return pool
}

func headlessConfig(cfg config.Config, userAgent string) headless.Config {
	h := cfg.Headless
	return headless.Config{
		ChromePath:        h.ChromePath,
		Headless:          h.Headless,
		UserAgent:         userAgent,
		NavigationTimeout: time.Duration(h.NavTimeoutSeconds) * time.Second,
		SettleMin:         config.Seconds(h.SettleMinSeconds),
		SettleMax:         config.Seconds(h.SettleMaxSeconds),
		ScrollPasses:      h.ScrollPasses,
		ScrollPause:       config.Seconds(h.ScrollPauseSeconds),
		ViewportWidth:     h.ViewportWidth,
		ViewportHeight:    h.ViewportHeight,
		ListingMarkers:    cfg.Site.ListingMarkers,
	}
}

// applyLogin signs in through the browser and hands the session cookies to
// the plain HTTP backend. A failed login only costs the session.
func applyLogin(
	ctx context.Context,
	cfg config.Config,
	browser *headless.Fetcher,
	plain *collyfetcher.Fetcher,
	logger *zap.Logger,
) {
	if browser == nil {
		logger.Warn("Login requires the headless backend; continuing anonymously")
		return
	}
	cookies, err := browser.Login(ctx, headless.Credentials{
		BaseURL:  cfg.Site.BaseURL,
		Username: cfg.Login.Username,
		Password: cfg.Login.Password,
	})
	if err != nil {
		logger.Warn("Login failed; continuing anonymously", zap.Error(err))
		return
	}
	plain.SetCookies(cookies)
	logger.Info("Logged in", zap.Int("cookies", len(cookies)))
}
