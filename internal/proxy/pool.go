// Package proxy loads, validates, and hands out outbound HTTP proxies.
package proxy

import (
	"bufio"
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultValidateURL is requested through every proxy during validation.
const DefaultValidateURL = "https://www.hackerone.com"

// Pool is a concurrency-safe list of proxy URLs.
type Pool struct {
	mu      sync.RWMutex
	proxies []string
	pick    func(n int) int
}

// NewPool returns a pool holding proxies.
func NewPool(proxies []string) *Pool {
	return &Pool{proxies: slices.Clone(proxies), pick: rand.IntN}
}

// LoadFile reads one proxy per line. Blank lines and lines starting with
// '#' are skipped; entries without a scheme get an http:// prefix.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open proxy file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, "://") {
			line = "http://" + line
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read proxy file: %w", err)
	}
	return out, nil
}

// Len reports how many proxies are available.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.proxies)
}

// List returns a copy of the current proxies.
func (p *Pool) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.proxies)
}

// Replace swaps the proxy list.
func (p *Pool) Replace(proxies []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.proxies = slices.Clone(proxies)
}

// Random returns a random proxy other than exclude. When exclude is the
// only entry it is returned anyway. ok is false for an empty pool.
func (p *Pool) Random(exclude string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.proxies) == 0 {
		return "", false
	}
	candidates := p.proxies
	if exclude != "" && len(p.proxies) > 1 {
		candidates = make([]string, 0, len(p.proxies))
		for _, proxy := range p.proxies {
			if proxy != exclude {
				candidates = append(candidates, proxy)
			}
		}
		if len(candidates) == 0 {
			candidates = p.proxies
		}
	}
	return candidates[p.pick(len(candidates))], true
}

// ValidateConfig controls Validate.
type ValidateConfig struct {
	URL     string
	Timeout time.Duration
}

// Validate checks every proxy with a GET to cfg.URL and keeps the ones
// answering 200. It returns the number of proxies kept.
func (p *Pool) Validate(ctx context.Context, cfg ValidateConfig, logger *zap.Logger) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.URL == "" {
		cfg.URL = DefaultValidateURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	candidates := p.List()
	valid := make([]string, 0, len(candidates))
	for _, proxy := range candidates {
		if ctx.Err() != nil {
			break
		}
		if err := checkProxy(ctx, proxy, cfg); err != nil {
			logger.Debug("proxy rejected", zap.String("proxy", proxy), zap.Error(err))
			continue
		}
		valid = append(valid, proxy)
	}
	p.Replace(valid)
	logger.Info("proxies validated",
		zap.Int("candidates", len(candidates)),
		zap.Int("valid", len(valid)),
	)
	return len(valid)
}

const maxCheckRedirects = 5

// checkProxy follows redirects and requires the final response to be 200.
func checkProxy(ctx context.Context, proxy string, cfg ValidateConfig) error {
	client := resty.New().
		SetProxy(proxy).
		SetTimeout(cfg.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxCheckRedirects))
	res, err := client.R().SetContext(ctx).Get(cfg.URL)
	if err != nil {
		return fmt.Errorf("check %s: %w", cfg.URL, err)
	}
	if res.StatusCode() != http.StatusOK {
		return fmt.Errorf("check %s: status %d", cfg.URL, res.StatusCode())
	}
	return nil
}
