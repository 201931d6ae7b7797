package extract

import (
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/JakeFAU/bounty-scope-crawler/internal/crawler"
	"github.com/JakeFAU/bounty-scope-crawler/internal/metrics"
)

// Config controls how relative program links are resolved.
type Config struct {
	BaseURL string
}

// Engine runs the listing and detail heuristics in priority order.
type Engine struct {
	base   *url.URL
	logger *zap.Logger
}

// New builds an Engine for the site rooted at cfg.BaseURL.
func New(cfg Config, logger *zap.Logger) (*Engine, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{base: base, logger: logger}, nil
}

// ProgramLinks extracts program detail URLs from a listing page. An empty
// result means the listing has no more programs.
func (e *Engine) ProgramLinks(body string) []string {
	if body == "" {
		return nil
	}
	if requiresJavaScript(body) {
		e.logger.Warn("Listing page shows the JavaScript-required banner; results may be incomplete")
	}
	p := newPage(body, e.base)
	for _, h := range listingHeuristics {
		if links := h.fn(p); len(links) > 0 {
			metrics.ObserveExtraction("listing", h.name)
			e.logger.Debug("Listing heuristic matched", zap.String("heuristic", h.name), zap.Int("links", len(links)))
			return links
		}
	}
	metrics.ObserveExtraction("listing", "none")
	return nil
}

// Domains extracts the in-scope domains of one program page. Every record
// carries sourceURL.
func (e *Engine) Domains(body string, sourceURL string) []crawler.DomainRecord {
	if body == "" {
		return nil
	}
	if requiresJavaScript(body) {
		e.logger.Warn("Program page shows the JavaScript-required banner; results may be incomplete",
			zap.String("url", sourceURL))
	}
	p := newPage(body, e.base)
	for _, h := range detailHeuristics {
		domains := h.fn(p)
		if len(domains) == 0 {
			continue
		}
		metrics.ObserveExtraction("detail", h.name)
		e.logger.Debug("Detail heuristic matched",
			zap.String("heuristic", h.name),
			zap.String("url", sourceURL),
			zap.Int("domains", len(domains)),
		)
		records := make([]crawler.DomainRecord, 0, len(domains))
		for _, d := range domains {
			records = append(records, crawler.DomainRecord{Domain: d, SourceURL: sourceURL})
		}
		return records
	}
	metrics.ObserveExtraction("detail", "none")
	return nil
}
