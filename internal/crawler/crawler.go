package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/bounty-scope-crawler/internal/metrics"
)

const defaultMaxListingPages = 500

// Config holds the settings for a crawl run.
// This struct is decoupled from Viper, making the orchestrator and its
// configuration easier to test independently.
type Config struct {
	ListingURL       string
	MaxRetries       int
	ProgressInterval int
	MaxListingPages  int
	DedupeLinks      bool
	OutputPath       string
	CheckpointSuffix string
}

// Validate ensures the config can drive a run.
func (c Config) Validate() error {
	if c.ListingURL == "" {
		return fmt.Errorf("listing url is required")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if c.CheckpointSuffix == "" {
		return fmt.Errorf("checkpoint suffix is required")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be > 0")
	}
	if c.ProgressInterval <= 0 {
		return fmt.Errorf("progress interval must be > 0")
	}
	return nil
}

// CheckpointPath returns the path of the progress snapshot.
func (c Config) CheckpointPath() string {
	return c.OutputPath + c.CheckpointSuffix
}

// Engine drives listing pagination, program processing, and checkpointing.
type Engine struct {
	cfg       Config
	fetcher   Fetcher
	extractor Extractor
	store     DomainStore
	exporters []Exporter
	ids       IDGenerator
	clock     Clock
	logger    *zap.Logger

	table *DomainTable

	mu       sync.RWMutex
	progress Progress
}

// NewEngine wires the orchestrator. exporters, ids, and clock may be nil.
func NewEngine(
	cfg Config,
	fetcher Fetcher,
	extractor Extractor,
	store DomainStore,
	exporters []Exporter,
	ids IDGenerator,
	clock Clock,
	logger *zap.Logger,
) *Engine {
	if cfg.MaxListingPages <= 0 {
		cfg.MaxListingPages = defaultMaxListingPages
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		exporters: exporters,
		ids:       ids,
		clock:     clock,
		logger:    logger,
		table:     NewDomainTable(),
		progress:  Progress{Phase: PhaseIdle},
	}
}

// Table exposes the domain table built by the run.
func (e *Engine) Table() *DomainTable {
	return e.table
}

// Progress returns a snapshot of the run state.
func (e *Engine) Progress() Progress {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.progress
}

// Run executes one full crawl. A canceled ctx stops the loops early, but the
// checkpoint and output are still written before Run returns ctx's error.
func (e *Engine) Run(ctx context.Context) error {
	runID := e.newRunID()
	logger := e.logger.With(zap.String("run_id", runID))
	e.update(func(p *Progress) {
		p.RunID = runID
		p.StartedAt = e.clock.Now()
	})

	e.restore(logger)

	links := e.collectProgramLinks(ctx, logger)
	e.processPrograms(ctx, links, logger)

	saveCtx := context.WithoutCancel(ctx)
	err := e.finish(saveCtx, runID, logger)
	e.update(func(p *Progress) { p.Phase = PhaseFinished })
	if err != nil {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("crawl interrupted: %w", ctxErr)
	}
	return nil
}

func (e *Engine) restore(logger *zap.Logger) {
	path := e.cfg.CheckpointPath()
	loaded, err := e.store.Load(path)
	if err != nil {
		logger.Error("Failed to load checkpoint; starting empty", zap.String("path", path), zap.Error(err))
		return
	}
	if loaded == nil || loaded.Len() == 0 {
		return
	}
	e.table.Merge(loaded.Records()...)
	e.publishDomains()
	logger.Info("Checkpoint restored", zap.String("path", path), zap.Int("domains", e.table.Len()))
}

func (e *Engine) collectProgramLinks(ctx context.Context, logger *zap.Logger) []string {
	e.update(func(p *Progress) { p.Phase = PhaseListing })
	var (
		links   []string
		tracker visitTracker
	)
	if e.cfg.DedupeLinks {
		tracker = newConcurrentVisitTracker()
	}
	for page := 1; ; page++ {
		if page > e.cfg.MaxListingPages {
			logger.Warn("Listing page cap reached; stopping pagination", zap.Int("max_pages", e.cfg.MaxListingPages))
			break
		}
		if ctx.Err() != nil {
			break
		}
		pageURL, err := ListingPageURL(e.cfg.ListingURL, page)
		if err != nil {
			logger.Error("Invalid listing url", zap.Error(err))
			break
		}
		e.update(func(p *Progress) { p.ListingPage = page })

		content, err := e.fetcher.Fetch(ctx, pageURL, e.cfg.MaxRetries)
		if err != nil {
			logger.Warn("Listing fetch failed; stopping pagination", zap.Int("page", page), zap.Error(err))
			break
		}
		found := e.extractor.ProgramLinks(content.Body)
		if len(found) == 0 {
			logger.Info("Listing page had no programs; stopping pagination", zap.Int("page", page))
			break
		}
		links = appendLinks(links, found, tracker)
		e.update(func(p *Progress) { p.ProgramsFound = len(links) })
		logger.Info("Listing page parsed",
			zap.Int("page", page),
			zap.Int("found", len(found)),
			zap.Int("total", len(links)),
		)
	}
	logger.Info("Program discovery finished", zap.Int("programs", len(links)))
	return links
}

func appendLinks(links, found []string, tracker visitTracker) []string {
	for _, link := range found {
		if tracker != nil {
			key, err := NormalizeURL(link)
			if err != nil {
				key = link
			}
			if !tracker.MarkIfNew(key) {
				continue
			}
		}
		links = append(links, link)
	}
	return links
}

func (e *Engine) processPrograms(ctx context.Context, links []string, logger *zap.Logger) {
	e.update(func(p *Progress) { p.Phase = PhaseDetails })
	processed := 0
	for i, link := range links {
		if ctx.Err() != nil {
			logger.Warn("Crawl canceled; skipping remaining programs", zap.Int("remaining", len(links)-i))
			return
		}
		var records []DomainRecord
		content, err := e.fetcher.Fetch(ctx, link, e.cfg.MaxRetries)
		switch {
		case err != nil && ctx.Err() != nil:
			logger.Warn("Crawl canceled; skipping remaining programs", zap.Int("remaining", len(links)-i))
			return
		case err != nil:
			logger.Warn("Program fetch failed", zap.String("url", link), zap.Error(err))
		default:
			records = e.extractor.Domains(content.Body, link)
		}
		added := e.table.Merge(records...)
		processed++
		metrics.IncProgramsProcessed()
		e.publishDomains()
		e.update(func(p *Progress) { p.ProgramsProcessed = processed })
		logger.Info("Program processed",
			zap.String("url", link),
			zap.Int("index", i+1),
			zap.Int("of", len(links)),
			zap.Int("records", len(records)),
			zap.Int("new_domains", added),
		)
		if processed%e.cfg.ProgressInterval == 0 {
			e.saveCheckpoint(logger)
		}
	}
}

func (e *Engine) finish(ctx context.Context, runID string, logger *zap.Logger) error {
	e.update(func(p *Progress) { p.Phase = PhaseSaving })
	e.saveCheckpoint(logger)
	if err := e.store.Save(e.table, e.cfg.OutputPath); err != nil {
		logger.Error("Failed to save output", zap.String("path", e.cfg.OutputPath), zap.Error(err))
		return fmt.Errorf("save output: %w", err)
	}
	logger.Info("Domains saved", zap.String("path", e.cfg.OutputPath), zap.Int("domains", e.table.Len()))
	for _, exp := range e.exporters {
		if exp == nil {
			continue
		}
		if err := exp.Export(ctx, runID, e.table); err != nil {
			logger.Error("Export failed", zap.String("exporter", exp.Name()), zap.Error(err))
			continue
		}
		logger.Info("Export finished", zap.String("exporter", exp.Name()))
	}
	return nil
}

func (e *Engine) saveCheckpoint(logger *zap.Logger) {
	path := e.cfg.CheckpointPath()
	if err := e.store.Save(e.table, path); err != nil {
		metrics.ObserveCheckpoint("error")
		logger.Error("Failed to save checkpoint", zap.String("path", path), zap.Error(err))
		return
	}
	metrics.ObserveCheckpoint("ok")
	logger.Info("Checkpoint saved", zap.String("path", path), zap.Int("domains", e.table.Len()))
}

func (e *Engine) newRunID() string {
	if e.ids == nil {
		return "local"
	}
	id, err := e.ids.NewID()
	if err != nil {
		e.logger.Warn("Failed to generate run id", zap.Error(err))
		return "local"
	}
	return id
}

func (e *Engine) publishDomains() {
	n := e.table.Len()
	metrics.SetDomains(n)
	e.update(func(p *Progress) { p.Domains = n })
}

func (e *Engine) update(fn func(p *Progress)) {
	e.mu.Lock()
	fn(&e.progress)
	e.mu.Unlock()
}

// SystemClock reports the current UTC time.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
