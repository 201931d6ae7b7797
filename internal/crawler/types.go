package crawler

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// ContentFormat describes how a backend encoded the page body.
type ContentFormat string

// Content formats produced by fetch backends.
const (
	FormatHTML     ContentFormat = "html"
	FormatMarkdown ContentFormat = "markdown"
)

// Content is the raw page body returned by a backend.
type Content struct {
	URL      string
	Body     string
	Format   ContentFormat
	Backend  string
	Duration time.Duration
}

// Empty reports whether the body carries anything besides whitespace.
func (c Content) Empty() bool {
	return strings.TrimSpace(c.Body) == ""
}

// DomainRecord pairs an in-scope domain with the program page it was found on.
type DomainRecord struct {
	Domain    string
	SourceURL string
}

// Valid reports whether the record names a plausible domain.
func (r DomainRecord) Valid() bool {
	return r.Domain != "" && strings.Contains(r.Domain, ".")
}

// DomainTable maps each unique domain to the last program URL it was seen on.
// It only grows; merging an existing domain replaces its source URL.
type DomainTable struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewDomainTable returns an empty table.
func NewDomainTable() *DomainTable {
	return &DomainTable{entries: make(map[string]string)}
}

// Merge inserts or overwrites records and returns how many domains were new.
// Records that fail Valid are skipped.
func (t *DomainTable) Merge(records ...DomainRecord) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	added := 0
	for _, rec := range records {
		if !rec.Valid() {
			continue
		}
		if _, ok := t.entries[rec.Domain]; !ok {
			added++
		}
		t.entries[rec.Domain] = rec.SourceURL
	}
	return added
}

// Lookup returns the source URL recorded for domain.
func (t *DomainTable) Lookup(domain string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	src, ok := t.entries[domain]
	return src, ok
}

// Len returns the number of unique domains.
func (t *DomainTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Records returns a snapshot sorted by domain ascending.
func (t *DomainTable) Records() []DomainRecord {
	t.mu.RLock()
	out := make([]DomainRecord, 0, len(t.entries))
	for domain, src := range t.entries {
		out = append(out, DomainRecord{Domain: domain, SourceURL: src})
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}

// Phase names the orchestrator stage reported in progress snapshots.
type Phase string

// Orchestrator phases.
const (
	PhaseIdle     Phase = "idle"
	PhaseListing  Phase = "listing"
	PhaseDetails  Phase = "details"
	PhaseSaving   Phase = "saving"
	PhaseFinished Phase = "finished"
)

// Progress is a read-only view of the orchestrator state.
type Progress struct {
	RunID             string    `json:"run_id"`
	Phase             Phase     `json:"phase"`
	ListingPage       int       `json:"listing_page"`
	ProgramsFound     int       `json:"programs_found"`
	ProgramsProcessed int       `json:"programs_processed"`
	Domains           int       `json:"domains"`
	StartedAt         time.Time `json:"started_at"`
}
