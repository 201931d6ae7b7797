package crawler

import (
	"context"
	"io"
	"time"
)

// Backend turns a URL into page content with a single attempt. Retries,
// backoff, and politeness are layered on top by PolicyFetcher.
type Backend interface {
	Name() string
	Fetch(ctx context.Context, rawURL string) (Content, error)
}

// Fetcher returns page content for a URL using up to maxRetries attempts.
// A returned error means no content could be obtained.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, maxRetries int) (Content, error)
}

// Extractor turns page bodies into program links or domain records.
type Extractor interface {
	ProgramLinks(body string) []string
	Domains(body string, sourceURL string) []DomainRecord
}

// DomainStore persists and restores a DomainTable.
type DomainStore interface {
	Save(table *DomainTable, path string) error
	Load(path string) (*DomainTable, error)
}

// Exporter receives the final table after the output file is written.
type Exporter interface {
	Name() string
	Export(ctx context.Context, runID string, table *DomainTable) error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Waiter blocks until a request to rawURL may proceed.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Pauser sleeps for delay unless ctx ends first.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
