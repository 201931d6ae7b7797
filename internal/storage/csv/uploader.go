package csvstore

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/JakeFAU/bounty-scope-crawler/internal/crawler"
)

// Uploader renders the final table as CSV and hands it to a blob store
// under <prefix>/<run_id>.csv.
type Uploader struct {
	name   string
	blobs  crawler.BlobStore
	prefix string
}

// NewUploader returns an exporter writing through blobs.
func NewUploader(name string, blobs crawler.BlobStore, prefix string) (*Uploader, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if name == "" {
		name = "csv-upload"
	}
	return &Uploader{name: name, blobs: blobs, prefix: strings.Trim(prefix, "/")}, nil
}

// Name implements crawler.Exporter.
func (u *Uploader) Name() string {
	return u.name
}

// ObjectPath returns the object key used for runID.
func (u *Uploader) ObjectPath(runID string) string {
	return path.Join(u.prefix, runID+".csv")
}

// Export implements crawler.Exporter.
func (u *Uploader) Export(ctx context.Context, runID string, table *crawler.DomainTable) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	var buf bytes.Buffer
	if err := writeTable(&buf, table); err != nil {
		return err
	}
	if _, err := u.blobs.PutObject(ctx, u.ObjectPath(runID), "text/csv", &buf); err != nil {
		return fmt.Errorf("upload %s: %w", u.ObjectPath(runID), err)
	}
	return nil
}
