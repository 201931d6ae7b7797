package crawler

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var invalidDumpChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// DebugDumper writes raw listing bodies to fixed per-backend files so the last
// response of each backend can be inspected offline. Writes are best-effort.
type DebugDumper struct {
	store  BlobStore
	logger *zap.Logger
}

// NewDebugDumper wraps store. A nil store disables dumping.
func NewDebugDumper(store BlobStore, logger *zap.Logger) *DebugDumper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DebugDumper{store: store, logger: logger}
}

// Dump overwrites the dump file for content.Backend with content.Body.
func (d *DebugDumper) Dump(ctx context.Context, content Content) {
	if d == nil || d.store == nil {
		return
	}
	name := DumpName(content.Backend, content.Format)
	uri, err := d.store.PutObject(ctx, name, dumpContentType(content.Format), strings.NewReader(content.Body))
	if err != nil {
		d.logger.Warn("Failed to write debug dump",
			zap.String("backend", content.Backend),
			zap.String("url", content.URL),
			zap.Error(err),
		)
		return
	}
	d.logger.Debug("Debug dump written", zap.String("uri", uri), zap.Int("bytes", len(content.Body)))
}

// DumpName returns the fixed file name used for a backend's listing dump.
func DumpName(backend string, format ContentFormat) string {
	name := invalidDumpChars.ReplaceAllString(strings.ToLower(backend), "_")
	if name == "" {
		name = "unknown"
	}
	ext := ".html"
	if format == FormatMarkdown {
		ext = ".md"
	}
	return "listing_" + name + ext
}

func dumpContentType(format ContentFormat) string {
	if format == FormatMarkdown {
		return "text/markdown; charset=utf-8"
	}
	return "text/html; charset=utf-8"
}
