package remote

import (
	"context"
	"fmt"

	"github.com/JakeFAU/bounty-scope-crawler/internal/crawler"
)

// Default server and tool identifiers on the automation proxy.
const (
	DefaultBrowserServer = "mcp.config.usrlocalmcp.Playwright"
	DefaultScrapeServer  = "mcp.config.usrlocalmcp.Firecrawl"

	browserTool = "navigate_and_get_content"
	scrapeTool  = "firecrawl_scrape"
)

// Backend adapts one proxy tool to crawler.Backend.
type Backend struct {
	name   string
	client *Client
	server string
	tool   string
	field  string
	format crawler.ContentFormat
	args   func(rawURL string) map[string]any
}

// NewBrowserBackend drives a remote browser and returns rendered HTML.
func NewBrowserBackend(client *Client, server string) *Backend {
	if server == "" {
		server = DefaultBrowserServer
	}
	return &Backend{
		name:   "remote-browser",
		client: client,
		server: server,
		tool:   browserTool,
		field:  "content",
		format: crawler.FormatHTML,
		args: func(rawURL string) map[string]any {
			return map[string]any{
				"url":        rawURL,
				"wait_until": "networkidle",
				"timeout":    60000,
			}
		},
	}
}

// NewScrapeBackend uses the remote scraper and returns markdown.
func NewScrapeBackend(client *Client, server string) *Backend {
	if server == "" {
		server = DefaultScrapeServer
	}
	return &Backend{
		name:   "remote-scrape",
		client: client,
		server: server,
		tool:   scrapeTool,
		field:  "markdown",
		format: crawler.FormatMarkdown,
		args: func(rawURL string) map[string]any {
			return map[string]any{
				"url":             rawURL,
				"formats":         []string{"markdown"},
				"onlyMainContent": true,
			}
		},
	}
}

// Name implements crawler.Backend.
func (b *Backend) Name() string {
	return b.name
}

// Fetch implements crawler.Backend.
func (b *Backend) Fetch(ctx context.Context, rawURL string) (crawler.Content, error) {
	result, err := b.client.Call(ctx, b.server, b.tool, b.args(rawURL))
	if err != nil {
		return crawler.Content{}, err
	}
	body, ok := result[b.field].(string)
	if !ok || body == "" {
		return crawler.Content{}, fmt.Errorf("%w: %s missing %q", ErrBadResponse, b.tool, b.field)
	}
	return crawler.Content{
		URL:     rawURL,
		Body:    body,
		Format:  b.format,
		Backend: b.name,
	}, nil
}
