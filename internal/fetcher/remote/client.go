// Package remote fetches pages through a remote browser automation proxy
// that exposes tools over a JSON RPC endpoint.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	// ErrBadResponse marks a reply that is not a usable tool result.
	ErrBadResponse = errors.New("remote: bad response")
	// ErrUnreachable is returned by Dial when nothing answers on host:port.
	ErrUnreachable = errors.New("remote: unreachable")
)

const defaultDialTimeout = 3 * time.Second

// Config controls the RPC client.
type Config struct {
	Host    string
	Port    int
	Timeout time.Duration
	// DialTimeout bounds the reachability check done by Dial.
	DialTimeout time.Duration
}

// Client calls tools on the automation proxy.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

type toolCall struct {
	Name      string        `json:"name"`
	Arguments toolArguments `json:"arguments"`
}

type toolArguments struct {
	ServerName string         `json:"server_name"`
	ToolName   string         `json:"tool_name"`
	Args       map[string]any `json:"args"`
}

// NewClient builds a client for http://host:port.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("remote host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("remote port %d out of range", cfg.Port)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL("http://" + cfg.Host + ":" + strconv.Itoa(cfg.Port)).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		logger.Debug("remote tool call",
			zap.Int("status", res.StatusCode()),
			zap.Duration("duration", res.Time()),
		)
		return nil
	})
	return &Client{http: client, logger: logger}, nil
}

// Dial builds a client and checks that the automation proxy answers HTTP.
// Any status counts as reachable; only a transport failure is rejected.
func Dial(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	c, err := NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := c.http.R().SetContext(pingCtx).Get("/"); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, c.http.BaseURL, err)
	}
	return c, nil
}

// Call runs tool on server and returns the decoded JSON object.
func (c *Client) Call(ctx context.Context, server, tool string, args map[string]any) (map[string]any, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(toolCall{
			Name: "run_mcp",
			Arguments: toolArguments{
				ServerName: server,
				ToolName:   tool,
				Args:       args,
			},
		}).
		Post("/execute")
	if err != nil {
		return nil, fmt.Errorf("call %s/%s: %w", server, tool, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: %s/%s returned status %d", ErrBadResponse, server, tool, res.StatusCode())
	}
	var out map[string]any
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return nil, fmt.Errorf("%w: decode %s/%s: %v", ErrBadResponse, server, tool, err)
	}
	return out, nil
}
