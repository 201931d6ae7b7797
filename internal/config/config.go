// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/bounty-scope-crawler/internal/crawler"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Site     SiteConfig     `mapstructure:"site"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	Login    LoginConfig    `mapstructure:"login"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SiteConfig locates the program catalog.
type SiteConfig struct {
	BaseURL        string   `mapstructure:"base_url"`
	ListingPath    string   `mapstructure:"listing_path"`
	ListingMarkers []string `mapstructure:"listing_markers"`
}

// CrawlerConfig governs the crawl loop, retries, and persistence paths.
type CrawlerConfig struct {
	MaxRetries        int     `mapstructure:"max_retries"`
	DelayMinSeconds   float64 `mapstructure:"delay_min_seconds"`
	DelayMaxSeconds   float64 `mapstructure:"delay_max_seconds"`
	ProgressInterval  int     `mapstructure:"progress_interval"`
	MaxListingPages   int     `mapstructure:"max_listing_pages"`
	DedupeLinks       bool    `mapstructure:"dedupe_links"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Output            string  `mapstructure:"output"`
	CheckpointSuffix  string  `mapstructure:"checkpoint_suffix"`
	DebugDir          string  `mapstructure:"debug_dir"`
	DebugDumps        bool    `mapstructure:"debug_dumps"`
}

// HTTPConfig configures the plain HTTP backend.
type HTTPConfig struct {
	Enabled             bool     `mapstructure:"enabled"`
	TimeoutSeconds      int      `mapstructure:"timeout_seconds"`
	RetryTimeoutSeconds int      `mapstructure:"retry_timeout_seconds"`
	UserAgents          []string `mapstructure:"user_agents"`
	CloudflareBypass    bool     `mapstructure:"cloudflare_bypass"`
}

// HeadlessConfig configures the local browser backend.
type HeadlessConfig struct {
	Enabled            bool    `mapstructure:"enabled"`
	ChromePath         string  `mapstructure:"chrome_path"`
	Headless           bool    `mapstructure:"headless"`
	NavTimeoutSeconds  int     `mapstructure:"nav_timeout_seconds"`
	SettleMinSeconds   float64 `mapstructure:"settle_min_seconds"`
	SettleMaxSeconds   float64 `mapstructure:"settle_max_seconds"`
	ScrollPasses       int     `mapstructure:"scroll_passes"`
	ScrollPauseSeconds float64 `mapstructure:"scroll_pause_seconds"`
	ViewportWidth      int     `mapstructure:"viewport_width"`
	ViewportHeight     int     `mapstructure:"viewport_height"`
}

// RemoteConfig configures the remote automation proxy backends.
type RemoteConfig struct {
	BrowserEnabled bool   `mapstructure:"browser_enabled"`
	ScrapeEnabled  bool   `mapstructure:"scrape_enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	BrowserServer  string `mapstructure:"browser_server"`
	ScrapeServer   string `mapstructure:"scrape_server"`
}

// ProxyConfig controls the outbound proxy pool.
type ProxyConfig struct {
	Enabled                bool   `mapstructure:"enabled"`
	File                   string `mapstructure:"file"`
	Validate               bool   `mapstructure:"validate"`
	ValidateURL            string `mapstructure:"validate_url"`
	ValidateTimeoutSeconds int    `mapstructure:"validate_timeout_seconds"`
}

// LoginConfig holds optional site credentials.
type LoginConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// StorageConfig sets where the final CSV is uploaded.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// DBConfig controls the optional Postgres mirror.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ServerConfig controls the status server. Port 0 disables it.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.base_url", "https://hackerone.com")
	v.SetDefault("site.listing_path", "/opportunities/all")
	v.SetDefault("site.listing_markers", []string{"/opportunities/all", "/bug-bounty-programs"})
	v.SetDefault("crawler.max_retries", 3)
	v.SetDefault("crawler.delay_min_seconds", 1.0)
	v.SetDefault("crawler.delay_max_seconds", 3.0)
	v.SetDefault("crawler.progress_interval", 10)
	v.SetDefault("crawler.max_listing_pages", 500)
	v.SetDefault("crawler.dedupe_links", false)
	v.SetDefault("crawler.requests_per_second", 0.0)
	v.SetDefault("crawler.output", "hackerone_domains.csv")
	v.SetDefault("crawler.checkpoint_suffix", ".tmp")
	v.SetDefault("crawler.debug_dir", ".")
	v.SetDefault("crawler.debug_dumps", true)
	v.SetDefault("http.enabled", true)
	v.SetDefault("http.timeout_seconds", 60)
	v.SetDefault("http.retry_timeout_seconds", 90)
	v.SetDefault("http.cloudflare_bypass", false)
	v.SetDefault("headless.enabled", true)
	v.SetDefault("headless.headless", true)
	v.SetDefault("headless.nav_timeout_seconds", 60)
	v.SetDefault("headless.settle_min_seconds", 3.0)
	v.SetDefault("headless.settle_max_seconds", 8.0)
	v.SetDefault("headless.scroll_passes", 3)
	v.SetDefault("headless.scroll_pause_seconds", 2.0)
	v.SetDefault("headless.viewport_width", 1920)
	v.SetDefault("headless.viewport_height", 1080)
	v.SetDefault("remote.browser_enabled", false)
	v.SetDefault("remote.scrape_enabled", false)
	v.SetDefault("remote.host", "localhost")
	v.SetDefault("remote.port", 8000)
	v.SetDefault("remote.timeout_seconds", 90)
	v.SetDefault("remote.browser_server", "mcp.config.usrlocalmcp.Playwright")
	v.SetDefault("remote.scrape_server", "mcp.config.usrlocalmcp.Firecrawl")
	v.SetDefault("proxy.enabled", false)
	v.SetDefault("proxy.validate", true)
	v.SetDefault("proxy.validate_url", "https://www.hackerone.com")
	v.SetDefault("proxy.validate_timeout_seconds", 10)
	v.SetDefault("login.enabled", false)
	v.SetDefault("db.table", "scope_domains")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("server.port", 0)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	base, err := url.Parse(c.Site.BaseURL)
	if err != nil || !base.IsAbs() || base.Host == "" {
		return fmt.Errorf("site.base_url must be an absolute URL, got %q", c.Site.BaseURL)
	}
	if c.Crawler.MaxRetries <= 0 {
		return fmt.Errorf("crawler.max_retries must be > 0")
	}
	if c.Crawler.ProgressInterval <= 0 {
		return fmt.Errorf("crawler.progress_interval must be > 0")
	}
	if c.Crawler.DelayMinSeconds < 0 || c.Crawler.DelayMaxSeconds < c.Crawler.DelayMinSeconds {
		return fmt.Errorf("crawler.delay_min_seconds must be >= 0 and <= crawler.delay_max_seconds")
	}
	if c.Crawler.Output == "" {
		return fmt.Errorf("crawler.output is required")
	}
	if c.Crawler.CheckpointSuffix == "" {
		return fmt.Errorf("crawler.checkpoint_suffix is required")
	}
	if c.HTTP.Enabled && c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.SettleMaxSeconds < c.Headless.SettleMinSeconds {
		return fmt.Errorf("headless.settle_max_seconds must be >= headless.settle_min_seconds")
	}
	if (c.Remote.BrowserEnabled || c.Remote.ScrapeEnabled) && (c.Remote.Host == "" || c.Remote.Port <= 0) {
		return fmt.Errorf("remote.host and remote.port must be set when a remote backend is enabled")
	}
	if c.Proxy.Enabled && c.Proxy.File == "" {
		return fmt.Errorf("proxy.file must be set when proxies are enabled")
	}
	if c.Login.Enabled && (c.Login.Username == "" || c.Login.Password == "") {
		return fmt.Errorf("login.username and login.password must be set when login is enabled")
	}
	if c.Server.Port < 0 {
		return fmt.Errorf("server.port must be >= 0")
	}
	if !c.HTTP.Enabled && !c.Headless.Enabled && !c.Remote.BrowserEnabled && !c.Remote.ScrapeEnabled {
		return fmt.Errorf("at least one fetch backend must be enabled")
	}
	return nil
}

// ListingURL joins the base URL and the listing path.
func (c Config) ListingURL() string {
	return strings.TrimRight(c.Site.BaseURL, "/") + "/" + strings.TrimLeft(c.Site.ListingPath, "/")
}

// EngineConfig converts the crawler section into engine settings.
func (c Config) EngineConfig() crawler.Config {
	return crawler.Config{
		ListingURL:       c.ListingURL(),
		MaxRetries:       c.Crawler.MaxRetries,
		ProgressInterval: c.Crawler.ProgressInterval,
		MaxListingPages:  c.Crawler.MaxListingPages,
		DedupeLinks:      c.Crawler.DedupeLinks,
		OutputPath:       c.Crawler.Output,
		CheckpointSuffix: c.Crawler.CheckpointSuffix,
	}
}

// PolicyConfig converts the politeness settings shared by every backend.
func (c Config) PolicyConfig() crawler.PolicyConfig {
	return crawler.PolicyConfig{
		DelayMin:       Seconds(c.Crawler.DelayMinSeconds),
		DelayMax:       Seconds(c.Crawler.DelayMaxSeconds),
		ListingMarkers: c.Site.ListingMarkers,
	}
}

// Seconds converts a fractional seconds setting into a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
