// Package postgres mirrors crawl results into Postgres.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/bounty-scope-crawler/internal/crawler"
)

const defaultTable = "scope_domains"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MirrorConfig controls the Postgres connection pool used by DomainMirror.
type MirrorConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// DomainMirror upserts the final domain table into Postgres. It implements
// crawler.Exporter.
type DomainMirror struct {
	pool  execCloser
	table string
	clock crawler.Clock
}

// NewDomainMirror connects to Postgres using cfg.
func NewDomainMirror(ctx context.Context, cfg MirrorConfig, clock crawler.Clock) (*DomainMirror, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newDomainMirror(pool, table, clock), nil
}

// NewDomainMirrorWithPool builds a mirror over an existing pool.
func NewDomainMirrorWithPool(pool execCloser, table string, clock crawler.Clock) (*DomainMirror, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return newDomainMirror(pool, name, clock), nil
}

func newDomainMirror(pool execCloser, table string, clock crawler.Clock) *DomainMirror {
	if clock == nil {
		clock = crawler.SystemClock{}
	}
	return &DomainMirror{pool: pool, table: table, clock: clock}
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Name implements crawler.Exporter.
func (m *DomainMirror) Name() string {
	return "postgres"
}

// Close releases the underlying pool resources.
func (m *DomainMirror) Close() {
	if m == nil || m.pool == nil {
		return
	}
	m.pool.Close()
}

// EnsureTable creates the mirror table when it does not exist.
func (m *DomainMirror) EnsureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	domain     TEXT PRIMARY KEY,
	source_url TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	seen_at    TIMESTAMPTZ NOT NULL
)`, m.table)
	if _, err := m.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", m.table, err)
	}
	return nil
}

// Export upserts every record in table, tagging rows with runID.
func (m *DomainMirror) Export(ctx context.Context, runID string, table *crawler.DomainTable) error {
	if m == nil || m.pool == nil {
		return fmt.Errorf("domain mirror is not configured")
	}
	if table == nil {
		return nil
	}
	query := fmt.Sprintf(`
INSERT INTO %s (domain, source_url, run_id, seen_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (domain) DO UPDATE
SET source_url = EXCLUDED.source_url,
	run_id = EXCLUDED.run_id,
	seen_at = EXCLUDED.seen_at`, m.table)

	seenAt := m.clock.Now().UTC()
	for _, rec := range table.Records() {
		if _, err := m.pool.Exec(ctx, query, rec.Domain, rec.SourceURL, runID, seenAt); err != nil {
			return fmt.Errorf("upsert %s: %w", rec.Domain, err)
		}
	}
	return nil
}
