// Package api hosts the read-only status server that runs beside a crawl.
// Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/progress for the current orchestrator snapshot.
//   - GET /v1/domains?limit=&offset= for the domains collected so far.
package api
