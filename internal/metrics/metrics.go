// Package metrics exposes Prometheus collectors for the scope crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchAttemptsTotal         *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	extractionTotal            *prometheus.CounterVec
	programsProcessedTotal     prometheus.Counter
	checkpointsTotal           *prometheus.CounterVec
	domainsGauge               prometheus.Gauge
	rateLimitDelaySeconds      *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scope_fetch_attempts_total",
				Help: "Fetch attempts, labeled by backend and outcome.",
			},
			[]string{"backend", "outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scope_fetch_duration_seconds",
				Help:    "Histogram of single fetch attempt latencies, labeled by backend.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 90},
			},
			[]string{"backend"},
		)

		extractionTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scope_extraction_total",
				Help: "Extraction results, labeled by page kind and the heuristic that matched.",
			},
			[]string{"kind", "heuristic"},
		)

		programsProcessedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scope_programs_processed_total",
				Help: "Total number of program detail pages processed.",
			},
		)

		checkpointsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scope_checkpoints_total",
				Help: "Checkpoint writes, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		domainsGauge = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scope_domains",
				Help: "Number of unique domains currently held in the domain table.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scope_rate_limit_delay_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scope_status_http_requests_total",
				Help: "Status server requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scope_status_http_request_duration_seconds",
				Help:    "Histogram of status server latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one fetch attempt for backend.
func ObserveFetch(backend, outcome string, duration time.Duration) {
	Init()
	fetchAttemptsTotal.WithLabelValues(backend, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(backend).Observe(duration.Seconds())
}

// ObserveExtraction counts which heuristic produced a result for a page kind.
// heuristic is "none" when nothing matched.
func ObserveExtraction(kind, heuristic string) {
	Init()
	extractionTotal.WithLabelValues(kind, heuristic).Inc()
}

// IncProgramsProcessed increments the processed program counter.
func IncProgramsProcessed() {
	Init()
	programsProcessedTotal.Inc()
}

// ObserveCheckpoint records a checkpoint write outcome.
func ObserveCheckpoint(outcome string) {
	Init()
	checkpointsTotal.WithLabelValues(outcome).Inc()
}

// SetDomains publishes the current domain table size.
func SetDomains(n int) {
	Init()
	domainsGauge.Set(float64(n))
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the status server request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
