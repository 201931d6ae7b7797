package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://HackerOne.com/opportunities/all", "hackerone.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "localhost:8000", "localhost"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if fetchAttemptsTotal == nil || extractionTotal == nil || checkpointsTotal == nil || domainsGauge == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveHelpers(t *testing.T) {
	Init()
	before := testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues("plain-http", "success"))
	ObserveFetch("plain-http", "success", 120*time.Millisecond)
	if got := testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues("plain-http", "success")); got != before+1 {
		t.Errorf("expected fetch attempts to grow by one, got %f -> %f", before, got)
	}

	ObserveExtraction("detail", "data-qa")
	if got := testutil.ToFloat64(extractionTotal.WithLabelValues("detail", "data-qa")); got < 1 {
		t.Errorf("expected extraction counter to be observed, got %f", got)
	}

	SetDomains(42)
	if got := testutil.ToFloat64(domainsGauge); got != 42 {
		t.Errorf("expected domains gauge 42, got %f", got)
	}

	ObserveCheckpoint("ok")
	if got := testutil.ToFloat64(checkpointsTotal.WithLabelValues("ok")); got < 1 {
		t.Errorf("expected checkpoint counter to be observed, got %f", got)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://hackerone.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
