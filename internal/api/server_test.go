package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/bounty-scope-crawler/internal/crawler"
)

type fakeState struct {
	progress crawler.Progress
	table    *crawler.DomainTable
}

func (f *fakeState) Progress() crawler.Progress { return f.progress }
func (f *fakeState) Table() *crawler.DomainTable { return f.table }

func newFakeState() *fakeState {
	table := crawler.NewDomainTable()
	table.Merge(
		crawler.DomainRecord{Domain: "c.example.com", SourceURL: "https://site/c"},
		crawler.DomainRecord{Domain: "a.example.com", SourceURL: "https://site/a"},
		crawler.DomainRecord{Domain: "b.example.com", SourceURL: "https://site/b"},
	)
	return &fakeState{
		progress: crawler.Progress{
			RunID:             "run-1",
			Phase:             crawler.PhaseDetails,
			ProgramsFound:     12,
			ProgramsProcessed: 4,
			Domains:           3,
			StartedAt:         time.Unix(1700000000, 0).UTC(),
		},
		table: table,
	}
}

func serve(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := serve(t, NewServer(nil, nil), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	t.Parallel()

	s := NewServer(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestReadyzAndProgressWithoutState(t *testing.T) {
	t.Parallel()

	s := NewServer(nil, zap.NewNop())
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, s, "/readyz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, s, "/v1/progress").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, s, "/v1/domains").Code)
}

func TestProgress(t *testing.T) {
	t.Parallel()

	s := NewServer(newFakeState(), nil)
	assert.Equal(t, http.StatusOK, serve(t, s, "/readyz").Code)

	rec := serve(t, s, "/v1/progress")
	require.Equal(t, http.StatusOK, rec.Code)
	var got crawler.Progress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, crawler.PhaseDetails, got.Phase)
	assert.Equal(t, 4, got.ProgramsProcessed)
}

func TestDomainsPaging(t *testing.T) {
	t.Parallel()

	s := NewServer(newFakeState(), nil)
	tests := []struct {
		name    string
		target  string
		code    int
		domains []string
	}{
		{name: "all", target: "/v1/domains", code: http.StatusOK, domains: []string{"a.example.com", "b.example.com", "c.example.com"}},
		{name: "page", target: "/v1/domains?limit=1&offset=1", code: http.StatusOK, domains: []string{"b.example.com"}},
		{name: "past end", target: "/v1/domains?offset=10", code: http.StatusOK, domains: []string{}},
		{name: "bad limit", target: "/v1/domains?limit=0", code: http.StatusBadRequest},
		{name: "bad offset", target: "/v1/domains?offset=-1", code: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, s, tc.target)
			require.Equal(t, tc.code, rec.Code)
			if tc.code != http.StatusOK {
				return
			}
			var body struct {
				Total   int         `json:"total"`
				Domains []domainDTO `json:"domains"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, 3, body.Total)
			got := make([]string, 0, len(body.Domains))
			for _, d := range body.Domains {
				got = append(got, d.Domain)
			}
			assert.Equal(t, tc.domains, got)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := NewServer(nil, nil)
	serve(t, s, "/healthz")
	rec := serve(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scope_status_http_requests_total")
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	s := NewServer(nil, nil)
	h := s.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewServer(newFakeState(), nil).Serve(ctx, ln)
	}()

	res, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
