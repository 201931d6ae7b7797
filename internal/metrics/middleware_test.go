package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsByStatus(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/v1/progress", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	r.Get("/v1/domains/{domain}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	cases := []struct {
		path string
		code string
	}{
		{"/v1/progress", "200"},
		{"/v1/domains/api.acme.com", "404"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, tc.code))

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, tc.code)))
			assert.Positive(t, testutil.CollectAndCount(httpRequestDurationSeconds))
		})
	}
}

func TestResponseWriterRecordsStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := &responseWriter{ResponseWriter: rec, status: http.StatusOK}
	ww.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, ww.status)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
