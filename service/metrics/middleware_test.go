package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/transactions/{digest}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	handler := HTTPMetricsMiddleware(m)(mux)

	for _, digest := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/transactions/"+digest, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.httpRequestsTotal.WithLabelValues("/api/v1/transactions/{digest}", "GET", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.httpRequestsTotal.WithLabelValues("unmatched", "GET", "4xx")))
}

func TestHTTPMetricsMiddleware_NilMetrics(t *testing.T) {
	handler := HTTPMetricsMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestStatusCodeToString(t *testing.T) {
	assert.Equal(t, "2xx", statusCodeToString(204))
	assert.Equal(t, "3xx", statusCodeToString(302))
	assert.Equal(t, "4xx", statusCodeToString(429))
	assert.Equal(t, "5xx", statusCodeToString(504))
	assert.Equal(t, "unknown", statusCodeToString(0))
}
