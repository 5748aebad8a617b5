package metrics

import (
	"net/http"
	"time"
)

// HTTPMetricsMiddleware records request metrics for every request served by
// next. Requests are labeled by the ServeMux route pattern that matched them,
// so path parameters such as digests never become label values.
func HTTPMetricsMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			if m != nil {
				m.RecordHTTPRequest(routeLabel(r), r.Method, wrapped.statusCode, time.Since(start).Seconds())
			}
		})
	}
}

// routeLabel returns the matched pattern without its method prefix.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	p := r.Pattern
	for i := 0; i < len(p); i++ {
		if p[i] == ' ' {
			return p[i+1:]
		}
	}
	return p
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code and calls the underlying WriteHeader.
func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
