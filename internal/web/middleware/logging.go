// Package middleware provides HTTP middleware for the csvload server.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/csvload/internal/logging"
	"github.com/JonMunkholm/csvload/internal/metrics"
)

// Logger logs one structured line per request and records its latency.
//
// Entries carry the chi request ID through logging.FromContext. Requests to
// /healthz and /metrics are logged at debug level so health checks do not
// flood the log.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(ww.status)).Observe(duration.Seconds())

		logger := logging.FromContext(r.Context())
		log := logger.Info
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			log = logger.Debug
		}

		// RemoteAddr already reflects X-Real-IP via chi's RealIP middleware.
		log("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"duration_ms", duration.Milliseconds(),
			"ip", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
