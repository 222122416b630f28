package middleware

import (
	"net/http"
	"strconv"
	"time"

	"resttimer/internal/metrics"
)

// Instrument records request latency by method and status code.
func Instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := newStatusWriter(w)

			next.ServeHTTP(sw, r)

			m.ObserveRequest(r.Method, strconv.Itoa(sw.status), time.Since(start))
		})
	}
}
