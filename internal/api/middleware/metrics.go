// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stbportal_http_request_duration_seconds",
		Help:    "Control API request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stbportal_http_requests_in_flight",
		Help: "Control API requests currently being served",
	})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stbportal_http_response_size_bytes",
		Help:    "Control API response sizes in bytes",
		Buckets: prometheus.ExponentialBuckets(100, 10, 8),
	}, []string{"method", "path"})
)

// Metrics records request latency and response size per route pattern.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			sw := wrap(w)
			next.ServeHTTP(sw, r)

			path := routeOf(r)
			httpRequestDuration.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Observe(time.Since(start).Seconds())
			httpResponseSize.WithLabelValues(r.Method, path).Observe(float64(sw.bytes))
		})
	}
}
