// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package portal

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stbportal_portal_request_total",
			Help: "Total number of portal HTTP request attempts",
		},
		[]string{"route", "status_class"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stbportal_portal_request_duration_seconds",
			Help:    "Duration of portal HTTP requests per attempt",
			Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 8),
		},
		[]string{"route", "status_class"},
	)
	requestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stbportal_portal_request_errors_total",
			Help: "Number of portal request attempts that failed at the transport or status level",
		},
		[]string{"route", "status_class"},
	)
	callOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stbportal_portal_call_outcome_total",
			Help: "Classified outcome of decoded portal calls",
		},
		[]string{"route", "class"},
	)
	retryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stbportal_portal_retries_total",
			Help: "Number of retries performed by the bounded retry wrapper",
		},
		[]string{"class"},
	)
	handshakeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stbportal_portal_handshake_total",
			Help: "Handshake attempts by result",
		},
		[]string{"result"},
	)
)

func statusClass(err error, status int) string {
	if err != nil {
		return "error"
	}
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status > 0:
		return "1xx"
	}
	return "unknown"
}

func recordAttemptMetrics(route string, status int, duration time.Duration, err error) {
	class := statusClass(err, status)
	requestTotal.WithLabelValues(route, class).Inc()
	requestDuration.WithLabelValues(route, class).Observe(duration.Seconds())
	if class != "2xx" {
		requestErrors.WithLabelValues(route, class).Inc()
	}
}

func observeOutcome(route, class string) {
	callOutcomes.WithLabelValues(route, class).Inc()
}

func recordRetry(err error) {
	retryTotal.WithLabelValues(Class(err)).Inc()
}

func recordHandshake(err error) {
	handshakeTotal.WithLabelValues(Class(err)).Inc()
}
