// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"
	"time"

	stblog "github.com/ManuGH/stbportal/internal/log"
)

// Logging writes one access log line per request. Health probes log at
// debug level.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := wrap(w)
		next.ServeHTTP(sw, r)

		logger := stblog.WithComponentFromContext(r.Context(), "api")
		ev := logger.Info()
		switch {
		case sw.status >= http.StatusInternalServerError:
			ev = logger.Error()
		case r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics":
			ev = logger.Debug()
		}
		ev.Str("method", r.Method).
			Str("route", routeOf(r)).
			Int(stblog.FieldStatus, sw.status).
			Int("bytes", sw.bytes).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
