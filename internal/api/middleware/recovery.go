// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package middleware holds the HTTP ingress stack of the control API.
package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strings"
	"unicode/utf8"

	stblog "github.com/ManuGH/stbportal/internal/log"
)

// Recoverer turns a handler panic into a logged 500 JSON response.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			buf := make([]byte, 8192)
			n := runtime.Stack(buf, false)

			path := r.URL.Path
			if !utf8.ValidString(path) {
				path = strings.ToValidUTF8(path, "")
			}
			reqID := stblog.RequestIDFromContext(r.Context())
			logger := stblog.WithComponentFromContext(r.Context(), "panic-recovery")
			logger.Error().
				Str(stblog.FieldEvent, "panic.recovered").
				Str("method", r.Method).
				Str("path", path).
				Interface("panic_value", rec).
				Str("stack_trace", string(buf[:n])).
				Msg("panic recovered in HTTP handler")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":     "internal server error",
				"requestId": reqID,
			})
		}()
		next.ServeHTTP(w, r)
	})
}
