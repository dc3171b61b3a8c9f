// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/stbportal/internal/domain"
	"github.com/ManuGH/stbportal/internal/playback"
	"github.com/ManuGH/stbportal/internal/portal"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeNotFound(w http.ResponseWriter) {
	writeMessage(w, http.StatusNotFound, "not found")
}

// writeError maps engine errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrLinkUnavailable),
		errors.Is(err, domain.ErrNotArchivable):
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, playback.ErrSuperseded):
		writeMessage(w, http.StatusConflict, err.Error())
	case portal.IsFatal(err):
		writeMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, portal.ErrUnauthorized), errors.Is(err, portal.ErrAuth):
		writeMessage(w, http.StatusBadGateway, err.Error())
	default:
		writeMessage(w, http.StatusServiceUnavailable, err.Error())
	}
}
