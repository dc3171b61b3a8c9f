// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import "errors"

var (
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("engine already started")

	// ErrNotStarted is returned when waiting on an engine that never started.
	ErrNotStarted = errors.New("engine not started")

	// ErrMissingPlayer is returned when no media player is supplied.
	ErrMissingPlayer = errors.New("media player is required")
)
