// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldDeviceID  = "device_id"
	FieldChannelID = "channel_id"
	FieldProgramID = "program_id"
	FieldGenreID   = "genre_id"
	FieldEventID   = "event_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldAction    = "action"
	FieldAttempt   = "attempt"

	// Playback fields
	FieldSource     = "source"
	FieldPositionMs = "position_ms"
	FieldTargetMs   = "target_ms"
	FieldDirection  = "direction"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Network fields
	FieldBaseURL = "base_url"
	FieldStatus  = "status"
)
