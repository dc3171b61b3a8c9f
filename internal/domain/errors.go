// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package domain

import "errors"

var (
	// ErrLinkUnavailable means the play command is missing or blank. It is
	// surfaced as "stream unavailable" and never retried.
	ErrLinkUnavailable = errors.New("stream unavailable: no play command")

	// ErrNoEpgForChannel means the portal has no guide for the channel at
	// all. The guide is marked loaded-empty until explicitly marked stale.
	ErrNoEpgForChannel = errors.New("no epg for channel")

	// ErrEpgTemporarilyEmpty means the portal returned an empty page. The
	// normal reload interval applies.
	ErrEpgTemporarilyEmpty = errors.New("epg temporarily empty")

	// ErrNotArchivable is returned when a time-shift or archive source is
	// requested for a channel or program that does not allow it.
	ErrNotArchivable = errors.New("archive playback not available")
)
