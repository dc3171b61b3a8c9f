// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package domain holds the portal entities shared by the directory, the
// guide cache and the playback state machine.
package domain

import (
	"strings"

	"github.com/ManuGH/stbportal/internal/link"
)

// Channel is one entry of the portal's channel list.
type Channel struct {
	ID          string `json:"id"`
	Number      int    `json:"number"`
	Name        string `json:"name"`
	Cmd         string `json:"cmd,omitempty"`
	GenreID     string `json:"genre_id,omitempty"`
	EPGID       string `json:"epg_id,omitempty"`
	ArchiveType string `json:"archive_type,omitempty"`
	Logo        string `json:"logo,omitempty"`
	Fav         bool   `json:"fav"`
	Censored    bool   `json:"censored"`
}

var multicastSchemes = []string{"udp://", "rtp://"}

// IsMulticast reports whether the play command addresses a multicast group
// instead of a unicast HTTP stream.
func (c Channel) IsMulticast() bool {
	u := strings.ToLower(link.ExtractURL(c.Cmd))
	for _, s := range multicastSchemes {
		if strings.HasPrefix(u, s) {
			return true
		}
	}
	return false
}

// HasArchive reports whether time-shift and archive playback are possible.
// Multicast channels only qualify when EPG metadata is attached.
func (c Channel) HasArchive() bool {
	if strings.TrimSpace(c.ArchiveType) == "" {
		return false
	}
	return !c.IsMulticast() || strings.TrimSpace(c.EPGID) != ""
}

// Genre is a channel category.
type Genre struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
