// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"time"

	"github.com/ManuGH/stbportal/internal/cache"
	stblog "github.com/ManuGH/stbportal/internal/log"
	"github.com/ManuGH/stbportal/internal/playback"
)

// Status is a point-in-time summary of the engine.
type Status struct {
	Version         string      `json:"version"`
	Portal          string      `json:"portal"`
	DeviceID        string      `json:"device_id"`
	Authenticated   bool        `json:"authenticated"`
	Channels        int         `json:"channels"`
	ChannelsFetched *time.Time  `json:"channels_fetched_at,omitempty"`
	Guides          int         `json:"guides"`
	PendingFavorite int         `json:"pending_favorites"`
	Playing         *PlayStatus `json:"playing,omitempty"`
	Seeking         int         `json:"seeking"`
	Cache           cache.Stats `json:"cache"`
}

// PlayStatus describes the current playback source.
type PlayStatus struct {
	Kind      string `json:"kind"`
	ChannelID string `json:"channel_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Status reports the engine state. The device id is masked.
func (e *Engine) Status() Status {
	_, authed := e.sessions.Current()
	st := Status{
		Version:         e.cfg.Version,
		Portal:          e.client.Endpoint(),
		DeviceID:        stblog.MaskDeviceID(e.sessions.DeviceID()),
		Authenticated:   authed,
		Channels:        len(e.directory.Channels()),
		Guides:          len(e.guide.ChannelIDs()),
		PendingFavorite: e.overlay.Len(),
		Seeking:         e.seek.Seeking(),
		Cache:           e.cache.Stats(),
	}
	if e.directory.Loaded() {
		at := e.directory.FetchedAt()
		st.ChannelsFetched = &at
	}
	if src := e.controller.Current(); src != nil {
		ps := &PlayStatus{Kind: src.Kind().String()}
		if ch, ok := playback.ChannelOf(src); ok {
			ps.ChannelID = ch.ID
		}
		if err := e.controller.Failure(); err != nil {
			ps.Error = err.Error()
		}
		st.Playing = ps
	}
	return st
}
