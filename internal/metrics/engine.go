// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics provides Prometheus metrics for the portal client engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	channelRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stbportal_channel_refresh_total",
		Help: "Channel list refreshes by result",
	}, []string{"result"})

	channelCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stbportal_channels",
		Help: "Number of channels in the current directory snapshot",
	})

	commandsRestored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stbportal_channel_commands_restored_total",
		Help: "Blank play commands replaced by the last known good value",
	})

	guideLoadTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stbportal_guide_load_total",
		Help: "Program guide loads by direction and result",
	}, []string{"direction", "result"})

	favoritesOverlaySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stbportal_favorites_overlay_entries",
		Help: "Favorite overrides not yet confirmed by the portal",
	})

	playbackRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stbportal_playback_requests_total",
		Help: "Playback selections by source kind and result (played, stale, error)",
	}, []string{"source", "result"})

	seekCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stbportal_seek_commits_total",
		Help: "Completed scrub gestures by commit strategy (native, reissue, live, prompt)",
	}, []string{"strategy"})

	portalEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stbportal_portal_events_total",
		Help: "Notification feed events by type",
	}, []string{"type"})
)

// RecordChannelRefresh counts a directory refresh and updates the size gauge on success.
func RecordChannelRefresh(result string, size int) {
	channelRefreshTotal.WithLabelValues(result).Inc()
	if result == "success" {
		channelCount.Set(float64(size))
	}
}

// RecordCommandsRestored counts play commands taken from the known-good map.
func RecordCommandsRestored(n int) {
	if n > 0 {
		commandsRestored.Add(float64(n))
	}
}

// RecordGuideLoad counts a forward ("near") or backward ("past") guide load.
func RecordGuideLoad(direction, result string) {
	guideLoadTotal.WithLabelValues(direction, result).Inc()
}

// SetFavoritesOverlaySize reports the pending overlay size.
func SetFavoritesOverlaySize(n int) {
	favoritesOverlaySize.Set(float64(n))
}

// RecordPlaybackRequest counts a playback selection outcome.
func RecordPlaybackRequest(source, result string) {
	playbackRequests.WithLabelValues(source, result).Inc()
}

// RecordSeekCommit counts how a scrub gesture was applied.
func RecordSeekCommit(strategy string) {
	seekCommits.WithLabelValues(strategy).Inc()
}

// RecordPortalEvent counts notification feed events.
func RecordPortalEvent(eventType string) {
	portalEvents.WithLabelValues(eventType).Inc()
}
