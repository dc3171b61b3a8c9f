// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by portal and playback spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	PortalTypeKey    = "portal.type"
	PortalActionKey  = "portal.action"
	PortalAttemptKey = "portal.attempt"

	PlaybackSourceKey  = "playback.source"
	PlaybackChannelKey = "playback.channel"
	PlaybackTuningKey  = "playback.tuning"

	ErrorTypeKey = "error.type"
)

// PortalAttributes describes one portal request.
func PortalAttributes(typ, action string, status int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, "GET"),
		attribute.String(PortalTypeKey, typ),
		attribute.String(PortalActionKey, action),
		attribute.Int(HTTPStatusCodeKey, status),
	}
}

// PlaybackAttributes describes a playback resolution. Empty values are omitted.
func PlaybackAttributes(source, channelID, tuning string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if source != "" {
		attrs = append(attrs, attribute.String(PlaybackSourceKey, source))
	}
	if channelID != "" {
		attrs = append(attrs, attribute.String(PlaybackChannelKey, channelID))
	}
	if tuning != "" {
		attrs = append(attrs, attribute.String(PlaybackTuningKey, tuning))
	}
	return attrs
}

// HTTPAttributes describes one inbound HTTP request. A zero status is omitted.
func HTTPAttributes(method, route string, status int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
	}
	if status != 0 {
		attrs = append(attrs, attribute.Int(HTTPStatusCodeKey, status))
	}
	return attrs
}
