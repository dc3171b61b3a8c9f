// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package domain

import "time"

// Program is one EPG entry. Times are epoch milliseconds.
type Program struct {
	ID          string `json:"id"`
	ChannelID   string `json:"channel_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	StartMs     int64  `json:"start_ms"`
	StopMs      int64  `json:"stop_ms"`
}

func (p Program) Start() time.Time { return time.UnixMilli(p.StartMs) }
func (p Program) Stop() time.Time  { return time.UnixMilli(p.StopMs) }

// Duration is the scheduled length of the program.
func (p Program) Duration() time.Duration {
	return time.Duration(p.StopMs-p.StartMs) * time.Millisecond
}

// IsLive reports whether now lies within [start, stop].
func (p Program) IsLive(now time.Time) bool {
	ms := now.UnixMilli()
	return ms >= p.StartMs && ms <= p.StopMs
}

// IsStarted reports whether the program began before now.
func (p Program) IsStarted(now time.Time) bool {
	return now.UnixMilli() > p.StartMs
}

// Contains reports whether the instant lies within [start, stop).
func (p Program) Contains(ms int64) bool {
	return ms >= p.StartMs && ms < p.StopMs
}
