// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package link turns a raw portal play command into a playable URL, tuned for
// live, time-shift or archive playback.
//
// Tuning is plain string surgery on the path: portals expect the synthetic
// segment byte for byte, so the URL is never re-encoded through net/url.
package link

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how a command is tuned.
type Mode int

const (
	ModeLive Mode = iota
	ModeAbsoluteStart
	ModeArchiveWindow
)

func (m Mode) String() string {
	switch m {
	case ModeAbsoluteStart:
		return "timeshift"
	case ModeArchiveWindow:
		return "archive"
	default:
		return "live"
	}
}

// Tuning describes the time window requested from the stream.
type Tuning struct {
	Mode     Mode
	Start    time.Time
	Duration time.Duration
}

// Live requests the stream at the live edge.
func Live() Tuning { return Tuning{Mode: ModeLive} }

// AbsoluteStart requests an open-ended stream starting at t.
func AbsoluteStart(t time.Time) Tuning {
	return Tuning{Mode: ModeAbsoluteStart, Start: t}
}

// ArchiveWindow requests the bounded segment [start, start+d).
func ArchiveWindow(start time.Time, d time.Duration) Tuning {
	return Tuning{Mode: ModeArchiveWindow, Start: start, Duration: d}
}

// StreamLink is an un-tuned stream handle. It is tuned at request time
// because the tuning depends on the current seek target.
type StreamLink struct {
	BaseCommand string
	LinkID      string
}

// ExtractURL returns the URL part of a "<method> <url>" command.
func ExtractURL(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if i := strings.LastIndexByte(cmd, ' '); i >= 0 {
		return cmd[i+1:]
	}
	return cmd
}

// Build converts cmd into a playable URL. It returns false when cmd is blank.
func Build(cmd string, t Tuning) (string, bool) {
	if strings.TrimSpace(cmd) == "" {
		return "", false
	}
	u := ExtractURL(cmd)
	switch t.Mode {
	case ModeArchiveWindow:
		seg := fmt.Sprintf("archive-%d-%d", t.Start.Unix(), int64(t.Duration/time.Second))
		return insertSegment(u, seg), true
	case ModeAbsoluteStart:
		seg := fmt.Sprintf("timeshift_abs-%d", t.Start.Unix())
		return insertSegment(u, seg), true
	default:
		return u, true
	}
}

// insertSegment replaces the final path component with seg, keeping the
// original file extension and any query or fragment.
func insertSegment(raw, seg string) string {
	tail := ""
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw, tail = raw[:i], raw[i:]
	}

	pathStart := 0
	if i := strings.Index(raw, "://"); i >= 0 {
		if j := strings.IndexByte(raw[i+3:], '/'); j >= 0 {
			pathStart = i + 3 + j
		} else {
			pathStart = len(raw)
		}
	}
	prefix, path := raw[:pathStart], raw[pathStart:]

	dir, last := "", path
	if k := strings.LastIndexByte(path, '/'); k >= 0 {
		dir, last = path[:k], path[k+1:]
	}

	ext := ""
	if i := strings.LastIndexByte(last, '.'); i >= 0 {
		ext = last[i:]
	}
	return prefix + dir + "/" + seg + ext + tail
}
