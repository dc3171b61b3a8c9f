// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package playback models what is playing (live, time-shift, archive, VOD)
// and turns it into a playable URL.
package playback

import (
	"fmt"
	"time"

	"github.com/ManuGH/stbportal/internal/domain"
)

// Kind discriminates Source variants.
type Kind int

const (
	KindLive Kind = iota
	KindTimeShifted
	KindArchived
	KindVod
	KindSeriesEpisode
)

func (k Kind) String() string {
	switch k {
	case KindLive:
		return "live"
	case KindTimeShifted:
		return "timeshift"
	case KindArchived:
		return "archive"
	case KindVod:
		return "vod"
	case KindSeriesEpisode:
		return "series"
	default:
		return "unknown"
	}
}

// Source is an immutable playback selection. Navigation returns a new
// Source; variants are never mutated.
type Source interface {
	Kind() Kind
	// ContentID identifies the channel or VOD item for analytics.
	ContentID() string
	sealed()
}

// Live plays the channel at the live edge.
type Live struct {
	Channel domain.Channel
}

// TimeShifted plays a channel from an absolute past instant.
type TimeShifted struct {
	Channel  domain.Channel
	TargetMs int64
}

// Archived plays one past program. OffsetMs is the start position within
// the program.
type Archived struct {
	Channel  domain.Channel
	Program  domain.Program
	OffsetMs int64
}

// Vod plays a movie.
type Vod struct {
	Movie    domain.Movie
	ResumeMs int64
}

// SeriesEpisode plays one episode by season and episode index.
type SeriesEpisode struct {
	Series   domain.Series
	Season   int
	Episode  int
	ResumeMs int64
}

func (Live) Kind() Kind          { return KindLive }
func (TimeShifted) Kind() Kind   { return KindTimeShifted }
func (Archived) Kind() Kind      { return KindArchived }
func (Vod) Kind() Kind           { return KindVod }
func (SeriesEpisode) Kind() Kind { return KindSeriesEpisode }

func (s Live) ContentID() string          { return s.Channel.ID }
func (s TimeShifted) ContentID() string   { return s.Channel.ID }
func (s Archived) ContentID() string      { return s.Channel.ID }
func (s Vod) ContentID() string           { return s.Movie.ID }
func (s SeriesEpisode) ContentID() string { return s.Series.ID }

func (Live) sealed()          {}
func (TimeShifted) sealed()   {}
func (Archived) sealed()      {}
func (Vod) sealed()           {}
func (SeriesEpisode) sealed() {}

// ProgramLookup is the guide view playback needs.
type ProgramLookup interface {
	LiveProgram(channelID string) (domain.Program, bool)
	ProgramAt(channelID string, t time.Time) (domain.Program, bool)
	Neighbor(channelID, programID string, delta int) (domain.Program, bool)
}

// NewLive is always valid.
func NewLive(ch domain.Channel) Live { return Live{Channel: ch} }

// NewTimeShifted builds a time-shift source for targetMs clamped to
// [0, now]. When the instant falls into a known program that has started
// and is no longer live, the more precise Archived variant is returned.
func NewTimeShifted(ch domain.Channel, targetMs int64, now time.Time, guide ProgramLookup) (Source, error) {
	if !ch.HasArchive() {
		return nil, fmt.Errorf("channel %s: %w", ch.ID, domain.ErrNotArchivable)
	}
	targetMs = clampMs(targetMs, 0, now.UnixMilli())
	if guide != nil {
		if p, ok := guide.ProgramAt(ch.ID, time.UnixMilli(targetMs)); ok && p.IsStarted(now) && !p.IsLive(now) {
			return NewArchived(ch, p, targetMs-p.StartMs, now)
		}
	}
	return TimeShifted{Channel: ch, TargetMs: targetMs}, nil
}

// NewArchived requires a finished program on an archive-capable channel.
func NewArchived(ch domain.Channel, p domain.Program, offsetMs int64, now time.Time) (Archived, error) {
	if !ch.HasArchive() || p.IsLive(now) || !p.IsStarted(now) {
		return Archived{}, fmt.Errorf("program %s on channel %s: %w", p.ID, ch.ID, domain.ErrNotArchivable)
	}
	return Archived{Channel: ch, Program: p, OffsetMs: clampMs(offsetMs, 0, p.StopMs-p.StartMs)}, nil
}

// NewVod returns a movie source.
func NewVod(m domain.Movie, resumeMs int64) Vod {
	if resumeMs < 0 {
		resumeMs = 0
	}
	return Vod{Movie: m, ResumeMs: resumeMs}
}

// NewSeriesEpisode validates the season and episode indices.
func NewSeriesEpisode(s domain.Series, season, episode int, resumeMs int64) (SeriesEpisode, error) {
	if _, ok := s.Episode(season, episode); !ok {
		return SeriesEpisode{}, fmt.Errorf("series %s has no episode %d/%d", s.ID, season, episode)
	}
	if resumeMs < 0 {
		resumeMs = 0
	}
	return SeriesEpisode{Series: s, Season: season, Episode: episode, ResumeMs: resumeMs}, nil
}

// Capabilities are the transport controls a source allows.
type Capabilities struct {
	CanPause        bool
	CanSeekForward  bool
	CanSeekBackward bool
	IsLive          bool
}

// CapabilitiesOf computes the controls for src.
func CapabilitiesOf(src Source) Capabilities {
	switch s := src.(type) {
	case Live:
		a := s.Channel.HasArchive()
		return Capabilities{CanPause: a, CanSeekForward: false, CanSeekBackward: a, IsLive: true}
	case TimeShifted:
		return Capabilities{CanPause: true, CanSeekForward: true, CanSeekBackward: s.Channel.HasArchive()}
	case Archived:
		return Capabilities{CanPause: true, CanSeekForward: true, CanSeekBackward: s.Channel.HasArchive()}
	case Vod, SeriesEpisode:
		return Capabilities{CanPause: true, CanSeekForward: true, CanSeekBackward: true}
	default:
		return Capabilities{}
	}
}

// ChannelOf returns the channel of channel-bound sources.
func ChannelOf(src Source) (domain.Channel, bool) {
	switch s := src.(type) {
	case Live:
		return s.Channel, true
	case TimeShifted:
		return s.Channel, true
	case Archived:
		return s.Channel, true
	default:
		return domain.Channel{}, false
	}
}

func clampMs(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
