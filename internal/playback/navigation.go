// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"time"

	"github.com/ManuGH/stbportal/internal/domain"
)

// currentProgram is the program navigation is relative to.
func currentProgram(src Source, guide ProgramLookup) (domain.Channel, domain.Program, bool) {
	switch s := src.(type) {
	case Archived:
		return s.Channel, s.Program, true
	case Live:
		p, ok := guide.LiveProgram(s.Channel.ID)
		return s.Channel, p, ok
	case TimeShifted:
		p, ok := guide.ProgramAt(s.Channel.ID, time.UnixMilli(s.TargetMs))
		return s.Channel, p, ok
	}
	return domain.Channel{}, domain.Program{}, false
}

// PrevProgram returns the archived program before the current one.
func PrevProgram(src Source, guide ProgramLookup, now time.Time) (Source, bool) {
	ch, cur, ok := currentProgram(src, guide)
	if !ok {
		return nil, false
	}
	p, ok := guide.Neighbor(ch.ID, cur.ID, -1)
	if !ok {
		return nil, false
	}
	a, err := NewArchived(ch, p, 0, now)
	if err != nil {
		return nil, false
	}
	return a, true
}

// NextProgram returns the program after the current one: Live when it is
// airing, Archived when it has finished, nothing when it has not started.
func NextProgram(src Source, guide ProgramLookup, now time.Time) (Source, bool) {
	if _, live := src.(Live); live {
		return nil, false
	}
	ch, cur, ok := currentProgram(src, guide)
	if !ok {
		return nil, false
	}
	p, ok := guide.Neighbor(ch.ID, cur.ID, 1)
	if !ok {
		return nil, false
	}
	switch {
	case p.IsLive(now):
		return NewLive(ch), true
	case !p.IsStarted(now):
		return nil, false
	}
	a, err := NewArchived(ch, p, 0, now)
	if err != nil {
		return nil, false
	}
	return a, true
}

// NextEpisode moves to the following episode, crossing into the first
// episode of the next season. It returns false at the end of the series.
func NextEpisode(s SeriesEpisode) (SeriesEpisode, bool) {
	season, ep := s.Season, s.Episode+1
	for season < len(s.Series.Seasons) {
		if ep < len(s.Series.Seasons[season].Episodes) {
			return SeriesEpisode{Series: s.Series, Season: season, Episode: ep}, true
		}
		season, ep = season+1, 0
	}
	return SeriesEpisode{}, false
}

// PrevEpisode moves to the preceding episode, crossing into the last
// episode of the previous season. It returns false at the series start.
func PrevEpisode(s SeriesEpisode) (SeriesEpisode, bool) {
	if s.Season >= len(s.Series.Seasons) {
		return SeriesEpisode{}, false
	}
	season, ep := s.Season, s.Episode-1
	for season >= 0 {
		if ep >= 0 && ep < len(s.Series.Seasons[season].Episodes) {
			return SeriesEpisode{Series: s.Series, Season: season, Episode: ep}, true
		}
		season--
		if season >= 0 {
			ep = len(s.Series.Seasons[season].Episodes) - 1
		}
	}
	return SeriesEpisode{}, false
}
