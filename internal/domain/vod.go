// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package domain

// Movie is a video-on-demand item.
type Movie struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Cmd        string `json:"cmd"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// Series groups seasons of episodes.
type Series struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Cmd     string   `json:"cmd"`
	Seasons []Season `json:"seasons"`
}

// Season is an ordered list of episodes.
type Season struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Episodes []Episode `json:"episodes"`
}

// Episode is addressed on the portal by its series command plus number.
type Episode struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Name   string `json:"name"`
	Cmd    string `json:"cmd,omitempty"`
}

// Episode returns the episode at the given position, if it exists.
func (s Series) Episode(season, episode int) (Episode, bool) {
	if season < 0 || season >= len(s.Seasons) {
		return Episode{}, false
	}
	eps := s.Seasons[season].Episodes
	if episode < 0 || episode >= len(eps) {
		return Episode{}, false
	}
	return eps[episode], true
}
