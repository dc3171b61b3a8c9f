// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/stbportal/internal/domain"
	"github.com/ManuGH/stbportal/internal/epg"
	"github.com/ManuGH/stbportal/internal/playback"
	"github.com/ManuGH/stbportal/internal/playlist"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once the channel list has been loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.engine.Directory().Loaded() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	genres := s.engine.Directory().Genres()
	if genres == nil {
		genres = []domain.Genre{}
	}
	writeJSON(w, http.StatusOK, genres)
}

// handleChannels lists channels, optionally filtered by ?q= (name search)
// and ?genre=.
func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	dir := s.engine.Directory()
	var chs []domain.Channel
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		chs = dir.Search(q)
	} else {
		chs = dir.Channels()
	}
	if genre := r.URL.Query().Get("genre"); genre != "" {
		filtered := chs[:0:0]
		for _, ch := range chs {
			if ch.GenreID == genre {
				filtered = append(filtered, ch)
			}
		}
		chs = filtered
	}
	if chs == nil {
		chs = []domain.Channel{}
	}
	writeJSON(w, http.StatusOK, chs)
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	ch, ok := s.engine.Directory().ByID(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

type epgResponse struct {
	ChannelID string           `json:"channel_id"`
	NoEPG     bool             `json:"no_epg"`
	Live      *domain.Program  `json:"live,omitempty"`
	Programs  []domain.Program `json:"programs"`
}

// handleEPG loads the channel's guide if needed. ?past=1 pages one more
// day backwards.
func (s *Server) handleEPG(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.engine.Directory().ByID(id); !ok {
		writeNotFound(w)
		return
	}
	guide := s.engine.Guide()
	if err := guide.EnsureFreshLoad(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	if r.URL.Query().Get("past") == "1" {
		if err := guide.LoadMorePast(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
	}
	resp := epgResponse{ChannelID: id, Programs: guide.Programs(id)}
	if resp.Programs == nil {
		resp.Programs = []domain.Program{}
	}
	resp.NoEPG = guide.Status(id).NoEPG
	if p, ok := guide.LiveProgram(id); ok {
		resp.Live = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFavorite(fav bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		dir := s.engine.Directory()
		if _, ok := dir.ByID(id); !ok {
			writeNotFound(w)
			return
		}
		dir.SetFavorite(id, fav)
		ch, _ := dir.ByID(id)
		writeJSON(w, http.StatusOK, ch)
	}
}

func (s *Server) handleXMLTV(w http.ResponseWriter, r *http.Request) {
	tv := s.engine.Guide().BuildXMLTV(s.engine.Directory().Channels())
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	if err := epg.EncodeXMLTV(w, tv); err != nil {
		s.logger.Warn().Err(err).Msg("xmltv encode failed")
	}
}

// handlePlaylist lists every playable channel. Entries point at the stream
// redirect so that each open resolves a fresh link.
func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	base := scheme + "://" + r.Host + "/api/v1/stream/"
	dir := s.engine.Directory()
	items := playlist.FromChannels(dir.Channels(), dir.Genres(), func(ch domain.Channel) string {
		return base + url.PathEscape(ch.ID)
	})
	w.Header().Set("Content-Type", "audio/x-mpegurl")
	if err := playlist.WriteM3U(w, items); err != nil {
		s.logger.Warn().Err(err).Msg("playlist write failed")
	}
}

// handleStream redirects to a freshly resolved live link for the channel.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ch, ok := s.engine.Directory().ByID(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w)
		return
	}
	res, err := s.engine.Controller().Resolve(r.Context(), playback.NewLive(ch))
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, res.URL, http.StatusFound)
}

type currentResponse struct {
	Kind      string `json:"kind"`
	ChannelID string `json:"channel_id,omitempty"`
	Paused    bool   `json:"paused"`
	Position  int64  `json:"position_ms"`
	Seeking   int    `json:"seeking"`
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	ctl := s.engine.Controller()
	src := ctl.Current()
	if src == nil {
		writeJSON(w, http.StatusOK, currentResponse{Kind: "idle"})
		return
	}
	resp := currentResponse{
		Kind:     src.Kind().String(),
		Paused:   ctl.Player().IsPaused(),
		Position: ctl.Player().CurrentPositionMs(),
		Seeking:  s.engine.Seek().Seeking(),
	}
	if ch, ok := playback.ChannelOf(src); ok {
		resp.ChannelID = ch.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePlayLive(w http.ResponseWriter, r *http.Request) {
	ch, ok := s.engine.Directory().ByID(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w)
		return
	}
	s.selectAndReport(w, r, playback.NewLive(ch))
}

// handlePlayArchive starts a past program, optionally at ?offset_ms=.
func (s *Server) handlePlayArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ch, ok := s.engine.Directory().ByID(id)
	if !ok {
		writeNotFound(w)
		return
	}
	var prog domain.Program
	found := false
	for _, p := range s.engine.Guide().Programs(id) {
		if p.ID == chi.URLParam(r, "program") {
			prog, found = p, true
			break
		}
	}
	if !found {
		writeNotFound(w)
		return
	}
	var body struct {
		OffsetMs int64 `json:"offset_ms"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid body")
			return
		}
	}
	src, err := playback.NewArchived(ch, prog, body.OffsetMs, s.engine.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	s.selectAndReport(w, r, src)
}

func (s *Server) selectAndReport(w http.ResponseWriter, r *http.Request, src playback.Source) {
	if err := s.engine.Controller().Select(r.Context(), src, playback.SelectOptions{}); err != nil {
		writeError(w, err)
		return
	}
	s.handleCurrent(w, r)
}

func (s *Server) handleNavigate(dir int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctl := s.engine.Controller()
		var (
			moved bool
			err   error
		)
		if dir > 0 {
			moved, err = ctl.Next(r.Context())
		} else {
			moved, err = ctl.Prev(r.Context())
		}
		if err != nil {
			writeError(w, err)
			return
		}
		if !moved {
			writeMessage(w, http.StatusConflict, "no further item")
			return
		}
		s.handleCurrent(w, r)
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.engine.Seek().Cancel()
	s.engine.Controller().Stop()
	w.WriteHeader(http.StatusNoContent)
}

// handleSeek applies {"direction": -1|0|1}. Zero releases the scrub and
// commits the position.
func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Direction *int `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Direction == nil {
		writeMessage(w, http.StatusBadRequest, "direction required")
		return
	}
	d := *body.Direction
	if d < -1 || d > 1 {
		writeMessage(w, http.StatusBadRequest, "direction must be -1, 0 or 1")
		return
	}
	if err := s.engine.Seek().SetDirection(r.Context(), d); err != nil {
		writeError(w, err)
		return
	}
	s.handleCurrent(w, r)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Housekeep(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.engine.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
