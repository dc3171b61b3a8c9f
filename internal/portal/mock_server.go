// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package portal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// MockChannel is a channel record as served by MockServer.
type MockChannel struct {
	ID          string  `json:"id"`
	Number      int     `json:"number"`
	Name        string  `json:"name"`
	Cmd         *string `json:"cmd"`
	GenreID     string  `json:"tv_genre_id"`
	XMLTVID     string  `json:"xmltv_id,omitempty"`
	ArchiveType string  `json:"tv_archive_type,omitempty"`
	Fav         int     `json:"fav"`
}

// MockProgram is a program record as served by MockServer. Times are in
// seconds.
type MockProgram struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Start int64  `json:"start_timestamp"`
	Stop  int64  `json:"stop_timestamp"`
}

// MockEvent is one watchdog event served by MockServer.
type MockEvent struct {
	ID          string `json:"id"`
	Event       string `json:"event"`
	Msg         string `json:"msg,omitempty"`
	NeedConfirm int    `json:"need_confirm"`
}

// MockServer is a configurable fake portal for tests.
type MockServer struct {
	*httptest.Server

	mu        sync.RWMutex
	token     string
	tokenSeq  int
	blocked   string
	channels  []MockChannel
	genres    map[string]string
	short     map[string][]MockProgram
	days      map[string]map[string][]MockProgram
	noEPG     map[string]bool
	favIDs    []string
	events    []MockEvent
	confirmed []string
	logged    []string
	failures  map[string]int
	markers   map[string]string
	calls     map[string]int
	pageSize  int
}

// NewMockServer starts a fake portal serving load.php.
func NewMockServer() *MockServer {
	m := &MockServer{
		genres:   map[string]string{"1": "News", "2": "Sports"},
		short:    make(map[string][]MockProgram),
		days:     make(map[string]map[string][]MockProgram),
		noEPG:    make(map[string]bool),
		failures: make(map[string]int),
		markers:  make(map[string]string),
		calls:    make(map[string]int),
		pageSize: 10,
	}
	m.rotateTokenNoLock()

	mux := http.NewServeMux()
	mux.HandleFunc("/stalker_portal/server/load.php", m.handle)
	m.Server = httptest.NewServer(mux)
	return m
}

func strPtr(s string) *string { return &s }

// SetChannels replaces the channel list. An empty cmd is served as null.
func (m *MockServer) SetChannels(chs ...MockChannel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append([]MockChannel(nil), chs...)
}

// Channel builds a MockChannel with a unicast command.
func Channel(id string, number int, name, url string) MockChannel {
	ch := MockChannel{ID: id, Number: number, Name: name, GenreID: "1"}
	if url != "" {
		ch.Cmd = strPtr("ffmpeg " + url)
	}
	return ch
}

// SetShortEPG sets the near-term window served for a channel.
func (m *MockServer) SetShortEPG(channelID string, progs ...MockProgram) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.short[channelID] = progs
}

// SetDay sets the programs served for a channel on date (YYYY-MM-DD).
func (m *MockServer) SetDay(channelID, date string, progs ...MockProgram) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.days[channelID] == nil {
		m.days[channelID] = make(map[string][]MockProgram)
	}
	m.days[channelID][date] = progs
}

// SetNoEPG makes every guide request for channelID answer js=null.
func (m *MockServer) SetNoEPG(channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noEPG[channelID] = true
}

// SetFavoriteIDs sets the server-side favorites.
func (m *MockServer) SetFavoriteIDs(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favIDs = append([]string(nil), ids...)
}

// FavoriteIDs returns the server-side favorites.
func (m *MockServer) FavoriteIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.favIDs...)
}

// QueueEvents appends events to the watchdog feed. Each event is served once.
func (m *MockServer) QueueEvents(evs ...MockEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evs...)
}

// Confirmed returns the acknowledged event ids.
func (m *MockServer) Confirmed() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.confirmed...)
}

// Logged returns the analytics actions received.
func (m *MockServer) Logged() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.logged...)
}

// SetFailures makes the next n requests to route ("type/action") fail with
// 503.
func (m *MockServer) SetFailures(route string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[route] = n
}

// SetMarker makes route answer with a bare marker body.
func (m *MockServer) SetMarker(route, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if body == "" {
		delete(m.markers, route)
		return
	}
	m.markers[route] = body
}

// SetBlocked makes get_profile answer with the registration-blocked shape.
func (m *MockServer) SetBlocked(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked = msg
}

// RotateToken expires the current token. Requests signed with it get the
// unauthorized marker.
func (m *MockServer) RotateToken() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rotateTokenNoLock()
}

func (m *MockServer) rotateTokenNoLock() {
	m.tokenSeq++
	m.token = fmt.Sprintf("token-%d", m.tokenSeq)
}

// Token returns the currently valid token.
func (m *MockServer) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Calls returns how many requests route received.
func (m *MockServer) Calls(route string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[route]
}

func (m *MockServer) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	route := q.Get("type") + "/" + q.Get("action")

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[route]++

	if n := m.failures[route]; n > 0 {
		m.failures[route] = n - 1
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
		return
	}
	if body, ok := m.markers[route]; ok {
		_, _ = w.Write([]byte(body))
		return
	}
	if !strings.Contains(r.Header.Get("Cookie"), "mac=") {
		http.Error(w, "missing device cookie", http.StatusBadRequest)
		return
	}
	if route != "stb/handshake" && r.Header.Get("Authorization") != "Bearer "+m.token {
		_, _ = w.Write([]byte("Authorization failed."))
		return
	}

	switch route {
	case "stb/handshake":
		m.writeJS(w, map[string]string{"token": m.token})
	case "stb/get_profile":
		if m.blocked != "" {
			m.writeJSON(w, map[string]any{"status": 1, "msg": "blocked", "block_msg": m.blocked})
			return
		}
		m.writeJS(w, map[string]any{"id": "7", "status": 0, "block_msg": ""})
	case "itv/get_all_channels":
		m.writeJS(w, map[string]any{"total_items": len(m.channels), "data": m.channels})
	case "itv/get_genres":
		out := make([]map[string]string, 0, len(m.genres))
		for id, title := range m.genres {
			out = append(out, map[string]string{"id": id, "title": title})
		}
		m.writeJS(w, out)
	case "itv/get_fav_ids":
		m.writeJS(w, m.favIDs)
	case "itv/set_fav":
		m.favIDs = nil
		for _, id := range strings.Split(q.Get("fav_ch"), ",") {
			if id != "" {
				m.favIDs = append(m.favIDs, id)
			}
		}
		m.writeJS(w, true)
	case "itv/get_short_epg":
		ch := q.Get("ch_id")
		if m.noEPG[ch] {
			m.writeJS(w, nil)
			return
		}
		m.writeJS(w, nonNil(m.short[ch]))
	case "epg/get_simple_data_table":
		m.handleDay(w, q.Get("ch_id"), q.Get("date"), q.Get("p"))
	case "itv/create_link", "tv_archive/create_link", "vod/create_link":
		cmd := q.Get("cmd")
		if s := q.Get("series"); s != "" {
			cmd += "?series=" + s
		}
		m.writeJS(w, map[string]any{"id": m.calls[route], "cmd": cmd})
	case "watchdog/get_events":
		if len(m.events) == 0 {
			m.writeJS(w, map[string]any{"data": []any{}})
			return
		}
		ev := m.events[0]
		m.events = m.events[1:]
		m.writeJS(w, map[string]any{"data": ev})
	case "watchdog/confirm_event":
		m.confirmed = append(m.confirmed, q.Get("event_active_id"))
		m.writeJS(w, true)
	case "stb/log":
		m.logged = append(m.logged, q.Get("real_action"))
		m.writeJS(w, 1)
	default:
		http.Error(w, "unknown action "+route, http.StatusNotFound)
	}
}

func (m *MockServer) handleDay(w http.ResponseWriter, ch, date, page string) {
	if m.noEPG[ch] {
		m.writeJS(w, false)
		return
	}
	progs := nonNil(m.days[ch][date])
	p, _ := strconv.Atoi(page)
	if p < 1 {
		p = 1
	}
	from := (p - 1) * m.pageSize
	if from > len(progs) {
		from = len(progs)
	}
	to := from + m.pageSize
	if to > len(progs) {
		to = len(progs)
	}
	m.writeJS(w, map[string]any{
		"cur_page":       p,
		"total_items":    len(progs),
		"max_page_items": m.pageSize,
		"data":           progs[from:to],
	})
}

func nonNil(p []MockProgram) []MockProgram {
	if p == nil {
		return []MockProgram{}
	}
	return p
}

func (m *MockServer) writeJS(w http.ResponseWriter, v any) {
	m.writeJSON(w, map[string]any{"js": v})
}

func (m *MockServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
