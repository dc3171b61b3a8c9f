// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/stbportal/internal/config"
	"github.com/ManuGH/stbportal/internal/daemon"
	"github.com/ManuGH/stbportal/internal/domain"
	"github.com/ManuGH/stbportal/internal/playback"
	"github.com/ManuGH/stbportal/internal/portal"
)

type fixture struct {
	mock   *portal.MockServer
	player *playback.FakePlayer
	engine *daemon.Engine
	srv    *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mock := portal.NewMockServer()
	t.Cleanup(mock.Close)
	news := portal.Channel("1", 1, "News", "http://cdn/1.ts")
	sports := portal.Channel("2", 2, "Sports", "http://cdn/2.ts")
	sports.GenreID = "2"
	mock.SetChannels(news, sports)
	mock.SetNoEPG("2")

	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.Portal.URL = mock.URL
	cfg.Portal.MaxAttempts = 1
	cfg.Store.Backend = "memory"
	cfg.Events.Enabled = false
	cfg.EPG.Location = "UTC"

	player := &playback.FakePlayer{}
	eng, err := daemon.New(context.Background(), cfg, daemon.Options{Player: player})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Shutdown(context.Background()) })

	return &fixture{mock: mock, player: player, engine: eng, srv: New(cfg.API, eng, "")}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndReadiness(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/readyz", "").Code)

	rec := f.do(t, http.MethodPost, "/api/v1/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[daemon.Status](t, rec).Channels)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/readyz", "").Code)
}

func TestChannelsListing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Housekeep(context.Background()))

	all := decode[[]domain.Channel](t, f.do(t, http.MethodGet, "/api/v1/channels", ""))
	assert.Len(t, all, 2)

	found := decode[[]domain.Channel](t, f.do(t, http.MethodGet, "/api/v1/channels?q=spo", ""))
	require.Len(t, found, 1)
	assert.Equal(t, "2", found[0].ID)

	byGenre := decode[[]domain.Channel](t, f.do(t, http.MethodGet, "/api/v1/channels?genre=1", ""))
	require.Len(t, byGenre, 1)
	assert.Equal(t, "1", byGenre[0].ID)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/channels/99", "").Code)
}

func TestFavoriteToggle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Housekeep(context.Background()))

	rec := f.do(t, http.MethodPut, "/api/v1/channels/1/favorite", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[domain.Channel](t, rec).Fav)
	assert.Equal(t, 1, f.engine.Status().PendingFavorite)

	rec = f.do(t, http.MethodDelete, "/api/v1/channels/1/favorite", "")
	assert.False(t, decode[domain.Channel](t, rec).Fav)
}

func TestEPGForChannelWithoutGuide(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Housekeep(context.Background()))

	rec := f.do(t, http.MethodGet, "/api/v1/channels/2/epg", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[epgResponse](t, rec)
	assert.Equal(t, "2", resp.ChannelID)
	assert.True(t, resp.NoEPG)
	assert.Empty(t, resp.Programs)
}

func TestPlaybackLiveAndStop(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Housekeep(context.Background()))

	rec := f.do(t, http.MethodGet, "/api/v1/playback/", "")
	assert.Equal(t, "idle", decode[currentResponse](t, rec).Kind)

	rec = f.do(t, http.MethodPost, "/api/v1/playback/live/2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cur := decode[currentResponse](t, rec)
	assert.Equal(t, "live", cur.Kind)
	assert.Equal(t, "2", cur.ChannelID)
	require.Len(t, f.player.Plays(), 1)
	assert.Equal(t, "http://cdn/2.ts", f.player.Plays()[0].URL)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/playback/seek", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/playback/seek", `{"direction":3}`).Code)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/api/v1/playback/stop", "").Code)
	assert.Nil(t, f.engine.Controller().Current())
	assert.True(t, f.player.IsPaused())
}

func TestPlaybackUnknownChannel(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/v1/playback/live/7", "").Code)
}

func TestXMLTVExport(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Housekeep(context.Background()))

	rec := f.do(t, http.MethodGet, "/api/v1/xmltv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, rec.Body.String(), "<tv")
	assert.Contains(t, rec.Body.String(), "Sports")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/healthz", "")
	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stbportal_http_request_duration_seconds")
}

func TestServeStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestPlaylistAndStreamRedirect(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Housekeep(context.Background()))

	rec := f.do(t, http.MethodGet, "/api/v1/playlist.m3u", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "#EXTM3U"))
	assert.Contains(t, body, "http://example.com/api/v1/stream/2")
	assert.Contains(t, body, `group-title="Sports"`)

	rec = f.do(t, http.MethodGet, "/api/v1/stream/1", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://cdn/1.ts", rec.Header().Get("Location"))
	assert.Empty(t, f.player.Plays())

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/stream/9", "").Code)
}
