// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package portal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/stbportal/internal/domain"
)

func newTestAPI(t *testing.T) (*API, *MockServer) {
	t.Helper()
	m := NewMockServer()
	t.Cleanup(m.Close)
	c := newTestClient(t, m.URL)
	return NewAPI(c, NewSessions(c, nil, testDevice), time.UTC), m
}

func TestAPI_Channels(t *testing.T) {
	api, m := newTestAPI(t)
	multicast := Channel("3", 3, "Mcast", "")
	multicast.Cmd = strPtr("udp://239.0.0.1:1234")
	multicast.ArchiveType = "flussonic"
	m.SetChannels(
		Channel("1", 1, "One", "http://s/1.mpg"),
		Channel("2", 2, "Two", ""),
		multicast,
	)

	chs, err := api.Channels(context.Background())
	require.NoError(t, err)
	require.Len(t, chs, 3)
	assert.Equal(t, "ffmpeg http://s/1.mpg", chs[0].Cmd)
	assert.Empty(t, chs[1].Cmd, "null cmd decodes as blank")
	assert.True(t, chs[2].IsMulticast())
	assert.False(t, chs[2].HasArchive())
	assert.Equal(t, 1, m.Calls("stb/handshake"))
}

func TestAPI_UnauthorizedInvalidatesSession(t *testing.T) {
	api, m := newTestAPI(t)
	m.SetChannels(Channel("1", 1, "One", "http://s/1.mpg"))

	_, err := api.Channels(context.Background())
	require.NoError(t, err)

	m.RotateToken()
	_, err = api.Channels(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	_, ok := api.Sessions().Current()
	assert.False(t, ok)

	_, err = api.Channels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, m.Calls("stb/handshake"))
}

func TestAPI_ShortEPGSignals(t *testing.T) {
	api, m := newTestAPI(t)
	m.SetNoEPG("1")
	m.SetShortEPG("3", MockProgram{ID: "p", Name: "News", Start: 1000, Stop: 1600})

	_, err := api.ShortEPG(context.Background(), "1")
	assert.ErrorIs(t, err, domain.ErrNoEpgForChannel)

	_, err = api.ShortEPG(context.Background(), "2")
	assert.ErrorIs(t, err, domain.ErrEpgTemporarilyEmpty)

	progs, err := api.ShortEPG(context.Background(), "3")
	require.NoError(t, err)
	require.Len(t, progs, 1)
	assert.Equal(t, int64(1_000_000), progs[0].StartMs)
	assert.Equal(t, int64(1_600_000), progs[0].StopMs)
	assert.Equal(t, "3", progs[0].ChannelID)
}

func TestAPI_EPGForDayWalksPages(t *testing.T) {
	api, m := newTestAPI(t)
	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	var progs []MockProgram
	base := day.Truncate(24 * time.Hour).Unix()
	for i := 24; i >= 0; i-- {
		start := base + int64(i)*1800
		progs = append(progs, MockProgram{ID: fmt.Sprint(i), Name: "P", Start: start, Stop: start + 1800})
	}
	m.SetDay("1", "2024-03-10", progs...)

	got, err := api.EPGForDay(context.Background(), "1", day)
	require.NoError(t, err)
	require.Len(t, got, 25)
	assert.Equal(t, 3, m.Calls("epg/get_simple_data_table"))
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].StartMs, got[i].StartMs)
	}
}

func TestAPI_CreateLink(t *testing.T) {
	api, _ := newTestAPI(t)

	l, err := api.CreateLink(context.Background(), LinkArchive, "ffmpeg http://s/1.mpg")
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg http://s/1.mpg", l.BaseCommand)
	assert.NotEmpty(t, l.LinkID)

	_, err = api.CreateLink(context.Background(), LinkLive, "  ")
	assert.ErrorIs(t, err, domain.ErrLinkUnavailable)
}

func TestAPI_VODLinkSeries(t *testing.T) {
	api, _ := newTestAPI(t)

	u, err := api.VODLink(context.Background(), "ffmpeg http://v/show.mkv", 4)
	require.NoError(t, err)
	assert.Equal(t, "http://v/show.mkv?series=4", u)
}

func TestAPI_Favorites(t *testing.T) {
	api, m := newTestAPI(t)
	m.SetFavoriteIDs("2", "1")

	ids, err := api.FavoriteIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, ids)

	require.NoError(t, api.SetFavorites(context.Background(), []string{"9", "3"}))
	assert.Equal(t, []string{"3", "9"}, m.FavoriteIDs())
}

func TestAPI_Events(t *testing.T) {
	api, m := newTestAPI(t)
	m.QueueEvents(MockEvent{ID: "5", Event: "send_msg", Msg: "hello", NeedConfirm: 1})

	evs, err := api.Events(context.Background())
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, Event{ID: "5", Type: "send_msg", Message: "hello", NeedConfirm: true}, evs[0])

	evs, err = api.Events(context.Background())
	require.NoError(t, err)
	assert.Empty(t, evs)

	require.NoError(t, api.ConfirmEvent(context.Background(), "5"))
	assert.Equal(t, []string{"5"}, m.Confirmed())
}
