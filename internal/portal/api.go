// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/stbportal/internal/domain"
	"github.com/ManuGH/stbportal/internal/link"
)

// maxEPGPages bounds the page walk of a single guide day.
const maxEPGPages = 20

// LinkKind selects the create_link namespace.
type LinkKind string

const (
	LinkLive    LinkKind = "itv"
	LinkArchive LinkKind = "tv_archive"
)

// Event is one notification feed entry.
type Event struct {
	ID          string
	Type        string
	Message     string
	NeedConfirm bool
}

// API is the session-aware portal surface used by the caches and playback.
type API struct {
	client   *Client
	sessions *Sessions
	loc      *time.Location
}

// NewAPI binds a client to a session holder. loc is the device-local zone
// used for guide days.
func NewAPI(client *Client, sessions *Sessions, loc *time.Location) *API {
	if loc == nil {
		loc = time.Local
	}
	return &API{client: client, sessions: sessions, loc: loc}
}

// Client returns the underlying protocol client.
func (a *API) Client() *Client { return a.client }

// Sessions returns the session holder.
func (a *API) Sessions() *Sessions { return a.sessions }

// call signs req with the live session. An UnauthorizedError clears that
// session so the next call handshakes again.
func call[T any](ctx context.Context, a *API, req Request) (T, error) {
	var zero T
	s, err := a.sessions.Ensure(ctx)
	if err != nil {
		return zero, err
	}
	v, err := Call[T](ctx, a.client, s, req)
	if errors.Is(err, ErrUnauthorized) {
		a.sessions.Invalidate(ctx, s)
	}
	return v, err
}

// Channels fetches the full channel list.
func (a *API) Channels(ctx context.Context) ([]domain.Channel, error) {
	list, err := call[wireList[wireChannel]](ctx, a, Request{Type: "itv", Action: "get_all_channels"})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Channel, 0, len(list))
	for _, w := range list {
		ch := w.toDomain()
		if ch.ID == "" {
			continue
		}
		out = append(out, ch)
	}
	return out, nil
}

// Genres fetches the channel categories.
func (a *API) Genres(ctx context.Context) ([]domain.Genre, error) {
	list, err := call[wireList[wireGenre]](ctx, a, Request{Type: "itv", Action: "get_genres"})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Genre, 0, len(list))
	for _, g := range list {
		out = append(out, domain.Genre{ID: string(g.ID), Title: g.Title})
	}
	return out, nil
}

// FavoriteIDs returns the ids the portal currently stores as favorites.
func (a *API) FavoriteIDs(ctx context.Context) ([]string, error) {
	ids, err := call[wireList[flexString]](ctx, a, Request{Type: "itv", Action: "get_fav_ids"})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, string(id))
		}
	}
	return out, nil
}

// SetFavorites replaces the portal's favorite list.
func (a *API) SetFavorites(ctx context.Context, ids []string) error {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	_, err := call[json.RawMessage](ctx, a, Request{
		Type:   "itv",
		Action: "set_fav",
		Params: url.Values{"fav_ch": {strings.Join(sorted, ",")}},
	})
	return err
}

// ShortEPG fetches the near-term program window of a channel.
func (a *API) ShortEPG(ctx context.Context, channelID string) ([]domain.Program, error) {
	raw, err := call[json.RawMessage](ctx, a, Request{
		Type:   "itv",
		Action: "get_short_epg",
		Params: url.Values{"ch_id": {channelID}, "size": {"10"}},
	})
	if err != nil {
		return nil, err
	}
	if noGuide(raw) {
		return nil, domain.ErrNoEpgForChannel
	}
	var list wireList[wireProgram]
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &ProtocolError{URL: a.client.endpoint, Status: 200, Body: snippet(raw), Err: err}
	}
	return programs(list, channelID)
}

// EPGForDay fetches every program of channelID on the local calendar day
// containing day, walking the portal's pages.
func (a *API) EPGForDay(ctx context.Context, channelID string, day time.Time) ([]domain.Program, error) {
	date := day.In(a.loc).Format("2006-01-02")
	var all wireList[wireProgram]
	for p := 1; p <= maxEPGPages; p++ {
		raw, err := call[json.RawMessage](ctx, a, Request{
			Type:   "epg",
			Action: "get_simple_data_table",
			Params: url.Values{"ch_id": {channelID}, "date": {date}, "p": {strconv.Itoa(p)}},
		})
		if err != nil {
			return nil, err
		}
		if p == 1 && noGuide(raw) {
			return nil, domain.ErrNoEpgForChannel
		}
		var page wirePage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, &ProtocolError{URL: a.client.endpoint, Status: 200, Body: snippet(raw), Err: err}
		}
		all = append(all, page.Data...)
		perPage := int(page.MaxPageItems)
		if len(page.Data) == 0 || perPage <= 0 || len(all) >= int(page.TotalItems) {
			break
		}
	}
	return programs(all, channelID)
}

// noGuide reports the explicit "no programs for this channel" signal.
func noGuide(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte("false"))
}

func programs(list wireList[wireProgram], channelID string) ([]domain.Program, error) {
	if len(list) == 0 {
		return nil, domain.ErrEpgTemporarilyEmpty
	}
	out := make([]domain.Program, 0, len(list))
	for _, w := range list {
		p := w.toDomain(channelID)
		if p.ID == "" || p.StopMs <= p.StartMs {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, domain.ErrEpgTemporarilyEmpty
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartMs < out[j].StartMs })
	return out, nil
}

// CreateLink asks the portal for a playable base handle for cmd.
func (a *API) CreateLink(ctx context.Context, kind LinkKind, cmd string) (link.StreamLink, error) {
	if strings.TrimSpace(cmd) == "" {
		return link.StreamLink{}, domain.ErrLinkUnavailable
	}
	w, err := call[wireLink](ctx, a, Request{
		Type:   string(kind),
		Action: "create_link",
		Params: url.Values{"cmd": {cmd}, "forced_storage": {"undefined"}, "disable_ad": {"0"}},
	})
	if err != nil {
		return link.StreamLink{}, err
	}
	if strings.TrimSpace(w.Cmd) == "" {
		return link.StreamLink{}, domain.ErrLinkUnavailable
	}
	return link.StreamLink{BaseCommand: w.Cmd, LinkID: string(w.ID)}, nil
}

// VODLink resolves a movie or, with episode > 0, a series episode.
func (a *API) VODLink(ctx context.Context, cmd string, episode int) (string, error) {
	if strings.TrimSpace(cmd) == "" {
		return "", domain.ErrLinkUnavailable
	}
	params := url.Values{"cmd": {cmd}, "disable_ad": {"0"}}
	if episode > 0 {
		params.Set("series", strconv.Itoa(episode))
	}
	w, err := call[wireLink](ctx, a, Request{Type: "vod", Action: "create_link", Params: params})
	if err != nil {
		return "", err
	}
	u := link.ExtractURL(w.Cmd)
	if u == "" {
		return "", domain.ErrLinkUnavailable
	}
	return u, nil
}

// Events polls the notification feed.
func (a *API) Events(ctx context.Context) ([]Event, error) {
	list, err := call[wireList[wireEvent]](ctx, a, Request{
		Type:   "watchdog",
		Action: "get_events",
		Params: url.Values{"init": {"0"}, "cur_play_type": {"1"}, "event_active_id": {"0"}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(list))
	for _, w := range list {
		if w.Event == "" {
			continue
		}
		out = append(out, Event{ID: string(w.ID), Type: w.Event, Message: w.Msg, NeedConfirm: bool(w.NeedConfirm)})
	}
	return out, nil
}

// ConfirmEvent acknowledges a notification.
func (a *API) ConfirmEvent(ctx context.Context, id string) error {
	_, err := call[json.RawMessage](ctx, a, Request{
		Type:   "watchdog",
		Action: "confirm_event",
		Params: url.Values{"event_active_id": {id}},
	})
	return err
}

// LogEvent reports an analytics event. Callers go through FireAndForget.
func (a *API) LogEvent(ctx context.Context, action, param, contentID string) error {
	_, err := call[json.RawMessage](ctx, a, Request{
		Type:   "stb",
		Action: "log",
		Params: url.Values{"real_action": {action}, "param": {param}, "content_id": {contentID}, "tmp_type": {"1"}},
	})
	return err
}
