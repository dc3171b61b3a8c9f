// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package channels maintains the portal's channel list with last-known-good
// play commands and the favorite overlay applied.
package channels

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/stbportal/internal/cache"
	"github.com/ManuGH/stbportal/internal/clock"
	"github.com/ManuGH/stbportal/internal/domain"
	"github.com/ManuGH/stbportal/internal/favorites"
	stblog "github.com/ManuGH/stbportal/internal/log"
	"github.com/ManuGH/stbportal/internal/metrics"
)

// commandsKey stores the id -> play command map in the cache backend.
const commandsKey = "channels:commands"

// GenreAll and GenreFavorites are the pseudo genres understood by
// ScrollLooped.
const (
	GenreAll       = ""
	GenreFavorites = "fav"
)

// Source is the portal surface the directory refreshes from.
type Source interface {
	Channels(ctx context.Context) ([]domain.Channel, error)
	Genres(ctx context.Context) ([]domain.Genre, error)
}

type snapshot struct {
	channels  []domain.Channel
	byID      map[string]int
	byNumber  map[int]int
	fetchedAt time.Time
}

func newSnapshot(chs []domain.Channel, at time.Time) *snapshot {
	s := &snapshot{
		channels:  chs,
		byID:      make(map[string]int, len(chs)),
		byNumber:  make(map[int]int, len(chs)),
		fetchedAt: at,
	}
	for i, ch := range chs {
		s.byID[ch.ID] = i
		if _, dup := s.byNumber[ch.Number]; !dup {
			s.byNumber[ch.Number] = i
		}
	}
	return s
}

// Directory is the channel cache. Readers see whole snapshots; refreshes
// are serialized.
type Directory struct {
	src     Source
	store   cache.Cache
	overlay *favorites.Overlay
	clock   clock.Clock
	logger  zerolog.Logger

	refreshMu sync.Mutex
	list      atomic.Pointer[snapshot]
	genres    atomic.Pointer[[]domain.Genre]

	// guarded by refreshMu
	commands       map[string]string
	commandsLoaded bool

	obsMu     sync.Mutex
	observers []func([]domain.Channel)
}

// NewDirectory creates a directory. store and overlay may be nil.
func NewDirectory(src Source, store cache.Cache, overlay *favorites.Overlay, clk clock.Clock) *Directory {
	if store == nil {
		store = cache.NewNoOpCache()
	}
	clk = clock.Or(clk)
	if overlay == nil {
		overlay = favorites.NewOverlay(clk)
	}
	return &Directory{
		src:      src,
		store:    store,
		overlay:  overlay,
		clock:    clk,
		logger:   stblog.WithComponent("channels"),
		commands: make(map[string]string),
	}
}

// Overlay returns the favorite overlay the directory prunes.
func (d *Directory) Overlay() *favorites.Overlay { return d.overlay }

// Refresh fetches the channel list, keeps known-good commands for channels
// that came back blank, swaps the snapshot and prunes confirmed favorites.
func (d *Directory) Refresh(ctx context.Context) ([]domain.Channel, error) {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	started := d.clock.Now()
	d.loadCommands(ctx)

	fetched, err := d.src.Channels(ctx)
	if err != nil {
		metrics.RecordChannelRefresh("error", 0)
		d.logger.Warn().Err(err).Msg("channel refresh failed")
		return nil, err
	}

	merged, restored, changed := d.mergeCommands(fetched)
	if changed {
		if err := cache.SetJSON(ctx, d.store, commandsKey, d.commands, 0); err != nil {
			d.logger.Warn().Err(err).Msg("failed to persist play commands")
		}
	}
	metrics.RecordCommandsRestored(restored)

	if genres, err := d.src.Genres(ctx); err == nil {
		d.genres.Store(&genres)
	} else {
		d.logger.Debug().Err(err).Msg("genre refresh failed, keeping previous list")
	}

	d.list.Store(newSnapshot(merged, started))

	server := make(map[string]bool, len(merged))
	for _, ch := range merged {
		server[ch.ID] = ch.Fav
	}
	d.overlay.Prune(server, started)

	metrics.RecordChannelRefresh("success", len(merged))
	d.logger.Info().
		Int("channels", len(merged)).
		Int("commands_restored", restored).
		Dur("duration", d.clock.Now().Sub(started)).
		Msg("channel list refreshed")

	out := d.overlay.Apply(merged)
	d.notify(out)
	return out, nil
}

// loadCommands seeds the known-good map from the cache backend once.
func (d *Directory) loadCommands(ctx context.Context) {
	if d.commandsLoaded {
		return
	}
	d.commandsLoaded = true
	saved, ok := cache.GetJSON[map[string]string](ctx, d.store, commandsKey)
	if !ok {
		return
	}
	for id, cmd := range saved {
		if _, have := d.commands[id]; !have && strings.TrimSpace(cmd) != "" {
			d.commands[id] = cmd
		}
	}
	d.logger.Debug().Int("commands", len(saved)).Msg("restored known-good play commands")
}

// mergeCommands never lets a channel regress to a blank command.
func (d *Directory) mergeCommands(fetched []domain.Channel) ([]domain.Channel, int, bool) {
	out := make([]domain.Channel, len(fetched))
	restored := 0
	changed := false
	for i, ch := range fetched {
		if strings.TrimSpace(ch.Cmd) == "" {
			if known, ok := d.commands[ch.ID]; ok {
				ch.Cmd = known
				restored++
			}
		} else if d.commands[ch.ID] != ch.Cmd {
			d.commands[ch.ID] = ch.Cmd
			changed = true
		}
		out[i] = ch
	}
	return out, restored, changed
}

// Loaded reports whether a snapshot is available.
func (d *Directory) Loaded() bool { return d.list.Load() != nil }

// FetchedAt returns when the current snapshot's refresh started.
func (d *Directory) FetchedAt() time.Time {
	if s := d.list.Load(); s != nil {
		return s.fetchedAt
	}
	return time.Time{}
}

// Channels returns the current list with the favorite overlay applied.
func (d *Directory) Channels() []domain.Channel {
	s := d.list.Load()
	if s == nil {
		return nil
	}
	return d.overlay.Apply(s.channels)
}

// ServerFavoriteIDs returns the ids the portal reported as favorites.
func (d *Directory) ServerFavoriteIDs() []string {
	s := d.list.Load()
	if s == nil {
		return nil
	}
	var ids []string
	for _, ch := range s.channels {
		if ch.Fav {
			ids = append(ids, ch.ID)
		}
	}
	return ids
}

func (d *Directory) withOverlay(ch domain.Channel) domain.Channel {
	if e, ok := d.overlay.Lookup(ch.ID); ok {
		ch.Fav = e.Value
	}
	return ch
}

// ByID looks a channel up by portal id.
func (d *Directory) ByID(id string) (domain.Channel, bool) {
	s := d.list.Load()
	if s == nil {
		return domain.Channel{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return domain.Channel{}, false
	}
	return d.withOverlay(s.channels[i]), true
}

// ByNumber looks a channel up by its order number.
func (d *Directory) ByNumber(n int) (domain.Channel, bool) {
	s := d.list.Load()
	if s == nil {
		return domain.Channel{}, false
	}
	i, ok := s.byNumber[n]
	if !ok {
		return domain.Channel{}, false
	}
	return d.withOverlay(s.channels[i]), true
}

// ScrollLooped returns the neighbour of currentID in direction within the
// genre subset, wrapping at both ends. It returns false when the subset has
// fewer than two members. An unknown currentID starts from the subset edge.
func (d *Directory) ScrollLooped(currentID string, direction int, genreID string) (domain.Channel, bool) {
	if direction == 0 {
		return domain.Channel{}, false
	}
	var subset []domain.Channel
	for _, ch := range d.Channels() {
		if matchesGenre(ch, genreID) {
			subset = append(subset, ch)
		}
	}
	n := len(subset)
	if n < 2 {
		return domain.Channel{}, false
	}

	idx := -1
	for i, ch := range subset {
		if ch.ID == currentID {
			idx = i
			break
		}
	}
	step := 1
	if direction < 0 {
		step = -1
	}
	if idx < 0 {
		if step > 0 {
			return subset[0], true
		}
		return subset[n-1], true
	}
	return subset[((idx+step)%n+n)%n], true
}

func matchesGenre(ch domain.Channel, genreID string) bool {
	switch genreID {
	case GenreAll, "*":
		return true
	case GenreFavorites:
		return ch.Fav
	default:
		return ch.GenreID == genreID
	}
}

// Genres returns the last fetched genre list.
func (d *Directory) Genres() []domain.Genre {
	g := d.genres.Load()
	if g == nil {
		return nil
	}
	return append([]domain.Genre(nil), (*g)...)
}

// Search returns channels whose name contains query, comparing NFC
// normalized, case-folded text.
func (d *Directory) Search(query string) []domain.Channel {
	q := foldName(query)
	if q == "" {
		return nil
	}
	var out []domain.Channel
	for _, ch := range d.Channels() {
		if strings.Contains(foldName(ch.Name), q) {
			out = append(out, ch)
		}
	}
	return out
}

func foldName(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	return norm.NFC.String(strings.ToLower(s))
}

// SetFavorite records an optimistic toggle and notifies observers.
func (d *Directory) SetFavorite(id string, fav bool) {
	d.overlay.SetFav(id, fav)
	d.notify(d.Channels())
}

// Invalidate drops the snapshot. Known-good commands are kept.
func (d *Directory) Invalidate() {
	d.refreshMu.Lock()
	d.list.Store(nil)
	d.refreshMu.Unlock()
	d.logger.Info().Msg("channel list invalidated")
	d.notify(nil)
}

// Clear drops the snapshot and the known-good commands.
func (d *Directory) Clear(ctx context.Context) {
	d.refreshMu.Lock()
	d.list.Store(nil)
	d.genres.Store(nil)
	d.commands = make(map[string]string)
	d.store.Delete(ctx, commandsKey)
	d.refreshMu.Unlock()
	d.notify(nil)
}

// OnChange registers fn to run after every snapshot change.
func (d *Directory) OnChange(fn func([]domain.Channel)) {
	d.obsMu.Lock()
	defer d.obsMu.Unlock()
	d.observers = append(d.observers, fn)
}

func (d *Directory) notify(chs []domain.Channel) {
	d.obsMu.Lock()
	obs := append([]func([]domain.Channel){}, d.observers...)
	d.obsMu.Unlock()
	for _, fn := range obs {
		fn(chs)
	}
}
