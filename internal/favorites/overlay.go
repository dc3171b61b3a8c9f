// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package favorites keeps optimistic favorite toggles until the portal
// confirms them.
package favorites

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/stbportal/internal/clock"
	"github.com/ManuGH/stbportal/internal/domain"
	stblog "github.com/ManuGH/stbportal/internal/log"
	"github.com/ManuGH/stbportal/internal/metrics"
)

// Uploader replaces the portal's favorite list.
type Uploader interface {
	SetFavorites(ctx context.Context, ids []string) error
}

// Entry is one local override.
type Entry struct {
	Value bool
	SetAt time.Time
}

// Overlay maps channel ids to local favorite overrides. All writes are
// serialized.
type Overlay struct {
	mu      sync.Mutex
	entries map[string]Entry
	clock   clock.Clock
	logger  zerolog.Logger
}

// NewOverlay creates an empty overlay.
func NewOverlay(clk clock.Clock) *Overlay {
	return &Overlay{
		entries: make(map[string]Entry),
		clock:   clock.Or(clk),
		logger:  stblog.WithComponent("favorites"),
	}
}

// SetFav records a user toggle.
func (o *Overlay) SetFav(id string, value bool) {
	o.mu.Lock()
	o.entries[id] = Entry{Value: value, SetAt: o.clock.Now()}
	n := len(o.entries)
	o.mu.Unlock()

	metrics.SetFavoritesOverlaySize(n)
	o.logger.Debug().Str(stblog.FieldChannelID, id).Bool("fav", value).Msg("favorite toggled")
}

// Lookup returns the override for id.
func (o *Overlay) Lookup(id string) (Entry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[id]
	return e, ok
}

// Len returns the number of pending overrides.
func (o *Overlay) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// Apply returns a copy of chs with overrides applied to Fav.
func (o *Overlay) Apply(chs []domain.Channel) []domain.Channel {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]domain.Channel, len(chs))
	copy(out, chs)
	if len(o.entries) == 0 {
		return out
	}
	for i := range out {
		if e, ok := o.entries[out[i].ID]; ok {
			out[i].Fav = e.Value
		}
	}
	return out
}

// Prune drops entries that the server now agrees with and that were set
// before refreshStarted. Entries for ids the server did not return are
// kept. It returns the number of removed entries.
func (o *Overlay) Prune(server map[string]bool, refreshStarted time.Time) int {
	o.mu.Lock()
	removed := 0
	for id, e := range o.entries {
		fav, known := server[id]
		if !known || fav != e.Value || !e.SetAt.Before(refreshStarted) {
			continue
		}
		delete(o.entries, id)
		removed++
	}
	n := len(o.entries)
	o.mu.Unlock()

	if removed > 0 {
		metrics.SetFavoritesOverlaySize(n)
		o.logger.Debug().Int("removed", removed).Int("pending", n).Msg("favorite overlay pruned")
	}
	return removed
}

// Desired merges the overlay onto the server's favorite ids.
func (o *Overlay) Desired(serverFavs []string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	set := make(map[string]bool, len(serverFavs)+len(o.entries))
	for _, id := range serverFavs {
		set[id] = true
	}
	for id, e := range o.entries {
		set[id] = e.Value
	}
	out := make([]string, 0, len(set))
	for id, fav := range set {
		if fav {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Flush uploads the desired favorite set when overrides are pending.
// Entries stay until a later refresh confirms them.
func (o *Overlay) Flush(ctx context.Context, up Uploader, serverFavs []string) error {
	if o.Len() == 0 {
		return nil
	}
	ids := o.Desired(serverFavs)
	if err := up.SetFavorites(ctx, ids); err != nil {
		o.logger.Warn().Err(err).Msg("favorite upload failed")
		return err
	}
	o.logger.Debug().Int("count", len(ids)).Msg("favorites uploaded")
	return nil
}

// Reset drops every override.
func (o *Overlay) Reset() {
	o.mu.Lock()
	o.entries = make(map[string]Entry)
	o.mu.Unlock()
	metrics.SetFavoritesOverlaySize(0)
}
