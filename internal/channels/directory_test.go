// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package channels

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/stbportal/internal/cache"
	"github.com/ManuGH/stbportal/internal/clock"
	"github.com/ManuGH/stbportal/internal/domain"
	"github.com/ManuGH/stbportal/internal/favorites"
)

type fakeSource struct {
	mu       sync.Mutex
	channels []domain.Channel
	genres   []domain.Genre
	err      error
	calls    int
}

func (f *fakeSource) set(chs ...domain.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = chs
}

func (f *fakeSource) Channels(context.Context) ([]domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Channel(nil), f.channels...), nil
}

func (f *fakeSource) Genres(context.Context) ([]domain.Genre, error) {
	return f.genres, nil
}

func ch(id string, n int, cmd, genre string) domain.Channel {
	return domain.Channel{ID: id, Number: n, Name: "Channel " + id, Cmd: cmd, GenreID: genre}
}

func TestRefresh_KeepsKnownGoodCommand(t *testing.T) {
	src := &fakeSource{}
	d := NewDirectory(src, nil, nil, nil)

	src.set(ch("1", 1, "ffmpeg http://s/1", "1"))
	_, err := d.Refresh(context.Background())
	require.NoError(t, err)

	src.set(ch("1", 1, "", "1"))
	got, err := d.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ffmpeg http://s/1", got[0].Cmd)

	src.set(ch("1", 1, "ffmpeg http://s/1b", "1"))
	_, err = d.Refresh(context.Background())
	require.NoError(t, err)
	c, ok := d.ByID("1")
	require.True(t, ok)
	assert.Equal(t, "ffmpeg http://s/1b", c.Cmd, "newer non-blank command wins")
}

func TestRefresh_CommandsSurviveRestartThroughCache(t *testing.T) {
	store := cache.NewMemoryCache(0, nil)
	src := &fakeSource{}
	src.set(ch("1", 1, "ffmpeg http://s/1", "1"))

	_, err := NewDirectory(src, store, nil, nil).Refresh(context.Background())
	require.NoError(t, err)

	src.set(ch("1", 1, "", "1"))
	restarted := NewDirectory(src, store, nil, nil)
	got, err := restarted.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg http://s/1", got[0].Cmd)
}

func TestRefresh_ErrorKeepsSnapshot(t *testing.T) {
	src := &fakeSource{}
	src.set(ch("1", 1, "ffmpeg http://s/1", "1"))
	d := NewDirectory(src, nil, nil, nil)
	_, err := d.Refresh(context.Background())
	require.NoError(t, err)

	src.err = errors.New("portal down")
	_, err = d.Refresh(context.Background())
	require.Error(t, err)
	assert.Len(t, d.Channels(), 1)
}

func TestRefresh_PrunesConfirmedFavorites(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	overlay := favorites.NewOverlay(clk)
	src := &fakeSource{}
	src.set(ch("1", 1, "c", "1"))
	d := NewDirectory(src, nil, overlay, clk)

	d.SetFavorite("1", true)
	c, _ := d.ByID("1")
	assert.False(t, c.Fav, "no snapshot yet")

	_, err := d.Refresh(context.Background())
	require.NoError(t, err)
	c, _ = d.ByID("1")
	assert.True(t, c.Fav, "overlay applied on top of server state")
	assert.Equal(t, 1, overlay.Len())

	clk.Advance(time.Second)
	confirmed := ch("1", 1, "c", "1")
	confirmed.Fav = true
	src.set(confirmed)
	_, err = d.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, overlay.Len())
	assert.Equal(t, []string{"1"}, d.ServerFavoriteIDs())
}

func TestLookups(t *testing.T) {
	src := &fakeSource{}
	src.set(ch("10", 1, "a", "1"), ch("20", 2, "b", "2"))
	d := NewDirectory(src, nil, nil, nil)

	_, ok := d.ByID("10")
	assert.False(t, ok)

	_, err := d.Refresh(context.Background())
	require.NoError(t, err)

	c, ok := d.ByNumber(2)
	require.True(t, ok)
	assert.Equal(t, "20", c.ID)
	_, ok = d.ByNumber(3)
	assert.False(t, ok)
}

func TestScrollLooped(t *testing.T) {
	src := &fakeSource{}
	src.set(
		ch("1", 1, "a", "news"),
		ch("2", 2, "b", "sport"),
		ch("3", 3, "c", "news"),
		ch("4", 4, "d", "news"),
		ch("5", 5, "e", "movies"),
	)
	d := NewDirectory(src, nil, nil, nil)
	_, err := d.Refresh(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name    string
		current string
		dir     int
		genre   string
		want    string
		ok      bool
	}{
		{"next in all", "1", 1, GenreAll, "2", true},
		{"wraps forward", "5", 1, GenreAll, "1", true},
		{"wraps backward", "1", -1, GenreAll, "5", true},
		{"next in genre skips others", "1", 1, "news", "3", true},
		{"genre wraps", "4", 1, "news", "1", true},
		{"unknown current starts at edge", "2", -1, "news", "4", true},
		{"single member has no neighbour", "2", 1, "sport", "", false},
		{"empty subset", "1", 1, "kids", "", false},
		{"zero direction", "1", 0, GenreAll, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := d.ScrollLooped(tt.current, tt.dir, tt.genre)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.ID)
			}
		})
	}
}

func TestScrollLooped_Favorites(t *testing.T) {
	src := &fakeSource{}
	src.set(ch("1", 1, "a", "x"), ch("2", 2, "b", "x"), ch("3", 3, "c", "x"))
	d := NewDirectory(src, nil, nil, nil)
	_, err := d.Refresh(context.Background())
	require.NoError(t, err)

	d.SetFavorite("1", true)
	_, ok := d.ScrollLooped("1", 1, GenreFavorites)
	assert.False(t, ok)

	d.SetFavorite("3", true)
	got, ok := d.ScrollLooped("1", 1, GenreFavorites)
	require.True(t, ok)
	assert.Equal(t, "3", got.ID)
}

func TestSearch(t *testing.T) {
	src := &fakeSource{}
	a := ch("1", 1, "a", "x")
	a.Name = "Das Erste HD"
	b := ch("2", 2, "b", "x")
	b.Name = "\u00d61 Radio"
	src.set(a, b)
	d := NewDirectory(src, nil, nil, nil)
	_, err := d.Refresh(context.Background())
	require.NoError(t, err)

	got := d.Search("erste")
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	got = d.Search("o\u03081")
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	assert.Empty(t, d.Search("  "))
}

func TestInvalidateAndObservers(t *testing.T) {
	src := &fakeSource{}
	src.set(ch("1", 1, "ffmpeg http://s/1", "x"))
	d := NewDirectory(src, nil, nil, nil)

	var seen []int
	d.OnChange(func(chs []domain.Channel) { seen = append(seen, len(chs)) })

	_, err := d.Refresh(context.Background())
	require.NoError(t, err)
	d.Invalidate()
	assert.False(t, d.Loaded())

	src.set(ch("1", 1, "", "x"))
	got, err := d.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg http://s/1", got[0].Cmd, "invalidate keeps known-good commands")
	assert.Equal(t, []int{1, 0, 1}, seen)
}

func TestRefresh_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	src := &fakeSource{}
	src.set(ch("1", 1, "a", "x"), ch("2", 2, "b", "x"))
	d := NewDirectory(src, nil, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = d.Refresh(context.Background())
		}()
		go func() {
			defer wg.Done()
			if chs := d.Channels(); chs != nil {
				assert.Len(t, chs, 2)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 4, src.calls)
}
