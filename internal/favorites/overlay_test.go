// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package favorites

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/stbportal/internal/clock"
	"github.com/ManuGH/stbportal/internal/domain"
)

type fakeUploader struct {
	got [][]string
	err error
}

func (f *fakeUploader) SetFavorites(_ context.Context, ids []string) error {
	f.got = append(f.got, ids)
	return f.err
}

func TestOverlay_ConvergesAfterRefresh(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	o := NewOverlay(clk)

	o.SetFav("x", true)
	clk.Advance(time.Second)
	refreshStarted := clk.Now()

	removed := o.Prune(map[string]bool{"x": true}, refreshStarted)
	assert.Equal(t, 1, removed)
	_, ok := o.Lookup("x")
	assert.False(t, ok)
}

func TestOverlay_KeepsNewerOrDisagreeingEntries(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	o := NewOverlay(clk)
	refreshStarted := clk.Now()

	o.SetFav("toggled-during-refresh", true)
	o.SetFav("server-disagrees", true)
	o.SetFav("unknown", false)

	removed := o.Prune(map[string]bool{
		"toggled-during-refresh": true,
		"server-disagrees":       false,
	}, refreshStarted)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 3, o.Len())
}

func TestOverlay_Apply(t *testing.T) {
	o := NewOverlay(nil)
	chs := []domain.Channel{{ID: "1", Fav: true}, {ID: "2"}}
	o.SetFav("1", false)
	o.SetFav("2", true)

	got := o.Apply(chs)
	assert.False(t, got[0].Fav)
	assert.True(t, got[1].Fav)
	assert.True(t, chs[0].Fav, "input is not mutated")
}

func TestOverlay_FlushUploadsDesiredSet(t *testing.T) {
	o := NewOverlay(nil)
	up := &fakeUploader{}

	require.NoError(t, o.Flush(context.Background(), up, []string{"1"}))
	assert.Empty(t, up.got, "nothing pending, nothing uploaded")

	o.SetFav("1", false)
	o.SetFav("3", true)
	require.NoError(t, o.Flush(context.Background(), up, []string{"1", "2"}))
	require.Len(t, up.got, 1)
	assert.Equal(t, []string{"2", "3"}, up.got[0])
	assert.Equal(t, 2, o.Len(), "entries wait for server confirmation")
}

func TestOverlay_FlushError(t *testing.T) {
	o := NewOverlay(nil)
	o.SetFav("1", true)
	up := &fakeUploader{err: errors.New("down")}
	assert.Error(t, o.Flush(context.Background(), up, nil))
	assert.Equal(t, 1, o.Len())
}

func TestOverlay_Reset(t *testing.T) {
	o := NewOverlay(nil)
	o.SetFav("1", true)
	o.Reset()
	assert.Equal(t, 0, o.Len())
}
