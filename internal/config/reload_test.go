// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolderReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	write := func(body string) { require.NoError(t, os.WriteFile(path, []byte(body), 0o600)) }
	write("dataDir: " + dir + "\nportal:\n  url: http://portal.example/c/\nlog:\n  level: info\n")

	loader := NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(cfg, loader)

	var seen []string
	h.OnReload(func(old, updated AppConfig) { seen = append(seen, old.Log.Level+"->"+updated.Log.Level) })

	write("dataDir: " + dir + "\nportal:\n  url: http://portal.example/c/\nlog:\n  level: debug\n")
	require.NoError(t, h.Reload())
	assert.Equal(t, "debug", h.Get().Log.Level)

	write("dataDir: " + dir + "\nportal:\n  url: http://portal.example/c/\nlog:\n  level: loud\n")
	require.Error(t, h.Reload())
	assert.Equal(t, "debug", h.Get().Log.Level)
	assert.Equal(t, []string{"info->debug"}, seen)
}

func TestHolderWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+dir+"\nportal:\n  url: http://portal.example/c/\n"), 0o600))

	loader := NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(cfg, loader)
	h.Debounce = 10 * time.Millisecond

	var reloads atomic.Int32
	h.OnReload(func(_, _ AppConfig) { reloads.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Watch(ctx) }()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("dataDir: "+dir+"\nportal:\n  url: http://portal.example/c/\nlog:\n  level: warn\n"), 0o600)
		return reloads.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
	assert.Equal(t, "warn", h.Get().Log.Level)

	cancel()
	require.NoError(t, <-done)
}

func TestHolderWatchWithoutFile(t *testing.T) {
	h := NewHolder(Defaults(), NewLoader("", "test"))
	assert.NoError(t, h.Watch(context.Background()))
}
