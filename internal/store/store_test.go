// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/stbportal/internal/domain"
)

var testSession = domain.AuthSession{
	DeviceID:      "00:1A:79:00:00:01",
	Token:         "tok",
	ServerBaseURL: "http://portal/stalker_portal/server/load.php",
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, testSession))
	got, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testSession, got)

	updated := testSession
	updated.Token = "tok2"
	require.NoError(t, s.Save(ctx, updated))
	got, _, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok2", got.Token)

	require.NoError(t, s.Clear(ctx))
	_, ok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.Clear(ctx), "clearing twice is fine")
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := NewFileStore(path)
	exerciseStore(t, s)

	require.NoError(t, s.Save(context.Background(), testSession))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "db.sqlite"), DefaultSQLiteConfig())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.sqlite")
	s, err := OpenSQLite(path, DefaultSQLiteConfig())
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), testSession))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path, DefaultSQLiteConfig())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	got, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testSession, got)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Config{Backend: BackendFile, DataDir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "session.json"), s.(*FileStore).Path())

	s, err = Open(Config{Backend: BackendSQLite, DataDir: dir, Path: "x.sqlite"})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.FileExists(t, filepath.Join(dir, "x.sqlite"))

	_, err = Open(Config{Backend: "etcd"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
