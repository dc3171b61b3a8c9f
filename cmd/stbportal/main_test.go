// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/stbportal/internal/config"
	"github.com/ManuGH/stbportal/internal/daemon"
	"github.com/ManuGH/stbportal/internal/playback"
	"github.com/ManuGH/stbportal/internal/portal"
	"github.com/ManuGH/stbportal/internal/version"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersionFlag(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, exitOK, run([]string{"-version"}, &out, &errOut))
	assert.Contains(t, out.String(), version.Version)
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeConfig(t, "dataDir: "+dir+"\nportal:\n  url: http://portal.example/stalker_portal/c/\n")
	bad := writeConfig(t, "dataDir: "+dir+"\nportal:\n  url: http://portal.example/c/\n  bogus: 1\n")

	var out, errOut bytes.Buffer
	assert.Equal(t, exitOK, run([]string{"config", "validate", "-f", good}, &out, &errOut), errOut.String())
	assert.Contains(t, out.String(), "valid")

	errOut.Reset()
	assert.Equal(t, exitError, run([]string{"config", "validate", "-f", bad}, &out, &errOut))
	assert.Contains(t, errOut.String(), "bogus")

	assert.Equal(t, exitUsage, run([]string{"config", "frobnicate"}, &out, &errOut))
}

func TestConfigDumpMasksSecrets(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "dataDir: "+dir+"\nportal:\n  url: http://portal.example/c/\ncache:\n  redisPassword: hunter2\n")

	var out, errOut bytes.Buffer
	require.Equal(t, exitOK, run([]string{"config", "dump", "-f", path}, &out, &errOut), errOut.String())
	assert.NotContains(t, out.String(), "hunter2")
	assert.Contains(t, out.String(), "portal.example")

	out.Reset()
	require.Equal(t, exitOK, run([]string{"config", "dump", "-f", path, "--format=json"}, &out, &errOut), errOut.String())
	assert.NotContains(t, out.String(), "hunter2")

	assert.Equal(t, exitUsage, run([]string{"config", "dump", "-f", path, "--format=toml"}, &out, &errOut))
}

func TestExportXMLTV(t *testing.T) {
	mock := portal.NewMockServer()
	defer mock.Close()
	mock.SetChannels(portal.Channel("1", 1, "News", "http://cdn/1.ts"))

	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.Portal.URL = mock.URL
	cfg.Portal.MaxAttempts = 1
	cfg.Store.Backend = "memory"
	cfg.EPG.Location = "UTC"

	eng, err := daemon.New(context.Background(), cfg, daemon.Options{Player: &playback.FakePlayer{}})
	require.NoError(t, err)
	defer func() { _ = eng.Shutdown(context.Background()) }()

	path := filepath.Join(t.TempDir(), "guide.xml")
	require.NoError(t, exportXMLTV(context.Background(), eng, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<tv")
	assert.Contains(t, string(data), "News")
}
