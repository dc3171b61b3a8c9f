// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package validate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_URL(t *testing.T) {
	tests := []struct {
		name           string
		value          string
		allowedSchemes []string
		wantErr        bool
	}{
		{"valid http", "http://example.com", []string{"http", "https"}, false},
		{"valid https", "https://example.com/stalker_portal/c/", []string{"http", "https"}, false},
		{"empty url", "", []string{"http"}, true},
		{"no host", "http://", []string{"http"}, true},
		{"invalid scheme", "ftp://example.com", []string{"http", "https"}, true},
		{"no scheme", "example.com", []string{"http"}, true},
		{"with port", "http://example.com:8080", []string{"http"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("portal.url", tt.value, tt.allowedSchemes)
			assert.Equal(t, !tt.wantErr, v.IsValid(), "err: %v", v.Err())
		})
	}
}

func TestValidator_Ranges(t *testing.T) {
	v := New()
	v.Range("a", 5, 1, 10)
	v.FloatRange("b", 0.5, 0, 1)
	v.MinDuration("c", time.Second, time.Second)
	v.Positive("d", 1)
	require.True(t, v.IsValid())

	v.Range("a", 11, 1, 10)
	v.FloatRange("b", 1.5, 0, 1)
	v.MinDuration("c", time.Millisecond, time.Second)
	v.Positive("d", 0)
	assert.Len(t, v.Errors(), 4)
}

func TestValidator_OneOfAndNotEmpty(t *testing.T) {
	v := New()
	v.OneOf("store.backend", "sqlite", []string{"file", "sqlite", "memory"})
	v.NotEmpty("portal.url", "x")
	require.True(t, v.IsValid())

	v.OneOf("store.backend", "badger", []string{"file", "sqlite", "memory"})
	v.NotEmpty("portal.url", "   ")
	require.Len(t, v.Errors(), 2)
	assert.Equal(t, "store.backend", v.Errors()[0].Field)
}

func TestValidator_Directory(t *testing.T) {
	dir := t.TempDir()

	v := New()
	v.Directory("dataDir", filepath.Join(dir, "new"), false)
	require.True(t, v.IsValid(), "missing directory is created")
	info, err := os.Stat(filepath.Join(dir, "new"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	v.Directory("dataDir", filepath.Join(dir, "absent"), true)
	v.Directory("dataDir", dir+"/../etc", false)
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	v.Directory("dataDir", file, false)
	assert.Len(t, v.Errors(), 3)
}

func TestValidationError(t *testing.T) {
	v := New()
	require.NoError(t, v.Err())

	v.AddError("a", "bad", 1)
	v.AddError("b", "worse", 2)
	err := v.Err()
	require.Error(t, err)

	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors(), 2)
	assert.Equal(t, "validation failed for a: bad; validation failed for b: worse", err.Error())

	v.Custom("c", 3, func(any) error { return errors.New("nope") })
	assert.Len(t, ve.Errors(), 2, "error value is a snapshot")
}
