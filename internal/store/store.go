// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package store persists the portal session between runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ManuGH/stbportal/internal/domain"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("store: unknown backend")

// Store is a credential store with an explicit close.
type Store interface {
	Load(ctx context.Context) (domain.AuthSession, bool, error)
	Save(ctx context.Context, s domain.AuthSession) error
	Clear(ctx context.Context) error
	Close() error
}

// Config selects and locates the backend.
type Config struct {
	Backend string
	// Path is the file or database path. Relative paths resolve against
	// DataDir.
	Path    string
	DataDir string
}

// Open creates the configured store.
func Open(cfg Config) (Store, error) {
	path := cfg.Path
	if path != "" && !filepath.IsAbs(path) && cfg.DataDir != "" {
		path = filepath.Join(cfg.DataDir, path)
	}
	switch cfg.Backend {
	case "", BackendFile:
		if path == "" {
			path = filepath.Join(cfg.DataDir, "session.json")
		}
		return NewFileStore(path), nil
	case BackendSQLite:
		if path == "" {
			path = filepath.Join(cfg.DataDir, "stbportal.sqlite")
		}
		return OpenSQLite(path, DefaultSQLiteConfig())
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// MemoryStore keeps the session for the lifetime of the process.
type MemoryStore struct {
	mu sync.Mutex
	s  domain.AuthSession
	ok bool
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(context.Context) (domain.AuthSession, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, m.ok, nil
}

func (m *MemoryStore) Save(_ context.Context, s domain.AuthSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s, m.ok = s, true
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s, m.ok = domain.AuthSession{}, false
	return nil
}

func (m *MemoryStore) Close() error { return nil }
