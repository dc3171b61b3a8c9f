// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/stbportal/internal/domain"
)

// FileStore keeps the session as a JSON document replaced atomically on
// every save.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store at path. The file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(ctx context.Context) (domain.AuthSession, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.AuthSession{}, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.AuthSession{}, false, nil
	}
	if err != nil {
		return domain.AuthSession{}, false, fmt.Errorf("read session file: %w", err)
	}
	var s domain.AuthSession
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.AuthSession{}, false, fmt.Errorf("decode session file: %w", err)
	}
	return s, s.Valid(), nil
}

func (f *FileStore) Save(ctx context.Context, s domain.AuthSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	// fsync + rename; the token never appears half-written
	if err := renameio.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }
