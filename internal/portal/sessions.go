// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package portal

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/stbportal/internal/domain"
	stblog "github.com/ManuGH/stbportal/internal/log"
)

// CredentialStore persists the live session between runs.
type CredentialStore interface {
	Load(ctx context.Context) (domain.AuthSession, bool, error)
	Save(ctx context.Context, s domain.AuthSession) error
	Clear(ctx context.Context) error
}

// Sessions owns the single live AuthSession of the process.
type Sessions struct {
	client   *Client
	store    CredentialStore
	deviceID string
	logger   zerolog.Logger

	mu      sync.RWMutex
	current domain.AuthSession
	group   singleflight.Group
}

// NewSessions creates a session holder. store may be nil.
func NewSessions(client *Client, store CredentialStore, deviceID string) *Sessions {
	return &Sessions{
		client:   client,
		store:    store,
		deviceID: deviceID,
		logger:   stblog.WithComponent("sessions"),
	}
}

// DeviceID returns the device identity used for handshakes.
func (s *Sessions) DeviceID() string { return s.deviceID }

// Restore adopts a persisted session if it belongs to this device and
// portal. It reports whether a session was restored.
func (s *Sessions) Restore(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	saved, ok, err := s.store.Load(ctx)
	if err != nil || !ok {
		return false, err
	}
	if !saved.Valid() || saved.DeviceID != s.deviceID || saved.ServerBaseURL != s.client.Endpoint() {
		s.logger.Info().Msg("discarding persisted session for a different device or portal")
		return false, s.store.Clear(ctx)
	}
	s.mu.Lock()
	s.current = saved
	s.mu.Unlock()
	return true, nil
}

// Current returns the live session, if any.
func (s *Sessions) Current() (domain.AuthSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current.Valid()
}

// Ensure returns the live session, handshaking when there is none.
// Concurrent callers share one handshake.
func (s *Sessions) Ensure(ctx context.Context) (domain.AuthSession, error) {
	if cur, ok := s.Current(); ok {
		return cur, nil
	}
	v, err, _ := s.group.Do("handshake", func() (any, error) {
		if cur, ok := s.Current(); ok {
			return cur, nil
		}
		sess, err := s.client.Handshake(ctx, s.deviceID)
		recordHandshake(err)
		if err != nil {
			return domain.AuthSession{}, err
		}
		s.mu.Lock()
		s.current = sess
		s.mu.Unlock()
		if s.store != nil {
			if err := s.store.Save(ctx, sess); err != nil {
				s.logger.Warn().Err(err).Msg("failed to persist session")
			}
		}
		return sess, nil
	})
	if err != nil {
		return domain.AuthSession{}, err
	}
	return v.(domain.AuthSession), nil
}

// Invalidate drops stale if it is still the live session. A newer session
// installed by a concurrent handshake is kept.
func (s *Sessions) Invalidate(ctx context.Context, stale domain.AuthSession) {
	s.mu.Lock()
	if s.current.Token != stale.Token {
		s.mu.Unlock()
		return
	}
	s.current = domain.AuthSession{}
	s.mu.Unlock()

	s.logger.Info().
		Str(stblog.FieldDeviceID, stblog.MaskDeviceID(stale.DeviceID)).
		Msg("session invalidated, next call will handshake")
	if s.store != nil {
		if err := s.store.Clear(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to clear persisted session")
		}
	}
}

// Logout forgets the session in memory and in the store.
func (s *Sessions) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.current = domain.AuthSession{}
	s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	return s.store.Clear(ctx)
}
