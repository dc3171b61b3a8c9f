// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver

	"github.com/ManuGH/stbportal/internal/domain"
)

// SQLiteConfig defines the SQLite pool parameters.
type SQLiteConfig struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultSQLiteConfig returns the recommended pool settings.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

const sessionSchema = `
CREATE TABLE IF NOT EXISTS session (
	id              INTEGER PRIMARY KEY CHECK (id = 1),
	device_id       TEXT NOT NULL,
	token           TEXT NOT NULL,
	server_base_url TEXT NOT NULL,
	saved_at        INTEGER NOT NULL
);`

// SQLiteStore keeps the session in a single-row table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates) the database at path with WAL and
// busy_timeout applied to every pooled connection.
func OpenSQLite(path string, cfg SQLiteConfig) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	if issues, err := quickCheck(db); err != nil || len(issues) > 0 {
		_ = db.Close()
		if err == nil {
			err = fmt.Errorf("sqlite: integrity check failed: %s", strings.Join(issues, "; "))
		}
		return nil, err
	}
	if _, err := db.Exec(sessionSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// quickCheck runs PRAGMA quick_check. Healthy is exactly one "ok" row.
func quickCheck(db *sql.DB) ([]string, error) {
	rows, err := db.Query("PRAGMA quick_check;")
	if err != nil {
		return nil, fmt.Errorf("sqlite: integrity pragma failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return nil, fmt.Errorf("sqlite: scan integrity row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(results) == 1 && strings.EqualFold(results[0], "ok") {
		return nil, nil
	}
	if len(results) == 0 {
		return []string{"no results returned from integrity check"}, nil
	}
	return results, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (domain.AuthSession, bool, error) {
	var sess domain.AuthSession
	err := s.db.QueryRowContext(ctx,
		`SELECT device_id, token, server_base_url FROM session WHERE id = 1`,
	).Scan(&sess.DeviceID, &sess.Token, &sess.ServerBaseURL)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AuthSession{}, false, nil
	}
	if err != nil {
		return domain.AuthSession{}, false, fmt.Errorf("sqlite: load session: %w", err)
	}
	return sess, sess.Valid(), nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess domain.AuthSession) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO session (id, device_id, token, server_base_url, saved_at)
VALUES (1, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	device_id = excluded.device_id,
	token = excluded.token,
	server_base_url = excluded.server_base_url,
	saved_at = excluded.saved_at`,
		sess.DeviceID, sess.Token, sess.ServerBaseURL, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite: save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("sqlite: clear session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
