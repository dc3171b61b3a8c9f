// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, newRedisCache(client, "test:", zerolog.Nop())
}

func TestRedisCache_SetGet(t *testing.T) {
	ctx := context.Background()
	mr, c := setupMiniRedis(t)

	c.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
	assert.True(t, mr.Exists("test:k"))

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, 1, s.CurrentSize)
}

func TestRedisCache_Expiration(t *testing.T) {
	ctx := context.Background()
	mr, c := setupMiniRedis(t)

	c.Set(ctx, "k", []byte("v"), time.Minute)
	mr.FastForward(2 * time.Minute)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisCache_ClearOnlyOwnPrefix(t *testing.T) {
	ctx := context.Background()
	mr, c := setupMiniRedis(t)
	require.NoError(t, mr.Set("other:key", "keep"))

	c.Set(ctx, "a", []byte("1"), 0)
	c.Set(ctx, "b", []byte("2"), 0)
	c.Clear(ctx)

	assert.False(t, mr.Exists("test:a"))
	assert.False(t, mr.Exists("test:b"))
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisCache_DownReportsMiss(t *testing.T) {
	ctx := context.Background()
	mr, c := setupMiniRedis(t)
	c.Set(ctx, "k", []byte("v"), 0)
	mr.Close()

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Error(t, c.HealthCheck(ctx))
}

func TestNewRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = NewRedisCache(context.Background(), RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	assert.Error(t, err)
}
