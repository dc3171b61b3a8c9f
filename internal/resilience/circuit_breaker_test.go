// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/stbportal/internal/clock"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 30*time.Second)

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
		assert.Equal(t, StateClosed, cb.State())
	}
	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	executed := false
	err := cb.Execute(func() error { executed = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, executed, "function must not run while open")
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	fake := clock.NewFake(time.Unix(1_700_000_000, 0))
	cb := NewCircuitBreaker("test", 1, 10*time.Second, WithClock(fake))

	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, StateOpen, cb.State())

	fake.Advance(11 * time.Second)
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	fake := clock.NewFake(time.Unix(1_700_000_000, 0))
	cb := NewCircuitBreaker("test", 1, 10*time.Second, WithClock(fake))

	_ = cb.Execute(func() error { return errBoom })
	fake.Advance(11 * time.Second)
	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_IgnoresUncountedErrors(t *testing.T) {
	errClassified := errors.New("access denied")
	cb := NewCircuitBreaker("test", 1, time.Minute, WithFailurePredicate(func(err error) bool {
		return !errors.Is(err, errClassified)
	}))

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errClassified }), errClassified)
	}
	assert.Equal(t, StateClosed, cb.State())
}
