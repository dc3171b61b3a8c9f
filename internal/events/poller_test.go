// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/stbportal/internal/portal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeed(t *testing.T) (*portal.API, *portal.MockServer) {
	t.Helper()
	m := portal.NewMockServer()
	t.Cleanup(m.Close)
	c := portal.NewClient(m.URL, portal.Options{Timeout: 2 * time.Second, RateLimit: 1000, RateLimitBurst: 1000})
	return portal.NewAPI(c, portal.NewSessions(c, nil, "00:1A:79:00:00:02"), time.UTC), m
}

func TestPoll_AppliesAndConfirms(t *testing.T) {
	api, m := newFeed(t)
	m.QueueEvents(
		portal.MockEvent{ID: "1", Event: "send_msg", Msg: "maintenance tonight", NeedConfirm: 1},
		portal.MockEvent{ID: "2", Event: "update_subscription"},
		portal.MockEvent{ID: "3", Event: "reboot"},
	)

	var messages []string
	var subs, invalidated atomic.Int32
	p := NewPoller(api, time.Minute, Handlers{
		Message:      func(ev portal.Event) { messages = append(messages, ev.Message) },
		Subscription: func() { subs.Add(1) },
	}, InvalidatorFunc(func() { invalidated.Add(1) }), InvalidatorFunc(func() { invalidated.Add(1) }))

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, p.Poll(ctx))
	}

	assert.Equal(t, []string{"maintenance tonight"}, messages)
	assert.Equal(t, int32(1), subs.Load())
	assert.Equal(t, int32(2), invalidated.Load(), "every invalidator runs")
	assert.Equal(t, []string{"1", "2", "3"}, m.Confirmed(), "unknown events are acknowledged too")
}

type failingFeed struct {
	err   error
	calls atomic.Int32
}

func (f *failingFeed) Events(context.Context) ([]portal.Event, error) {
	f.calls.Add(1)
	return nil, f.err
}

func (f *failingFeed) ConfirmEvent(context.Context, string) error { return nil }

func TestRun_TransientErrorsKeepPolling(t *testing.T) {
	f := &failingFeed{err: errors.New("boom")}
	p := NewPoller(f, 5*time.Millisecond, Handlers{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	assert.Eventually(t, func() bool { return f.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestRun_FatalErrorStops(t *testing.T) {
	f := &failingFeed{err: &portal.AccessDeniedError{}}
	p := NewPoller(f, time.Millisecond, Handlers{})

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, portal.IsFatal(err))
	assert.Equal(t, int32(1), f.calls.Load())
}
