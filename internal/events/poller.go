// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package events polls the portal notification feed and applies the
// events that affect cached state.
package events

import (
	"context"
	"time"

	stblog "github.com/ManuGH/stbportal/internal/log"
	"github.com/ManuGH/stbportal/internal/metrics"
	"github.com/ManuGH/stbportal/internal/portal"
)

const (
	TypeSendMessage        = "send_msg"
	TypeUpdateSubscription = "update_subscription"

	DefaultPollInterval = 2 * time.Minute
)

// Feed is the notification surface of the portal.
type Feed interface {
	Events(ctx context.Context) ([]portal.Event, error)
	ConfirmEvent(ctx context.Context, id string) error
}

// Invalidator drops cached state after a subscription change.
type Invalidator interface {
	Invalidate()
}

// Handlers receive the applied events. Nil fields are skipped.
type Handlers struct {
	// Message is called for operator messages.
	Message func(portal.Event)
	// Subscription runs after the package changed, in addition to the
	// registered invalidators.
	Subscription func()
}

// Poller polls the feed on a fixed interval.
type Poller struct {
	feed         Feed
	interval     time.Duration
	handlers     Handlers
	invalidators []Invalidator
}

// NewPoller creates a poller. Invalidators run in order on
// update_subscription.
func NewPoller(feed Feed, interval time.Duration, h Handlers, inv ...Invalidator) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{feed: feed, interval: interval, handlers: h, invalidators: inv}
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func()

func (f InvalidatorFunc) Invalidate() { f() }

// Run polls until ctx is done. Poll errors are logged and the loop
// continues; fatal portal errors end it.
func (p *Poller) Run(ctx context.Context) error {
	logger := stblog.WithComponentFromContext(ctx, "events")
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		if err := p.Poll(ctx); err != nil {
			if portal.IsFatal(err) {
				return err
			}
			if ctx.Err() == nil {
				logger.Warn().Err(err).Msg("event poll failed")
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Poll fetches and applies one batch of events.
func (p *Poller) Poll(ctx context.Context) error {
	evs, err := p.feed.Events(ctx)
	if err != nil {
		return err
	}
	logger := stblog.WithComponentFromContext(ctx, "events")
	for _, ev := range evs {
		p.apply(ctx, ev)
		metrics.RecordPortalEvent(eventLabel(ev.Type))
		if ev.ID == "" {
			continue
		}
		if err := p.feed.ConfirmEvent(ctx, ev.ID); err != nil {
			logger.Warn().Err(err).Str(stblog.FieldEventID, ev.ID).Msg("event confirmation failed")
		}
	}
	return nil
}

func (p *Poller) apply(ctx context.Context, ev portal.Event) {
	logger := stblog.WithComponentFromContext(ctx, "events")
	switch ev.Type {
	case TypeSendMessage:
		logger.Info().Str(stblog.FieldEventID, ev.ID).Msg("portal message received")
		if p.handlers.Message != nil {
			p.handlers.Message(ev)
		}
	case TypeUpdateSubscription:
		logger.Info().Str(stblog.FieldEventID, ev.ID).Msg("subscription changed, dropping caches")
		for _, inv := range p.invalidators {
			inv.Invalidate()
		}
		if p.handlers.Subscription != nil {
			p.handlers.Subscription()
		}
	default:
		logger.Debug().Str(stblog.FieldEvent, ev.Type).Msg("ignoring portal event")
	}
}

func eventLabel(t string) string {
	switch t {
	case TypeSendMessage, TypeUpdateSubscription:
		return t
	}
	return "other"
}
