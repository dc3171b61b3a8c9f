// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"context"
	"errors"
	"sync"

	"github.com/ManuGH/stbportal/internal/clock"
	"github.com/ManuGH/stbportal/internal/domain"
	stblog "github.com/ManuGH/stbportal/internal/log"
	"github.com/ManuGH/stbportal/internal/metrics"
	"github.com/ManuGH/stbportal/internal/portal"
	"github.com/ManuGH/stbportal/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrSuperseded is returned by Select when a newer selection was made
// while the link was resolving. The stale result is discarded.
var ErrSuperseded = errors.New("playback request superseded")

// Analytics receives best-effort play events.
type Analytics interface {
	LogEvent(ctx context.Context, action, param, contentID string) error
}

// SelectOptions tune how a source starts.
type SelectOptions struct {
	PauseAfter bool
}

// Controller owns the selected Source and drives the MediaPlayer.
type Controller struct {
	resolver  *Resolver
	player    MediaPlayer
	guide     ProgramLookup
	analytics Analytics
	clk       clock.Clock

	// playMu serialises player calls; mu guards selection state and is
	// never held while the player runs.
	playMu    sync.Mutex
	mu        sync.Mutex
	gen       uint64
	current   Source
	failure   error
	observers []func(Source)
}

// NewController wires a controller. analytics may be nil.
func NewController(resolver *Resolver, player MediaPlayer, guide ProgramLookup, analytics Analytics, clk clock.Clock) *Controller {
	c := &Controller{
		resolver:  resolver,
		player:    player,
		guide:     guide,
		analytics: analytics,
		clk:       clock.Or(clk),
	}
	player.OnError(c.playerFailed)
	return c
}

// Player returns the driven media player.
func (c *Controller) Player() MediaPlayer { return c.player }

// Resolve turns src into a playable address without touching the player.
func (c *Controller) Resolve(ctx context.Context, src Source) (Resolved, error) {
	return c.resolver.Resolve(ctx, src)
}

// Guide returns the program lookup used for navigation.
func (c *Controller) Guide() ProgramLookup { return c.guide }

// Current returns the selected source, nil when nothing plays.
func (c *Controller) Current() Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Failure returns the last error the player reported for the current
// source, nil while playback is healthy.
func (c *Controller) Failure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// OnChange registers fn to run after every successful selection.
func (c *Controller) OnChange(fn func(Source)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Select resolves src and plays it. Only the most recent call wins: a
// call overtaken while resolving returns ErrSuperseded without touching
// the player, one overtaken while the player starts returns ErrSuperseded
// and leaves the selection to the newer call.
func (c *Controller) Select(ctx context.Context, src Source, opts SelectOptions) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	ch, _ := ChannelOf(src)
	if ch.ID != "" {
		ctx = stblog.ContextWithChannelID(ctx, ch.ID)
	}
	ctx, span := telemetry.Tracer("stbportal/playback").Start(ctx, "playback.select",
		trace.WithAttributes(telemetry.PlaybackAttributes(src.Kind().String(), ch.ID, "")...))
	defer span.End()

	logger := stblog.WithComponentFromContext(ctx, "playback")
	kind := src.Kind().String()

	res, err := c.resolver.Resolve(ctx, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordPlaybackRequest(kind, resultLabel(err))
		logger.Warn().Err(err).Str(stblog.FieldSource, kind).Msg("link resolution failed")
		return err
	}

	c.playMu.Lock()
	if !c.isCurrentGen(gen) {
		c.playMu.Unlock()
		metrics.RecordPlaybackRequest(kind, "superseded")
		logger.Debug().Str(stblog.FieldSource, kind).Msg("discarding stale playback result")
		return ErrSuperseded
	}
	err = c.player.Play(res.URL, res.IsVod, res.StartMs, opts.PauseAfter)
	c.playMu.Unlock()
	if err != nil {
		span.RecordError(err)
		metrics.RecordPlaybackRequest(kind, "player_error")
		return err
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		metrics.RecordPlaybackRequest(kind, "superseded")
		logger.Debug().Str(stblog.FieldSource, kind).Msg("selection overtaken while starting")
		return ErrSuperseded
	}
	c.current = src
	c.failure = nil
	observers := append([]func(Source){}, c.observers...)
	c.mu.Unlock()

	metrics.RecordPlaybackRequest(kind, "success")
	logger.Info().Str(stblog.FieldSource, kind).Msg("playback started")

	if c.analytics != nil {
		contentID := src.ContentID()
		portal.FireAndForget(ctx, "play", func(ctx context.Context) error {
			return c.analytics.LogEvent(ctx, "play", kind, contentID)
		})
	}
	for _, fn := range observers {
		fn(src)
	}
	return nil
}

// Stop forgets the current source and invalidates in-flight selections.
// Observers see a nil source.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.gen++
	c.current = nil
	c.failure = nil
	observers := append([]func(Source){}, c.observers...)
	c.mu.Unlock()

	c.playMu.Lock()
	c.player.Pause()
	c.playMu.Unlock()
	for _, fn := range observers {
		fn(nil)
	}
}

func (c *Controller) isCurrentGen(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

// playerFailed records an asynchronous player error against the current
// source.
func (c *Controller) playerFailed(err error) {
	c.mu.Lock()
	src := c.current
	if src != nil {
		c.failure = err
	}
	c.mu.Unlock()

	kind := "none"
	logger := stblog.WithComponent("playback")
	ev := logger.Error().Err(err)
	if src != nil {
		kind = src.Kind().String()
		if ch, ok := ChannelOf(src); ok {
			ev = ev.Str(stblog.FieldChannelID, ch.ID)
		}
	}
	metrics.RecordPlaybackRequest(kind, "player_error")
	ev.Str(stblog.FieldSource, kind).Msg("player reported an error")
}

// Next moves to the next program or episode of the current source.
func (c *Controller) Next(ctx context.Context) (bool, error) {
	return c.navigate(ctx, 1)
}

// Prev moves to the previous program or episode of the current source.
func (c *Controller) Prev(ctx context.Context) (bool, error) {
	return c.navigate(ctx, -1)
}

func (c *Controller) navigate(ctx context.Context, dir int) (bool, error) {
	cur := c.Current()
	if cur == nil {
		return false, nil
	}
	var (
		next Source
		ok   bool
	)
	now := c.clk.Now()
	switch s := cur.(type) {
	case SeriesEpisode:
		var ep SeriesEpisode
		if dir > 0 {
			ep, ok = NextEpisode(s)
		} else {
			ep, ok = PrevEpisode(s)
		}
		next = ep
	case Vod:
		return false, nil
	default:
		if c.guide == nil {
			return false, nil
		}
		if dir > 0 {
			next, ok = NextProgram(cur, c.guide, now)
		} else {
			next, ok = PrevProgram(cur, c.guide, now)
		}
	}
	if !ok {
		return false, nil
	}
	if err := c.Select(ctx, next, SelectOptions{}); err != nil {
		return false, err
	}
	return true, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrLinkUnavailable):
		return "link_unavailable"
	case errors.Is(err, domain.ErrNotArchivable):
		return "not_archivable"
	case portal.IsFatal(err):
		return "fatal"
	default:
		return "error"
	}
}
