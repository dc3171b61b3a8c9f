// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package seek turns continuous scrub input into discrete playback
// commits: native seeks for container media, reissued tuned links for
// live and time-shifted channels.
package seek

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/ManuGH/stbportal/internal/clock"
	stblog "github.com/ManuGH/stbportal/internal/log"
	"github.com/ManuGH/stbportal/internal/metrics"
	"github.com/ManuGH/stbportal/internal/playback"
)

const (
	DefaultScrubSpeed = 30.0
	DefaultTick       = 300 * time.Millisecond

	nearStartOpenEnded = 15 * time.Second
	nearStartBounded   = 5 * time.Second

	unknownDurationMs = math.MaxInt64 / 4
)

// Prompt is surfaced to the user instead of, or after, a scrub.
type Prompt int

const (
	PromptPreviousProgram Prompt = iota + 1
	PromptLive
)

func (p Prompt) String() string {
	switch p {
	case PromptPreviousProgram:
		return "previous_program"
	case PromptLive:
		return "live"
	default:
		return "none"
	}
}

// Target is what the engine drives; *playback.Controller implements it.
type Target interface {
	Current() playback.Source
	Player() playback.MediaPlayer
	Guide() playback.ProgramLookup
	Select(ctx context.Context, src playback.Source, opts playback.SelectOptions) error
}

// Options tune the scrub behavior. Zero values select the defaults.
type Options struct {
	ScrubSpeed float64
	Tick       time.Duration
}

// timeline maps a source onto [0, upper]. Absolute instants are
// origin + position.
type timeline struct {
	src       playback.Source
	origin    int64
	upper     int64
	bounded   bool
	native    bool
	nearStart int64
}

// Engine holds the scrub state for the currently playing source.
type Engine struct {
	target Target
	clk    clock.Clock
	speed  float64
	tick   time.Duration

	mu           sync.Mutex
	direction    int
	anchorValue  int64
	anchorAt     time.Time
	pausedBefore bool
	position     int64
	tl           timeline
	promptedEnd  bool
	onPrompt     []func(Prompt)
}

// NewEngine creates an idle engine.
func NewEngine(target Target, clk clock.Clock, opts Options) *Engine {
	if opts.ScrubSpeed <= 0 {
		opts.ScrubSpeed = DefaultScrubSpeed
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	return &Engine{target: target, clk: clock.Or(clk), speed: opts.ScrubSpeed, tick: opts.Tick}
}

// OnPrompt registers fn to receive prompts.
func (e *Engine) OnPrompt(fn func(Prompt)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onPrompt = append(e.onPrompt, fn)
}

// Seeking reports the scrub direction, 0 when idle.
func (e *Engine) Seeking() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.direction
}

// Position returns the displayed virtual position relative to the
// timeline start.
func (e *Engine) Position() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

// SetDirection starts (d != 0), reverses or ends (d == 0) a scrub.
func (e *Engine) SetDirection(ctx context.Context, d int) error {
	d = sign(d)
	if d == 0 {
		return e.release(ctx)
	}

	src := e.target.Current()
	if src == nil {
		return nil
	}
	caps := playback.CapabilitiesOf(src)
	if d > 0 && (caps.IsLive || !caps.CanSeekForward) {
		return nil
	}
	if d < 0 && !caps.CanSeekBackward {
		return nil
	}

	now := e.clk.Now()
	e.mu.Lock()
	if e.direction != 0 {
		if e.direction != d {
			e.position = e.virtualLocked(now)
			e.anchorValue, e.anchorAt, e.direction = e.position, now, d
			e.promptedEnd = false
		}
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	player := e.target.Player()
	tl, pos := e.timelineOf(src, player, now)
	if d < 0 && channelBound(src) && pos <= tl.nearStart {
		e.emit(PromptPreviousProgram)
		return nil
	}

	paused := player.IsPaused()
	player.Pause()

	e.mu.Lock()
	e.tl = tl
	e.pausedBefore = paused
	e.anchorValue, e.anchorAt, e.position = pos, now, pos
	e.direction = d
	e.promptedEnd = false
	e.mu.Unlock()

	logger := stblog.WithComponentFromContext(ctx, "seek")
	logger.Debug().
		Int(stblog.FieldDirection, d).
		Int64(stblog.FieldPositionMs, pos).
		Str(stblog.FieldSource, src.Kind().String()).
		Msg("scrub started")
	return nil
}

// Tick advances the virtual position. Run calls it periodically.
func (e *Engine) Tick(ctx context.Context) {
	now := e.clk.Now()
	e.mu.Lock()
	if e.direction == 0 {
		e.mu.Unlock()
		return
	}
	tl := e.tl
	if !tl.bounded {
		e.tl.upper = now.UnixMilli() - tl.origin
		tl = e.tl
	}
	raw := e.anchorValue + int64(float64(now.Sub(e.anchorAt).Milliseconds())*float64(e.direction)*e.speed)
	pos := clamp(raw, 0, tl.upper)
	e.position = pos
	d := e.direction

	switch {
	case d > 0 && !tl.bounded && raw >= tl.upper:
		ch, _ := playback.ChannelOf(tl.src)
		e.resetLocked()
		e.mu.Unlock()
		metrics.RecordSeekCommit("live")
		if err := e.target.Select(ctx, playback.NewLive(ch), playback.SelectOptions{}); err != nil {
			e.logCommitError(ctx, err)
		}
	case d < 0 && pos == 0:
		tl, paused := e.takeLocked()
		e.mu.Unlock()
		_ = e.commit(ctx, tl, paused, 0)
		if channelBound(tl.src) {
			e.emit(PromptPreviousProgram)
		}
	case d > 0 && tl.bounded && pos == tl.upper && !e.promptedEnd:
		e.promptedEnd = true
		_, archived := tl.src.(playback.Archived)
		e.mu.Unlock()
		if archived {
			e.emit(PromptLive)
		}
	default:
		e.mu.Unlock()
	}
}

// Run ticks until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	t := time.NewTicker(e.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			e.Tick(ctx)
		}
	}
}

// Cancel drops an active scrub without committing.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Engine) release(ctx context.Context) error {
	now := e.clk.Now()
	e.mu.Lock()
	if e.direction == 0 {
		e.mu.Unlock()
		return nil
	}
	if !e.tl.bounded {
		e.tl.upper = now.UnixMilli() - e.tl.origin
	}
	pos := e.virtualLocked(now)
	e.position = pos
	tl, paused := e.takeLocked()
	e.mu.Unlock()
	return e.commit(ctx, tl, paused, pos)
}

// takeLocked ends the scrub and hands its timeline to exactly one commit.
func (e *Engine) takeLocked() (timeline, bool) {
	tl, paused := e.tl, e.pausedBefore
	e.resetLocked()
	return tl, paused
}

// commit applies the scrub captured by takeLocked at pos.
func (e *Engine) commit(ctx context.Context, tl timeline, paused bool, pos int64) error {
	logger := stblog.WithComponentFromContext(ctx, "seek")
	if tl.native {
		player := e.target.Player()
		player.SeekTo(pos)
		if !paused {
			player.Resume()
		}
		metrics.RecordSeekCommit("native")
		logger.Debug().Int64(stblog.FieldPositionMs, pos).Msg("native seek")
		return nil
	}

	ch, _ := playback.ChannelOf(tl.src)
	now := e.clk.Now()
	if !tl.bounded && pos >= tl.upper {
		metrics.RecordSeekCommit("live")
		if err := e.target.Select(ctx, playback.NewLive(ch), playback.SelectOptions{PauseAfter: paused}); err != nil {
			e.logCommitError(ctx, err)
			return err
		}
		return nil
	}
	abs := tl.origin + pos
	next, err := playback.NewTimeShifted(ch, abs, now, e.target.Guide())
	if err != nil {
		e.logCommitError(ctx, err)
		return err
	}
	metrics.RecordSeekCommit("reissue")
	logger.Debug().Int64(stblog.FieldTargetMs, abs).Str(stblog.FieldChannelID, ch.ID).Msg("reissuing tuned link")
	if err := e.target.Select(ctx, next, playback.SelectOptions{PauseAfter: paused}); err != nil {
		e.logCommitError(ctx, err)
		return err
	}
	return nil
}

func (e *Engine) timelineOf(src playback.Source, player playback.MediaPlayer, now time.Time) (timeline, int64) {
	nowMs := now.UnixMilli()
	guide := e.target.Guide()
	switch s := src.(type) {
	case playback.Vod:
		upper := player.DurationMs()
		if upper <= 0 {
			upper = s.Movie.DurationMs
		}
		return boundedTimeline(src, 0, upper), clamp(player.CurrentPositionMs(), 0, orUnknown(upper))
	case playback.SeriesEpisode:
		return boundedTimeline(src, 0, player.DurationMs()), clamp(player.CurrentPositionMs(), 0, orUnknown(player.DurationMs()))
	case playback.Archived:
		upper := s.Program.StopMs - s.Program.StartMs
		tl := boundedTimeline(src, s.Program.StartMs, upper)
		return tl, clamp(player.CurrentPositionMs(), 0, upper)
	case playback.TimeShifted:
		abs := clamp(s.TargetMs+player.CurrentPositionMs(), 0, nowMs)
		return openTimeline(src, guide, abs, nowMs)
	case playback.Live:
		return openTimeline(src, guide, nowMs, nowMs)
	}
	return timeline{src: src}, 0
}

func boundedTimeline(src playback.Source, origin, upper int64) timeline {
	return timeline{
		src:       src,
		origin:    origin,
		upper:     orUnknown(upper),
		bounded:   true,
		native:    true,
		nearStart: nearStartBounded.Milliseconds(),
	}
}

// openTimeline anchors on the program airing at abs when the guide knows
// it, otherwise on the epoch.
func openTimeline(src playback.Source, guide playback.ProgramLookup, abs, nowMs int64) (timeline, int64) {
	var origin int64
	if ch, ok := playback.ChannelOf(src); ok && guide != nil {
		if p, ok := guide.ProgramAt(ch.ID, time.UnixMilli(abs)); ok {
			origin = p.StartMs
		}
	}
	tl := timeline{
		src:       src,
		origin:    origin,
		upper:     nowMs - origin,
		nearStart: nearStartOpenEnded.Milliseconds(),
	}
	return tl, abs - origin
}

func (e *Engine) virtualLocked(now time.Time) int64 {
	return virtualPosition(e.anchorValue, now.Sub(e.anchorAt), e.direction, e.speed, e.tl.upper)
}

func (e *Engine) resetLocked() {
	e.direction = 0
	e.promptedEnd = false
	e.tl = timeline{}
}

func (e *Engine) emit(p Prompt) {
	e.mu.Lock()
	obs := append([]func(Prompt){}, e.onPrompt...)
	e.mu.Unlock()
	for _, fn := range obs {
		fn(p)
	}
}

func (e *Engine) logCommitError(ctx context.Context, err error) {
	logger := stblog.WithComponentFromContext(ctx, "seek")
	logger.Warn().Err(err).Msg("seek commit failed")
}

// virtualPosition is anchor + elapsed*direction*speed clamped to [0, upper].
func virtualPosition(anchor int64, elapsed time.Duration, direction int, speed float64, upper int64) int64 {
	if elapsed < 0 {
		elapsed = 0
	}
	raw := anchor + int64(float64(elapsed.Milliseconds())*float64(sign(direction))*speed)
	return clamp(raw, 0, upper)
}

func channelBound(src playback.Source) bool {
	_, ok := playback.ChannelOf(src)
	return ok
}

func orUnknown(upper int64) int64 {
	if upper <= 0 {
		return unknownDurationMs
	}
	return upper
}

func clamp(v, lo, hi int64) int64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sign(d int) int {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	}
	return 0
}
