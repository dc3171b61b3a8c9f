// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package epg caches per-channel program guides with incremental forward
// loads and backward day paging.
package epg

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/stbportal/internal/clock"
	"github.com/ManuGH/stbportal/internal/domain"
	stblog "github.com/ManuGH/stbportal/internal/log"
	"github.com/ManuGH/stbportal/internal/metrics"
)

const (
	// ReloadMinInterval is the minimum age of a full load before
	// EnsureFreshLoad fetches again.
	ReloadMinInterval = 20 * time.Minute
	// MaxPrevDays bounds backward paging, counted from the first loaded day.
	MaxPrevDays = 7
)

// Source is the portal surface the guide loads from.
type Source interface {
	ShortEPG(ctx context.Context, channelID string) ([]domain.Program, error)
	EPGForDay(ctx context.Context, channelID string, day time.Time) ([]domain.Program, error)
}

// State of a channel's guide.
type State int

const (
	NotLoaded State = iota
	Loading
	Loaded
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "not_loaded"
	}
}

// Status is a read-only view of a channel's guide bookkeeping.
type Status struct {
	State            State
	Programs         int
	EarliestDay      time.Time
	LastFullLoad     time.Time
	NoEPG            bool
	ForwardComplete  bool
	BackwardComplete bool
}

type guide struct {
	programs []domain.Program
	loaded   bool
	loading  bool
	gen      uint64

	earliestDay      time.Time
	originalEarliest time.Time
	pastStarted      bool
	lastFullLoad     time.Time

	noEPG            bool
	forwardComplete  bool
	backwardComplete bool
}

// Guide is the program guide cache. Loads of one channel are serialized;
// different channels load independently.
type Guide struct {
	src    Source
	clock  clock.Clock
	loc    *time.Location
	logger zerolog.Logger

	mu     sync.Mutex
	guides map[string]*guide

	obsMu     sync.Mutex
	observers []func(channelID string)
}

// NewGuide creates a guide cache. loc defines calendar days.
func NewGuide(src Source, clk clock.Clock, loc *time.Location) *Guide {
	if loc == nil {
		loc = time.Local
	}
	return &Guide{
		src:    src,
		clock:  clock.Or(clk),
		loc:    loc,
		logger: stblog.WithComponent("epg"),
		guides: make(map[string]*guide),
	}
}

// guideLocked returns the entry for channelID. Caller holds mu.
func (c *Guide) guideLocked(channelID string) *guide {
	g, ok := c.guides[channelID]
	if !ok {
		g = &guide{}
		c.guides[channelID] = g
	}
	return g
}

// dayOf returns local midnight of the calendar day containing t.
func (c *Guide) dayOf(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

// daysBetween counts calendar days from a to b.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// EnsureFreshLoad fetches the near-term window unless a load is in flight,
// the channel is known to have no guide, or the last full load is younger
// than ReloadMinInterval.
func (c *Guide) EnsureFreshLoad(ctx context.Context, channelID string) error {
	now := c.clock.Now()

	c.mu.Lock()
	g := c.guideLocked(channelID)
	if g.loading || g.noEPG || (!g.lastFullLoad.IsZero() && now.Sub(g.lastFullLoad) < ReloadMinInterval) {
		c.mu.Unlock()
		return nil
	}
	g.loading = true
	gen := g.gen
	c.mu.Unlock()

	progs, err := c.src.ShortEPG(ctx, channelID)

	c.mu.Lock()
	if g.gen != gen {
		c.mu.Unlock()
		metrics.RecordGuideLoad("near", "stale")
		return nil
	}
	g.loading = false
	switch {
	case errors.Is(err, domain.ErrNoEpgForChannel):
		g.noEPG = true
		g.loaded = true
		g.programs = nil
		g.lastFullLoad = c.clock.Now()
		c.mu.Unlock()
		metrics.RecordGuideLoad("near", "no_epg")
		c.logger.Debug().Str(stblog.FieldChannelID, channelID).Msg("channel has no program guide")
		c.notify(channelID)
		return nil
	case errors.Is(err, domain.ErrEpgTemporarilyEmpty):
		g.loaded = true
		g.lastFullLoad = c.clock.Now()
		c.mu.Unlock()
		metrics.RecordGuideLoad("near", "empty")
		c.notify(channelID)
		return nil
	case err != nil:
		c.mu.Unlock()
		metrics.RecordGuideLoad("near", "error")
		return err
	}

	g.programs = merge(g.programs, progs)
	if len(progs) > 0 {
		day := c.dayOf(time.UnixMilli(progs[0].StartMs))
		if g.earliestDay.IsZero() || day.Before(g.earliestDay) {
			g.earliestDay = day
		}
		if g.originalEarliest.IsZero() {
			g.originalEarliest = g.earliestDay
		}
	}
	g.loaded = true
	g.forwardComplete = true
	g.lastFullLoad = c.clock.Now()
	n := len(g.programs)
	c.mu.Unlock()

	metrics.RecordGuideLoad("near", "success")
	c.logger.Debug().Str(stblog.FieldChannelID, channelID).Int("programs", n).Msg("program guide loaded")
	c.notify(channelID)
	return nil
}

// LoadMorePast pages one calendar day further into the past. The first
// call fetches the earliest loaded day itself and then pulls one more day,
// so the day containing "now" is never skipped.
func (c *Guide) LoadMorePast(ctx context.Context, channelID string) error {
	c.mu.Lock()
	g := c.guideLocked(channelID)
	if g.loading || g.backwardComplete || g.noEPG {
		c.mu.Unlock()
		return nil
	}
	if g.earliestDay.IsZero() {
		g.earliestDay = c.dayOf(c.clock.Now())
	}
	if g.originalEarliest.IsZero() {
		g.originalEarliest = g.earliestDay
	}
	first := !g.pastStarted
	target := g.earliestDay
	if !first {
		target = g.earliestDay.AddDate(0, 0, -1)
	}
	g.loading = true
	gen := g.gen
	c.mu.Unlock()

	progs, err := c.src.EPGForDay(ctx, channelID, target)
	if errors.Is(err, domain.ErrNoEpgForChannel) || errors.Is(err, domain.ErrEpgTemporarilyEmpty) {
		progs, err = nil, nil
	}

	c.mu.Lock()
	if g.gen != gen {
		c.mu.Unlock()
		metrics.RecordGuideLoad("past", "stale")
		return nil
	}
	g.loading = false
	if err != nil {
		c.mu.Unlock()
		metrics.RecordGuideLoad("past", "error")
		return err
	}

	g.pastStarted = true
	g.loaded = true
	if len(progs) == 0 {
		g.backwardComplete = true
	} else {
		g.programs = merge(g.programs, progs)
	}
	if target.Before(g.earliestDay) {
		g.earliestDay = target
	}
	if daysBetween(target, g.originalEarliest) >= MaxPrevDays {
		g.backwardComplete = true
	}
	complete := g.backwardComplete
	c.mu.Unlock()

	result := "success"
	if len(progs) == 0 {
		result = "empty"
	}
	metrics.RecordGuideLoad("past", result)
	c.logger.Debug().
		Str(stblog.FieldChannelID, channelID).
		Str("day", target.Format("2006-01-02")).
		Int("programs", len(progs)).
		Bool("backward_complete", complete).
		Msg("past guide day loaded")
	c.notify(channelID)

	if first && !complete {
		return c.LoadMorePast(ctx, channelID)
	}
	return nil
}

// merge returns existing plus fresh, deduplicated by id, sorted by start.
// A re-fetched program replaces the cached copy instead of being skipped.
func merge(existing, fresh []domain.Program) []domain.Program {
	byID := make(map[string]int, len(existing)+len(fresh))
	out := make([]domain.Program, 0, len(existing)+len(fresh))
	for _, list := range [][]domain.Program{existing, fresh} {
		for _, p := range list {
			if i, ok := byID[p.ID]; ok {
				out[i] = p
				continue
			}
			byID[p.ID] = len(out)
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartMs != out[j].StartMs {
			return out[i].StartMs < out[j].StartMs
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// MarkStale forces the next EnsureFreshLoad to fetch and discards any load
// in flight.
func (c *Guide) MarkStale(channelID string) {
	c.mu.Lock()
	if g, ok := c.guides[channelID]; ok {
		markStaleLocked(g)
	}
	c.mu.Unlock()
}

// MarkAllStale marks every known channel stale.
func (c *Guide) MarkAllStale() {
	c.mu.Lock()
	for _, g := range c.guides {
		markStaleLocked(g)
	}
	c.mu.Unlock()
	c.logger.Info().Msg("all program guides marked stale")
}

func markStaleLocked(g *guide) {
	g.gen++
	g.loading = false
	g.lastFullLoad = time.Time{}
	g.noEPG = false
	g.backwardComplete = false
	g.pastStarted = false
	g.earliestDay = time.Time{}
	g.originalEarliest = time.Time{}
}

// Clear drops every guide.
func (c *Guide) Clear() {
	c.mu.Lock()
	for _, g := range c.guides {
		g.gen++
	}
	c.guides = make(map[string]*guide)
	c.mu.Unlock()
}

// Programs returns a copy of the cached programs of channelID.
func (c *Guide) Programs(channelID string) []domain.Program {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.guides[channelID]
	if !ok {
		return nil
	}
	return append([]domain.Program(nil), g.programs...)
}

// LiveProgram returns the program airing now.
func (c *Guide) LiveProgram(channelID string) (domain.Program, bool) {
	now := c.clock.Now()
	for _, p := range c.Programs(channelID) {
		if p.IsLive(now) {
			return p, true
		}
	}
	return domain.Program{}, false
}

// ProgramAt returns the program whose window contains t.
func (c *Guide) ProgramAt(channelID string, t time.Time) (domain.Program, bool) {
	ms := t.UnixMilli()
	for _, p := range c.Programs(channelID) {
		if p.Contains(ms) {
			return p, true
		}
	}
	return domain.Program{}, false
}

// Neighbor returns the program delta positions away from programID.
func (c *Guide) Neighbor(channelID, programID string, delta int) (domain.Program, bool) {
	progs := c.Programs(channelID)
	for i, p := range progs {
		if p.ID != programID {
			continue
		}
		j := i + delta
		if j < 0 || j >= len(progs) {
			return domain.Program{}, false
		}
		return progs[j], true
	}
	return domain.Program{}, false
}

// Status returns the bookkeeping of channelID.
func (c *Guide) Status(channelID string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.guides[channelID]
	if !ok {
		return Status{}
	}
	st := NotLoaded
	switch {
	case g.loading:
		st = Loading
	case g.loaded:
		st = Loaded
	}
	return Status{
		State:            st,
		Programs:         len(g.programs),
		EarliestDay:      g.earliestDay,
		LastFullLoad:     g.lastFullLoad,
		NoEPG:            g.noEPG,
		ForwardComplete:  g.forwardComplete,
		BackwardComplete: g.backwardComplete,
	}
}

// ChannelIDs returns the channels with a guide entry.
func (c *Guide) ChannelIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.guides))
	for id := range c.guides {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OnChange registers fn to run after a channel's guide changed.
func (c *Guide) OnChange(fn func(channelID string)) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Guide) notify(channelID string) {
	c.obsMu.Lock()
	obs := append([]func(string){}, c.observers...)
	c.obsMu.Unlock()
	for _, fn := range obs {
		fn(channelID)
	}
}
