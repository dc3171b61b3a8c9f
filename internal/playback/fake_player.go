// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import "sync"

// PlayCall records one FakePlayer.Play invocation.
type PlayCall struct {
	URL             string
	IsVod           bool
	StartPositionMs int64
	PauseAfter      bool
}

// FakePlayer is an in-memory MediaPlayer for tests and dry runs.
type FakePlayer struct {
	mu       sync.Mutex
	plays    []PlayCall
	seeks    []int64
	paused   bool
	position int64
	duration int64
	onErr    []func(error)
	onState  []func(PlayerState)
}

func (p *FakePlayer) Play(url string, isVod bool, startPositionMs int64, pauseAfter bool) error {
	p.mu.Lock()
	p.plays = append(p.plays, PlayCall{URL: url, IsVod: isVod, StartPositionMs: startPositionMs, PauseAfter: pauseAfter})
	p.position = startPositionMs
	p.paused = pauseAfter
	state := PlayerPlaying
	if pauseAfter {
		state = PlayerPaused
	}
	obs := append([]func(PlayerState){}, p.onState...)
	p.mu.Unlock()
	for _, fn := range obs {
		fn(state)
	}
	return nil
}

func (p *FakePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

func (p *FakePlayer) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
}

func (p *FakePlayer) SeekTo(ms int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seeks = append(p.seeks, ms)
	p.position = ms
}

func (p *FakePlayer) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *FakePlayer) CurrentPositionMs() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *FakePlayer) DurationMs() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

func (p *FakePlayer) OnError(fn func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onErr = append(p.onErr, fn)
}

func (p *FakePlayer) OnStateChanged(fn func(PlayerState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onState = append(p.onState, fn)
}

// SetPosition moves the playhead.
func (p *FakePlayer) SetPosition(ms int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = ms
}

// SetDuration sets the container duration.
func (p *FakePlayer) SetDuration(ms int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.duration = ms
}

// Fail reports err to OnError observers.
func (p *FakePlayer) Fail(err error) {
	p.mu.Lock()
	obs := append([]func(error){}, p.onErr...)
	p.mu.Unlock()
	for _, fn := range obs {
		fn(err)
	}
}

// Plays returns the recorded Play calls.
func (p *FakePlayer) Plays() []PlayCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PlayCall(nil), p.plays...)
}

// Seeks returns the recorded native seeks.
func (p *FakePlayer) Seeks() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.seeks...)
}
