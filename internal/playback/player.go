// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import "time"

// PlayerState is reported by the media player.
type PlayerState int

const (
	PlayerIdle PlayerState = iota
	PlayerBuffering
	PlayerPlaying
	PlayerPaused
	PlayerEnded
)

func (s PlayerState) String() string {
	switch s {
	case PlayerBuffering:
		return "buffering"
	case PlayerPlaying:
		return "playing"
	case PlayerPaused:
		return "paused"
	case PlayerEnded:
		return "ended"
	default:
		return "idle"
	}
}

// MediaPlayer is the decoder/renderer the engine drives. It is consumed,
// never implemented here, apart from FakePlayer.
type MediaPlayer interface {
	Play(url string, isVod bool, startPositionMs int64, pauseAfter bool) error
	Pause()
	Resume()
	SeekTo(positionMs int64)
	IsPaused() bool
	CurrentPositionMs() int64
	DurationMs() int64
	OnError(fn func(error))
	OnStateChanged(fn func(PlayerState))
}

func timeMs(ms int64) time.Time { return time.UnixMilli(ms) }
