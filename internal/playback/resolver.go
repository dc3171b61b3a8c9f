// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManuGH/stbportal/internal/domain"
	"github.com/ManuGH/stbportal/internal/link"
	"github.com/ManuGH/stbportal/internal/portal"
)

// LinkAPI is the portal surface used to obtain playable handles.
type LinkAPI interface {
	CreateLink(ctx context.Context, kind portal.LinkKind, cmd string) (link.StreamLink, error)
	VODLink(ctx context.Context, cmd string, episode int) (string, error)
}

// Resolved is a playable URL plus how to start it.
type Resolved struct {
	URL     string
	IsVod   bool
	StartMs int64
}

// Resolver turns a Source into a URL. Tuning is applied here, at request
// time, on the un-tuned base command.
type Resolver struct {
	api LinkAPI
	// LiveCreateLink asks the portal for a fresh live handle instead of
	// playing the channel command directly.
	LiveCreateLink bool
}

func NewResolver(api LinkAPI, liveCreateLink bool) *Resolver {
	return &Resolver{api: api, LiveCreateLink: liveCreateLink}
}

// Resolve returns the URL for src.
func (r *Resolver) Resolve(ctx context.Context, src Source) (Resolved, error) {
	switch s := src.(type) {
	case Live:
		return r.live(ctx, s.Channel)
	case TimeShifted:
		base, err := r.archiveBase(ctx, s.Channel)
		if err != nil {
			return Resolved{}, err
		}
		return tuned(base, link.AbsoluteStart(timeMs(s.TargetMs)), 0)
	case Archived:
		base, err := r.archiveBase(ctx, s.Channel)
		if err != nil {
			return Resolved{}, err
		}
		return tuned(base, link.ArchiveWindow(s.Program.Start(), s.Program.Duration()), s.OffsetMs)
	case Vod:
		u, err := r.api.VODLink(ctx, s.Movie.Cmd, 0)
		if err != nil {
			return Resolved{}, err
		}
		return Resolved{URL: u, IsVod: true, StartMs: s.ResumeMs}, nil
	case SeriesEpisode:
		ep, ok := s.Series.Episode(s.Season, s.Episode)
		if !ok {
			return Resolved{}, domain.ErrLinkUnavailable
		}
		cmd, number := ep.Cmd, 0
		if strings.TrimSpace(cmd) == "" {
			cmd, number = s.Series.Cmd, ep.Number
		}
		u, err := r.api.VODLink(ctx, cmd, number)
		if err != nil {
			return Resolved{}, err
		}
		return Resolved{URL: u, IsVod: true, StartMs: s.ResumeMs}, nil
	default:
		return Resolved{}, fmt.Errorf("unsupported source %T", src)
	}
}

func (r *Resolver) live(ctx context.Context, ch domain.Channel) (Resolved, error) {
	if strings.TrimSpace(ch.Cmd) == "" {
		return Resolved{}, domain.ErrLinkUnavailable
	}
	// multicast groups are played as-is, never tuned or re-linked
	if ch.IsMulticast() {
		return Resolved{URL: link.ExtractURL(ch.Cmd)}, nil
	}
	base := ch.Cmd
	if r.LiveCreateLink {
		l, err := r.api.CreateLink(ctx, portal.LinkLive, ch.Cmd)
		if err != nil {
			return Resolved{}, err
		}
		base = l.BaseCommand
	}
	return tuned(base, link.Live(), 0)
}

func (r *Resolver) archiveBase(ctx context.Context, ch domain.Channel) (string, error) {
	if !ch.HasArchive() {
		return "", domain.ErrNotArchivable
	}
	if strings.TrimSpace(ch.Cmd) == "" {
		return "", domain.ErrLinkUnavailable
	}
	l, err := r.api.CreateLink(ctx, portal.LinkArchive, ch.Cmd)
	if err != nil {
		return "", err
	}
	return l.BaseCommand, nil
}

func tuned(base string, t link.Tuning, startMs int64) (Resolved, error) {
	u, ok := link.Build(base, t)
	if !ok {
		return Resolved{}, domain.ErrLinkUnavailable
	}
	return Resolved{URL: u, StartMs: startMs}, nil
}
