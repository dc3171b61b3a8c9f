// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package playlist renders the channel directory as an extended M3U
// playlist for external players.
package playlist

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ManuGH/stbportal/internal/domain"
)

// Item is one playlist entry.
type Item struct {
	Name    string
	TvgID   string
	TvgChNo int
	TvgLogo string
	Group   string
	URL     string
}

// attr strips characters that would end a quoted attribute or the line.
var attr = strings.NewReplacer("\"", "'", "\r", " ", "\n", " ")

// line strips line breaks from the display name and URL.
var line = strings.NewReplacer("\r", " ", "\n", " ")

// WriteM3U writes items in order.
func WriteM3U(w io.Writer, items []Item) error {
	bw := bufio.NewWriter(w)
	_, _ = bw.WriteString("#EXTM3U\n")
	for _, it := range items {
		_, _ = fmt.Fprintf(bw, "#EXTINF:-1 tvg-chno=\"%d\" tvg-id=\"%s\" tvg-logo=\"%s\" group-title=\"%s\",%s\n",
			it.TvgChNo, attr.Replace(it.TvgID), attr.Replace(it.TvgLogo), attr.Replace(it.Group), line.Replace(it.Name))
		_, _ = bw.WriteString(line.Replace(it.URL) + "\n")
	}
	return bw.Flush()
}

// FromChannels builds one item per channel that has a play command. The
// genre title becomes the group; urlFor supplies the stream address.
func FromChannels(chs []domain.Channel, genres []domain.Genre, urlFor func(domain.Channel) string) []Item {
	titles := make(map[string]string, len(genres))
	for _, g := range genres {
		titles[g.ID] = g.Title
	}
	items := make([]Item, 0, len(chs))
	for _, ch := range chs {
		if strings.TrimSpace(ch.Cmd) == "" {
			continue
		}
		tvgID := ch.EPGID
		if tvgID == "" {
			tvgID = ch.ID
		}
		items = append(items, Item{
			Name:    ch.Name,
			TvgID:   tvgID,
			TvgChNo: ch.Number,
			TvgLogo: ch.Logo,
			Group:   titles[ch.GenreID],
			URL:     urlFor(ch),
		})
	}
	return items
}
