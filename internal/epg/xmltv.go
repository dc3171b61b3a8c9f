// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package epg

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	unorm "golang.org/x/text/unicode/norm"

	"github.com/ManuGH/stbportal/internal/domain"
	stblog "github.com/ManuGH/stbportal/internal/log"
)

const xmltvTimeLayout = "20060102150405 -0700"

type TV struct {
	XMLName   xml.Name    `xml:"tv"`
	Generator string      `xml:"generator-info-name,attr,omitempty"`
	Channels  []Channel   `xml:"channel"`
	Programs  []Programme `xml:"programme"`
}

type Channel struct {
	ID          string   `xml:"id,attr"`
	DisplayName []string `xml:"display-name"`
	Icon        *Icon    `xml:"icon,omitempty"`
}

type Icon struct {
	Src string `xml:"src,attr"`
}

type Programme struct {
	Start    string `xml:"start,attr"`
	Stop     string `xml:"stop,attr"`
	Channel  string `xml:"channel,attr"`
	Title    Title  `xml:"title"`
	Desc     string `xml:"desc,omitempty"`
	Category string `xml:"category,omitempty"`
}

type Title struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// channelKey is the XMLTV id of a channel: its EPG id when the portal
// provides one, the portal id otherwise.
func channelKey(ch domain.Channel) string {
	if id := strings.TrimSpace(ch.EPGID); id != "" {
		return id
	}
	return ch.ID
}

// BuildXMLTV renders the cached guide of chs. Channels without programs are
// listed without programmes.
func (c *Guide) BuildXMLTV(chs []domain.Channel) *TV {
	tv := &TV{Generator: "stbportal"}
	for _, ch := range chs {
		key := channelKey(ch)
		xc := Channel{ID: key, DisplayName: []string{unorm.NFC.String(strings.TrimSpace(ch.Name))}}
		if ch.Logo != "" {
			xc.Icon = &Icon{Src: ch.Logo}
		}
		tv.Channels = append(tv.Channels, xc)

		for _, p := range c.Programs(ch.ID) {
			tv.Programs = append(tv.Programs, Programme{
				Start:    p.Start().In(c.loc).Format(xmltvTimeLayout),
				Stop:     p.Stop().In(c.loc).Format(xmltvTimeLayout),
				Channel:  key,
				Title:    Title{Value: unorm.NFC.String(p.Name)},
				Desc:     p.Description,
				Category: p.Category,
			})
		}
	}
	return tv
}

// EncodeXMLTV writes tv with the XML header.
func EncodeXMLTV(w io.Writer, tv *TV) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(tv); err != nil {
		return fmt.Errorf("encode xmltv: %w", err)
	}
	return enc.Close()
}

// WriteXMLTV writes tv to path atomically.
func WriteXMLTV(ctx context.Context, path string, tv *TV) error {
	logger := stblog.FromContext(ctx)

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending XMLTV file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending XMLTV file")
		}
	}()

	if err := EncodeXMLTV(pending, tv); err != nil {
		return err
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit XMLTV file: %w", err)
	}
	logger.Info().
		Str("path", path).
		Int("channels", len(tv.Channels)).
		Int("programmes", len(tv.Programs)).
		Time("generated_at", time.Now()).
		Msg("XMLTV written")
	return nil
}
