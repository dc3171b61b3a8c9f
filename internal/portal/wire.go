// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package portal

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ManuGH/stbportal/internal/domain"
)

// flexString accepts JSON strings and numbers; portals mix both for ids.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(string(b))
	return nil
}

// flexInt accepts numbers and numeric strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// flexBool accepts true/false, 0/1 and "0"/"1".
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	switch strings.ToLower(string(s)) {
	case "1", "true", "yes":
		*f = true
	default:
		*f = false
	}
	return nil
}

// wireList accepts a bare array, a single object or an object carrying the
// array under "data".
type wireList[T any] []T

func (l *wireList[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" || string(b) == "false" {
		*l = nil
		return nil
	}
	if b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if data, ok := obj["data"]; ok {
		var inner wireList[T]
		if err := inner.UnmarshalJSON(data); err != nil {
			return err
		}
		*l = inner
		return nil
	}
	_, paged := obj["total_items"]
	if len(obj) == 0 || paged {
		*l = nil
		return nil
	}
	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*l = []T{one}
	return nil
}

type handshakePayload struct {
	Token string `json:"token"`
}

type profilePayload struct {
	ID       flexString `json:"id"`
	Status   flexString `json:"status"`
	Msg      string     `json:"msg"`
	BlockMsg string     `json:"block_msg"`
	Token    string     `json:"token"`
}

type wireChannel struct {
	ID          flexString `json:"id"`
	Number      flexInt    `json:"number"`
	Name        string     `json:"name"`
	Cmd         *string    `json:"cmd"`
	GenreID     flexString `json:"tv_genre_id"`
	XMLTVID     string     `json:"xmltv_id"`
	ArchiveType string     `json:"tv_archive_type"`
	Archive     flexBool   `json:"tv_archive"`
	Logo        string     `json:"logo"`
	Fav         flexBool   `json:"fav"`
	Censored    flexBool   `json:"censored"`
}

func (w wireChannel) toDomain() domain.Channel {
	ch := domain.Channel{
		ID:          string(w.ID),
		Number:      int(w.Number),
		Name:        w.Name,
		GenreID:     string(w.GenreID),
		EPGID:       strings.TrimSpace(w.XMLTVID),
		ArchiveType: strings.TrimSpace(w.ArchiveType),
		Logo:        w.Logo,
		Fav:         bool(w.Fav),
		Censored:    bool(w.Censored),
	}
	if w.Cmd != nil {
		ch.Cmd = strings.TrimSpace(*w.Cmd)
	}
	if ch.ArchiveType == "" && bool(w.Archive) {
		ch.ArchiveType = "stalker_dvr"
	}
	return ch
}

type wireGenre struct {
	ID    flexString `json:"id"`
	Title string     `json:"title"`
}

// wireProgram timestamps are seconds; they become milliseconds on ingestion.
type wireProgram struct {
	ID        flexString `json:"id"`
	ChannelID flexString `json:"ch_id"`
	Name      string     `json:"name"`
	Descr     string     `json:"descr"`
	Category  string     `json:"category"`
	Start     flexInt    `json:"start_timestamp"`
	Stop      flexInt    `json:"stop_timestamp"`
}

func (w wireProgram) toDomain(channelID string) domain.Program {
	ch := string(w.ChannelID)
	if ch == "" {
		ch = channelID
	}
	return domain.Program{
		ID:          string(w.ID),
		ChannelID:   ch,
		Name:        w.Name,
		Description: w.Descr,
		Category:    w.Category,
		StartMs:     int64(w.Start) * 1000,
		StopMs:      int64(w.Stop) * 1000,
	}
}

type wirePage struct {
	TotalItems   flexInt               `json:"total_items"`
	MaxPageItems flexInt               `json:"max_page_items"`
	Data         wireList[wireProgram] `json:"data"`
}

type wireLink struct {
	ID  flexString `json:"id"`
	Cmd string     `json:"cmd"`
}

type wireEvent struct {
	ID          flexString `json:"id"`
	Event       string     `json:"event"`
	Msg         string     `json:"msg"`
	NeedConfirm flexBool   `json:"need_confirm"`
	RebootAfter flexBool   `json:"reboot_after_ok"`
}
