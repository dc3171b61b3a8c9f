// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package epg

import (
	"bytes"
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/stbportal/internal/domain"
)

func TestBuildXMLTV(t *testing.T) {
	src := &fakeSource{short: nearWindow()}
	g, _ := newGuide(src)
	require.NoError(t, g.EnsureFreshLoad(context.Background(), "1"))

	tv := g.BuildXMLTV([]domain.Channel{
		{ID: "1", Name: "One", EPGID: "one.de", Logo: "http://l/1.png"},
		{ID: "2", Name: "Two"},
	})
	require.Len(t, tv.Channels, 2)
	assert.Equal(t, "one.de", tv.Channels[0].ID)
	assert.Equal(t, "2", tv.Channels[1].ID)
	require.Len(t, tv.Programs, 3)
	assert.Equal(t, "20240310140000 +0000", tv.Programs[0].Start)
	assert.Equal(t, "one.de", tv.Programs[0].Channel)
}

func TestEncodeAndWriteXMLTV(t *testing.T) {
	tv := &TV{
		Generator: "stbportal",
		Channels:  []Channel{{ID: "1", DisplayName: []string{"A & B"}}},
		Programs:  []Programme{{Start: "s", Stop: "e", Channel: "1", Title: Title{Value: "News"}}},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeXMLTV(&buf, tv))
	assert.True(t, strings.HasPrefix(buf.String(), "<?xml"))
	assert.Contains(t, buf.String(), "A &amp; B")

	path := filepath.Join(t.TempDir(), "guide.xml")
	require.NoError(t, WriteXMLTV(context.Background(), path, tv))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var back TV
	require.NoError(t, xml.Unmarshal(data, &back))
	assert.Equal(t, "News", back.Programs[0].Title.Value)
}
