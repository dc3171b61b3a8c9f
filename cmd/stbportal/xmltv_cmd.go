// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/ManuGH/stbportal/internal/daemon"
	"github.com/ManuGH/stbportal/internal/epg"
	stblog "github.com/ManuGH/stbportal/internal/log"
	"github.com/ManuGH/stbportal/internal/playback"
	"github.com/ManuGH/stbportal/internal/portal"
)

// runXMLTV loads the channel list and every near-term guide once, then
// writes them as an XMLTV file.
func runXMLTV(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("stbportal xmltv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var flags commonFlags
	flags.register(fs)
	out := fs.String("o", "xmltv.xml", "output file")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := flags.load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Configuration error:\n  %v\n", err)
		return exitError
	}
	configureLogging(cfg)
	logger := stblog.WithComponent("xmltv")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := daemon.New(ctx, cfg, daemon.Options{Player: &playback.FakePlayer{}})
	if err != nil {
		logger.Error().Err(err).Msg("failed to build engine")
		return exitError
	}
	defer func() { _ = eng.Shutdown(context.Background()) }()

	if err := exportXMLTV(ctx, eng, *out); err != nil {
		logger.Error().Err(err).Msg("xmltv export failed")
		if portal.IsFatal(err) {
			return exitFatal
		}
		return exitError
	}
	st := eng.Status()
	logger.Info().Str("path", *out).Int("channels", st.Channels).Int("guides", st.Guides).Msg("xmltv written")
	return exitOK
}

func exportXMLTV(ctx context.Context, eng *daemon.Engine, path string) error {
	if _, err := eng.Directory().Refresh(ctx); err != nil {
		return fmt.Errorf("load channels: %w", err)
	}
	if err := eng.LoadAllGuides(ctx); err != nil {
		return fmt.Errorf("load guides: %w", err)
	}
	tv := eng.Guide().BuildXMLTV(eng.Directory().Channels())
	return epg.WriteXMLTV(ctx, path, tv)
}
