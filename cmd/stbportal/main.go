// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command stbportal runs the portal client engine headless, with the
// control API, or exports the guide as XMLTV.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/stbportal/internal/api"
	"github.com/ManuGH/stbportal/internal/config"
	"github.com/ManuGH/stbportal/internal/daemon"
	stblog "github.com/ManuGH/stbportal/internal/log"
	"github.com/ManuGH/stbportal/internal/playback"
	"github.com/ManuGH/stbportal/internal/portal"
	"github.com/ManuGH/stbportal/internal/telemetry"
	"github.com/ManuGH/stbportal/internal/version"
)

const (
	exitOK     = 0
	exitError  = 1
	exitUsage  = 2
	exitFatal  = 3
	tracerName = "stbportal"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "config":
			return runConfigCLI(args[1:], stdout, stderr)
		case "xmltv":
			return runXMLTV(args[1:], stderr)
		}
	}
	return runDaemon(args, stdout, stderr)
}

// commonFlags are shared by every subcommand that loads configuration.
type commonFlags struct {
	configPath string
	envFiles   stringList
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "path to config file (YAML)")
	fs.StringVar(&c.configPath, "f", "", "path to config file (shorthand)")
	fs.Var(&c.envFiles, "env-file", "dotenv file to load before the environment (repeatable)")
}

func (c *commonFlags) loader() *config.Loader {
	loader := config.NewLoader(strings.TrimSpace(c.configPath), version.Version)
	loader.EnvFiles = c.envFiles
	return loader
}

func (c *commonFlags) load() (config.AppConfig, error) {
	return c.loader().Load()
}

type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func configureLogging(cfg config.AppConfig) {
	stblog.Configure(stblog.Config{Level: cfg.Log.Level, Service: cfg.Log.Service, Version: version.Version})
}

func runDaemon(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("stbportal", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var flags commonFlags
	flags.register(fs)
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *showVersion {
		_, _ = fmt.Fprintln(stdout, version.String())
		return exitOK
	}

	stblog.Configure(stblog.Config{Level: "info", Service: "stbportal", Version: version.Version})
	logger := stblog.WithComponent("main")

	loader := flags.loader()
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().Err(err).Str(stblog.FieldEvent, "config.load_failed").Str("config_path", flags.configPath).Msg("failed to load configuration")
		return exitError
	}
	configureLogging(cfg)
	logger = stblog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: version.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialise telemetry")
		return exitError
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	player := &playback.FakePlayer{}
	player.OnStateChanged(func(s playback.PlayerState) {
		logger.Debug().Str(stblog.FieldNewState, s.String()).Msg("player state changed")
	})

	fatal := make(chan error, 1)
	eng, err := daemon.New(ctx, cfg, daemon.Options{
		Player: player,
		OnMessage: func(ev portal.Event) {
			logger.Info().Str(stblog.FieldEventID, ev.ID).Str("message", ev.Message).Msg("portal message")
		},
		OnFatal: func(err error) {
			select {
			case fatal <- err:
			default:
			}
		},
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to build engine")
		return exitError
	}
	eng.Controller().OnChange(func(src playback.Source) {
		if src == nil {
			logger.Info().Msg("playback stopped")
			return
		}
		logger.Info().Str(stblog.FieldSource, src.Kind().String()).Msg("playback source changed")
	})

	logger.Info().
		Str("version", version.Version).
		Str(stblog.FieldBaseURL, eng.Status().Portal).
		Bool("api", cfg.API.Enabled).
		Msg("starting stbportal")

	if err := eng.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to start engine")
		return exitError
	}

	holder := config.NewHolder(cfg, loader)
	holder.OnReload(func(old, updated config.AppConfig) {
		if old.Log != updated.Log {
			configureLogging(updated)
			logger.Info().Str("level", updated.Log.Level).Msg("log settings reloaded")
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(eng.Wait)
	g.Go(func() error {
		if err := holder.Watch(gctx); err != nil {
			logger.Warn().Err(err).Msg("config watcher unavailable")
		}
		return nil
	})
	if cfg.API.Enabled {
		srv := api.New(cfg.API, eng, tracerName)
		g.Go(func() error { return srv.ListenAndServe(gctx) })
	}

	code := exitOK
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-fatal:
		logger.Error().Err(err).Msg("portal refused this device, stopping")
		code = exitFatal
	case <-gctx.Done():
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()
	if err := eng.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("engine shutdown failed")
		if code == exitOK {
			code = exitError
		}
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		if portal.IsFatal(err) {
			return exitFatal
		}
		logger.Error().Err(err).Msg("stopped with error")
		if code == exitOK {
			code = exitError
		}
	}
	return code
}
