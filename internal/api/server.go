// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the engine over a small local HTTP control surface.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/stbportal/internal/api/middleware"
	"github.com/ManuGH/stbportal/internal/channels"
	"github.com/ManuGH/stbportal/internal/config"
	"github.com/ManuGH/stbportal/internal/daemon"
	"github.com/ManuGH/stbportal/internal/epg"
	stblog "github.com/ManuGH/stbportal/internal/log"
	"github.com/ManuGH/stbportal/internal/playback"
	"github.com/ManuGH/stbportal/internal/seek"
)

// Engine is the part of the daemon the API drives.
type Engine interface {
	Status() daemon.Status
	Directory() *channels.Directory
	Guide() *epg.Guide
	Controller() *playback.Controller
	Seek() *seek.Engine
	Housekeep(ctx context.Context) error
	Clear(ctx context.Context)
	Now() time.Time
}

// Server serves the control API.
type Server struct {
	cfg    config.APIConfig
	engine Engine
	router chi.Router
	logger zerolog.Logger
	http   *http.Server
}

// New builds the router. tracing names the tracer; empty disables spans.
func New(cfg config.APIConfig, engine Engine, tracing string) *Server {
	s := &Server{cfg: cfg, engine: engine, logger: stblog.WithComponent("api")}
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		EnableLogging:  true,
		TracingService: tracing,
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{RequestLimit: cfg.RateLimit}))
		r.Get("/status", s.handleStatus)
		r.Get("/genres", s.handleGenres)
		r.Get("/channels", s.handleChannels)
		r.Get("/channels/{id}", s.handleChannel)
		r.Get("/channels/{id}/epg", s.handleEPG)
		r.Put("/channels/{id}/favorite", s.handleFavorite(true))
		r.Delete("/channels/{id}/favorite", s.handleFavorite(false))
		r.Get("/xmltv", s.handleXMLTV)
		r.Get("/playlist.m3u", s.handlePlaylist)
		r.Get("/stream/{id}", s.handleStream)

		r.Route("/playback", func(r chi.Router) {
			r.Get("/", s.handleCurrent)
			r.Post("/live/{id}", s.handlePlayLive)
			r.Post("/archive/{id}/{program}", s.handlePlayArchive)
			r.Post("/next", s.handleNavigate(1))
			r.Post("/prev", s.handleNavigate(-1))
			r.Post("/stop", s.handleStop)
			r.Post("/seek", s.handleSeek)
		})

		r.With(middleware.RefreshRateLimit()).Post("/refresh", s.handleRefresh)
		r.With(middleware.RefreshRateLimit()).Post("/clear", s.handleClear)
	})

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done, then shuts down within the
// configured timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.http = &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("control API listening")
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	<-errCh
	s.logger.Info().Msg("control API stopped")
	return nil
}
