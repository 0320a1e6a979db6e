// Package server exposes the download service over HTTP: submit a URL,
// poll its progress, list and fetch completed downloads.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tubedl/internal/catalog"
	"tubedl/internal/task"
)

// Server holds the HTTP facade's collaborators.
type Server struct {
	addr            string
	shutdownTimeout time.Duration

	registry  *task.Registry
	catalog   *catalog.Store
	launcher  Launcher
	extractor Extractor
	browser   Browser
	log       *slog.Logger
}

// Options configures the server.
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// New assembles the facade. All collaborators are required except the
// logger, which defaults to slog.Default.
func New(opts Options, registry *task.Registry, cat *catalog.Store,
	launcher Launcher, extractor Extractor, browser Browser, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		addr:            opts.Addr,
		shutdownTimeout: opts.ShutdownTimeout,
		registry:        registry,
		catalog:         cat,
		launcher:        launcher,
		extractor:       extractor,
		browser:         browser,
		log:             log,
	}
}

// Routes builds the handler tree with logging and panic recovery
// wrapped around every endpoint.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /download", s.handleDownload)
	mux.HandleFunc("GET /download-status/{download_id}", s.handleStatus)
	mux.HandleFunc("GET /api/videos", s.handleVideos)
	mux.HandleFunc("GET /video/{video_id}", s.handleServeVideo)
	mux.HandleFunc("POST /get-video-info", s.handleVideoInfo)
	mux.HandleFunc("POST /browse-folder", s.handleBrowseFolder)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return withRecover(s.log, logMiddleware(s.log, mux))
}

// Run serves until the context is cancelled, then drains in-flight
// requests within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Routes(),
	}

	errCh := make(chan error)
	go func() {
		s.log.Info("starting server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", slog.String("error", err.Error()))
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("server shutdown error", slog.String("error", err.Error()))
		return err
	}

	s.log.Info("server gracefully stopped")
	return nil
}
