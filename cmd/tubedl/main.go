// Command tubedl runs the video download web service: submit a URL,
// poll its progress, browse and fetch the catalog of completed
// downloads.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tubedl/internal/catalog"
	"tubedl/internal/config"
	"tubedl/internal/dialog"
	"tubedl/internal/download"
	"tubedl/internal/server"
	"tubedl/internal/task"
	"tubedl/internal/ytdlp"
)

func main() {
	configPath := flag.String("config", "tubedl.yaml", "path to the YAML config file (optional)")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(log)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("service failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	runner := ytdlp.NewRunner()
	runner.Path = cfg.YtdlpPath
	runner.Timeout = cfg.DownloadTimeout
	if !runner.Available() {
		log.Warn("yt-dlp not found on PATH; downloads will fail until it is installed",
			slog.String("path", cfg.YtdlpPath))
	}

	registry := task.NewRegistry()
	store := catalog.NewStore(cfg.CatalogPath, log)

	orchestrator := download.New(runner, registry, store, download.Options{
		DefaultDir:      cfg.DownloadDir,
		SocketTimeout:   cfg.SocketTimeout,
		Retries:         cfg.Retries,
		FragmentRetries: cfg.FragmentRetries,
		MaxParallel:     cfg.MaxParallel,
	}, log)

	picker := dialog.New(log)
	defer picker.Close()

	srv := server.New(server.Options{
		Addr:            cfg.Addr,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, registry, store, orchestrator, runner, picker, log)

	return srv.Run(ctx)
}
