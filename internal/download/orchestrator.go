// Package download drives a single submitted URL through the external
// extraction engine: it resolves the destination, streams engine
// progress into the task registry, classifies the outcome and records
// successful downloads in the catalog. Runs happen on background
// goroutines; nothing escapes past that boundary as a panic or error.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"tubedl/internal/catalog"
	"tubedl/internal/format"
	"tubedl/internal/task"
	"tubedl/internal/ytdlp"
)

// Placeholder strings for metadata the engine could not provide. Catalog
// records never carry missing fields.
const (
	placeholderTitle       = "Unknown Title"
	placeholderAuthor      = "Unknown Author"
	placeholderDescription = "No description available"
)

const createdAtLayout = "2006-01-02 15:04:05"

// Engine is the orchestrator's view of the extraction engine.
type Engine interface {
	Extract(ctx context.Context, url string) (*ytdlp.Metadata, error)
	Download(ctx context.Context, url string, opts ytdlp.Options, sink ytdlp.Sink) (string, error)
}

// Options configures the orchestrator.
type Options struct {
	// DefaultDir receives downloads when the caller names no directory.
	DefaultDir string
	// SocketTimeout, Retries and FragmentRetries are handed to the engine.
	SocketTimeout   time.Duration
	Retries         int
	FragmentRetries int
	// MaxParallel bounds concurrently running downloads. Zero means 3.
	MaxParallel int
}

// Orchestrator owns the background download runs.
type Orchestrator struct {
	engine   Engine
	registry *task.Registry
	catalog  *catalog.Store
	opts     Options
	sem      *semaphore.Weighted
	log      *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates an orchestrator writing into the given registry and catalog.
func New(engine Engine, registry *task.Registry, cat *catalog.Store, opts Options, log *slog.Logger) *Orchestrator {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 3
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		engine:   engine,
		registry: registry,
		catalog:  cat,
		opts:     opts,
		sem:      semaphore.NewWeighted(int64(opts.MaxParallel)),
		log:      log,
		now:      time.Now,
	}
}

// Launch registers a new task and schedules the download in the
// background. It returns immediately with the task id; callers observe
// the outcome by polling the registry.
func (o *Orchestrator) Launch(url, destDir string, formatType ytdlp.FormatType) string {
	id := o.registry.Create()
	go o.run(url, id, destDir, formatType)
	return id
}

// run executes one download to its terminal state. It never panics and
// never returns an error: every failure ends as task status "error"
// with a displayable message, because the background context has no
// caller left to observe anything else.
func (o *Orchestrator) run(url, id, destDir string, formatType ytdlp.FormatType) {
	log := o.log.With(slog.String("task_id", id), slog.String("url", url))

	defer func() {
		if r := recover(); r != nil {
			log.Error("download panicked", slog.Any("panic", r))
			o.registry.Fail(id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	ctx := context.Background()
	if err := o.sem.Acquire(ctx, 1); err != nil {
		o.registry.Fail(id, fmt.Sprintf("could not schedule download: %v", err))
		return
	}
	defer o.sem.Release(1)

	outputDir, err := o.resolveOutputDir(destDir)
	if err != nil {
		log.Error("output directory unusable", slog.String("error", err.Error()))
		o.registry.Fail(id, fmt.Sprintf("cannot use download directory: %v", err))
		return
	}

	meta, err := o.engine.Extract(ctx, url)
	if err != nil {
		log.Error("extraction failed", slog.String("error", err.Error()))
		o.registry.Fail(id, fmt.Sprintf("could not read video info: %v", err))
		return
	}
	entry := meta.First()

	start := o.now()
	log.Info("download started",
		slog.String("video_id", entry.ID),
		slog.String("format", string(formatType)),
		slog.String("dir", outputDir))

	opts := ytdlp.Options{
		OutputDir:       outputDir,
		Format:          formatType,
		SocketTimeout:   o.opts.SocketTimeout,
		Retries:         o.opts.Retries,
		FragmentRetries: o.opts.FragmentRetries,
	}

	outputPath, err := o.engine.Download(ctx, url, opts, o.progressSink(id, log))
	if err != nil {
		log.Error("download failed", slog.String("error", err.Error()))
		o.registry.Fail(id, err.Error())
		return
	}

	// Post-processing changes the real extension for audio; trust the
	// requested container over whatever the engine predicted.
	if formatType == ytdlp.FormatAudio {
		outputPath = forceExtension(outputPath, ".mp3")
	}
	if !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(outputDir, outputPath)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		log.Error("output file missing after download", slog.String("path", outputPath))
		o.registry.Fail(id, "download completed but the output file is missing")
		return
	}

	video := o.buildVideo(entry, outputPath, info.Size())
	if err := o.catalog.Append(video); err != nil {
		log.Error("catalog append failed", slog.String("error", err.Error()))
		o.registry.Fail(id, fmt.Sprintf("download saved to %s but could not be cataloged: %v", outputPath, err))
		return
	}

	o.registry.Complete(id, video)
	log.Info("download completed",
		slog.String("path", outputPath),
		slog.String("size", video.Size),
		slog.String("duration", time.Since(start).Round(time.Millisecond).String()))
}

// progressSink translates engine events into registry updates. Percent
// is computed from downloaded/total, falling back to the engine's
// estimated total when the exact total is unknown; the registry clamps
// out any non-monotonic values.
func (o *Orchestrator) progressSink(id string, log *slog.Logger) ytdlp.Sink {
	return func(ev ytdlp.ProgressEvent) {
		switch ev.Status {
		case ytdlp.EventDownloading:
			total := ev.TotalBytes
			if total <= 0 {
				total = ev.TotalBytesEstimate
			}
			if total > 0 {
				o.registry.SetProgress(id, float64(ev.DownloadedBytes)/float64(total)*100)
			}
		case ytdlp.EventFinished:
			o.registry.MarkProcessing(id)
		case ytdlp.EventError:
			// The terminal failure arrives via Download's return value.
			log.Warn("engine reported error event", slog.String("message", ev.Message))
		}
	}
}

// resolveOutputDir picks and prepares the destination. The result is
// always absolute: the engine and later file serving must not depend on
// the process working directory.
func (o *Orchestrator) resolveOutputDir(destDir string) (string, error) {
	dir := destDir
	if dir == "" {
		dir = o.opts.DefaultDir
	}
	if dir == "" {
		dir = "downloads"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	return filepath.Abs(dir)
}

func (o *Orchestrator) buildVideo(meta *ytdlp.Metadata, path string, size int64) catalog.Video {
	title := meta.Title
	if title == "" {
		title = placeholderTitle
	}
	author := meta.Uploader
	if author == "" {
		author = placeholderAuthor
	}
	description := meta.Description
	if description == "" {
		description = placeholderDescription
	}

	return catalog.Video{
		VideoID:     meta.ID,
		Title:       title,
		Author:      author,
		Description: description,
		Duration:    format.Duration(int(meta.Duration)),
		Filepath:    path,
		Size:        format.Size(size),
		Thumbnail:   meta.Thumbnail,
		CreatedAt:   o.now().Format(createdAtLayout),
	}
}

// forceExtension replaces the path's extension.
func forceExtension(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
