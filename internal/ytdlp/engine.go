// Package ytdlp drives the external yt-dlp binary as an opaque
// extraction and download engine. The wrapper owns the subprocess,
// translates its output into engine-neutral events and errors, and
// keeps yt-dlp vocabulary from leaking into the rest of the service.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tubedl/internal/retry"
)

const (
	defaultPath    = "yt-dlp"
	defaultTimeout = 30 * time.Minute

	// outputTemplate names files "{title}-{id}.{ext}" so two videos with
	// the same title, or the same title under different ids, never collide.
	outputTemplate = "%(title)s-%(id)s.%(ext)s"
)

// FormatType is the user-selected output kind.
type FormatType string

const (
	// FormatVideo requests best-available combined video+audio.
	FormatVideo FormatType = "video"
	// FormatAudio requests best-available audio extracted to MP3.
	FormatAudio FormatType = "audio"
)

// ParseFormatType validates a submitted format_type field. The empty
// string defaults to video.
func ParseFormatType(s string) (FormatType, error) {
	switch s {
	case "", string(FormatVideo):
		return FormatVideo, nil
	case string(FormatAudio):
		return FormatAudio, nil
	default:
		return "", fmt.Errorf("invalid format_type %q: must be %q or %q", s, FormatVideo, FormatAudio)
	}
}

// Options configures one download run.
type Options struct {
	// OutputDir is the absolute directory the file is written to.
	OutputDir string
	// Format selects video or audio output.
	Format FormatType
	// SocketTimeout bounds individual network operations.
	SocketTimeout time.Duration
	// Retries is the whole-request retry count passed to the engine.
	Retries int
	// FragmentRetries is the per-fragment retry count.
	FragmentRetries int
}

// Runner executes yt-dlp subprocesses.
type Runner struct {
	// Path is the path to the yt-dlp executable. Defaults to "yt-dlp".
	Path string
	// Timeout is the maximum time one engine call may take.
	Timeout time.Duration
	// RetryConfig governs retries around metadata extraction.
	RetryConfig retry.Config
}

// NewRunner creates a runner with default settings.
func NewRunner() *Runner {
	return &Runner{
		Path:        defaultPath,
		Timeout:     defaultTimeout,
		RetryConfig: retry.DefaultConfig(),
	}
}

func (r *Runner) path() string {
	if r.Path != "" {
		return r.Path
	}
	return defaultPath
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return defaultTimeout
}

// checkInstalled verifies that yt-dlp is available.
func (r *Runner) checkInstalled(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, r.path(), "--version")
	if err := cmd.Run(); err != nil {
		return ErrNotInstalled
	}
	return nil
}

// Extract resolves a URL into metadata without downloading. Transient
// failures are retried with backoff; unrecognized URLs are permanent.
func (r *Runner) Extract(ctx context.Context, url string) (*Metadata, error) {
	if err := r.checkInstalled(ctx); err != nil {
		return nil, err
	}

	var meta *Metadata
	err := retry.Do(ctx, r.RetryConfig, extractClassifier, func(ctx context.Context) error {
		cmdCtx, cancel := context.WithTimeout(ctx, r.timeout())
		defer cancel()

		args := []string{
			"-J",
			"--no-warnings",
			"--playlist-items", "1",
			url,
		}
		cmd := exec.CommandContext(cmdCtx, r.path(), args...)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			return &ExtractionError{URL: url, Err: classifyRunError(cmdCtx, err, stderr.String())}
		}

		parsed, err := parseMetadata(stdout.Bytes())
		if err != nil {
			return &ExtractionError{URL: url, Err: err}
		}
		meta = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// extractClassifier keeps retries away from permanently broken URLs.
func extractClassifier(err error) bool {
	if errors.Is(err, ErrUnsupportedURL) || errors.Is(err, ErrNotInstalled) {
		return false
	}
	return retry.IsRetryable(err)
}

// Download fetches the media behind url into opts.OutputDir, streaming
// progress events into sink as the engine emits them. It returns the
// final on-disk path reported by the engine after any post-processing
// moved the file into place. When the URL names a collection only the
// first entry is fetched.
func (r *Runner) Download(ctx context.Context, url string, opts Options, sink Sink) (string, error) {
	if err := r.checkInstalled(ctx); err != nil {
		return "", err
	}

	cmdCtx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	args := r.buildDownloadArgs(url, opts)
	cmd := exec.CommandContext(cmdCtx, r.path(), args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", &TransferError{URL: url, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", &TransferError{URL: url, Err: fmt.Errorf("start yt-dlp: %w", err)}
	}

	// Progress lines and the printed final path share stdout; the
	// template prefix tells them apart.
	finalPath := ""
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if ev, ok := parseProgressLine(line); ok {
			if sink != nil {
				sink(ev)
			}
			continue
		}
		if p := strings.TrimSpace(line); filepath.IsAbs(p) && finalPath == "" {
			finalPath = p
		}
	}

	if err := cmd.Wait(); err != nil {
		cause := classifyRunError(cmdCtx, err, stderr.String())
		if sink != nil {
			sink(ProgressEvent{Status: EventError, Message: cause.Error()})
		}
		return "", &TransferError{URL: url, Err: cause}
	}

	if finalPath == "" {
		return "", &TransferError{URL: url, Err: errors.New("engine did not report an output path")}
	}
	return finalPath, nil
}

// buildDownloadArgs assembles the engine invocation for one run.
func (r *Runner) buildDownloadArgs(url string, opts Options) []string {
	args := []string{
		"-o", filepath.Join(opts.OutputDir, outputTemplate),
		"--no-warnings",
		"--newline",
		"--progress",
		"--progress-template", progressTemplate,
		"--print", "after_move:filepath",
		"--no-mtime",
		"--playlist-items", "1",
	}

	if opts.SocketTimeout > 0 {
		args = append(args, "--socket-timeout", strconv.Itoa(int(opts.SocketTimeout.Seconds())))
	}
	if opts.Retries > 0 {
		args = append(args, "--retries", strconv.Itoa(opts.Retries))
	}
	if opts.FragmentRetries > 0 {
		args = append(args, "--fragment-retries", strconv.Itoa(opts.FragmentRetries))
	}

	if opts.Format == FormatAudio {
		// The intermediate video-only artifact is not retained; yt-dlp
		// replaces it with the extracted MP3.
		args = append(args,
			"-f", "bestaudio/best",
			"-x",
			"--audio-format", "mp3",
			"--audio-quality", "192",
		)
	} else {
		args = append(args, "-f", "bestvideo+bestaudio/best")
	}

	return append(args, url)
}

// classifyRunError maps a failed subprocess onto the wrapper's error
// vocabulary using the context state and common stderr patterns.
func classifyRunError(ctx context.Context, runErr error, stderr string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrNetworkTimeout
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return context.Canceled
	}

	if strings.Contains(stderr, "Unsupported URL") || strings.Contains(stderr, "is not a valid URL") {
		return ErrUnsupportedURL
	}

	if msg := firstErrorLine(stderr); msg != "" {
		return fmt.Errorf("yt-dlp failed: %s", msg)
	}
	return fmt.Errorf("yt-dlp failed: %w", runErr)
}

// firstErrorLine pulls the first "ERROR:" line out of stderr so task
// messages stay displayable instead of carrying a full trace.
func firstErrorLine(stderr string) string {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "ERROR:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return strings.TrimSpace(stderr)
}

// Available reports whether the engine binary can be found, for startup
// diagnostics.
func (r *Runner) Available() bool {
	_, err := exec.LookPath(r.path())
	return err == nil
}
