// Package dialog bridges the service to the host's native directory
// picker. Desktop dialog toolkits are not safe to invoke from arbitrary
// goroutines, so a single long-lived worker owns every invocation and
// callers queue behind it over a channel.
package dialog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// ErrClosed is returned by Choose after the picker has been shut down.
var ErrClosed = errors.New("dialog: picker closed")

// Result is the outcome of one picker invocation. Cancelled is true when
// the user dismissed the dialog without choosing.
type Result struct {
	Path      string
	Cancelled bool
}

// runFunc performs one native dialog invocation.
type runFunc func(ctx context.Context) (Result, error)

type request struct {
	ctx   context.Context
	reply chan response
}

type response struct {
	result Result
	err    error
}

// Picker serializes directory-picker invocations through one worker
// goroutine. The zero value is not usable; construct with New.
type Picker struct {
	requests chan request
	done     chan struct{}
	run      runFunc
	log      *slog.Logger

	closeOnce sync.Once
}

// New starts a picker backed by the zenity command-line dialog tool.
func New(log *slog.Logger) *Picker {
	return newPicker(runZenity, log)
}

func newPicker(run runFunc, log *slog.Logger) *Picker {
	if log == nil {
		log = slog.Default()
	}
	p := &Picker{
		requests: make(chan request),
		done:     make(chan struct{}),
		run:      run,
		log:      log,
	}
	go p.worker()
	return p
}

func (p *Picker) worker() {
	for {
		select {
		case req := <-p.requests:
			result, err := p.run(req.ctx)
			if err != nil {
				p.log.Error("directory dialog failed", slog.String("error", err.Error()))
			}
			req.reply <- response{result: result, err: err}
		case <-p.done:
			return
		}
	}
}

// Choose asks the user for a directory and blocks until the dialog
// closes, the context expires, or the picker shuts down. Callers queue:
// at most one native dialog is ever open.
func (p *Picker) Choose(ctx context.Context) (Result, error) {
	req := request{ctx: ctx, reply: make(chan response, 1)}

	select {
	case p.requests <- req:
	case <-p.done:
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case resp := <-req.reply:
		return resp.result, resp.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Close stops the worker. In-flight dialogs finish; subsequent Choose
// calls fail with ErrClosed.
func (p *Picker) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}

// runZenity opens the native GTK directory chooser. Exit status 1 means
// the user dismissed the dialog, which is not an error.
func runZenity(ctx context.Context) (Result, error) {
	cmd := exec.CommandContext(ctx, "zenity", "--file-selection", "--directory",
		"--title", "Select download folder")

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return Result{Cancelled: true}, nil
		}
		return Result{}, err
	}

	path := strings.TrimSpace(stdout.String())
	if path == "" {
		return Result{Cancelled: true}, nil
	}
	return Result{Path: path}, nil
}
