package ytdlp

import (
	"strconv"
	"strings"
)

// EventStatus is the engine-neutral progress vocabulary. Engine-specific
// status strings are translated here and never leak to callers.
type EventStatus string

const (
	// EventDownloading carries a partial-transfer byte count.
	EventDownloading EventStatus = "downloading"
	// EventFinished means the raw transfer is done; post-processing may
	// still be running.
	EventFinished EventStatus = "finished"
	// EventError carries the engine's failure message.
	EventError EventStatus = "error"
)

// ProgressEvent is one partial-transfer update. TotalBytes is zero when
// the exact total is unknown; TotalBytesEstimate may then hold the
// engine's estimate.
type ProgressEvent struct {
	Status             EventStatus
	DownloadedBytes    int64
	TotalBytes         int64
	TotalBytesEstimate int64
	Message            string
}

// Sink receives progress events in the order the engine emits them.
// The engine does not guarantee monotonic progress.
type Sink func(ProgressEvent)

// progressPrefix tags the stdout lines produced by our progress
// template so they can be told apart from printed file paths.
const progressPrefix = "tubedl|"

// progressTemplate is passed to yt-dlp via --progress-template. Fields
// render as "NA" when the engine does not know them.
const progressTemplate = "download:" + progressPrefix +
	"%(progress.status)s|%(progress.downloaded_bytes)s|%(progress.total_bytes)s|%(progress.total_bytes_estimate)s"

// parseProgressLine converts one templated stdout line into an event.
// Returns false for lines that are not progress output.
func parseProgressLine(line string) (ProgressEvent, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), progressPrefix)
	if !ok {
		return ProgressEvent{}, false
	}

	fields := strings.Split(rest, "|")
	if len(fields) != 4 {
		return ProgressEvent{}, false
	}

	var ev ProgressEvent
	switch fields[0] {
	case "downloading":
		ev.Status = EventDownloading
	case "finished":
		ev.Status = EventFinished
	case "error":
		ev.Status = EventError
	default:
		return ProgressEvent{}, false
	}

	ev.DownloadedBytes = parseBytes(fields[1])
	ev.TotalBytes = parseBytes(fields[2])
	ev.TotalBytesEstimate = parseBytes(fields[3])
	return ev, true
}

// parseBytes handles the engine's "NA" marker and fractional byte
// counts (estimates are floats).
func parseBytes(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "NA" || s == "null" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}
