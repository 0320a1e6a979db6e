package ytdlp

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the engine wrapper.
var (
	// ErrNotInstalled indicates the yt-dlp binary was not found.
	ErrNotInstalled = errors.New("yt-dlp not installed")
	// ErrUnsupportedURL indicates the engine does not recognize the URL.
	ErrUnsupportedURL = errors.New("unsupported url")
	// ErrNetworkTimeout indicates the engine ran out of time.
	ErrNetworkTimeout = errors.New("network timeout")
)

// TransferError wraps a failure while downloading media.
type TransferError struct {
	URL string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// ExtractionError wraps a failure while extracting metadata or running
// post-processing.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
