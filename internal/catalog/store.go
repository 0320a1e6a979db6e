// Package catalog persists the durable list of completed downloads as a
// single JSON file. The catalog is an ordered sequence, not a map:
// entries are append-only and video id lookups return the first match.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

const lockTimeout = 5 * time.Second

// Video is a completed download record. All fields are strings as
// served to clients; once appended the record is immutable.
type Video struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
	Filepath    string `json:"filepath"`
	Size        string `json:"size"`
	Thumbnail   string `json:"thumbnail"`
	CreatedAt   string `json:"created_at"`
}

// Store reads and writes the catalog file. All mutations run the full
// load+mutate+save sequence under a single mutex, so two downloads
// finishing at the same time cannot drop each other's entry. A flock
// on the catalog path guards against other processes as well.
type Store struct {
	path string
	mu   sync.Mutex
	log  *slog.Logger
}

// NewStore creates a store backed by the JSON file at path. The file
// is created on first save.
func NewStore(path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{path: path, log: log}
}

// Load reads the full catalog. A missing file yields an empty catalog.
// A corrupt file is preserved to a ".corrupt-<timestamp>" sibling and
// then also treated as empty, so one bad write never blocks the
// service; the preserved copy is kept for manual recovery.
func (s *Store) Load() ([]Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]Video, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Video{}, nil
		}
		return nil, &StorageError{Op: "read", Path: s.path, Err: err}
	}

	var videos []Video
	if err := json.Unmarshal(data, &videos); err != nil {
		s.preserveCorrupt(err)
		return []Video{}, nil
	}
	return videos, nil
}

// preserveCorrupt moves an unparseable catalog aside instead of letting
// the next save silently overwrite it.
func (s *Store) preserveCorrupt(cause error) {
	backup := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
	if err := os.Rename(s.path, backup); err != nil {
		s.log.Error("catalog corrupt and could not be preserved",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return
	}
	s.log.Warn("corrupt catalog preserved, starting empty",
		slog.String("path", s.path),
		slog.String("backup", backup),
		slog.String("error", cause.Error()))
}

// Save atomically overwrites the catalog with the given sequence,
// preserving order. Non-ASCII text is written as UTF-8, not escaped,
// so titles round-trip exactly.
func (s *Store) Save(videos []Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(videos)
}

func (s *Store) save(videos []Video) error {
	if videos == nil {
		videos = []Video{}
	}

	writer, err := NewAtomicWriter(s.path)
	if err != nil {
		return &StorageError{Op: "write", Path: s.path, Err: err}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(videos); err != nil {
		writer.Abort()
		return &StorageError{Op: "write", Path: s.path, Err: err}
	}

	if err := writer.Commit(); err != nil {
		return &StorageError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

// Append loads the catalog, appends the video and saves the result.
// The whole sequence holds both the store mutex and the file lock.
func (s *Store) Append(video Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock := NewFileLock(s.path)
	if err := lock.Lock(lockTimeout); err != nil {
		return err
	}
	defer lock.Unlock()

	videos, err := s.load()
	if err != nil {
		return err
	}
	return s.save(append(videos, video))
}

// Find returns the first catalog entry with the given video id, or
// ErrNotFound. Lookups are linear scans over the sequence.
func (s *Store) Find(videoID string) (Video, error) {
	videos, err := s.Load()
	if err != nil {
		return Video{}, err
	}
	for _, v := range videos {
		if v.VideoID == videoID {
			return v, nil
		}
	}
	return Video{}, ErrNotFound
}
