// Package task tracks in-flight download tasks. State lives only in
// process memory: tasks do not survive a restart and callers are
// expected to poll before one happens.
package task

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"tubedl/internal/catalog"
)

// Status is the closed set of task states. Terminal statuses never
// revert.
type Status string

const (
	StatusDownloading Status = "downloading"
	StatusProcessing  Status = "processing"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
)

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// ErrTaskNotFound indicates the requested task id is not registered.
var ErrTaskNotFound = errors.New("task not found")

// Snapshot is the client-visible state of one task.
type Snapshot struct {
	ID       string         `json:"download_id"`
	Status   Status         `json:"status"`
	Progress float64        `json:"progress"`
	Error    string         `json:"error,omitempty"`
	Video    *catalog.Video `json:"video,omitempty"`
}

// Registry is the shared map of live tasks. It is owned by the server,
// constructed at startup, and safe for concurrent use from the polling
// path and the background download path.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Snapshot
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Snapshot)}
}

// Create registers a new task in the downloading state and returns its
// id. Ids derive from the creation timestamp; the registry lock makes
// the rare same-nanosecond collision impossible to hand out twice.
func (r *Registry) Create() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := fmt.Sprintf("dl-%d", time.Now().UnixNano())
	for _, exists := r.tasks[id]; exists; _, exists = r.tasks[id] {
		id = fmt.Sprintf("dl-%d", time.Now().UnixNano())
	}

	r.tasks[id] = &Snapshot{ID: id, Status: StatusDownloading}
	return id
}

// Get returns a copy of the task state, or ErrTaskNotFound.
func (r *Registry) Get(id string) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return Snapshot{}, ErrTaskNotFound
	}
	return *t, nil
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// SetProgress records download progress. The external engine does not
// guarantee monotonic percentages, so values are clamped to
// max(previous, new). Updates are ignored once the task has left the
// downloading state.
func (r *Registry) SetProgress(id string, progress float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.Status != StatusDownloading {
		return
	}
	if progress > t.Progress {
		t.Progress = progress
	}
}

// MarkProcessing transitions downloading -> processing, entered once the
// raw transfer finished but post-processing may still run. Progress is
// not meaningful from here on.
func (r *Registry) MarkProcessing(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.Status.Terminal() {
		return
	}
	t.Status = StatusProcessing
}

// Complete marks the task completed with its resulting catalog record.
func (r *Registry) Complete(id string, video catalog.Video) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.Status.Terminal() {
		return
	}
	t.Status = StatusCompleted
	t.Progress = 100
	t.Video = &video
	t.Error = ""
}

// Fail marks the task failed with a message suitable for direct display.
func (r *Registry) Fail(id string, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.Status.Terminal() {
		return
	}
	t.Status = StatusError
	t.Error = message
	t.Video = nil
}
