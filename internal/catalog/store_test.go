package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "videos.json"), nil)
}

func testVideo(id string) Video {
	return Video{
		VideoID:   id,
		Title:     "Title " + id,
		Author:    "Author",
		Duration:  "1:05",
		Filepath:  "/videos/" + id + ".mp4",
		Size:      "12.34 MB",
		CreatedAt: "2026-01-02 15:04:05",
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	videos, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(videos) != 0 {
		t.Errorf("Load() len = %d, want 0", len(videos))
	}
}

func TestStore_AppendPreservesOrder(t *testing.T) {
	store := newTestStore(t)

	const n = 5
	for i := 0; i < n; i++ {
		if err := store.Append(testVideo(strconv.Itoa(i))); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	videos, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(videos) != n {
		t.Fatalf("Load() len = %d, want %d", len(videos), n)
	}
	for i, v := range videos {
		if v.VideoID != strconv.Itoa(i) {
			t.Errorf("videos[%d].VideoID = %q, want %q", i, v.VideoID, strconv.Itoa(i))
		}
	}
}

func TestStore_SaveLoadIdempotent(t *testing.T) {
	store := newTestStore(t)

	if err := store.Append(testVideo("a")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	first, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := store.Save(first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(first) != len(second) || first[0] != second[0] {
		t.Errorf("save(load()) changed the catalog: %+v vs %+v", first, second)
	}
}

func TestStore_NonASCIIRoundTrip(t *testing.T) {
	store := newTestStore(t)

	video := testVideo("jp")
	video.Title = "日本語のタイトル — тест"
	video.Author = "著者 & <friends>"
	if err := store.Append(video); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := store.Find("jp")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.Title != video.Title {
		t.Errorf("title = %q, want %q", got.Title, video.Title)
	}
	if got.Author != video.Author {
		t.Errorf("author = %q, want %q", got.Author, video.Author)
	}

	// The raw file must carry the text unescaped.
	raw, err := os.ReadFile(store.path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(raw), "日本語のタイトル") {
		t.Error("catalog file does not contain raw UTF-8 title")
	}
}

func TestStore_FindFirstMatch(t *testing.T) {
	store := newTestStore(t)

	first := testVideo("dup")
	first.Title = "first"
	second := testVideo("dup")
	second.Title = "second"
	if err := store.Append(first); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := store.Append(second); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := store.Find("dup")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.Title != "first" {
		t.Errorf("Find() returned %q, want first match", got.Title)
	}
}

func TestStore_FindNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Find("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Find() error = %v, want ErrNotFound", err)
	}
}

func TestStore_CorruptFilePreserved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "videos.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store := NewStore(path, nil)
	videos, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(videos) != 0 {
		t.Errorf("Load() len = %d, want 0 for corrupt file", len(videos))
	}

	entries, err := filepath.Glob(path + ".corrupt-*")
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("corrupt backups = %d, want 1", len(entries))
	}
	raw, _ := os.ReadFile(entries[0])
	if string(raw) != "{not json" {
		t.Errorf("backup content = %q, want original corrupt bytes", raw)
	}
}

func TestStore_ConcurrentAppendKeepsAllEntries(t *testing.T) {
	store := newTestStore(t)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := store.Append(testVideo(strconv.Itoa(id))); err != nil {
				t.Errorf("Append() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	videos, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(videos) != n {
		t.Fatalf("Load() len = %d, want %d (entries dropped by racing appends)", len(videos), n)
	}

	seen := make(map[string]bool)
	for _, v := range videos {
		seen[v.VideoID] = true
	}
	for i := 0; i < n; i++ {
		if !seen[strconv.Itoa(i)] {
			t.Errorf("entry %d missing from catalog", i)
		}
	}
}
