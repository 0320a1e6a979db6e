package ytdlp

import (
	"encoding/json"
	"fmt"
)

// Metadata is the engine's view of a URL: either a single video or a
// collection with entries.
type Metadata struct {
	ID          string
	Title       string
	Uploader    string
	Description string
	Thumbnail   string
	Duration    float64 // seconds
	Ext         string
	WebpageURL  string
	IsPlaylist  bool
	Entries     []Metadata
	Formats     []Format
}

// Format describes one retrievable stream variant.
type Format struct {
	FormatID   string `json:"format_id"`
	Ext        string `json:"ext"`
	Resolution string `json:"resolution"`
	Note       string `json:"format_note"`
	Filesize   int64  `json:"filesize"`
}

// First returns the metadata the download actually refers to: the first
// entry when the result represents a collection, the metadata itself
// otherwise.
func (m *Metadata) First() *Metadata {
	if m.IsPlaylist && len(m.Entries) > 0 {
		return &m.Entries[0]
	}
	return m
}

// rawInfo mirrors the fields of yt-dlp's -J output that we consume.
type rawInfo struct {
	Type        string         `json:"_type"`
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Uploader    string         `json:"uploader"`
	Channel     string         `json:"channel"`
	Description string         `json:"description"`
	Duration    float64        `json:"duration"`
	Ext         string         `json:"ext"`
	WebpageURL  string         `json:"webpage_url"`
	Thumbnail   string         `json:"thumbnail"`
	Thumbnails  []rawThumbnail `json:"thumbnails"`
	Entries     []rawInfo      `json:"entries"`
	Formats     []Format       `json:"formats"`
}

type rawThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// parseMetadata parses yt-dlp's single-document JSON output.
func parseMetadata(data []byte) (*Metadata, error) {
	var raw rawInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}
	meta := raw.toMetadata()
	return &meta, nil
}

func (r rawInfo) toMetadata() Metadata {
	m := Metadata{
		ID:          r.ID,
		Title:       r.Title,
		Uploader:    coalesce(r.Uploader, r.Channel),
		Description: r.Description,
		Duration:    r.Duration,
		Ext:         r.Ext,
		WebpageURL:  r.WebpageURL,
		Thumbnail:   r.bestThumbnail(),
		IsPlaylist:  r.Type == "playlist" || r.Type == "multi_video",
		Formats:     r.Formats,
	}
	for _, entry := range r.Entries {
		m.Entries = append(m.Entries, entry.toMetadata())
	}
	return m
}

// bestThumbnail returns the best quality thumbnail URL.
func (r rawInfo) bestThumbnail() string {
	if r.Thumbnail != "" {
		return r.Thumbnail
	}

	var best rawThumbnail
	for _, t := range r.Thumbnails {
		if t.Width*t.Height > best.Width*best.Height {
			best = t
		}
	}
	return best.URL
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
