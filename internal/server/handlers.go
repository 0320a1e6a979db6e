package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"tubedl/internal/catalog"
	"tubedl/internal/dialog"
	"tubedl/internal/format"
	"tubedl/internal/task"
	"tubedl/internal/ytdlp"
)

// Launcher starts background downloads and returns the task id.
type Launcher interface {
	Launch(url, destDir string, formatType ytdlp.FormatType) string
}

// Extractor resolves a URL into metadata without downloading.
type Extractor interface {
	Extract(ctx context.Context, url string) (*ytdlp.Metadata, error)
}

// Browser asks the user for a directory through the native picker.
type Browser interface {
	Choose(ctx context.Context) (dialog.Result, error)
}

type startedResponse struct {
	DownloadID string `json:"download_id"`
	Status     string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// validateURL rejects submissions before any task is registered: the
// field must be present and name a YouTube location.
func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("video_url is required")
	}
	if !strings.Contains(raw, "youtube.com") && !strings.Contains(raw, "youtu.be") {
		return errors.New("video_url must be a YouTube URL")
	}
	return nil
}

// handleDownload accepts a submission and starts the background
// download. Validation failures return 400 with no observable side
// effect; after that the response is immediate and progress is polled.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse form")
		return
	}

	url := r.FormValue("video_url")
	if err := validateURL(url); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	formatType, err := ytdlp.ParseFormatType(r.FormValue("format_type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := s.launcher.Launch(url, r.FormValue("download_dir"), formatType)
	s.log.Info("download accepted",
		slog.String("download_id", id),
		slog.String("url", url),
		slog.String("format", string(formatType)))

	writeJSON(w, http.StatusOK, startedResponse{DownloadID: id, Status: "started"})
}

// handleStatus returns the current task snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("download_id")

	snap, err := s.registry.Get(id)
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "download not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleVideos lists the full catalog in recorded order.
func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.catalog.Load()
	if err != nil {
		s.log.Error("catalog load failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "cannot read video catalog")
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

// handleServeVideo streams a cataloged file back to the client as an
// attachment.
func (s *Server) handleServeVideo(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("video_id")

	video, err := s.catalog.Find(videoID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "video not found")
			return
		}
		s.log.Error("catalog lookup failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "cannot read video catalog")
		return
	}

	if _, err := os.Stat(video.Filepath); err != nil {
		s.log.Warn("cataloged file missing on disk",
			slog.String("video_id", videoID),
			slog.String("path", video.Filepath))
		writeError(w, http.StatusNotFound, "video file is missing")
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(video.Filepath)))
	http.ServeFile(w, r, video.Filepath)
}

type videoInfoResponse struct {
	VideoID     string         `json:"video_id"`
	Title       string         `json:"title"`
	Author      string         `json:"author"`
	Description string         `json:"description"`
	Duration    string         `json:"duration"`
	Thumbnail   string         `json:"thumbnail"`
	Formats     []formatChoice `json:"formats"`
}

type formatChoice struct {
	FormatID   string `json:"format_id"`
	Ext        string `json:"ext"`
	Resolution string `json:"resolution"`
	Note       string `json:"note,omitempty"`
	Size       string `json:"size,omitempty"`
}

// handleVideoInfo resolves metadata synchronously, without downloading.
func (s *Server) handleVideoInfo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse form")
		return
	}
	url := r.FormValue("video_url")
	if err := validateURL(url); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meta, err := s.extractor.Extract(r.Context(), url)
	if err != nil {
		s.log.Error("metadata extraction failed",
			slog.String("url", url),
			slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "could not read video info")
		return
	}

	entry := meta.First()
	resp := videoInfoResponse{
		VideoID:     entry.ID,
		Title:       entry.Title,
		Author:      entry.Uploader,
		Description: entry.Description,
		Duration:    format.Duration(int(entry.Duration)),
		Thumbnail:   entry.Thumbnail,
		Formats:     make([]formatChoice, 0, len(entry.Formats)),
	}
	for _, f := range entry.Formats {
		choice := formatChoice{
			FormatID:   f.FormatID,
			Ext:        f.Ext,
			Resolution: f.Resolution,
			Note:       f.Note,
		}
		if f.Filesize > 0 {
			choice.Size = format.Size(f.Filesize)
		}
		resp.Formats = append(resp.Formats, choice)
	}
	writeJSON(w, http.StatusOK, resp)
}

type browseResponse struct {
	Path      string `json:"path,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// handleBrowseFolder opens the native directory picker and reports the
// choice. Requests queue behind the single dialog worker.
func (s *Server) handleBrowseFolder(w http.ResponseWriter, r *http.Request) {
	result, err := s.browser.Choose(r.Context())
	if err != nil {
		s.log.Error("directory picker failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "cannot open folder dialog")
		return
	}
	if result.Cancelled {
		writeJSON(w, http.StatusOK, browseResponse{Cancelled: true})
		return
	}
	writeJSON(w, http.StatusOK, browseResponse{Path: result.Path})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON", slog.String("error", err.Error()))
	}
}
