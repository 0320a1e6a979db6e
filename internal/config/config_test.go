package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":8080")
	}
	if cfg.CatalogPath != "data/videos.json" {
		t.Errorf("CatalogPath = %q, want %q", cfg.CatalogPath, "data/videos.json")
	}
	if cfg.MaxParallel != 3 {
		t.Errorf("MaxParallel = %d, want 3", cfg.MaxParallel)
	}
}

func TestLoad_MissingFileIsOptional(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("Load() error = %v, want nil for a missing file", err)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tubedl.yaml")
	data := strings.Join([]string{
		"addr: \":9000\"",
		"download_dir: /srv/media",
		"download_timeout: 45m",
		"max_parallel: 5",
	}, "\n")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":9000")
	}
	if cfg.DownloadDir != "/srv/media" {
		t.Errorf("DownloadDir = %q, want %q", cfg.DownloadDir, "/srv/media")
	}
	if cfg.DownloadTimeout != 45*time.Minute {
		t.Errorf("DownloadTimeout = %v, want 45m", cfg.DownloadTimeout)
	}
	if cfg.MaxParallel != 5 {
		t.Errorf("MaxParallel = %d, want 5", cfg.MaxParallel)
	}
	// Untouched fields keep their defaults.
	if cfg.YtdlpPath != "yt-dlp" {
		t.Errorf("YtdlpPath = %q, want default", cfg.YtdlpPath)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tubedl.yaml")
	if err := os.WriteFile(path, []byte("addr: \":9000\"\nretries: 2\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("TUBEDL_ADDR", ":7070")
	t.Setenv("TUBEDL_RETRIES", "8")
	t.Setenv("TUBEDL_SOCKET_TIMEOUT", "90s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Errorf("Addr = %q, want env override", cfg.Addr)
	}
	if cfg.Retries != 8 {
		t.Errorf("Retries = %d, want env override 8", cfg.Retries)
	}
	if cfg.SocketTimeout != 90*time.Second {
		t.Errorf("SocketTimeout = %v, want 90s", cfg.SocketTimeout)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tubedl.yaml")
	if err := os.WriteFile(path, []byte("addr: [unclosed"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() error = nil, want parse failure")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"empty download dir", func(c *Config) { c.DownloadDir = "" }},
		{"empty catalog path", func(c *Config) { c.CatalogPath = "" }},
		{"zero download timeout", func(c *Config) { c.DownloadTimeout = 0 }},
		{"negative retries", func(c *Config) { c.Retries = -1 }},
		{"zero max parallel", func(c *Config) { c.MaxParallel = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() error = nil, want failure")
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}
