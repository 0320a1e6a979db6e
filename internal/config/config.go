// Package config manages service configuration. Values layer as
// defaults, then an optional YAML file, then TUBEDL_* environment
// variables, validated as a whole.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// DownloadDir receives downloads when a request names no directory.
	DownloadDir string `yaml:"download_dir"`
	// CatalogPath is the JSON catalog file.
	CatalogPath string `yaml:"catalog_path"`

	// YtdlpPath is the path to the yt-dlp executable.
	YtdlpPath string `yaml:"ytdlp_path"`
	// DownloadTimeout is the maximum time one download may take.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	// SocketTimeout bounds individual engine network operations.
	SocketTimeout time.Duration `yaml:"socket_timeout"`
	// Retries is the engine's whole-request retry count.
	Retries int `yaml:"retries"`
	// FragmentRetries is the engine's per-fragment retry count.
	FragmentRetries int `yaml:"fragment_retries"`
	// MaxParallel bounds concurrently running downloads.
	MaxParallel int `yaml:"max_parallel"`
}

// Default returns configuration with safe defaults.
func Default() *Config {
	return &Config{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
		DownloadDir:     "downloads",
		CatalogPath:     "data/videos.json",
		YtdlpPath:       "yt-dlp",
		DownloadTimeout: 30 * time.Minute,
		SocketTimeout:   30 * time.Second,
		Retries:         10,
		FragmentRetries: 10,
		MaxParallel:     3,
	}
}

// Load builds the effective configuration. The file at path is optional;
// a missing file is not an error, a malformed one is.
// Priority: env vars > config file > defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("TUBEDL_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("TUBEDL_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("TUBEDL_DOWNLOAD_DIR"); v != "" {
		c.DownloadDir = v
	}
	if v := os.Getenv("TUBEDL_CATALOG_PATH"); v != "" {
		c.CatalogPath = v
	}
	if v := os.Getenv("TUBEDL_YTDLP_PATH"); v != "" {
		c.YtdlpPath = v
	}
	if v := os.Getenv("TUBEDL_DOWNLOAD_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.DownloadTimeout = d
		}
	}
	if v := os.Getenv("TUBEDL_SOCKET_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SocketTimeout = d
		}
	}
	if v := os.Getenv("TUBEDL_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retries = n
		}
	}
	if v := os.Getenv("TUBEDL_FRAGMENT_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.FragmentRetries = n
		}
	}
	if v := os.Getenv("TUBEDL_MAX_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxParallel = n
		}
	}
}

// Validate checks that configuration values are valid and consistent.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("download_dir must not be empty")
	}
	if c.CatalogPath == "" {
		return fmt.Errorf("catalog_path must not be empty")
	}
	if c.YtdlpPath == "" {
		return fmt.Errorf("ytdlp_path must not be empty")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	if c.DownloadTimeout <= 0 {
		return fmt.Errorf("download_timeout must be positive")
	}
	if c.SocketTimeout <= 0 {
		return fmt.Errorf("socket_timeout must be positive")
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must be non-negative")
	}
	if c.FragmentRetries < 0 {
		return fmt.Errorf("fragment_retries must be non-negative")
	}
	if c.MaxParallel <= 0 {
		return fmt.Errorf("max_parallel must be positive")
	}
	return nil
}
