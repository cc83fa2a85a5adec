// Package config loads ramme settings from TOML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds settings for both the album server and the viewer.
type Config struct {
	Server ServerConfig `koanf:"server"`
	Viewer ViewerConfig `koanf:"viewer"`
}

// ServerConfig holds settings for the album server.
type ServerConfig struct {
	Root     string `koanf:"root"`      // directory tree of albums
	CacheDir string `koanf:"cache_dir"` // where thumbnails are written
	Addr     string `koanf:"addr"`      // host:port to listen on
	Watch    bool   `koanf:"watch"`     // invalidate caches on file changes
	Quality  int    `koanf:"quality"`   // JPEG quality of thumbnails
}

// ViewerConfig holds settings for the navigation client.
type ViewerConfig struct {
	Server   string `koanf:"server"`   // base URL of the album server
	Timezone string `koanf:"timezone"` // IANA zone picture dates are read in
}

// DefaultAddr is where the album server listens unless configured otherwise.
const DefaultAddr = "localhost:12800"

// Load reads the default config files followed by extra, later files winning.
// Missing default files are ignored; a missing extra file is an error.
func Load(extra string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	if extra != "" {
		if err := k.Load(file.Provider(expandPath(extra)), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", extra, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{Addr: DefaultAddr},
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	cfg.Server.Root = expandPath(cfg.Server.Root)
	cfg.Server.CacheDir = expandPath(cfg.Server.CacheDir)
	cfg.Viewer.Server = strings.TrimSuffix(cfg.Viewer.Server, "/")

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/ramme/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ramme", "config.toml"))
	}

	// 2. ./ramme.toml
	paths = append(paths, "ramme.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// ThumbnailDir returns the configured thumbnail directory, defaulting to the
// user cache directory.
func (c *ServerConfig) ThumbnailDir() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	if d, err := os.UserCacheDir(); err == nil {
		return filepath.Join(d, "ramme")
	}
	return filepath.Join(os.TempDir(), "ramme")
}

// Location returns the zone picture dates are interpreted in; local time
// unless a timezone is configured.
func (c *ViewerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}
