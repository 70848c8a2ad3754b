package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/recera/pinchzoom/internal/cache"
	"github.com/recera/pinchzoom/internal/imagestore"
)

// FileName is the project configuration file
const FileName = "pinchzoom.toml"

// Config represents pinchzoom.toml
type Config struct {
	Server     ServerConfig    `koanf:"server"`
	Zoom       ZoomConfig      `koanf:"zoom"`
	Thumbnails ThumbnailConfig `koanf:"thumbnails"`
	Cache      CacheConfig     `koanf:"cache"`
}

// ServerConfig contains gallery server configuration
type ServerConfig struct {
	Host      string `koanf:"host"`
	Port      int    `koanf:"port"`
	ImagesDir string `koanf:"images_dir"`
	// Live renders widgets bound to server-side zoom sessions
	Live bool `koanf:"live"`
}

// ZoomConfig contains widget defaults
type ZoomConfig struct {
	ScaleStep float64 `koanf:"scale_step"` // scale change per pinch step (default: 0.05)
	LazyLoad  *bool   `koanf:"lazy_load"`  // load the zoom image on first click (default: true)
}

// ThumbnailConfig bounds generated thumbnails
type ThumbnailConfig struct {
	Width   int `koanf:"width"`
	Height  int `koanf:"height"`
	Quality int `koanf:"quality"` // JPEG quality, 1-100
}

// CacheConfig contains thumbnail cache configuration
type CacheConfig struct {
	Dir         string `koanf:"dir"`
	MaxSizeMB   int    `koanf:"max_size_mb"`
	MaxAgeHours int    `koanf:"max_age_hours"`
	Strategy    string `koanf:"strategy"` // "lru", "lfu" or "fifo"
}

// Load loads pinchzoom.toml from the user config directory and then from
// projectPath, the latter winning.
func Load(projectPath string) (*Config, error) {
	return LoadFiles(
		filepath.Join(xdg.ConfigHome, "pinchzoom", FileName),
		filepath.Join(projectPath, FileName),
	)
}

// LoadFiles merges the given TOML files in order. Missing files are skipped;
// with none present the defaults are returned.
func LoadFiles(paths ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	applyDefaults(&config)
	config.Server.ImagesDir = expandPath(config.Server.ImagesDir)
	config.Cache.Dir = expandPath(config.Cache.Dir)

	return &config, nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	lazy := true
	return &Config{
		Server: ServerConfig{
			Host:      "localhost",
			Port:      8080,
			ImagesDir: "images",
		},
		Zoom: ZoomConfig{
			ScaleStep: 0.05,
			LazyLoad:  &lazy,
		},
		Thumbnails: ThumbnailConfig{
			Width:   640,
			Height:  640,
			Quality: 75,
		},
		Cache: CacheConfig{
			Dir:         cache.DefaultDir(),
			MaxSizeMB:   256,
			MaxAgeHours: 30 * 24,
			Strategy:    "lru",
		},
	}
}

// applyDefaults applies default values to missing configuration
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.Server.Host == "" {
		config.Server.Host = defaults.Server.Host
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.ImagesDir == "" {
		config.Server.ImagesDir = defaults.Server.ImagesDir
	}

	if config.Zoom.ScaleStep == 0 {
		config.Zoom.ScaleStep = defaults.Zoom.ScaleStep
	}
	if config.Zoom.LazyLoad == nil {
		config.Zoom.LazyLoad = defaults.Zoom.LazyLoad
	}

	if config.Thumbnails.Width == 0 {
		config.Thumbnails.Width = defaults.Thumbnails.Width
	}
	if config.Thumbnails.Height == 0 {
		config.Thumbnails.Height = defaults.Thumbnails.Height
	}
	if config.Thumbnails.Quality == 0 {
		config.Thumbnails.Quality = defaults.Thumbnails.Quality
	}

	if config.Cache.Dir == "" {
		config.Cache.Dir = defaults.Cache.Dir
	}
	if config.Cache.MaxSizeMB == 0 {
		config.Cache.MaxSizeMB = defaults.Cache.MaxSizeMB
	}
	if config.Cache.MaxAgeHours == 0 {
		config.Cache.MaxAgeHours = defaults.Cache.MaxAgeHours
	}
	if config.Cache.Strategy == "" {
		config.Cache.Strategy = defaults.Cache.Strategy
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Zoom.ScaleStep <= 0 {
		errs = append(errs, fmt.Errorf("zoom.scale_step must be positive, got %g", c.Zoom.ScaleStep))
	}
	if c.Thumbnails.Width < 0 || c.Thumbnails.Height < 0 {
		errs = append(errs, errors.New("thumbnails.width and thumbnails.height must not be negative"))
	}
	if c.Thumbnails.Quality < 1 || c.Thumbnails.Quality > 100 {
		errs = append(errs, fmt.Errorf("thumbnails.quality %d out of range 1-100", c.Thumbnails.Quality))
	}
	if _, err := cache.ParseStrategy(c.Cache.Strategy); err != nil {
		errs = append(errs, fmt.Errorf("cache.strategy: %w", err))
	}
	return errors.Join(errs...)
}

// Addr returns the host:port the server listens on
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Lazy reports whether widgets load the zoom image on first click
func (z ZoomConfig) Lazy() bool {
	return z.LazyLoad == nil || *z.LazyLoad
}

// Options converts the section to thumbnail options
func (t ThumbnailConfig) Options() imagestore.ThumbnailOptions {
	return imagestore.ThumbnailOptions{
		Width:   uint(max(t.Width, 0)),
		Height:  uint(max(t.Height, 0)),
		Quality: t.Quality,
	}
}

// Options converts the section to cache options
func (c CacheConfig) Options() (cache.Config, error) {
	strategy, err := cache.ParseStrategy(c.Strategy)
	if err != nil {
		return cache.Config{}, err
	}
	return cache.Config{
		Dir:      c.Dir,
		MaxSize:  int64(c.MaxSizeMB) << 20,
		MaxAge:   time.Duration(c.MaxAgeHours) * time.Hour,
		Strategy: strategy,
	}, nil
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
