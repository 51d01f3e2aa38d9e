// Package config loads the gallery's TOML configuration file, overridable
// by GALLERY__-prefixed environment variables, and exposes every option
// enumerated for the external interface (managed root, ignore lists,
// page sizes, thumbnail sizing/concurrency, invalidator timing).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ThumbnailSize is a (width, height) fit-inside-box target.
type ThumbnailSize struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// Config is the fully resolved, validated runtime configuration.
type Config struct {
	// Ambient.
	ListenAddr  string `mapstructure:"listen_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	LogLevel    string `mapstructure:"log_level"`
	DatabasePath string `mapstructure:"database_path"`

	// Filesystem conventions (spec.md §6).
	ManagedRoot         string   `mapstructure:"managed_root"`
	IgnoreDotfiles      bool     `mapstructure:"ignore_dotfiles"`
	FilesToIgnore       []string `mapstructure:"files_to_ignore"`
	ExtensionsToIgnore  []string `mapstructure:"extensions_to_ignore"`
	CoverNames          []string `mapstructure:"cover_names"`

	// Layout/pagination (C6).
	GalleryPageSize int `mapstructure:"gallery_page_size"`
	ArchivePageSize int `mapstructure:"archive_page_size"`

	// Thumbnail pipeline (C4).
	ThumbnailSizes            map[string]ThumbnailSize `mapstructure:"thumbnail_sizes"`
	ThumbnailConcurrencyLimit int                      `mapstructure:"thumbnail_concurrency_limit"`
	ThumbnailBatchSize        int                      `mapstructure:"thumbnail_batch_size"`
	ThumbnailJobTimeout       time.Duration            `mapstructure:"thumbnail_job_timeout"`
	ThumbnailSweepInterval    time.Duration            `mapstructure:"thumbnail_sweep_interval"`

	// Invalidator (C5).
	InvalidatorDebounceSeconds int      `mapstructure:"invalidator_debounce_seconds"`
	WatcherRestartSchedule     []string `mapstructure:"watcher_restart_schedule"`
	InvalidatorSoftCapKeys     int      `mapstructure:"invalidator_soft_cap_keys"`

	// Sync (C3).
	SyncFreshnessWindowSeconds int `mapstructure:"sync_freshness_window_seconds"`
}

// Default returns the documented defaults from spec.md §6.
func Default() *Config {
	return &Config{
		ListenAddr:   "127.0.0.1:7070",
		MetricsAddr:  "127.0.0.1:7071",
		LogLevel:     "info",
		DatabasePath: "./gallery.db",

		IgnoreDotfiles:     true,
		FilesToIgnore:      []string{"thumbs.db", ".ds_store"},
		ExtensionsToIgnore: []string{".tmp", ".part"},
		CoverNames:         []string{"cover", "folder", "title"},

		GalleryPageSize: 30,
		ArchivePageSize: 21,

		ThumbnailSizes: map[string]ThumbnailSize{
			"small":  {Width: 200, Height: 200},
			"medium": {Width: 740, Height: 740},
			"large":  {Width: 1024, Height: 1024},
		},
		ThumbnailConcurrencyLimit: 2,
		ThumbnailBatchSize:        5,
		ThumbnailJobTimeout:       60 * time.Second,
		ThumbnailSweepInterval:    0,

		InvalidatorDebounceSeconds: 5,
		WatcherRestartSchedule:     []string{"1h"},
		InvalidatorSoftCapKeys:     500,

		SyncFreshnessWindowSeconds: 0,
	}
}

// Load reads the TOML file at path (if it exists) layered over Default(),
// then applies GALLERY__-prefixed environment variable overrides
// (e.g. GALLERY__MANAGED_ROOT, GALLERY__THUMBNAIL_CONCURRENCY_LIMIT).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	// viper joins prefix and key with "_", so this yields GALLERY__<KEY>.
	v.SetEnvPrefix("GALLERY_")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	def := Default()
	setDefaults(v, def)

	if err := v.ReadInConfig(); err != nil {
		if !isConfigFileNotFound(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func isConfigFileNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if err != nil && os.IsNotExist(err) {
		return true
	}
	return err != nil && (fmt.Sprintf("%T", err) == fmt.Sprintf("%T", notFound))
}

func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("metrics_addr", def.MetricsAddr)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("database_path", def.DatabasePath)
	v.SetDefault("managed_root", def.ManagedRoot)
	v.SetDefault("ignore_dotfiles", def.IgnoreDotfiles)
	v.SetDefault("files_to_ignore", def.FilesToIgnore)
	v.SetDefault("extensions_to_ignore", def.ExtensionsToIgnore)
	v.SetDefault("cover_names", def.CoverNames)
	v.SetDefault("gallery_page_size", def.GalleryPageSize)
	v.SetDefault("archive_page_size", def.ArchivePageSize)
	v.SetDefault("thumbnail_concurrency_limit", def.ThumbnailConcurrencyLimit)
	v.SetDefault("thumbnail_batch_size", def.ThumbnailBatchSize)
	v.SetDefault("thumbnail_job_timeout", def.ThumbnailJobTimeout)
	v.SetDefault("thumbnail_sweep_interval", def.ThumbnailSweepInterval)
	v.SetDefault("invalidator_debounce_seconds", def.InvalidatorDebounceSeconds)
	v.SetDefault("watcher_restart_schedule", def.WatcherRestartSchedule)
	v.SetDefault("invalidator_soft_cap_keys", def.InvalidatorSoftCapKeys)
	v.SetDefault("sync_freshness_window_seconds", def.SyncFreshnessWindowSeconds)
}

// Validate rejects configs that would make the core components unsafe to
// start (empty managed root, non-positive page sizes/concurrency).
func (c *Config) Validate() error {
	if c.ManagedRoot == "" {
		return fmt.Errorf("managed_root is required")
	}
	if c.GalleryPageSize <= 0 || c.ArchivePageSize <= 0 {
		return fmt.Errorf("page sizes must be positive")
	}
	if c.ThumbnailConcurrencyLimit <= 0 {
		return fmt.Errorf("thumbnail_concurrency_limit must be positive")
	}
	if c.ThumbnailBatchSize <= 0 {
		return fmt.Errorf("thumbnail_batch_size must be positive")
	}
	for _, name := range []string{"small", "medium", "large"} {
		size, ok := c.ThumbnailSizes[name]
		if !ok || size.Width <= 0 || size.Height <= 0 {
			return fmt.Errorf("thumbnail_sizes.%s must be configured with positive width/height", name)
		}
	}
	return nil
}

// IgnoredFileSet and IgnoredExtensionSet return lowercased lookup sets for
// the sync scan's ignore rules (spec.md §6 filesystem conventions).
func (c *Config) IgnoredFileSet() map[string]struct{} {
	return toLowerSet(c.FilesToIgnore)
}

func (c *Config) IgnoredExtensionSet() map[string]struct{} {
	return toLowerSet(c.ExtensionsToIgnore)
}

func toLowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}
