// Package config handles loading and saving aopgraph configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/aopgraph/config.yaml
//   - State:   ~/.local/state/aopgraph/ (fragment cache, recent networks)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServiceConfig points at the AOP network service.
type ServiceConfig struct {
	BaseURL     string `yaml:"base_url,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"` // parallel fragment fetches
}

// RefreshConfig holds the update-scheduler timing knobs, in milliseconds.
type RefreshConfig struct {
	TableDebounceMs int `yaml:"table_debounce_ms,omitempty"` // table refresh coalescing window
	LayoutDelayMs   int `yaml:"layout_delay_ms,omitempty"`   // relayout delay after mutation bursts
}

// UIConfig holds presentation preferences.
type UIConfig struct {
	FontSizeMultiplier float64  `yaml:"font_size_multiplier,omitempty"`
	Palette            []string `yaml:"palette,omitempty"` // group-by-AOP color cycle override
}

// CacheConfig controls the SQLite fragment cache.
type CacheConfig struct {
	Disabled bool   `yaml:"disabled,omitempty"`
	Path     string `yaml:"path,omitempty"`       // default: <state dir>/fragments.db
	MaxAgeH  int    `yaml:"max_age_hours,omitempty"` // 0 = never expire
}

// Config is the top-level configuration for aopgraph.
type Config struct {
	Service ServiceConfig `yaml:"service,omitempty"`
	Refresh RefreshConfig `yaml:"refresh,omitempty"`
	UI      UIConfig      `yaml:"ui,omitempty"`
	Cache   CacheConfig   `yaml:"cache,omitempty"`
	Watch   bool          `yaml:"watch,omitempty"` // auto-reload the loaded network file
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Service: ServiceConfig{
			BaseURL:     "https://aopwiki-api.vhp4safety.nl",
			Concurrency: 4,
		},
		Refresh: RefreshConfig{
			TableDebounceMs: 250,
			LayoutDelayMs:   100,
		},
		UI: UIConfig{FontSizeMultiplier: 1},
	}
}

// ConfigDir returns the XDG config directory for aopgraph.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "aopgraph")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "aopgraph")
}

// StateDir returns the XDG state directory for aopgraph.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "aopgraph")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "aopgraph")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// CachePath resolves the fragment cache location.
func (c Config) CachePath() string {
	if c.Cache.Path != "" {
		return expandHome(c.Cache.Path)
	}
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "fragments.db")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Service.Concurrency <= 0 {
		cfg.Service.Concurrency = 4
	}
	if cfg.UI.FontSizeMultiplier <= 0 {
		cfg.UI.FontSizeMultiplier = 1
	}
	if cfg.Refresh.TableDebounceMs <= 0 {
		cfg.Refresh.TableDebounceMs = 250
	}
	if cfg.Refresh.LayoutDelayMs <= 0 {
		cfg.Refresh.LayoutDelayMs = 100
	}

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
