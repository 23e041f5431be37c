package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration.
type Config struct {
	Paths PathsConfig `mapstructure:"paths"`
	Build BuildConfig `mapstructure:"build"`
	API   APIConfig   `mapstructure:"api"`
	I18n  I18nConfig  `mapstructure:"i18n"`
	Query QueryConfig `mapstructure:"query"`
	Log   LogConfig   `mapstructure:"log"`
}

// PathsConfig locates the script corpus and the artifact directory.
type PathsConfig struct {
	ProjectRoot string `mapstructure:"project_root"`
	DstRoot     string `mapstructure:"dst_root"`
	ScriptsZip  string `mapstructure:"scripts_zip"`
	ScriptsDir  string `mapstructure:"scripts_dir"`
	IndexDir    string `mapstructure:"index_dir"`
}

// IndexPath returns the artifact directory, defaulting to <project_root>/data/index.
func (p PathsConfig) IndexPath() string {
	if p.IndexDir != "" {
		return p.IndexDir
	}
	root := p.ProjectRoot
	if root == "" {
		root = "."
	}
	return filepath.Join(root, "data", "index")
}

// BuildConfig holds build pipeline configuration.
type BuildConfig struct {
	Concurrency  int    `mapstructure:"concurrency"`
	Force        bool   `mapstructure:"force"`
	TagOverrides string `mapstructure:"tag_overrides"` // YAML rule file, optional
	IconBase     string `mapstructure:"icon_base"`
}

// APIConfig holds API server configuration.
type APIConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	HotReload       bool          `mapstructure:"hot_reload"`
	CacheMaxAge     int           `mapstructure:"cache_max_age"`     // seconds
	ResponseCacheMB int           `mapstructure:"response_cache_mb"` // 0 disables the response cache
	ReloadDebounce  time.Duration `mapstructure:"reload_debounce"`
}

// Address returns host:port.
func (a APIConfig) Address() string {
	return a.Host + ":" + a.Port
}

// I18nConfig selects display languages.
type I18nConfig struct {
	PreferredLang string `mapstructure:"preferred_lang"`
	SecondaryLang string `mapstructure:"secondary_lang"`
}

// QueryConfig tunes the query layer.
type QueryConfig struct {
	TraceCacheSize int `mapstructure:"trace_cache_size"`
	SearchLimitMax int `mapstructure:"search_limit_max"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	// Paths
	v.SetDefault("paths.project_root", ".")
	v.SetDefault("paths.dst_root", "")
	v.SetDefault("paths.scripts_zip", "")
	v.SetDefault("paths.scripts_dir", "")
	v.SetDefault("paths.index_dir", "")

	// Build
	v.SetDefault("build.concurrency", 8)
	v.SetDefault("build.force", false)
	v.SetDefault("build.tag_overrides", "")
	v.SetDefault("build.icon_base", "static/icons/")

	// API
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "30s")
	v.SetDefault("api.hot_reload", false)
	v.SetDefault("api.cache_max_age", 300)
	v.SetDefault("api.response_cache_mb", 64)
	v.SetDefault("api.reload_debounce", "500ms")

	// i18n
	v.SetDefault("i18n.preferred_lang", "en")
	v.SetDefault("i18n.secondary_lang", "zh")

	// Query
	v.SetDefault("query.trace_cache_size", 4096)
	v.SetDefault("query.search_limit_max", 2000)

	// Logging
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// New creates a new Config instance from Viper.
func New(v *viper.Viper) *Config {
	var config Config

	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("unable to decode config: %w", err))
	}

	if err := config.Validate(); err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}

	return &config
}

// Load is New without the panic, for callers that report errors themselves.
func Load(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Build.Concurrency < 1 {
		return errors.New("build.concurrency must be at least 1")
	}

	if c.API.Port == "" {
		return errors.New("api.port is required")
	}

	if c.API.CacheMaxAge < 0 {
		return errors.New("api.cache_max_age must not be negative")
	}

	if c.API.ResponseCacheMB < 0 {
		return errors.New("api.response_cache_mb must not be negative")
	}

	if c.Query.TraceCacheSize < 1 {
		return errors.New("query.trace_cache_size must be at least 1")
	}

	if c.Query.SearchLimitMax < 1 {
		return errors.New("query.search_limit_max must be at least 1")
	}

	if c.I18n.PreferredLang == "" {
		return errors.New("i18n.preferred_lang is required")
	}

	if c.Log.Level != "" && !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level)
	}

	if c.Log.Format != "" && c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log.format %q must be json or text", c.Log.Format)
	}

	return nil
}
