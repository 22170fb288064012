// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// User config store kinds.
const (
	StoreRemote = "remote"
	StoreBolt   = "bolt"
	StoreMemory = "memory"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Backend    BackendConfig    `yaml:"backend"`
	Views      ViewsConfig      `yaml:"views"`
	UserConfig UserConfigConfig `yaml:"user_config"`
	Database   DatabaseConfig   `yaml:"database"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Logging    LoggingConfig    `yaml:"logging"`
	Include    IncludeConfig    `yaml:"include"`
}

type IncludeConfig struct {
	Directory string `yaml:"directory"`
	Pattern   string `yaml:"pattern"`
	Enabled   bool   `yaml:"enabled"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// BackendConfig locates the monitoring REST backend and the account the
// dashboard logs in with.
type BackendConfig struct {
	URL               string        `yaml:"url"`
	Timeout           time.Duration `yaml:"timeout"`
	User              string        `yaml:"user"`
	Password          string        `yaml:"password"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

type ViewsConfig struct {
	ReloadInterval    time.Duration `yaml:"reload_interval"`
	AutoRefresh       *bool         `yaml:"auto_refresh"`
	MaxPagesToShow    int           `yaml:"max_pages_to_show"`
	RecordsPerPage    int           `yaml:"records_per_page"`
	DeleteConcurrency int           `yaml:"delete_concurrency"`
	HistorySpan       time.Duration `yaml:"history_span"`
}

// AutoRefreshEnabled defaults to true when unset.
func (v ViewsConfig) AutoRefreshEnabled() bool {
	return v.AutoRefresh == nil || *v.AutoRefresh
}

type UserConfigConfig struct {
	Store string `yaml:"store"`
	// User owns the locally stored items. It defaults to backend.user.
	User string `yaml:"user"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type PrometheusConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MetricsPath string `yaml:"metrics_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PartialConfig represents a partial configuration that can be merged
type PartialConfig struct {
	Server     *ServerConfig     `yaml:"server,omitempty"`
	Backend    *BackendConfig    `yaml:"backend,omitempty"`
	Views      *ViewsConfig      `yaml:"views,omitempty"`
	UserConfig *UserConfigConfig `yaml:"user_config,omitempty"`
	Database   *DatabaseConfig   `yaml:"database,omitempty"`
	Prometheus *PrometheusConfig `yaml:"prometheus,omitempty"`
	Logging    *LoggingConfig    `yaml:"logging,omitempty"`
}

func Load(filename string) (*Config, error) {
	config, err := loadConfigFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config file: %w", err)
	}

	if config.Include.Enabled && config.Include.Directory != "" {
		if err := loadIncludes(config, filepath.Dir(filename)); err != nil {
			return nil, fmt.Errorf("failed to load includes: %w", err)
		}
	}

	setDefaults(config)

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func loadConfigFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

func loadIncludes(config *Config, baseDir string) error {
	includeDir := config.Include.Directory

	// Relative to the main config file
	if !filepath.IsAbs(includeDir) {
		includeDir = filepath.Join(baseDir, includeDir)
	}

	if _, err := os.Stat(includeDir); os.IsNotExist(err) {
		return fmt.Errorf("include directory does not exist: %s", includeDir)
	}

	pattern := config.Include.Pattern
	if pattern == "" {
		pattern = "*.yaml"
	}

	matches, err := filepath.Glob(filepath.Join(includeDir, pattern))
	if err != nil {
		return fmt.Errorf("failed to glob include pattern: %w", err)
	}

	if pattern == "*.yaml" {
		ymlMatches, err := filepath.Glob(filepath.Join(includeDir, "*.yml"))
		if err != nil {
			return fmt.Errorf("failed to glob .yml files: %w", err)
		}
		matches = append(matches, ymlMatches...)
	}

	sort.Slice(matches, func(i, j int) bool {
		return filepath.Base(matches[i]) < filepath.Base(matches[j])
	})

	for _, match := range matches {
		if err := loadAndMergeInclude(config, match); err != nil {
			return fmt.Errorf("failed to load include file %s: %w", match, err)
		}
	}

	return nil
}

func loadAndMergeInclude(config *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read include file: %w", err)
	}

	var partial PartialConfig
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("failed to parse include file YAML: %w", err)
	}

	mergePartialConfig(config, &partial)

	return nil
}

// mergePartialConfig overrides only the sections present in the include.
func mergePartialConfig(config *Config, partial *PartialConfig) {
	if partial.Server != nil {
		mergeServerConfig(&config.Server, partial.Server)
	}
	if partial.Backend != nil {
		mergeBackendConfig(&config.Backend, partial.Backend)
	}
	if partial.Views != nil {
		mergeViewsConfig(&config.Views, partial.Views)
	}
	if partial.UserConfig != nil {
		if partial.UserConfig.Store != "" {
			config.UserConfig.Store = partial.UserConfig.Store
		}
		if partial.UserConfig.User != "" {
			config.UserConfig.User = partial.UserConfig.User
		}
	}
	if partial.Database != nil && partial.Database.Path != "" {
		config.Database.Path = partial.Database.Path
	}
	if partial.Prometheus != nil {
		config.Prometheus.Enabled = partial.Prometheus.Enabled
		if partial.Prometheus.MetricsPath != "" {
			config.Prometheus.MetricsPath = partial.Prometheus.MetricsPath
		}
	}
	if partial.Logging != nil {
		mergeLoggingConfig(&config.Logging, partial.Logging)
	}
}

func mergeServerConfig(main *ServerConfig, partial *ServerConfig) {
	if partial.Port != "" {
		main.Port = partial.Port
	}
	if partial.ReadTimeout != 0 {
		main.ReadTimeout = partial.ReadTimeout
	}
	if partial.WriteTimeout != 0 {
		main.WriteTimeout = partial.WriteTimeout
	}
}

func mergeBackendConfig(main *BackendConfig, partial *BackendConfig) {
	if partial.URL != "" {
		main.URL = partial.URL
	}
	if partial.Timeout != 0 {
		main.Timeout = partial.Timeout
	}
	if partial.User != "" {
		main.User = partial.User
	}
	if partial.Password != "" {
		main.Password = partial.Password
	}
	if partial.RequestsPerSecond != 0 {
		main.RequestsPerSecond = partial.RequestsPerSecond
	}
	if partial.Burst != 0 {
		main.Burst = partial.Burst
	}
}

func mergeViewsConfig(main *ViewsConfig, partial *ViewsConfig) {
	if partial.ReloadInterval != 0 {
		main.ReloadInterval = partial.ReloadInterval
	}
	if partial.AutoRefresh != nil {
		main.AutoRefresh = partial.AutoRefresh
	}
	if partial.MaxPagesToShow != 0 {
		main.MaxPagesToShow = partial.MaxPagesToShow
	}
	if partial.RecordsPerPage != 0 {
		main.RecordsPerPage = partial.RecordsPerPage
	}
	if partial.DeleteConcurrency != 0 {
		main.DeleteConcurrency = partial.DeleteConcurrency
	}
	if partial.HistorySpan != 0 {
		main.HistorySpan = partial.HistorySpan
	}
}

func mergeLoggingConfig(main *LoggingConfig, partial *LoggingConfig) {
	if partial.Level != "" {
		main.Level = partial.Level
	}
	if partial.Format != "" {
		main.Format = partial.Format
	}
}

func setDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8000"
	}

	// Backend defaults
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 30 * time.Second
	}

	// View defaults
	if cfg.Views.ReloadInterval == 0 {
		cfg.Views.ReloadInterval = 60 * time.Second
	}
	if cfg.Views.MaxPagesToShow == 0 {
		cfg.Views.MaxPagesToShow = 10
	}
	if cfg.Views.RecordsPerPage == 0 {
		cfg.Views.RecordsPerPage = 50
	}
	if cfg.Views.DeleteConcurrency == 0 {
		cfg.Views.DeleteConcurrency = 4
	}
	if cfg.Views.HistorySpan == 0 {
		cfg.Views.HistorySpan = 6 * time.Hour
	}

	// User config defaults
	if cfg.UserConfig.Store == "" {
		cfg.UserConfig.Store = StoreRemote
	}
	if cfg.UserConfig.User == "" {
		cfg.UserConfig.User = cfg.Backend.User
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/hatoview.db"
	}

	if cfg.Include.Pattern == "" {
		cfg.Include.Pattern = "*.yaml"
	}

	if cfg.Prometheus.MetricsPath == "" {
		cfg.Prometheus.MetricsPath = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func validate(cfg *Config) error {
	if cfg.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if !isValidURL(cfg.Backend.URL) {
		return fmt.Errorf("backend.url must be an http or https URL: %s", cfg.Backend.URL)
	}
	if cfg.Backend.RequestsPerSecond < 0 {
		return fmt.Errorf("backend.requests_per_second cannot be negative")
	}

	if cfg.Views.ReloadInterval < 0 {
		return fmt.Errorf("views.reload_interval cannot be negative")
	}
	if cfg.Views.MaxPagesToShow < 1 {
		return fmt.Errorf("views.max_pages_to_show must be at least 1")
	}
	if cfg.Views.RecordsPerPage < 1 {
		return fmt.Errorf("views.records_per_page must be at least 1")
	}
	if cfg.Views.DeleteConcurrency < 1 {
		return fmt.Errorf("views.delete_concurrency must be at least 1")
	}

	switch cfg.UserConfig.Store {
	case StoreRemote, StoreMemory:
	case StoreBolt:
		if cfg.UserConfig.User == "" {
			return fmt.Errorf("user_config.user is required for the bolt store")
		}
	default:
		return fmt.Errorf("user_config.store must be one of remote, bolt, memory: %s", cfg.UserConfig.Store)
	}

	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json: %s", cfg.Logging.Format)
	}

	if cfg.Include.Enabled {
		if cfg.Include.Directory == "" {
			return fmt.Errorf("include.directory must be specified when include.enabled is true")
		}
		if cfg.Include.Pattern != "" && !isValidGlobPattern(cfg.Include.Pattern) {
			return fmt.Errorf("include.pattern contains invalid glob pattern: %s", cfg.Include.Pattern)
		}
	}

	return nil
}

// isValidURL checks that str is an absolute http or https URL
func isValidURL(str string) bool {
	u, err := url.Parse(str)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// isValidGlobPattern checks if a string is a valid glob pattern
func isValidGlobPattern(pattern string) bool {
	if strings.Contains(pattern, "/") || strings.Contains(pattern, "\\") {
		return false
	}
	_, err := filepath.Match(pattern, "test.yaml")
	return err == nil
}
