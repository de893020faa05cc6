// Package config loads application configuration from defaults, a
// yaml config file, and MOCHIMONO_* environment variables, in rising
// priority.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	// UserID is the local identity used for private-scope checks and
	// realm membership. Generated on first run if absent.
	UserID string `mapstructure:"user_id" yaml:"user_id"`

	// DBPath is the SQLite database location.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// Development enables administrative operations such as clear.
	Development bool `mapstructure:"development" yaml:"development"`

	Sync     SyncConfig     `mapstructure:"sync" yaml:"sync"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// SyncConfig configures the remote replication service.
type SyncConfig struct {
	// URL is the websocket endpoint of the state feed. Empty
	// disables sync for the process lifetime.
	URL       string `mapstructure:"url" yaml:"url"`
	AuthToken string `mapstructure:"auth_token" yaml:"auth_token"`
	// Disabled forces sync off even when a URL is configured.
	Disabled bool `mapstructure:"disabled" yaml:"disabled"`
}

// Enabled reports whether replication should run.
func (c SyncConfig) Enabled() bool { return c.URL != "" && !c.Disabled }

// AnalysisConfig configures the remote AI analysis service.
type AnalysisConfig struct {
	APIKey           string `mapstructure:"api_key" yaml:"api_key"`
	Model            string `mapstructure:"model" yaml:"model"`
	PrecisionMode    bool   `mapstructure:"precision_mode" yaml:"precision_mode"`
	EnrichedSearch   bool   `mapstructure:"enriched_search" yaml:"enriched_search"`
	MunicipalityCode string `mapstructure:"municipality_code" yaml:"municipality_code"`
}

// LogConfig configures file logging.
type LogConfig struct {
	// File is the rotated log destination. Empty logs to stderr only.
	File       string `mapstructure:"file" yaml:"file"`
	Level      string `mapstructure:"level" yaml:"level"` // debug, info, warn, error
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// DefaultDir returns the per-user data directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mochimono"
	}
	return filepath.Join(home, ".mochimono")
}

func newViper() *viper.Viper {
	v := viper.New()
	dir := DefaultDir()

	v.SetDefault("db_path", filepath.Join(dir, "items.db"))
	v.SetDefault("development", false)
	v.SetDefault("sync.url", "")
	v.SetDefault("sync.disabled", false)
	v.SetDefault("analysis.model", "")
	v.SetDefault("log.file", filepath.Join(dir, "mochimono.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("MOCHIMONO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the configuration. A missing config file is not an
// error; defaults and environment apply.
func Load() (*Config, error) {
	return load("")
}

// LoadFile reads the configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Watch reloads the configuration whenever the config file changes
// and hands the fresh copy to onChange. Malformed edits are logged
// and skipped.
func Watch(path string, logger *slog.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = slog.Default()
	}

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			logger.Warn("ignoring malformed config change", "file", e.Name, "error", err)
			return
		}
		logger.Info("config reloaded", "file", e.Name)
		onChange(&cfg)
	})
	v.WatchConfig()
	return nil
}

// WriteSample renders a commented starter config to path, refusing to
// overwrite an existing file.
func WriteSample(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	header := []byte("# mochimono configuration\n# Environment variables (MOCHIMONO_*) take priority over this file.\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
