// Package config loads application settings from a config file, environment
// variables, and defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved application configuration.
type Config struct {
	// DataDir is the root for local state: the database, the image spool,
	// and log files.
	DataDir string `mapstructure:"data_dir"`
	// DBFile is the SQLite database path. Empty means DataDir/unimarket.db.
	DBFile string `mapstructure:"db_file"`

	// BackendURL is the base URL of the marketplace REST API.
	BackendURL string `mapstructure:"backend_url"`
	// StreamURL is the websocket endpoint for incoming chat messages.
	StreamURL string `mapstructure:"stream_url"`

	// UserID identifies the signed-in user for wishlist and chat operations.
	UserID string `mapstructure:"user_id"`

	// SyncInterval is the period between background sync runs.
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	// CacheTTL bounds how long cached product listings are served without a
	// refetch.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// MeteredSync pauses automatic sync on metered connections.
	MeteredSync bool `mapstructure:"metered_sync"`

	// SpoolDir is watched for images awaiting upload. Empty means
	// DataDir/spool.
	SpoolDir string `mapstructure:"spool_dir"`

	// LogFile enables file logging with rotation when set.
	LogFile string `mapstructure:"log_file"`

	// DashboardPort serves the sync status dashboard when nonzero.
	DashboardPort int `mapstructure:"dashboard_port"`
}

// DBPath returns the effective database path.
func (c *Config) DBPath() string {
	if c.DBFile != "" {
		return c.DBFile
	}
	return filepath.Join(c.DataDir, "unimarket.db")
}

// SpoolPath returns the effective spool directory.
func (c *Config) SpoolPath() string {
	if c.SpoolDir != "" {
		return c.SpoolDir
	}
	return filepath.Join(c.DataDir, "spool")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".unimarket"
	}
	return filepath.Join(home, ".unimarket")
}

// Load reads configuration from the given file (optional), environment
// variables prefixed UNIMARKET_, and built-in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Every key needs a default, even an empty one: viper only consults
	// environment variables during Unmarshal for keys it already knows.
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("db_file", "")
	v.SetDefault("backend_url", "http://localhost:8080/api/v1")
	v.SetDefault("stream_url", "ws://localhost:8080/api/v1/messages/stream")
	v.SetDefault("user_id", "")
	v.SetDefault("sync_interval", 15*time.Minute)
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("metered_sync", false)
	v.SetDefault("spool_dir", "")
	v.SetDefault("log_file", "")
	v.SetDefault("dashboard_port", 0)

	v.SetEnvPrefix("UNIMARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultDataDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend_url must be set")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive")
	}
	return nil
}
